package bitcoin

import (
	"encoding/hex"

	"github.com/daglabs/chainhook/model"
)

// Magic bytes distinguishing testnet ("T2") from mainnet ("X2") burn-chain
// operations, per spec.md §4.2.
const (
	magicTestnet = "T2"
	magicMainnet = "X2"
)

const (
	opcodeBlockCommit = 0x5b
	opcodeKeyRegister = 0x5e
	opcodeStackSTX    = 0x24
	opcodeTransferSTX = 0x3c
)

// burnAddresses are well-known single-recipient PoB burn outputs. A real
// deployment would source these from chain params; this is the devnet/
// regtest default used across the example fixtures.
var burnAddresses = map[string]struct{}{
	"0000000000000000000000000000000000000000": {},
}

// decodeStacksOperations inspects a transaction's outputs and, if the
// first output is an OP_RETURN carrying a recognized magic + opcode,
// returns the decoded StacksBaseChainOperation. An empty, non-error result
// is returned for anything unrecognized (spec.md §4.2: "not an error").
func decodeStacksOperations(outputs []rawVout) []model.StacksBaseChainOperation {
	if len(outputs) == 0 {
		return nil
	}
	payload, ok := opReturnPayload(outputs[0].ScriptPubKey)
	if !ok || len(payload) < 3 {
		return nil
	}
	magic := string(payload[0:2])
	if magic != magicTestnet && magic != magicMainnet {
		return nil
	}
	opcode := payload[2]

	switch opcode {
	case opcodeBlockCommit:
		return []model.StacksBaseChainOperation{decodeBlockCommit(outputs)}
	case opcodeKeyRegister:
		return []model.StacksBaseChainOperation{{Kind: model.StacksOpKeyRegistration}}
	case opcodeStackSTX:
		return []model.StacksBaseChainOperation{{Kind: model.StacksOpLockSTX}}
	case opcodeTransferSTX:
		return []model.StacksBaseChainOperation{{Kind: model.StacksOpTransferSTX}}
	default:
		// Unknown opcode: ignored silently.
		return nil
	}
}

// decodeBlockCommit distinguishes PoB from PoX by the shape of the
// outputs following the OP_RETURN: PoX pays two or more reward outputs to
// recognized reward addresses; PoB pays a single burn address.
func decodeBlockCommit(outputs []rawVout) model.StacksBaseChainOperation {
	if len(outputs) >= 3 {
		rewards := make([]model.PoxReward, 0, len(outputs)-1)
		for _, out := range outputs[1:] {
			addr, ok := addressFromScriptPubKey(out.ScriptPubKey)
			if !ok {
				continue
			}
			rewards = append(rewards, model.PoxReward{Recipient: addr, Amount: out.Value})
		}
		if len(rewards) >= 2 {
			return model.StacksBaseChainOperation{Kind: model.StacksOpPoxBlockCommitment, Rewards: rewards}
		}
	}
	return model.StacksBaseChainOperation{Kind: model.StacksOpPobBlockCommitment}
}

// opReturnPayload extracts the pushed data of an OP_RETURN script, or
// false if scriptPubKey is not an OP_RETURN script or its pushdata is
// malformed (too-short pushdata length prefix).
func opReturnPayload(scriptPubKeyHex string) ([]byte, bool) {
	script, err := decodeScriptHex(scriptPubKeyHex)
	if err != nil || len(script) < 2 {
		return nil, false
	}
	const opReturn = 0x6a
	if script[0] != opReturn {
		return nil, false
	}
	lengthByte := int(script[1])
	if lengthByte == 0 || len(script) < 2+lengthByte {
		// Malformed/too-short pushdata: retained without a decoded op.
		return nil, false
	}
	return script[2 : 2+lengthByte], true
}

func decodeScriptHex(s string) ([]byte, error) {
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		s = s[2:]
	}
	return hex.DecodeString(s)
}
