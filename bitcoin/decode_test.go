package bitcoin

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daglabs/chainhook/internal/logger"
)

func testLog() *logger.Logger { return logger.New("TEST", logger.LevelOff) }

func TestDecodeTransferSTXOpReturn(t *testing.T) {
	payload := append([]byte(magicMainnet), opcodeTransferSTX)
	script := append([]byte{0x6a, byte(len(payload))}, payload...)

	ops := decodeStacksOperations([]rawVout{{ScriptPubKey: "0x" + hex.EncodeToString(script)}})
	require.Len(t, ops, 1)
	require.Equal(t, "TransferSTX", string(ops[0].Kind))
}

func TestDecodeUnknownOpcodeIgnored(t *testing.T) {
	payload := append([]byte(magicMainnet), byte(0xff))
	script := append([]byte{0x6a, byte(len(payload))}, payload...)

	ops := decodeStacksOperations([]rawVout{{ScriptPubKey: "0x" + hex.EncodeToString(script)}})
	require.Nil(t, ops)
}

func TestDecodeMalformedPushdataNoOp(t *testing.T) {
	script := []byte{0x6a, 0x20, 0x01, 0x02} // claims 32 bytes, has 2
	ops := decodeStacksOperations([]rawVout{{ScriptPubKey: "0x" + hex.EncodeToString(script)}})
	require.Nil(t, ops)
}

func TestDecodeBlockCommitDistinguishesPoxFromPob(t *testing.T) {
	payload := append([]byte(magicMainnet), opcodeBlockCommit)
	opReturn := append([]byte{0x6a, byte(len(payload))}, payload...)

	hash1 := Hash160([]byte("recipient-one"))
	hash2 := Hash160([]byte("recipient-two"))
	reward1 := ScriptPubKeyForP2PKH(hash1)
	reward2 := ScriptPubKeyForP2PKH(hash2)

	outs := []rawVout{
		{ScriptPubKey: "0x" + hex.EncodeToString(opReturn)},
		{Value: 1000, ScriptPubKey: "0x" + hex.EncodeToString(reward1)},
		{Value: 2000, ScriptPubKey: "0x" + hex.EncodeToString(reward2)},
	}

	ops := decodeStacksOperations(outs)
	require.Len(t, ops, 1)
	require.Equal(t, "PoxBlockCommitment", string(ops[0].Kind))
	require.Len(t, ops[0].Rewards, 2)
}

func TestDecodeBlockCommitSingleOutputIsPob(t *testing.T) {
	payload := append([]byte(magicMainnet), opcodeBlockCommit)
	opReturn := append([]byte{0x6a, byte(len(payload))}, payload...)
	outs := []rawVout{{ScriptPubKey: "0x" + hex.EncodeToString(opReturn)}}

	ops := decodeStacksOperations(outs)
	require.Len(t, ops, 1)
	require.Equal(t, "PobBlockCommitment", string(ops[0].Kind))
}

func TestDecodeBurnBlockNotification(t *testing.T) {
	d := NewDecoder("mainnet", testLog())
	body := []byte(`{
		"burn_block_hash": "0xAAAA",
		"burn_block_height": 100,
		"parent_burn_block_hash": "0xBBBB",
		"burn_block_time": 1000,
		"reveal": [
			{"txid": "0xCCCC", "vin": [], "vout": [{"value": 1, "script_pubkey": "0x6a00"}], "fee": 10, "index": 0}
		]
	}`)

	block, err := d.Decode(body)
	require.NoError(t, err)
	require.Equal(t, uint64(100), block.BlockIdentifier.Index)
	require.Equal(t, "aaaa", block.BlockIdentifier.Hash)
	require.Equal(t, uint64(99), block.ParentBlockIdentifier.Index)
	require.Len(t, block.Transactions, 1)
	require.Equal(t, "cccc", block.Transactions[0].TransactionIdentifier.Hash)
}
