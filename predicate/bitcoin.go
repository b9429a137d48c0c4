// Package predicate implements the chainhook predicate language: parsing
// (via the tagged-union types below, which double as the YAML/JSON wire
// shape) and pure evaluation against a transaction (spec.md §4.6).
//
// Predicates are represented as tagged variants rather than an interface
// hierarchy, per the "no dynamic dispatch over trait objects" design note
// in spec.md §9: Evaluate is one switch over Kind.
package predicate

import (
	"encoding/hex"
	"strings"

	"github.com/daglabs/chainhook/bitcoin"
	"github.com/daglabs/chainhook/model"
)

// BitcoinKind tags a Bitcoin predicate variant.
type BitcoinKind string

const (
	BTCTransactionIDEquals   BitcoinKind = "TransactionIdentifierHash.Equals"
	BTCOpReturnEquals        BitcoinKind = "OpReturn.Equals"
	BTCOpReturnStartsWith    BitcoinKind = "OpReturn.StartsWith"
	BTCOpReturnEndsWith      BitcoinKind = "OpReturn.EndsWith"
	BTCP2pkhEquals           BitcoinKind = "P2pkh.Equals"
	BTCP2shEquals            BitcoinKind = "P2sh.Equals"
	BTCP2wpkhEquals          BitcoinKind = "P2wpkh.Equals"
	BTCP2wshEquals           BitcoinKind = "P2wsh.Equals"
	BTCPobAny                BitcoinKind = "Pob.Any"
	BTCPoxAny                BitcoinKind = "Pox.Any"
	BTCPoxRecipientEquals    BitcoinKind = "Pox.Recipient.Equals"
	BTCPoxRecipientStartsWith BitcoinKind = "Pox.Recipient.StartsWith"
	BTCPoxRecipientEndsWith  BitcoinKind = "Pox.Recipient.EndsWith"
	BTCKeyRegistrationAny    BitcoinKind = "KeyRegistration.Any"
	BTCTransferSTXAny        BitcoinKind = "TransferSTX.Any"
	BTCLockSTXAny            BitcoinKind = "LockSTX.Any"

	// BTCAll / BTCAny are the composite combinators restored from the
	// original Rust chainhooks module (see SPEC_FULL.md "Supplemented
	// Features" #2); they are not in spec.md's table but generalize it
	// with no new external surface.
	BTCAll BitcoinKind = "All"
	BTCAny BitcoinKind = "Any"
)

// BitcoinPredicate is the leaf (or composite) predicate evaluated against
// one BitcoinTransaction at a time.
type BitcoinPredicate struct {
	Kind  BitcoinKind `yaml:"kind" json:"kind"`
	Value string      `yaml:"value,omitempty" json:"value,omitempty"`
	Sub   []BitcoinPredicate `yaml:"predicates,omitempty" json:"predicates,omitempty"`
}

// EvaluateBitcoin is a pure function: for a given predicate and
// transaction it always returns the same boolean (spec.md §8 "predicate
// purity"). It short-circuits on first match when scanning sub-rules or
// outputs.
func EvaluateBitcoin(p BitcoinPredicate, tx model.BitcoinTransaction) bool {
	switch p.Kind {
	case BTCAll:
		for _, sub := range p.Sub {
			if !EvaluateBitcoin(sub, tx) {
				return false
			}
		}
		return true
	case BTCAny:
		for _, sub := range p.Sub {
			if EvaluateBitcoin(sub, tx) {
				return true
			}
		}
		return false

	case BTCTransactionIDEquals:
		return model.NormalizeHex(tx.TransactionIdentifier.Hash) == model.NormalizeHex(p.Value)

	case BTCOpReturnEquals, BTCOpReturnStartsWith, BTCOpReturnEndsWith:
		needle := normalizeOpReturnValue(p.Value)
		for _, out := range tx.Metadata.Outputs {
			data, ok := opReturnData(out.ScriptPubKey)
			if !ok {
				continue
			}
			hay := hex.EncodeToString(data)
			switch p.Kind {
			case BTCOpReturnEquals:
				if hay == needle {
					return true
				}
			case BTCOpReturnStartsWith:
				if strings.HasPrefix(hay, needle) {
					return true
				}
			case BTCOpReturnEndsWith:
				if strings.HasSuffix(hay, needle) {
					return true
				}
			}
		}
		return false

	case BTCP2pkhEquals:
		hash, isScriptHash, err := bitcoin.DecodeBase58Address(p.Value)
		if err != nil || isScriptHash {
			return false
		}
		return matchesAnyOutput(tx, bitcoin.ScriptPubKeyForP2PKH(hash))

	case BTCP2shEquals:
		hash, isScriptHash, err := bitcoin.DecodeBase58Address(p.Value)
		if err != nil || !isScriptHash {
			return false
		}
		return matchesAnyOutput(tx, bitcoin.ScriptPubKeyForP2SH(hash))

	case BTCP2wpkhEquals, BTCP2wshEquals:
		version, program, err := bitcoin.DecodeBech32Address(p.Value)
		if err != nil {
			return false
		}
		wantLen := 20
		if p.Kind == BTCP2wshEquals {
			wantLen = 32
		}
		if len(program) != wantLen {
			return false
		}
		return matchesAnyOutput(tx, bitcoin.ScriptPubKeyForWitness(version, program))

	case BTCPobAny:
		return hasOp(tx, model.StacksOpPobBlockCommitment)
	case BTCPoxAny:
		return hasOp(tx, model.StacksOpPoxBlockCommitment)
	case BTCKeyRegistrationAny:
		return hasOp(tx, model.StacksOpKeyRegistration)
	case BTCTransferSTXAny:
		return hasOp(tx, model.StacksOpTransferSTX)
	case BTCLockSTXAny:
		return hasOp(tx, model.StacksOpLockSTX)

	case BTCPoxRecipientEquals, BTCPoxRecipientStartsWith, BTCPoxRecipientEndsWith:
		for _, op := range tx.Metadata.StacksOperations {
			if op.Kind != model.StacksOpPoxBlockCommitment {
				continue
			}
			for _, reward := range op.Rewards {
				switch p.Kind {
				case BTCPoxRecipientEquals:
					if reward.Recipient == p.Value {
						return true
					}
				case BTCPoxRecipientStartsWith:
					if strings.HasPrefix(reward.Recipient, p.Value) {
						return true
					}
				case BTCPoxRecipientEndsWith:
					if strings.HasSuffix(reward.Recipient, p.Value) {
						return true
					}
				}
			}
		}
		return false
	}
	return false
}

// opReturnData strips the OP_RETURN opcode and its single pushdata-length
// byte and returns everything after, without validating the declared
// length against the remaining bytes — predicate matching (unlike the
// decoder's op recognition in bitcoin.decodeStacksOperations) is
// deliberately permissive here since it operates on arbitrary payloads,
// not just the bit-exact burn-chain operation encoding.
func opReturnData(scriptPubKeyHex string) ([]byte, bool) {
	script, err := decodeScriptHex(scriptPubKeyHex)
	if err != nil || len(script) < 2 || script[0] != 0x6a {
		return nil, false
	}
	return script[2:], true
}

func decodeScriptHex(s string) ([]byte, error) {
	return hex.DecodeString(model.NormalizeHex(s))
}

func hasOp(tx model.BitcoinTransaction, kind model.StacksOpKind) bool {
	for _, op := range tx.Metadata.StacksOperations {
		if op.Kind == kind {
			return true
		}
	}
	return false
}

func matchesAnyOutput(tx model.BitcoinTransaction, script []byte) bool {
	want := hex.EncodeToString(script)
	for _, out := range tx.Metadata.Outputs {
		if model.NormalizeHex(out.ScriptPubKey) == want {
			return true
		}
	}
	return false
}

// normalizeOpReturnValue implements spec.md §4.6's ASCII/hex duality: a
// value starting with "0x" is raw hex, otherwise it is ASCII to be
// UTF-8-encoded then hex-encoded before comparison.
func normalizeOpReturnValue(v string) string {
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		return model.NormalizeHex(v)
	}
	return hex.EncodeToString([]byte(v))
}
