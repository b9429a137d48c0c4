package predicate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daglabs/chainhook/bitcoin"
	"github.com/daglabs/chainhook/model"
	"github.com/daglabs/chainhook/predicate"
)

func TestOpReturnEqualsHex(t *testing.T) {
	tx := model.BitcoinTransaction{
		Metadata: model.BitcoinTransactionMetadata{
			Outputs: []model.TxOut{{ScriptPubKey: "0x6affAAAA"}},
		},
	}
	require.True(t, predicate.EvaluateBitcoin(predicate.BitcoinPredicate{
		Kind: predicate.BTCOpReturnEquals, Value: "0xAAAA",
	}, tx))
	require.False(t, predicate.EvaluateBitcoin(predicate.BitcoinPredicate{
		Kind: predicate.BTCOpReturnEquals, Value: "0x0000",
	}, tx))
}

func TestP2pkhEquals(t *testing.T) {
	addr := "muYdXKmX9bByAueDe6KFfHd5Ff1gdN9ErG"
	hash, isScriptHash, err := bitcoin.DecodeBase58Address(addr)
	require.NoError(t, err)
	require.False(t, isScriptHash)

	tx := model.BitcoinTransaction{
		Metadata: model.BitcoinTransactionMetadata{
			Outputs: []model.TxOut{{
				ScriptPubKey: "0x" + hexEncode(bitcoin.ScriptPubKeyForP2PKH(hash)),
			}},
		},
	}

	require.True(t, predicate.EvaluateBitcoin(predicate.BitcoinPredicate{
		Kind: predicate.BTCP2pkhEquals, Value: addr,
	}, tx))
}

func TestTransactionIdentifierHashEquals(t *testing.T) {
	tx := model.BitcoinTransaction{TransactionIdentifier: model.TransactionIdentifier{Hash: "deadbeef"}}
	require.True(t, predicate.EvaluateBitcoin(predicate.BitcoinPredicate{
		Kind: predicate.BTCTransactionIDEquals, Value: "0xDEADBEEF",
	}, tx))
}

func TestPoxAnyAndRecipient(t *testing.T) {
	tx := model.BitcoinTransaction{
		Metadata: model.BitcoinTransactionMetadata{
			StacksOperations: []model.StacksBaseChainOperation{{
				Kind:    model.StacksOpPoxBlockCommitment,
				Rewards: []model.PoxReward{{Recipient: "abc123", Amount: 10}},
			}},
		},
	}
	require.True(t, predicate.EvaluateBitcoin(predicate.BitcoinPredicate{Kind: predicate.BTCPoxAny}, tx))
	require.True(t, predicate.EvaluateBitcoin(predicate.BitcoinPredicate{
		Kind: predicate.BTCPoxRecipientStartsWith, Value: "abc",
	}, tx))
	require.False(t, predicate.EvaluateBitcoin(predicate.BitcoinPredicate{
		Kind: predicate.BTCPoxRecipientEquals, Value: "zzz",
	}, tx))
}

func hexEncode(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hextable[c>>4]
		out[i*2+1] = hextable[c&0xf]
	}
	return string(out)
}
