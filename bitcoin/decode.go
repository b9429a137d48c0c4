package bitcoin

import (
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/daglabs/chainhook/internal/logger"
	"github.com/daglabs/chainhook/model"
)

// Decoder parses raw /new_burn_block notifications into the normalized
// model.BitcoinBlock shape (spec.md §4.2).
type Decoder struct {
	network string
	log     *logger.Logger
}

func NewDecoder(network string, log *logger.Logger) *Decoder {
	return &Decoder{network: network, log: log}
}

// Decode parses a single raw notification body.
func (d *Decoder) Decode(body []byte) (model.BitcoinBlock, error) {
	var raw rawBurnBlock
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.BitcoinBlock{}, errors.Wrap(err, "malformed bitcoin block notification")
	}

	network := raw.Network
	if network == "" {
		network = d.network
	}

	block := model.BitcoinBlock{
		BlockIdentifier: model.BlockIdentifier{
			Index: raw.BurnBlockHeight,
			Hash:  model.NormalizeHex(raw.BurnBlockHash),
		},
		ParentBlockIdentifier: model.BlockIdentifier{
			Index: decPrevIndex(raw.BurnBlockHeight),
			Hash:  model.NormalizeHex(raw.ParentBurnBlockHash),
		},
		Timestamp: raw.BurnBlockTime,
		Metadata:  model.BitcoinBlockMetadata{Network: network},
	}

	block.Transactions = make([]model.BitcoinTransaction, 0, len(raw.Reveal))
	for _, rawTx := range raw.Reveal {
		block.Transactions = append(block.Transactions, d.decodeTransaction(rawTx))
	}
	return block, nil
}

func decPrevIndex(height uint64) uint64 {
	if height == 0 {
		return 0
	}
	return height - 1
}

func (d *Decoder) decodeTransaction(raw rawRevealedTx) model.BitcoinTransaction {
	inputs := make([]model.TxIn, 0, len(raw.Vin))
	for _, in := range raw.Vin {
		inputs = append(inputs, model.TxIn{
			PreviousOutput: model.OutPoint{
				TransactionIdentifier: model.TransactionIdentifier{Hash: model.NormalizeHex(in.Txid)},
				VOut:                  in.Vout,
			},
			ScriptSig: normalizeHexWithPrefix(in.ScriptSig),
			Witness:   in.Witness,
			Sequence:  in.Sequence,
		})
	}

	outputs := make([]model.TxOut, 0, len(raw.Vout))
	for _, out := range raw.Vout {
		outputs = append(outputs, model.TxOut{
			Value:        out.Value,
			ScriptPubKey: normalizeHexWithPrefix(out.ScriptPubKey),
		})
	}

	ops := decodeStacksOperations(raw.Vout)
	if ops == nil {
		d.log.Tracef("tx %s: no recognized stacks operation", raw.Txid)
	}

	return model.BitcoinTransaction{
		TransactionIdentifier: model.TransactionIdentifier{Hash: model.NormalizeHex(raw.Txid)},
		Metadata: model.BitcoinTransactionMetadata{
			Inputs:           inputs,
			Outputs:          outputs,
			StacksOperations: ops,
			Proof:            raw.Proof,
			Fee:              raw.Fee,
			Index:            raw.Index,
		},
	}
}

// normalizeHexWithPrefix keeps the external wire convention of a leading
// "0x" for script_pubkey/script_sig while still accepting raw hex on input
// (spec.md §4.1: "the 0x prefix is preserved where the external wire
// format uses it").
func normalizeHexWithPrefix(s string) string {
	stripped := model.NormalizeHex(s)
	if _, err := hex.DecodeString(stripped); err != nil {
		return s
	}
	return "0x" + stripped
}
