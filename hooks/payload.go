package hooks

import (
	"github.com/daglabs/chainhook/model"
)

// Occurrence is one delivered message for a single hook (spec.md §4.7,
// §6 payload JSON). Apply is always oldest-first; Rollback is always
// newest-first.
type Occurrence struct {
	Apply    []BlockPayload         `json:"apply"`
	Rollback []BlockPayload         `json:"rollback"`
	Chainhook OccurrenceChainhook   `json:"chainhook"`
}

// OccurrenceChainhook identifies which hook and predicate produced an
// Occurrence, plus the per-delivery occurrence id restored from
// original_source/ (SPEC_FULL.md "Supplemented Features" #3) so
// consumers can dedup on (uuid, block_identifier) per spec.md §8
// "Reorg duality" without re-deriving it from block contents.
type OccurrenceChainhook struct {
	UUID         string      `json:"uuid"`
	OccurrenceID string      `json:"occurrence_id"`
	Predicate    interface{} `json:"predicate"`
}

// BlockPayload is one block's worth of matched transactions.
type BlockPayload struct {
	BlockIdentifier       model.BlockIdentifier  `json:"block_identifier"`
	ParentBlockIdentifier model.BlockIdentifier  `json:"parent_block_identifier"`
	Timestamp             uint32                 `json:"timestamp"`
	Metadata              interface{}            `json:"metadata"`
	Transactions          []TransactionPayload   `json:"transactions"`
}

// TransactionPayload is one matched transaction, with metadata gated by
// the hook's inclusion flags (spec.md §4.7): omitted fields are absent
// map keys, never null values, hence the map[string]interface{} shape
// instead of a struct with omitempty pointers.
type TransactionPayload struct {
	TransactionIdentifier model.TransactionIdentifier `json:"transaction_identifier"`
	Operations            []model.Operation           `json:"operations,omitempty"`
	Metadata              map[string]interface{}      `json:"metadata"`
}

// BuildBitcoinTransactionPayload projects a BitcoinTransaction down to
// the fields the hook's inclusion flags request, optionally attaching a
// proof from the caller-supplied proofs map.
func BuildBitcoinTransactionPayload(tx model.BitcoinTransaction, h *ResolvedHook, proof *string) TransactionPayload {
	meta := map[string]interface{}{
		"stacks_operations": tx.Metadata.StacksOperations,
		"fee":               tx.Metadata.Fee,
		"index":             tx.Metadata.Index,
	}
	if h.IncludeInputs {
		inputs := make([]map[string]interface{}, 0, len(tx.Metadata.Inputs))
		for _, in := range tx.Metadata.Inputs {
			im := map[string]interface{}{
				"previous_output": in.PreviousOutput,
				"script_sig":      in.ScriptSig,
				"sequence":        in.Sequence,
			}
			if h.IncludeWitness {
				im["witness"] = in.Witness
			}
			inputs = append(inputs, im)
		}
		meta["inputs"] = inputs
	}
	if h.IncludeOutputs {
		meta["outputs"] = tx.Metadata.Outputs
	}
	if h.IncludeProof && proof != nil {
		meta["proof"] = *proof
	}
	return TransactionPayload{
		TransactionIdentifier: tx.TransactionIdentifier,
		Operations:            tx.Operations,
		Metadata:              meta,
	}
}

// BuildBitcoinBlockPayload projects a whole BitcoinBlock's transactions
// matched by evaluate into a BlockPayload, in the order given by matched
// (the Dispatcher determines apply/rollback ordering; this only builds
// the per-transaction shape).
func BuildBitcoinBlockPayload(block model.BitcoinBlock, matched []model.BitcoinTransaction, h *ResolvedHook, proofs map[model.TransactionIdentifier]string) BlockPayload {
	txs := make([]TransactionPayload, 0, len(matched))
	for _, tx := range matched {
		var proof *string
		if p, ok := proofs[tx.TransactionIdentifier]; ok {
			proof = &p
		}
		txs = append(txs, BuildBitcoinTransactionPayload(tx, h, proof))
	}
	return BlockPayload{
		BlockIdentifier:       block.BlockIdentifier,
		ParentBlockIdentifier: block.ParentBlockIdentifier,
		Timestamp:             block.Timestamp,
		Metadata:              block.Metadata,
		Transactions:          txs,
	}
}

// BuildStacksTransactionPayload projects a StacksTransaction. Stacks
// transactions have no inputs/outputs/witness concept, so only
// include_proof meaningfully gates anything here; the rest of the
// metadata always travels (see DESIGN.md).
func BuildStacksTransactionPayload(tx model.StacksTransaction, h *ResolvedHook, proof *string) TransactionPayload {
	meta := map[string]interface{}{
		"kind":    tx.Metadata.Kind,
		"success": tx.Metadata.Success,
		"result":  tx.Metadata.Result,
		"sender":  tx.Metadata.Sender,
		"fee":     tx.Metadata.Fee,
		"nonce":   tx.Metadata.Nonce,
		"receipt": tx.Metadata.Receipt,
	}
	if tx.Metadata.Sponsor != nil {
		meta["sponsor"] = *tx.Metadata.Sponsor
	}
	if tx.Metadata.ContractCall != nil {
		meta["contract_call"] = tx.Metadata.ContractCall
	}
	if tx.Metadata.ContractDeployment != nil {
		meta["contract_deployment"] = tx.Metadata.ContractDeployment
	}
	if tx.Metadata.TokenTransfer != nil {
		meta["token_transfer"] = tx.Metadata.TokenTransfer
	}
	if h.IncludeProof && proof != nil {
		meta["proof"] = *proof
	}
	return TransactionPayload{
		TransactionIdentifier: tx.TransactionIdentifier,
		Operations:            tx.Operations,
		Metadata:              meta,
	}
}

func BuildStacksBlockPayload(block model.StacksBlock, matched []model.StacksTransaction, h *ResolvedHook, proofs map[model.TransactionIdentifier]string) BlockPayload {
	txs := make([]TransactionPayload, 0, len(matched))
	for _, tx := range matched {
		var proof *string
		if p, ok := proofs[tx.TransactionIdentifier]; ok {
			proof = &p
		}
		txs = append(txs, BuildStacksTransactionPayload(tx, h, proof))
	}
	return BlockPayload{
		BlockIdentifier:       block.BlockIdentifier,
		ParentBlockIdentifier: block.ParentBlockIdentifier,
		Timestamp:             block.Timestamp,
		Metadata:              block.Metadata,
		Transactions:          txs,
	}
}
