package stacks

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/daglabs/chainhook/internal/logger"
	"github.com/daglabs/chainhook/model"
)

// Decoder parses raw Stacks /new_block and /new_microblocks notifications
// into the normalized model (spec.md §4.3).
type Decoder struct {
	log *logger.Logger
}

func NewDecoder(log *logger.Logger) *Decoder {
	return &Decoder{log: log}
}

// DecodeBlock parses a /new_block body.
func (d *Decoder) DecodeBlock(body []byte) (model.StacksBlock, error) {
	var raw rawBlock
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.StacksBlock{}, errors.Wrap(err, "malformed stacks block notification")
	}

	eventsByTx := indexEvents(raw.Events)

	block := model.StacksBlock{
		BlockIdentifier: model.BlockIdentifier{
			Index: raw.BlockHeight,
			Hash:  model.NormalizeHex(raw.BlockHash),
		},
		ParentBlockIdentifier: model.BlockIdentifier{
			Index: decPrevIndex(raw.BlockHeight),
			Hash:  model.NormalizeHex(raw.ParentBlockHash),
		},
		Timestamp: raw.BurnBlockTime,
		Metadata: model.StacksBlockMetadata{
			BitcoinAnchorBlockIdentifier: model.BlockIdentifier{
				Index: raw.BurnBlockHeight,
				Hash:  model.NormalizeHex(raw.BurnBlockHash),
			},
			PoxCycleIndex:    raw.PoxCycleIndex,
			PoxCyclePosition: raw.PoxCyclePosition,
			PoxCycleLength:   raw.PoxCycleLength,
		},
	}
	if raw.ParentMicroblock != nil {
		block.Metadata.ConfirmMicroblockIdentifier = &model.BlockIdentifier{
			Index: raw.ParentMicroblock.Sequence,
			Hash:  model.NormalizeHex(raw.ParentMicroblock.Hash),
		}
	}

	block.Transactions = make([]model.StacksTransaction, 0, len(raw.Transactions))
	for _, rt := range raw.Transactions {
		block.Transactions = append(block.Transactions, d.decodeTransaction(rt, eventsByTx[rt.TxID]))
	}
	return block, nil
}

// DecodeMicroblocks parses a /new_microblocks body; each microblock in the
// notification is returned along with whether its declared parent is the
// anchor block itself (vs. another microblock), which the caller needs to
// drive forkdag.MicroblockForkManager.Process.
func (d *Decoder) DecodeMicroblocks(body []byte) ([]model.StacksMicroblock, []bool, error) {
	var raw rawMicroblocksNotification
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, errors.Wrap(err, "malformed stacks microblocks notification")
	}

	out := make([]model.StacksMicroblock, 0, len(raw.Microblocks))
	parentIsAnchor := make([]bool, 0, len(raw.Microblocks))
	for _, rm := range raw.Microblocks {
		eventsByTx := indexEvents(nil)
		mb := model.StacksMicroblock{
			BlockIdentifier:       model.BlockIdentifier{Index: rm.Sequence, Hash: model.NormalizeHex(rm.Hash)},
			ParentBlockIdentifier: model.BlockIdentifier{Hash: model.NormalizeHex(rm.ParentHash)},
		}
		if rm.Sequence > 0 {
			mb.ParentBlockIdentifier.Index = rm.Sequence - 1
		}
		mb.Transactions = make([]model.StacksTransaction, 0, len(rm.Transactions))
		for _, rt := range rm.Transactions {
			mb.Transactions = append(mb.Transactions, d.decodeTransaction(rt, eventsByTx[rt.TxID]))
		}
		out = append(out, mb)
		parentIsAnchor = append(parentIsAnchor, rm.ParentIsAnchor)
	}
	return out, parentIsAnchor, nil
}

func decPrevIndex(height uint64) uint64 {
	if height == 0 {
		return 0
	}
	return height - 1
}

func indexEvents(events []rawEvent) map[string][]rawEvent {
	out := make(map[string][]rawEvent)
	for _, e := range events {
		out[e.TxID] = append(out[e.TxID], e)
	}
	return out
}

func (d *Decoder) decodeTransaction(rt rawTx, events []rawEvent) model.StacksTransaction {
	meta := model.StacksTransactionMetadata{
		Kind:    classifyKind(rt),
		Success: rt.Status == "success",
		Result:  PrintClarityValueHex(rt.RawResult),
		Sender:  rt.Sender,
		Fee:     rt.Fee,
		Nonce:   rt.Nonce,
		Sponsor: rt.Sponsor,
	}

	switch meta.Kind {
	case model.StacksTxContractCall:
		if rt.ContractCall != nil {
			args := make([]string, 0, len(rt.ContractCall.FunctionArgsHex))
			for _, a := range rt.ContractCall.FunctionArgsHex {
				args = append(args, PrintClarityValueHex(a))
			}
			meta.ContractCall = &model.ContractCallPayload{
				ContractID: rt.ContractCall.ContractID,
				Method:     rt.ContractCall.FunctionName,
				Args:       args,
			}
		}
	case model.StacksTxContractDeployment:
		if rt.SmartContract != nil {
			meta.ContractDeployment = &model.ContractDeploymentPayload{
				Name:              rt.SmartContract.ContractID,
				Source:            rt.SmartContract.SourceCode,
				ClarityVersion:    rt.SmartContract.ClarityVersion,
				ImplementedTraits: AnalyzeTraits(rt.SmartContract.SourceCode),
			}
		}
	case model.StacksTxTokenTransfer:
		if rt.TokenTransfer != nil {
			meta.TokenTransfer = &model.TokenTransferPayload{
				Recipient: rt.TokenTransfer.RecipientAddress,
				Amount:    rt.TokenTransfer.Amount,
				Memo:      rt.TokenTransfer.Memo,
			}
		}
	}

	meta.Receipt = d.buildReceipt(events)

	return model.StacksTransaction{
		TransactionIdentifier: model.TransactionIdentifier{Hash: model.NormalizeHex(rt.TxID)},
		Metadata:              meta,
	}
}

func classifyKind(rt rawTx) model.StacksTxKind {
	switch rt.TxType {
	case "token_transfer":
		return model.StacksTxTokenTransfer
	case "smart_contract":
		return model.StacksTxContractDeployment
	case "contract_call":
		return model.StacksTxContractCall
	case "coinbase":
		return model.StacksTxCoinbase
	case "bitcoin_op":
		return model.StacksTxBitcoinOp
	default:
		return model.StacksTxOther
	}
}

func (d *Decoder) buildReceipt(events []rawEvent) model.Receipt {
	receipt := model.Receipt{Events: make([]model.Event, 0, len(events))}
	contractsSeen := map[string]struct{}{}
	assetsSeen := map[string]struct{}{}

	for _, e := range events {
		ev, ok := d.decodeEvent(e)
		if !ok {
			continue
		}
		receipt.Events = append(receipt.Events, ev)
		if ev.ContractID != "" {
			contractsSeen[ev.ContractID] = struct{}{}
		}
		if ev.AssetID != "" {
			assetsSeen[ev.AssetID] = struct{}{}
		}
	}
	for c := range contractsSeen {
		receipt.MutatedContractsRadius = append(receipt.MutatedContractsRadius, c)
	}
	for a := range assetsSeen {
		receipt.MutatedAssetsRadius = append(receipt.MutatedAssetsRadius, a)
	}
	return receipt
}

func (d *Decoder) decodeEvent(e rawEvent) (model.Event, bool) {
	switch e.Type {
	case "smart_contract_log":
		if e.Contract == nil {
			return model.Event{}, false
		}
		return model.Event{
			Kind:       model.EventPrint,
			ContractID: e.Contract.ContractID,
			Value:      PrintClarityValueHex(e.Contract.ValueHex),
		}, true
	case "stx_transfer_event", "stx_mint_event", "stx_burn_event", "stx_lock_event",
		"fungible_token_transfer_event", "fungible_token_mint_event", "fungible_token_burn_event",
		"non_fungible_token_transfer_event", "non_fungible_token_mint_event", "non_fungible_token_burn_event":
		if e.Asset == nil {
			return model.Event{}, false
		}
		kind, ok := assetEventKind(e.Type)
		if !ok {
			return model.Event{}, false
		}
		return model.Event{
			Kind:      kind,
			AssetID:   e.Asset.AssetID,
			Sender:    e.Asset.Sender,
			Recipient: e.Asset.Recipient,
			Amount:    e.Asset.Amount,
		}, true
	default:
		d.log.Tracef("unrecognized event type %q", e.Type)
		return model.Event{}, false
	}
}

func assetEventKind(t string) (model.EventKind, bool) {
	switch t {
	case "stx_transfer_event":
		return model.EventSTXTransfer, true
	case "stx_mint_event":
		return model.EventSTXMint, true
	case "stx_burn_event":
		return model.EventSTXBurn, true
	case "stx_lock_event":
		return model.EventSTXLock, true
	case "fungible_token_transfer_event":
		return model.EventFTTransfer, true
	case "fungible_token_mint_event":
		return model.EventFTMint, true
	case "fungible_token_burn_event":
		return model.EventFTBurn, true
	case "non_fungible_token_transfer_event":
		return model.EventNFTTransfer, true
	case "non_fungible_token_mint_event":
		return model.EventNFTMint, true
	case "non_fungible_token_burn_event":
		return model.EventNFTBurn, true
	}
	return "", false
}
