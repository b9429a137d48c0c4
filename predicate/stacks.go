package predicate

import (
	"strings"

	"github.com/daglabs/chainhook/model"
)

// StacksKind tags a Stacks predicate variant.
type StacksKind string

const (
	STXContractCall       StacksKind = "ContractCall"
	STXContractDeployment StacksKind = "ContractDeployment"
	STXPrintEvent         StacksKind = "PrintEvent"
	STXStxEvent           StacksKind = "StxEvent"
	STXFtEvent            StacksKind = "FtEvent"
	STXNftEvent           StacksKind = "NftEvent"

	STXAll StacksKind = "All"
	STXAny StacksKind = "Any"
)

// StacksPredicate mirrors the Stacks half of spec.md §4.6's table. Not
// every field is meaningful for every Kind; see EvaluateStacks.
type StacksPredicate struct {
	Kind StacksKind `yaml:"kind" json:"kind"`

	ContractID string `yaml:"contract_id,omitempty" json:"contract_id,omitempty"`
	Method     string `yaml:"method,omitempty" json:"method,omitempty"`

	Deployer        *string `yaml:"deployer,omitempty" json:"deployer,omitempty"`
	ImplementsTrait *string `yaml:"implements_trait,omitempty" json:"implements_trait,omitempty"`

	Contains *string `yaml:"contains,omitempty" json:"contains,omitempty"`

	AssetID string   `yaml:"asset_id,omitempty" json:"asset_id,omitempty"`
	Actions []string `yaml:"actions,omitempty" json:"actions,omitempty"`

	Sub []StacksPredicate `yaml:"predicates,omitempty" json:"predicates,omitempty"`
}

// EvaluateStacks is a pure function over (predicate, transaction).
func EvaluateStacks(p StacksPredicate, tx model.StacksTransaction) bool {
	switch p.Kind {
	case STXAll:
		for _, sub := range p.Sub {
			if !EvaluateStacks(sub, tx) {
				return false
			}
		}
		return true
	case STXAny:
		for _, sub := range p.Sub {
			if EvaluateStacks(sub, tx) {
				return true
			}
		}
		return false

	case STXContractCall:
		if tx.Metadata.Kind != model.StacksTxContractCall || tx.Metadata.ContractCall == nil {
			return false
		}
		cc := tx.Metadata.ContractCall
		return cc.ContractID == p.ContractID && cc.Method == p.Method

	case STXContractDeployment:
		if tx.Metadata.Kind != model.StacksTxContractDeployment || tx.Metadata.ContractDeployment == nil {
			return false
		}
		if p.Deployer != nil && tx.Metadata.Sender != *p.Deployer {
			return false
		}
		if p.ImplementsTrait != nil {
			found := false
			for _, t := range tx.Metadata.ContractDeployment.ImplementedTraits {
				if t == *p.ImplementsTrait {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true

	case STXPrintEvent:
		for _, ev := range tx.Metadata.Receipt.Events {
			if ev.Kind != model.EventPrint || ev.ContractID != p.ContractID {
				continue
			}
			if p.Contains == nil || strings.Contains(ev.Value, *p.Contains) {
				return true
			}
		}
		return false

	case STXStxEvent:
		return anyEventActionMatches(tx, p.Actions, assetClassSTX, "")

	case STXFtEvent:
		return anyEventActionMatches(tx, p.Actions, assetClassFT, p.AssetID)

	case STXNftEvent:
		return anyEventActionMatches(tx, p.Actions, assetClassNFT, p.AssetID)
	}
	return false
}

// assetClass discriminates which of the three event families
// (STXStxEvent/STXFtEvent/STXNftEvent) a predicate is matching against,
// since FT and NFT events otherwise share the same mint/transfer/burn
// action vocabulary and can carry the same asset id.
type assetClass int

const (
	assetClassSTX assetClass = iota
	assetClassFT
	assetClassNFT
)

// anyEventActionMatches scans receipt events for one whose kind both
// belongs to class and maps to an action in actions (mint/transfer/burn/
// lock), and, for FT/NFT events, whose asset id equals assetID.
func anyEventActionMatches(tx model.StacksTransaction, actions []string, class assetClass, assetID string) bool {
	wanted := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		wanted[a] = struct{}{}
	}
	for _, ev := range tx.Metadata.Receipt.Events {
		action, matchesAsset := eventAction(ev, class, assetID)
		if action == "" || !matchesAsset {
			continue
		}
		if _, ok := wanted[action]; ok {
			return true
		}
	}
	return false
}

func eventAction(ev model.Event, class assetClass, assetID string) (action string, matchesAsset bool) {
	switch ev.Kind {
	case model.EventSTXMint:
		return "mint", class == assetClassSTX
	case model.EventSTXTransfer:
		return "transfer", class == assetClassSTX
	case model.EventSTXBurn:
		return "burn", class == assetClassSTX
	case model.EventSTXLock:
		return "lock", class == assetClassSTX
	case model.EventFTMint:
		return "mint", class == assetClassFT && ev.AssetID == assetID
	case model.EventFTTransfer:
		return "transfer", class == assetClassFT && ev.AssetID == assetID
	case model.EventFTBurn:
		return "burn", class == assetClassFT && ev.AssetID == assetID
	case model.EventNFTMint:
		return "mint", class == assetClassNFT && ev.AssetID == assetID
	case model.EventNFTTransfer:
		return "transfer", class == assetClassNFT && ev.AssetID == assetID
	case model.EventNFTBurn:
		return "burn", class == assetClassNFT && ev.AssetID == assetID
	}
	return "", false
}
