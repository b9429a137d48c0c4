package predicate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daglabs/chainhook/model"
	"github.com/daglabs/chainhook/predicate"
)

func contractCallTx(contractID, method string) model.StacksTransaction {
	return model.StacksTransaction{
		Metadata: model.StacksTransactionMetadata{
			Kind: model.StacksTxContractCall,
			ContractCall: &model.ContractCallPayload{
				ContractID: contractID,
				Method:     method,
			},
		},
	}
}

func TestContractCallTwoHooksDispatchIndependently(t *testing.T) {
	tx := contractCallTx("SP000.foo", "transfer")

	h1 := predicate.StacksPredicate{Kind: predicate.STXContractCall, ContractID: "SP000.foo", Method: "transfer"}
	h2 := predicate.StacksPredicate{Kind: predicate.STXContractCall, ContractID: "SP000.bar", Method: "anything"}

	require.True(t, predicate.EvaluateStacks(h1, tx))
	require.False(t, predicate.EvaluateStacks(h2, tx))
}

func TestContractDeploymentTraitFilter(t *testing.T) {
	deployer := "SP000DEPLOYER"
	trait := "SP000.trait-registry.nft-trait"
	tx := model.StacksTransaction{
		Metadata: model.StacksTransactionMetadata{
			Kind:   model.StacksTxContractDeployment,
			Sender: deployer,
			ContractDeployment: &model.ContractDeploymentPayload{
				ImplementedTraits: []string{trait},
			},
		},
	}

	require.True(t, predicate.EvaluateStacks(predicate.StacksPredicate{
		Kind: predicate.STXContractDeployment, Deployer: &deployer, ImplementsTrait: &trait,
	}, tx))

	other := "nope"
	require.False(t, predicate.EvaluateStacks(predicate.StacksPredicate{
		Kind: predicate.STXContractDeployment, ImplementsTrait: &other,
	}, tx))
}

func TestPrintEventContains(t *testing.T) {
	tx := model.StacksTransaction{
		Metadata: model.StacksTransactionMetadata{
			Receipt: model.Receipt{Events: []model.Event{
				{Kind: model.EventPrint, ContractID: "SP000.foo", Value: `"hello world"`},
			}},
		},
	}
	contains := "hello"
	require.True(t, predicate.EvaluateStacks(predicate.StacksPredicate{
		Kind: predicate.STXPrintEvent, ContractID: "SP000.foo", Contains: &contains,
	}, tx))

	missing := "nope"
	require.False(t, predicate.EvaluateStacks(predicate.StacksPredicate{
		Kind: predicate.STXPrintEvent, ContractID: "SP000.foo", Contains: &missing,
	}, tx))
}

func TestFtEventAssetAndAction(t *testing.T) {
	tx := model.StacksTransaction{
		Metadata: model.StacksTransactionMetadata{
			Receipt: model.Receipt{Events: []model.Event{
				{Kind: model.EventFTTransfer, AssetID: "SP000.token::token", Amount: 10},
			}},
		},
	}
	require.True(t, predicate.EvaluateStacks(predicate.StacksPredicate{
		Kind: predicate.STXFtEvent, AssetID: "SP000.token::token", Actions: []string{"transfer"},
	}, tx))
	require.False(t, predicate.EvaluateStacks(predicate.StacksPredicate{
		Kind: predicate.STXFtEvent, AssetID: "SP000.token::token", Actions: []string{"burn"},
	}, tx))
	require.False(t, predicate.EvaluateStacks(predicate.StacksPredicate{
		Kind: predicate.STXFtEvent, AssetID: "SP000.other::token", Actions: []string{"transfer"},
	}, tx))
}

func TestNftEventAssetAndAction(t *testing.T) {
	tx := model.StacksTransaction{
		Metadata: model.StacksTransactionMetadata{
			Receipt: model.Receipt{Events: []model.Event{
				{Kind: model.EventNFTMint, AssetID: "SP000.collection::nft", Value: "u1"},
			}},
		},
	}
	require.True(t, predicate.EvaluateStacks(predicate.StacksPredicate{
		Kind: predicate.STXNftEvent, AssetID: "SP000.collection::nft", Actions: []string{"mint"},
	}, tx))
	require.False(t, predicate.EvaluateStacks(predicate.StacksPredicate{
		Kind: predicate.STXNftEvent, AssetID: "SP000.collection::nft", Actions: []string{"transfer"},
	}, tx))
	require.False(t, predicate.EvaluateStacks(predicate.StacksPredicate{
		Kind: predicate.STXNftEvent, AssetID: "SP000.other::nft", Actions: []string{"mint"},
	}, tx))
}

// TestFtAndNftEventKindsDoNotCrossMatch guards against FtEvent and NftEvent
// predicates matching each other's event kind when the asset id happens to
// coincide: an FtEvent predicate must not match an NFT-kind event carrying
// the same asset_id, and vice versa.
func TestFtAndNftEventKindsDoNotCrossMatch(t *testing.T) {
	const assetID = "SP000.shared::asset"
	nftMintTx := model.StacksTransaction{
		Metadata: model.StacksTransactionMetadata{
			Receipt: model.Receipt{Events: []model.Event{
				{Kind: model.EventNFTMint, AssetID: assetID, Value: "u1"},
			}},
		},
	}
	ftMintTx := model.StacksTransaction{
		Metadata: model.StacksTransactionMetadata{
			Receipt: model.Receipt{Events: []model.Event{
				{Kind: model.EventFTMint, AssetID: assetID, Amount: 1},
			}},
		},
	}

	ftPredicate := predicate.StacksPredicate{Kind: predicate.STXFtEvent, AssetID: assetID, Actions: []string{"mint"}}
	nftPredicate := predicate.StacksPredicate{Kind: predicate.STXNftEvent, AssetID: assetID, Actions: []string{"mint"}}

	require.False(t, predicate.EvaluateStacks(ftPredicate, nftMintTx), "FtEvent must not match an NFT-kind event")
	require.False(t, predicate.EvaluateStacks(nftPredicate, ftMintTx), "NftEvent must not match an FT-kind event")
	require.True(t, predicate.EvaluateStacks(ftPredicate, ftMintTx))
	require.True(t, predicate.EvaluateStacks(nftPredicate, nftMintTx))
}

func TestAllAnyComposites(t *testing.T) {
	tx := contractCallTx("SP000.foo", "transfer")
	all := predicate.StacksPredicate{
		Kind: predicate.STXAll,
		Sub: []predicate.StacksPredicate{
			{Kind: predicate.STXContractCall, ContractID: "SP000.foo", Method: "transfer"},
			{Kind: predicate.STXContractCall, ContractID: "SP000.foo", Method: "wrong"},
		},
	}
	require.False(t, predicate.EvaluateStacks(all, tx))

	any := predicate.StacksPredicate{
		Kind: predicate.STXAny,
		Sub: []predicate.StacksPredicate{
			{Kind: predicate.STXContractCall, ContractID: "SP000.foo", Method: "wrong"},
			{Kind: predicate.STXContractCall, ContractID: "SP000.foo", Method: "transfer"},
		},
	}
	require.True(t, predicate.EvaluateStacks(any, tx))
}
