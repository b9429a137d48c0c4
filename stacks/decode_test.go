package stacks_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daglabs/chainhook/internal/logger"
	"github.com/daglabs/chainhook/model"
	"github.com/daglabs/chainhook/stacks"
)

func newTestDecoder() *stacks.Decoder {
	return stacks.NewDecoder(logger.New("TEST", logger.LevelOff))
}

func TestDecodeBlockContractCall(t *testing.T) {
	body := []byte(`{
		"block_hash": "0xAA",
		"block_height": 101,
		"parent_block_hash": "0xBB",
		"burn_block_hash": "0xCC",
		"burn_block_height": 800000,
		"burn_block_time": 1690000000,
		"pox_cycle_index": 12,
		"pox_cycle_position": 3,
		"pox_cycle_length": 2100,
		"transactions": [{
			"txid": "0xTX1",
			"tx_type": "contract_call",
			"status": "success",
			"raw_result": "0x0703",
			"sender_address": "SP000SENDER",
			"fee": 180,
			"nonce": 5,
			"contract_call": {
				"contract_id": "SP000.my-contract",
				"function_name": "do-thing",
				"function_args": ["0x0100000000000000000000000000000007"]
			}
		}],
		"events": [{
			"txid": "0xTX1",
			"type": "smart_contract_log",
			"contract_log": {
				"contract_id": "SP000.my-contract",
				"topic": "print",
				"value": "0x0d00000003666f6f"
			}
		}]
	}`)

	d := newTestDecoder()
	block, err := d.DecodeBlock(body)
	require.NoError(t, err)
	require.Equal(t, uint64(101), block.BlockIdentifier.Index)
	require.Equal(t, "aa", block.BlockIdentifier.Hash)
	require.Equal(t, uint64(100), block.ParentBlockIdentifier.Index)
	require.Equal(t, uint64(800000), block.Metadata.BitcoinAnchorBlockIdentifier.Index)

	require.Len(t, block.Transactions, 1)
	tx := block.Transactions[0]
	require.Equal(t, model.StacksTxContractCall, tx.Metadata.Kind)
	require.NotNil(t, tx.Metadata.ContractCall)
	require.Equal(t, "do-thing", tx.Metadata.ContractCall.Method)
	require.Equal(t, "u7", tx.Metadata.ContractCall.Args[0])
	require.Equal(t, "(ok true)", tx.Metadata.Result)

	require.Len(t, tx.Metadata.Receipt.Events, 1)
	ev := tx.Metadata.Receipt.Events[0]
	require.Equal(t, model.EventPrint, ev.Kind)
	require.Equal(t, "\"foo\"", ev.Value)
	require.Contains(t, tx.Metadata.Receipt.MutatedContractsRadius, "SP000.my-contract")
}

func TestDecodeBlockContractDeploymentTraits(t *testing.T) {
	body := []byte(`{
		"block_hash": "0xDD",
		"block_height": 5,
		"parent_block_hash": "0xEE",
		"burn_block_hash": "0xFF",
		"burn_block_height": 700000,
		"transactions": [{
			"txid": "0xTX2",
			"tx_type": "smart_contract",
			"status": "success",
			"sender_address": "SP000DEPLOYER",
			"smart_contract": {
				"contract_id": "SP000.vault",
				"source_code": "(impl-trait 'SP000.trait-registry.nft-trait)\n(define-public (foo) (ok true))",
				"clarity_version": 2
			}
		}]
	}`)

	d := newTestDecoder()
	block, err := d.DecodeBlock(body)
	require.NoError(t, err)
	require.Len(t, block.Transactions, 1)
	deployment := block.Transactions[0].Metadata.ContractDeployment
	require.NotNil(t, deployment)
	require.Equal(t, []string{"SP000.trait-registry.nft-trait"}, deployment.ImplementedTraits)
}

func TestDecodeMicroblocksSequenceLinking(t *testing.T) {
	body := []byte(`{
		"microblocks": [
			{
				"microblock_hash": "0x01",
				"microblock_sequence": 0,
				"microblock_parent_hash": "0xANCHOR",
				"parent_is_anchor_block": true,
				"transactions": []
			},
			{
				"microblock_hash": "0x02",
				"microblock_sequence": 1,
				"microblock_parent_hash": "0x01",
				"parent_is_anchor_block": false,
				"transactions": [{
					"txid": "0xTX3",
					"tx_type": "token_transfer",
					"status": "success",
					"sender_address": "SP000A",
					"token_transfer": {
						"recipient_address": "SP000B",
						"amount": 500
					}
				}]
			}
		]
	}`)

	d := newTestDecoder()
	mbs, parentIsAnchor, err := d.DecodeMicroblocks(body)
	require.NoError(t, err)
	require.Len(t, mbs, 2)
	require.True(t, parentIsAnchor[0])
	require.False(t, parentIsAnchor[1])
	require.Equal(t, uint64(0), mbs[1].ParentBlockIdentifier.Index)

	tx := mbs[1].Transactions[0]
	require.Equal(t, model.StacksTxTokenTransfer, tx.Metadata.Kind)
	require.Equal(t, uint64(500), tx.Metadata.TokenTransfer.Amount)
}

func TestDecodeBlockMalformedJSON(t *testing.T) {
	d := newTestDecoder()
	_, err := d.DecodeBlock([]byte(`{not json`))
	require.Error(t, err)
	var syntaxErr *json.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
}
