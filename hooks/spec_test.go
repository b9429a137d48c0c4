package hooks_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daglabs/chainhook/hooks"
	"github.com/daglabs/chainhook/predicate"
)

const bitcoinSpecYAML = `
name: track-pox
version: 1
chain: bitcoin
networks:
  mainnet:
    predicate:
      kind: Pox.Any
    action:
      http_post:
        url: https://example.com/hook
        method: POST
        authorization_header: "Bearer abc"
    start_block: 100
    include_outputs: true
`

func TestParseBitcoinSpecification(t *testing.T) {
	h, err := hooks.ParseSpecification([]byte(bitcoinSpecYAML), "uuid-1", "mainnet")
	require.NoError(t, err)
	require.Equal(t, hooks.ChainBitcoin, h.Chain)
	require.NotNil(t, h.BitcoinPredicate)
	require.Equal(t, predicate.BTCPoxAny, h.BitcoinPredicate.Kind)
	require.Equal(t, hooks.ActionHttpPost, h.Action.Kind)
	require.Equal(t, "https://example.com/hook", h.Action.URL)
	require.NotNil(t, h.StartBlock)
	require.Equal(t, uint64(100), *h.StartBlock)
	require.True(t, h.IncludeOutputs)
}

const stacksSpecYAML = `
name: track-transfers
version: 1
chain: stacks
networks:
  mainnet:
    predicate:
      kind: ContractCall
      contract_id: SP000.foo
      method: transfer
    action:
      noop: {}
`

func TestParseStacksSpecification(t *testing.T) {
	h, err := hooks.ParseSpecification([]byte(stacksSpecYAML), "uuid-2", "mainnet")
	require.NoError(t, err)
	require.Equal(t, hooks.ChainStacks, h.Chain)
	require.NotNil(t, h.StacksPredicate)
	require.Equal(t, predicate.STXContractCall, h.StacksPredicate.Kind)
	require.Equal(t, hooks.ActionNoop, h.Action.Kind)
}

func TestParseSpecificationMissingNetwork(t *testing.T) {
	_, err := hooks.ParseSpecification([]byte(bitcoinSpecYAML), "uuid-1", "testnet")
	require.Error(t, err)
}

func TestParseSpecificationUnknownChain(t *testing.T) {
	bad := `
name: bad
version: 1
chain: ethereum
networks:
  mainnet:
    predicate: {kind: Noop}
    action: {noop: {}}
`
	_, err := hooks.ParseSpecification([]byte(bad), "uuid-3", "mainnet")
	require.Error(t, err)
}
