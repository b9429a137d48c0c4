package ingestion_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daglabs/chainhook/bitcoin"
	"github.com/daglabs/chainhook/diagnostics"
	"github.com/daglabs/chainhook/ingestion"
	"github.com/daglabs/chainhook/internal/logger"
	"github.com/daglabs/chainhook/model"
	"github.com/daglabs/chainhook/stacks"
)

type fakeBitcoinSink struct {
	blocks []model.BitcoinBlock
}

func (f *fakeBitcoinSink) SubmitBitcoinBlock(b model.BitcoinBlock) { f.blocks = append(f.blocks, b) }

type fakeStacksSink struct {
	blocks      []model.StacksBlock
	microblocks [][]model.StacksMicroblock
}

func (f *fakeStacksSink) SubmitStacksBlock(b model.StacksBlock) { f.blocks = append(f.blocks, b) }
func (f *fakeStacksSink) SubmitStacksMicroblocks(blocks []model.StacksMicroblock, parentIsAnchor []bool) {
	f.microblocks = append(f.microblocks, blocks)
}

type fakeRPCProxy struct {
	forwarded  [][]byte
	autoMined  int
	forwardRes []byte
}

func (f *fakeRPCProxy) Forward(ctx context.Context, body []byte) ([]byte, error) {
	f.forwarded = append(f.forwarded, body)
	if f.forwardRes != nil {
		return f.forwardRes, nil
	}
	return []byte(`{"result":"ok"}`), nil
}

func (f *fakeRPCProxy) AutoMine(ctx context.Context) { f.autoMined++ }

type fakeTips struct{}

func (fakeTips) BitcoinCanonicalTip() (model.BlockIdentifier, bool) {
	return model.BlockIdentifier{Index: 5, Hash: "b5"}, true
}
func (fakeTips) StacksCanonicalTip() (model.BlockIdentifier, bool) {
	return model.BlockIdentifier{}, false
}

func newTestServer(t *testing.T, devnet bool) (*ingestion.Server, *fakeBitcoinSink, *fakeStacksSink, *fakeRPCProxy) {
	t.Helper()
	bSink := &fakeBitcoinSink{}
	sSink := &fakeStacksSink{}
	proxy := &fakeRPCProxy{}
	s := ingestion.New(
		ingestion.ServerSettings{DevnetRPC: devnet},
		logger.New("TEST", logger.LevelOff),
		diagnostics.New(),
		bitcoin.NewDecoder("mainnet", logger.New("TEST", logger.LevelOff)),
		stacks.NewDecoder(logger.New("TEST", logger.LevelOff)),
		bSink, sSink, proxy, fakeTips{},
	)
	return s, bSink, sSink, proxy
}

func TestPingReportsCanonicalTips(t *testing.T) {
	s, _, _, _ := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "bitcoin_tip")
	require.NotContains(t, rec.Body.String(), "stacks_tip")
}

func TestNewBlockMalformedBodyReturns400AndIsDropped(t *testing.T) {
	s, _, sSink, _ := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodPost, "/new_block", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, sSink.blocks)
}

func TestNewBlockValidBodySubmitsToSink(t *testing.T) {
	s, _, sSink, _ := newTestServer(t, false)
	body := `{
		"block_hash": "0xAA",
		"block_height": 101,
		"parent_block_hash": "0xBB",
		"burn_block_hash": "0xCC",
		"burn_block_height": 800000,
		"burn_block_time": 1690000000,
		"transactions": [],
		"events": []
	}`
	req := httptest.NewRequest(http.MethodPost, "/new_block", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sSink.blocks, 1)
	require.Equal(t, uint64(101), sSink.blocks[0].BlockIdentifier.Index)
}

func TestRPCProxyRouteAbsentWhenNotDevnet(t *testing.T) {
	s, _, _, _ := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"method":"getinfo"}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRPCProxyTriggersAutoMineOnSendRawTransaction(t *testing.T) {
	s, _, _, proxy := newTestServer(t, true)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"method":"sendrawtransaction","params":["deadbeef"]}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, proxy.forwarded, 1)
	require.Equal(t, 1, proxy.autoMined)
}

func TestRPCProxyDoesNotAutoMineOnOtherMethods(t *testing.T) {
	s, _, _, proxy := newTestServer(t, true)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"method":"getinfo"}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 0, proxy.autoMined)
}
