// Package ingestion implements the HTTP ingestion server (spec.md §6):
// the node-facing endpoints that accept raw Bitcoin/Stacks notifications
// and forward them to the decoders, plus the devnet Bitcoin RPC proxy.
//
// Grounded on the teacher's apiserver/server (gorilla/mux routing,
// makeHandler-style error wrapping) and apiserver/utils.HandlerError.
package ingestion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/daglabs/chainhook/bitcoin"
	"github.com/daglabs/chainhook/diagnostics"
	"github.com/daglabs/chainhook/internal/logger"
	"github.com/daglabs/chainhook/model"
	"github.com/daglabs/chainhook/stacks"
)

// HandlerError is an error returned from a route handler, carrying the
// HTTP status code to send.
type HandlerError struct {
	Code    int
	Message string
}

func (e *HandlerError) Error() string { return e.Message }

func NewHandlerError(code int, message string) *HandlerError {
	return &HandlerError{Code: code, Message: message}
}

// BitcoinSink receives a decoded Bitcoin block for processing by the
// Bitcoin Fork Manager thread. Implementations must not block past
// channel backpressure (spec.md §5 "Suspension points").
type BitcoinSink interface {
	SubmitBitcoinBlock(model.BitcoinBlock)
}

// StacksSink receives decoded Stacks blocks/microblocks.
type StacksSink interface {
	SubmitStacksBlock(model.StacksBlock)
	SubmitStacksMicroblocks(blocks []model.StacksMicroblock, parentIsAnchor []bool)
}

// BitcoinRPCProxy forwards an arbitrary Bitcoin JSON-RPC request to the
// node, used by the devnet-only POST / endpoint (spec.md §6).
type BitcoinRPCProxy interface {
	Forward(ctx context.Context, body []byte) ([]byte, error)
	// AutoMine is invoked after a successful sendrawtransaction forward,
	// devnet only (spec.md §6: "intercepting sendrawtransaction to
	// trigger an auto-mine").
	AutoMine(ctx context.Context)
}

// TipReporter answers the /ping health check with each chain's
// canonical tip.
type TipReporter interface {
	BitcoinCanonicalTip() (model.BlockIdentifier, bool)
	StacksCanonicalTip() (model.BlockIdentifier, bool)
}

// ServerSettings is the ingestion server's explicit config object.
type ServerSettings struct {
	Addr      string
	DevnetRPC bool // enables the POST / Bitcoin RPC proxy route
}

// Server wires the gorilla/mux router and owns no state beyond what it
// was constructed with; decoding failures are reported as diagnostic
// events and the malformed notification is dropped (spec.md §7:
// "Malformed input: ... recovered locally (drop + log); never fatal").
type Server struct {
	settings ServerSettings
	log      *logger.Logger
	diag     *diagnostics.Channel

	bitcoinDecoder *bitcoin.Decoder
	stacksDecoder  *stacks.Decoder

	bitcoinSink BitcoinSink
	stacksSink  StacksSink
	rpcProxy    BitcoinRPCProxy
	tips        TipReporter

	router *mux.Router
}

func New(
	settings ServerSettings,
	log *logger.Logger,
	diag *diagnostics.Channel,
	bitcoinDecoder *bitcoin.Decoder,
	stacksDecoder *stacks.Decoder,
	bitcoinSink BitcoinSink,
	stacksSink StacksSink,
	rpcProxy BitcoinRPCProxy,
	tips TipReporter,
) *Server {
	s := &Server{
		settings:       settings,
		log:            log,
		diag:           diag,
		bitcoinDecoder: bitcoinDecoder,
		stacksDecoder:  stacksDecoder,
		bitcoinSink:    bitcoinSink,
		stacksSink:     stacksSink,
		rpcProxy:       rpcProxy,
		tips:           tips,
		router:         mux.NewRouter(),
	}
	s.addRoutes()
	return s
}

// Router exposes the mux.Router for embedding in a larger server or for
// tests to drive directly via httptest.
func (s *Server) Router() *mux.Router { return s.router }

func (s *Server) addRoutes() {
	s.router.HandleFunc("/new_burn_block", s.wrap(s.handleNewBurnBlock)).Methods(http.MethodPost)
	s.router.HandleFunc("/new_block", s.wrap(s.handleNewBlock)).Methods(http.MethodPost)
	s.router.HandleFunc("/new_microblocks", s.wrap(s.handleNewMicroblocks)).Methods(http.MethodPost)
	s.router.HandleFunc("/new_mempool_tx", s.wrap(s.handleNewMempoolTx)).Methods(http.MethodPost)
	s.router.HandleFunc("/drop_mempool_tx", s.wrap(s.handleDropMempoolTx)).Methods(http.MethodPost)
	s.router.HandleFunc("/ping", s.wrap(s.handlePing)).Methods(http.MethodGet)
	if s.settings.DevnetRPC {
		s.router.HandleFunc("/", s.wrap(s.handleRPCProxy)).Methods(http.MethodPost)
	}
}

func (s *Server) wrap(h func(w http.ResponseWriter, r *http.Request) (interface{}, *HandlerError)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, hErr := h(w, r)
		if hErr != nil {
			s.log.Warnf("request error: %s", hErr.Message)
			w.WriteHeader(hErr.Code)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": hErr.Code, "error": hErr.Message})
			return
		}
		if resp == nil {
			resp = map[string]interface{}{"status": 200, "result": "Ok"}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (s *Server) handleNewBurnBlock(w http.ResponseWriter, r *http.Request) (interface{}, *HandlerError) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	block, decodeErr := s.bitcoinDecoder.Decode(body)
	if decodeErr != nil {
		s.emitMalformed("new_burn_block", decodeErr)
		return nil, NewHandlerError(http.StatusBadRequest, decodeErr.Error())
	}
	s.bitcoinSink.SubmitBitcoinBlock(block)
	return nil, nil
}

func (s *Server) handleNewBlock(w http.ResponseWriter, r *http.Request) (interface{}, *HandlerError) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	block, decodeErr := s.stacksDecoder.DecodeBlock(body)
	if decodeErr != nil {
		s.emitMalformed("new_block", decodeErr)
		return nil, NewHandlerError(http.StatusBadRequest, decodeErr.Error())
	}
	s.stacksSink.SubmitStacksBlock(block)
	return nil, nil
}

func (s *Server) handleNewMicroblocks(w http.ResponseWriter, r *http.Request) (interface{}, *HandlerError) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	mbs, parentIsAnchor, decodeErr := s.stacksDecoder.DecodeMicroblocks(body)
	if decodeErr != nil {
		s.emitMalformed("new_microblocks", decodeErr)
		return nil, NewHandlerError(http.StatusBadRequest, decodeErr.Error())
	}
	s.stacksSink.SubmitStacksMicroblocks(mbs, parentIsAnchor)
	return nil, nil
}

// handleNewMempoolTx and handleDropMempoolTx are accepted and
// acknowledged per spec.md §6; the core has no mempool model to update
// (out of scope per spec.md §1's fork-graph-only scope), so these are
// intentionally no-ops beyond validating the request body decodes.
func (s *Server) handleNewMempoolTx(w http.ResponseWriter, r *http.Request) (interface{}, *HandlerError) {
	var txs []string
	if err := decodeJSON(r, &txs); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleDropMempoolTx(w http.ResponseWriter, r *http.Request) (interface{}, *HandlerError) {
	var body struct {
		TxIDs []string `json:"txids"`
	}
	if err := decodeJSON(r, &body); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) (interface{}, *HandlerError) {
	resp := map[string]interface{}{"status": 200}
	if bitcoinTip, ok := s.tips.BitcoinCanonicalTip(); ok {
		resp["bitcoin_tip"] = bitcoinTip
	}
	if stacksTip, ok := s.tips.StacksCanonicalTip(); ok {
		resp["stacks_tip"] = stacksTip
	}
	return resp, nil
}

func (s *Server) handleRPCProxy(w http.ResponseWriter, r *http.Request) (interface{}, *HandlerError) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}

	isSendRaw, parseErr := isSendRawTransaction(body)
	if parseErr != nil {
		return nil, NewHandlerError(http.StatusBadRequest, parseErr.Error())
	}

	result, fwdErr := s.rpcProxy.Forward(r.Context(), body)
	if fwdErr != nil {
		return nil, NewHandlerError(http.StatusBadGateway, fwdErr.Error())
	}
	if isSendRaw {
		s.rpcProxy.AutoMine(r.Context())
	}

	var decoded interface{}
	if err := json.Unmarshal(result, &decoded); err != nil {
		return nil, NewHandlerError(http.StatusBadGateway, "malformed upstream RPC response")
	}
	return decoded, nil
}

func (s *Server) emitMalformed(endpoint string, err error) {
	if s.diag == nil {
		return
	}
	s.diag.Publish(diagnostics.Event{
		Severity:  diagnostics.SeverityWarning,
		Kind:      diagnostics.KindMalformedInput,
		Subsystem: endpoint,
		Message:   err.Error(),
	})
}

func readBody(r *http.Request) ([]byte, *HandlerError) {
	defer r.Body.Close()
	buf, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, NewHandlerError(http.StatusBadRequest, "failed reading request body")
	}
	return buf, nil
}

func decodeJSON(r *http.Request, out interface{}) *HandlerError {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return NewHandlerError(http.StatusBadRequest, "malformed JSON body")
	}
	return nil
}

func isSendRawTransaction(body []byte) (bool, error) {
	var req struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return false, err
	}
	return req.Method == "sendrawtransaction", nil
}
