package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/daglabs/chainhook/mining"
)

// bitcoindRPCProxy forwards arbitrary JSON-RPC requests to a devnet
// bitcoind instance and implements the small surface the mining loop
// needs (generatetoaddress, invalidateblock), grounded on the teacher's
// rpcclient command/response shape (one JSON-RPC call per command,
// errors surfaced to the caller) adapted to the standard bitcoind
// JSON-RPC 1.0 wire format rather than btcd's own RPC server.
type bitcoindRPCProxy struct {
	endpoint     string
	client       *http.Client
	nextID       int64
	mineCommands chan<- mining.Command
}

func newBitcoindRPCProxy(endpoint string) *bitcoindRPCProxy {
	return &bitcoindRPCProxy{endpoint: endpoint, client: &http.Client{Timeout: 30 * time.Second}}
}

// wireMining lets the mining loop's auto-mine-on-broadcast behavior
// (spec.md §6: "intercepting sendrawtransaction to trigger an
// auto-mine") post a Mine command once the loop exists; main wires this
// after constructing both the proxy and the loop.
func (p *bitcoindRPCProxy) wireMining(commands chan<- mining.Command) {
	p.mineCommands = commands
}

func (p *bitcoindRPCProxy) Forward(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "building bitcoind RPC request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "forwarding bitcoind RPC request")
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, errors.Wrap(err, "reading bitcoind RPC response")
	}
	return buf.Bytes(), nil
}

func (p *bitcoindRPCProxy) AutoMine(ctx context.Context) {
	if p.mineCommands == nil {
		return
	}
	select {
	case p.mineCommands <- mining.Command{Kind: mining.CommandMine}:
	case <-ctx.Done():
	}
}

func (p *bitcoindRPCProxy) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	p.nextID++
	reqBody, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "1.0",
		"id":      p.nextID,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshaling bitcoind RPC request")
	}

	raw, err := p.Forward(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, errors.Wrap(err, "unmarshaling bitcoind RPC response")
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("bitcoind RPC error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	return decoded.Result, nil
}

// GenerateToAddress implements mining.RPC.
func (p *bitcoindRPCProxy) GenerateToAddress(ctx context.Context, numBlocks int, address string) error {
	_, err := p.call(ctx, "generatetoaddress", []interface{}{numBlocks, address})
	return err
}

// InvalidateBlock implements mining.RPC.
func (p *bitcoindRPCProxy) InvalidateBlock(ctx context.Context, blockHash string) error {
	_, err := p.call(ctx, "invalidateblock", []interface{}{blockHash})
	return err
}
