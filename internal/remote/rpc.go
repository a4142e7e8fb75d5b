package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// rpcEndpoint is the batched RPC endpoint for mutations and sync.pull
// (spec §6: "A batched RPC endpoint for the mutations ... and for
// sync.pull").
const rpcEndpoint = "/rpc"

type rpcRequest struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Message string `json:"message"`
}

// call invokes method against the RPC endpoint with params, decoding the
// result into out (a pointer), or nil if the caller doesn't need the
// result body.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	payload, err := json.Marshal(rpcRequest{Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("remote: encoding %s request: %w", method, err)
	}

	resp, err := c.do(ctx, "POST", rpcEndpoint, bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", ErrDecodeShape, method, err)
	}

	if rpcResp.Error != nil {
		return fmt.Errorf("remote: %s: %s", method, rpcResp.Error.Message)
	}

	if out == nil || len(rpcResp.Result) == 0 {
		return nil
	}

	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("%w: unmarshaling %s result: %v", ErrDecodeShape, method, err)
	}

	return nil
}
