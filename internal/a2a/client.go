package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/nswprep/examgen/internal/logging"
)

// DefaultTimeout bounds a normal inter-agent call. Batch-level calls made
// by the orchestrator use BatchTimeout instead.
const (
	DefaultTimeout = 120 * time.Second
	BatchTimeout   = 300 * time.Second
)

// Client talks to peer agents over the JSON-RPC envelope. One client is
// shared by a service for all of its outbound calls.
type Client struct {
	caller string
	http   *http.Client
	nextID atomic.Int64
}

// NewClient builds a client identified as caller in message traces.
func NewClient(caller string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		caller: caller,
		http:   &http.Client{Timeout: timeout},
	}
}

// GetAgentCard fetches a peer's descriptor.
func (c *Client) GetAgentCard(ctx context.Context, baseURL string) (*AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/.well-known/agent.json", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching agent card from %s: %w", baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent card request to %s returned %s", baseURL, resp.Status)
	}
	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("decoding agent card: %w", err)
	}
	return &card, nil
}

// SendTask sends one payload to a peer and returns the raw response payload
// extracted from the completed (or failed) task envelope. The payload must
// marshal to a JSON object carrying an "action" field; the action doubles
// as the JSON-RPC method name.
func (c *Client) SendTask(ctx context.Context, baseURL, peer string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}
	action, _ := DecodeAction(body)
	if action == "" {
		return nil, fmt.Errorf("payload has no action field")
	}

	env := NewRequest(int(c.nextID.Add(1)), action, string(body), nil)
	envBytes, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}

	logging.AgentMessage("SEND", c.caller, peer, action, string(body), 0)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/", bytes.NewReader(envBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s at %s: %w", peer, baseURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", peer, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s: %s", peer, resp.Status, logging.Truncate(string(respBody), 200))
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("decoding response from %s: %w", peer, err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("%s: %w", peer, rpcResp.Error)
	}
	if rpcResp.Result == nil || rpcResp.Result.Status.Message == nil {
		return nil, fmt.Errorf("%s returned no result message", peer)
	}

	text := rpcResp.Result.Status.Message.Text()
	logging.AgentMessage("RECEIVE", c.caller, peer, action, text, time.Since(start))
	return json.RawMessage(text), nil
}

// SendTaskAs sends a payload and decodes the response into out.
func (c *Client) SendTaskAs(ctx context.Context, baseURL, peer string, payload, out interface{}) error {
	raw, err := c.SendTask(ctx, baseURL, peer, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", peer, err)
	}
	return nil
}
