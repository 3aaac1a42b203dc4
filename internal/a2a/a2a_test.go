package a2a

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	req := NewRequest(7, "select_concept", `{"action":"select_concept","difficulty":4}`, nil)
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Request
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.JSONRPC != "2.0" || decoded.ID != 7 || decoded.Method != "select_concept" {
		t.Fatalf("decoded envelope = %+v", decoded)
	}
	if got := decoded.Params.Message.Text(); got != `{"action":"select_concept","difficulty":4}` {
		t.Fatalf("payload text = %q", got)
	}
	if decoded.Params.Message.MessageID == "" {
		t.Fatal("expected generated message id")
	}
}

func TestResponseEnvelopeStates(t *testing.T) {
	resp := NewResponse(3, StateCompleted, `{"success":true}`)
	data, _ := json.Marshal(resp)

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	result := m["result"].(map[string]interface{})
	status := result["status"].(map[string]interface{})
	if status["state"] != "completed" {
		t.Fatalf("state = %v", status["state"])
	}
	if _, hasErr := m["error"]; hasErr {
		t.Fatal("completed response must not carry an error member")
	}
}

func TestDecodeAction(t *testing.T) {
	action, err := DecodeAction([]byte(`{"action":"generate_question","difficulty":5}`))
	if err != nil || action != "generate_question" {
		t.Fatalf("action=%q err=%v", action, err)
	}
	if _, err := DecodeAction([]byte(`{not json`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

// echoAgent answers "ping" and rejects everything else, failing tasks
// whose payload asks it to.
type echoAgent struct{}

func (echoAgent) Card() AgentCard {
	return AgentCard{
		Name:        "Echo Agent",
		Description: "test fixture",
		URL:         "http://localhost:0/",
		Version:     "1.0.0",
		Skills:      []AgentSkill{{ID: "ping", Name: "Ping"}},
	}
}

func (echoAgent) Handle(ctx context.Context, action string, raw json.RawMessage) (interface{}, error) {
	switch action {
	case "ping":
		return map[string]interface{}{"success": true, "echo": "pong"}, nil
	case "explode":
		return nil, context.DeadlineExceeded
	default:
		return UnknownAction(action), nil
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := NewServer(echoAgent{}, 0, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClientServerExchange(t *testing.T) {
	ts := newTestServer(t)
	client := NewClient("test", 5*time.Second)

	raw, err := client.SendTask(context.Background(), ts.URL, "echo", map[string]interface{}{"action": "ping"})
	if err != nil {
		t.Fatalf("SendTask: %v", err)
	}
	var out struct {
		Success bool   `json:"success"`
		Echo    string `json:"echo"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Success || out.Echo != "pong" {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestServerInvalidInnerJSON(t *testing.T) {
	// A well-formed envelope carrying garbage payload text must complete
	// with an in-band error, not an HTTP or JSON-RPC failure.
	ts := newTestServer(t)

	env := &Request{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "ping",
		Params:  &Params{Message: NewMessage("user", "{this is not json")},
	}
	body, _ := json.Marshal(env)

	resp, err := ts.Client().Post(ts.URL+"/", "application/json", strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rpcResp.Error != nil {
		t.Fatalf("unexpected rpc error: %v", rpcResp.Error)
	}
	if rpcResp.Result.Status.State != StateCompleted {
		t.Fatalf("state = %s", rpcResp.Result.Status.State)
	}

	var errBody ErrorBody
	if err := json.Unmarshal([]byte(rpcResp.Result.Status.Message.Text()), &errBody); err != nil {
		t.Fatalf("decode inner: %v", err)
	}
	if errBody.Success || errBody.Error != "Invalid JSON in task message" {
		t.Fatalf("inner body = %+v", errBody)
	}
}

func TestServerHandlerErrorBecomesFailedTask(t *testing.T) {
	ts := newTestServer(t)
	client := NewClient("test", 5*time.Second)

	raw, err := client.SendTask(context.Background(), ts.URL, "echo", map[string]interface{}{"action": "explode"})
	if err != nil {
		t.Fatalf("SendTask: %v", err)
	}
	var errBody ErrorBody
	if err := json.Unmarshal(raw, &errBody); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errBody.Success {
		t.Fatal("expected in-band failure")
	}
}

func TestUnknownActionPayload(t *testing.T) {
	ts := newTestServer(t)
	client := NewClient("test", 5*time.Second)

	var out ErrorBody
	if err := client.SendTaskAs(context.Background(), ts.URL, "echo", map[string]interface{}{"action": "nope"}, &out); err != nil {
		t.Fatalf("SendTaskAs: %v", err)
	}
	if out.Success || !strings.Contains(out.Error, "nope") {
		t.Fatalf("body = %+v", out)
	}
}

func TestGetAgentCard(t *testing.T) {
	ts := newTestServer(t)
	client := NewClient("test", 5*time.Second)

	card, err := client.GetAgentCard(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("GetAgentCard: %v", err)
	}
	if card.Name != "Echo Agent" || len(card.Skills) != 1 {
		t.Fatalf("card = %+v", card)
	}
}
