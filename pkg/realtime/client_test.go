package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// agentStub is a minimal remote agent: it records inbound messages and
// answers a session.update with session.created.
type agentStub struct {
	upgrader websocket.Upgrader
	inbound  chan map[string]any
}

func newAgentStub() *agentStub {
	return &agentStub{inbound: make(chan map[string]any, 64)}
}

func (a *agentStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		a.inbound <- msg
		if msg["type"] == "session.update" {
			_ = conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"type":"session.created","session":{"id":"sess_1","model":"agent-1"}}`))
		}
	}
}

func (a *agentStub) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case msg := <-a.inbound:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for client message")
		return nil
	}
}

func startClient(t *testing.T) (*Client, *agentStub) {
	t.Helper()
	stub := newAgentStub()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		Endpoint:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		Model:        "agent-1",
		ClientSecret: "ek_test",
	})
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, stub
}

func TestClientConfigureForwardsSessionVerbatim(t *testing.T) {
	client, stub := startClient(t)

	raw := json.RawMessage(`{"modalities":["audio","text"],"instructions":"be brief","voice":"alloy"}`)
	if err := client.Configure(raw); err != nil {
		t.Fatalf("configure: %v", err)
	}

	msg := stub.next(t)
	if msg["type"] != "session.update" {
		t.Fatalf("expected session.update, got %v", msg["type"])
	}
	session, _ := msg["session"].(map[string]any)
	if session["instructions"] != "be brief" {
		t.Fatalf("session config not forwarded verbatim: %v", msg["session"])
	}

	select {
	case ev := <-client.Events():
		if _, ok := ev.(SessionReady); !ok {
			t.Fatalf("expected SessionReady, got %#v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for SessionReady")
	}
	if client.State() != StateConnected {
		t.Fatalf("expected connected state, got %s", client.State())
	}
}

func TestClientSendsProtocolMessages(t *testing.T) {
	client, stub := startClient(t)

	if err := client.AppendAudio("cGNtMTY="); err != nil {
		t.Fatalf("append audio: %v", err)
	}
	msg := stub.next(t)
	if msg["type"] != "input_audio_buffer.append" || msg["audio"] != "cGNtMTY=" {
		t.Fatalf("unexpected audio append: %v", msg)
	}

	if err := client.CancelResponse(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if msg := stub.next(t); msg["type"] != "response.cancel" {
		t.Fatalf("expected response.cancel, got %v", msg["type"])
	}

	if err := client.SubmitToolResult("call_1", "in stock"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	msg = stub.next(t)
	if msg["type"] != "conversation.item.create" {
		t.Fatalf("expected conversation.item.create, got %v", msg["type"])
	}
	item, _ := msg["item"].(map[string]any)
	if item["call_id"] != "call_1" || item["output"] != "in stock" {
		t.Fatalf("tool result not matched to call id: %v", item)
	}

	if err := client.ResumeResponse(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if msg := stub.next(t); msg["type"] != "response.create" {
		t.Fatalf("expected response.create, got %v", msg["type"])
	}
}

func TestClientDialFailureIsFatal(t *testing.T) {
	client := NewClient(Config{Endpoint: "ws://127.0.0.1:1", DialTimeout: 500 * time.Millisecond})
	if err := client.Connect(context.Background()); err == nil {
		t.Fatalf("expected dial error")
	}
	if client.State() != StateDisconnected {
		t.Fatalf("expected disconnected state, got %s", client.State())
	}
}

func TestClientWriteFailureFailsControlSendsFast(t *testing.T) {
	// The server hangs up right after the handshake, so client writes
	// start failing once the peer teardown lands.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{Endpoint: "ws" + strings.TrimPrefix(srv.URL, "http")})
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	deadline := time.After(2 * time.Second)
	for {
		if err := client.CancelResponse(); err != nil {
			if !errors.Is(err, ErrClosed) {
				t.Fatalf("expected ErrClosed, got %v", err)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("control sends kept succeeding after the socket died")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if client.State() != StateClosed {
		t.Fatalf("expected closed state, got %s", client.State())
	}
}

func TestClientCloseIdempotent(t *testing.T) {
	client, _ := startClient(t)
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if client.State() != StateClosed {
		t.Fatalf("expected closed state, got %s", client.State())
	}
}
