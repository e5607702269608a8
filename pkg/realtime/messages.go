package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Outbound message constructors. Every message carries a client-generated
// event id for server-side correlation.

func sessionUpdateMsg(session json.RawMessage) ([]byte, error) {
	// The session configuration arrives opaque from bootstrap and is
	// forwarded verbatim.
	return json.Marshal(struct {
		EventID string          `json:"event_id"`
		Type    string          `json:"type"`
		Session json.RawMessage `json:"session"`
	}{
		EventID: uuid.NewString(),
		Type:    "session.update",
		Session: session,
	})
}

func audioAppendMsg(b64 string) ([]byte, error) {
	return json.Marshal(struct {
		EventID string `json:"event_id"`
		Type    string `json:"type"`
		Audio   string `json:"audio"`
	}{
		EventID: uuid.NewString(),
		Type:    "input_audio_buffer.append",
		Audio:   b64,
	})
}

func responseCancelMsg() ([]byte, error) {
	return json.Marshal(struct {
		EventID string `json:"event_id"`
		Type    string `json:"type"`
	}{
		EventID: uuid.NewString(),
		Type:    "response.cancel",
	})
}

type toolOutputItem struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

func toolResultMsg(callID, output string) ([]byte, error) {
	return json.Marshal(struct {
		EventID string         `json:"event_id"`
		Type    string         `json:"type"`
		Item    toolOutputItem `json:"item"`
	}{
		EventID: uuid.NewString(),
		Type:    "conversation.item.create",
		Item: toolOutputItem{
			Type:   "function_call_output",
			CallID: callID,
			Output: output,
		},
	})
}

func responseCreateMsg() ([]byte, error) {
	return json.Marshal(struct {
		EventID string `json:"event_id"`
		Type    string `json:"type"`
	}{
		EventID: uuid.NewString(),
		Type:    "response.create",
	})
}
