package realtime

import (
	"errors"
	"testing"
)

func TestParseServerEventVariants(t *testing.T) {
	cases := []struct {
		name string
		data string
		want func(ServerEvent) bool
	}{
		{
			name: "session ready",
			data: `{"type":"session.created","session":{"id":"sess_1","model":"agent-1","voice":"alloy"}}`,
			want: func(ev ServerEvent) bool {
				e, ok := ev.(SessionReady)
				return ok && e.SessionID == "sess_1" && e.Model == "agent-1" && e.Voice == "alloy"
			},
		},
		{
			name: "speech started",
			data: `{"type":"input_audio_buffer.speech_started","audio_start_ms":420}`,
			want: func(ev ServerEvent) bool {
				e, ok := ev.(SpeechStarted)
				return ok && e.AudioStartMS == 420
			},
		},
		{
			name: "transcript completed",
			data: `{"type":"conversation.item.input_audio_transcription.completed","item_id":"item_1","transcript":"PS5 price"}`,
			want: func(ev ServerEvent) bool {
				e, ok := ev.(TranscriptCompleted)
				return ok && e.Transcript == "PS5 price"
			},
		},
		{
			name: "response started",
			data: `{"type":"response.created","response":{"id":"resp_1"}}`,
			want: func(ev ServerEvent) bool {
				e, ok := ev.(ResponseStarted)
				return ok && e.ResponseID == "resp_1"
			},
		},
		{
			name: "audio delta",
			data: `{"type":"response.audio.delta","response_id":"resp_1","delta":"AAAA"}`,
			want: func(ev ServerEvent) bool {
				e, ok := ev.(AudioDelta)
				return ok && e.Delta == "AAAA"
			},
		},
		{
			name: "transcript delta",
			data: `{"type":"response.audio_transcript.delta","response_id":"resp_1","delta":"Hel"}`,
			want: func(ev ServerEvent) bool {
				e, ok := ev.(TranscriptDelta)
				return ok && e.Delta == "Hel"
			},
		},
		{
			name: "transcript done",
			data: `{"type":"response.audio_transcript.done","response_id":"resp_1","transcript":"Hello there"}`,
			want: func(ev ServerEvent) bool {
				e, ok := ev.(TranscriptDone)
				return ok && e.Transcript == "Hello there"
			},
		},
		{
			name: "response done",
			data: `{"type":"response.done","response":{"id":"resp_1","status":"completed"}}`,
			want: func(ev ServerEvent) bool {
				e, ok := ev.(ResponseDone)
				return ok && e.Status == "completed"
			},
		},
		{
			name: "tool call requested",
			data: `{"type":"response.function_call_arguments.done","call_id":"call_1","name":"search_products","arguments":"{\"query\":\"ps5\"}"}`,
			want: func(ev ServerEvent) bool {
				e, ok := ev.(ToolCallRequested)
				return ok && e.CallID == "call_1" && e.Name == "search_products"
			},
		},
		{
			name: "error",
			data: `{"type":"error","error":{"code":"server_error","message":"boom"}}`,
			want: func(ev ServerEvent) bool {
				e, ok := ev.(ErrorEvent)
				return ok && e.Message == "boom"
			},
		},
	}
	for _, tc := range cases {
		ev, err := ParseServerEvent([]byte(tc.data))
		if err != nil {
			t.Fatalf("%s: parse error: %v", tc.name, err)
		}
		if !tc.want(ev) {
			t.Fatalf("%s: unexpected event %#v", tc.name, ev)
		}
	}
}

func TestParseServerEventUnknownType(t *testing.T) {
	_, err := ParseServerEvent([]byte(`{"type":"rate_limits.updated"}`))
	var unknown ErrUnknownEvent
	if !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
	if unknown.Type != "rate_limits.updated" {
		t.Fatalf("unexpected type %q", unknown.Type)
	}
}

func TestParseServerEventMalformed(t *testing.T) {
	if _, err := ParseServerEvent([]byte(`{`)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}
