package realtime

import (
	"encoding/json"
	"fmt"
)

// Wire event types consumed from the remote speech agent.
const (
	typeSessionCreated      = "session.created"
	typeSpeechStarted       = "input_audio_buffer.speech_started"
	typeTranscriptCompleted = "conversation.item.input_audio_transcription.completed"
	typeResponseCreated     = "response.created"
	typeAudioDelta          = "response.audio.delta"
	typeTranscriptDelta     = "response.audio_transcript.delta"
	typeTranscriptDone      = "response.audio_transcript.done"
	typeResponseDone        = "response.done"
	typeToolCallRequested   = "response.function_call_arguments.done"
	typeError               = "error"
)

// ServerEvent is the typed union of inbound protocol events. One struct
// per variant keeps the conversation loop exhaustively testable without a
// live socket.
type ServerEvent interface {
	isServerEvent()
}

// SessionReady signals the remote agent accepted the connection.
type SessionReady struct {
	SessionID string
	Model     string
	Voice     string
}

// SpeechStarted signals server-side voice activity detection fired: the
// user began speaking. Arriving mid-response it triggers barge-in.
type SpeechStarted struct {
	AudioStartMS int64
}

// TranscriptCompleted carries the final user utterance transcript and
// opens a new turn.
type TranscriptCompleted struct {
	ItemID     string
	Transcript string
}

// ResponseStarted marks a response as actively generating; it gates
// cancellation eligibility.
type ResponseStarted struct {
	ResponseID string
}

// AudioDelta carries one base64 PCM16 chunk of agent speech.
type AudioDelta struct {
	ResponseID string
	ItemID     string
	Delta      string
}

// TranscriptDelta carries one text fragment of the agent's spoken reply.
type TranscriptDelta struct {
	ResponseID string
	Delta      string
}

// TranscriptDone carries the complete agent transcript for the response.
type TranscriptDone struct {
	ResponseID string
	Transcript string
}

// ResponseDone closes the response; Status distinguishes completed from
// cancelled generation.
type ResponseDone struct {
	ResponseID string
	Status     string
}

// ToolCallRequested asks the pipeline to invoke a backend capability.
type ToolCallRequested struct {
	CallID    string
	Name      string
	Arguments string
}

// ErrorEvent is a recoverable remote agent error; it ends the current
// turn, never the session.
type ErrorEvent struct {
	Code    string
	Message string
}

func (SessionReady) isServerEvent()        {}
func (SpeechStarted) isServerEvent()       {}
func (TranscriptCompleted) isServerEvent() {}
func (ResponseStarted) isServerEvent()     {}
func (AudioDelta) isServerEvent()          {}
func (TranscriptDelta) isServerEvent()     {}
func (TranscriptDone) isServerEvent()      {}
func (ResponseDone) isServerEvent()        {}
func (ToolCallRequested) isServerEvent()   {}
func (ErrorEvent) isServerEvent()          {}

type envelope struct {
	Type string `json:"type"`
}

// ErrUnknownEvent is returned for event types the pipeline does not
// consume; callers skip them.
type ErrUnknownEvent struct {
	Type string
}

func (e ErrUnknownEvent) Error() string {
	return fmt.Sprintf("unknown server event %q", e.Type)
}

// ParseServerEvent decodes one inbound message into its typed variant.
func ParseServerEvent(data []byte) (ServerEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case typeSessionCreated:
		var raw struct {
			Session struct {
				ID    string `json:"id"`
				Model string `json:"model"`
				Voice string `json:"voice"`
			} `json:"session"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return SessionReady{SessionID: raw.Session.ID, Model: raw.Session.Model, Voice: raw.Session.Voice}, nil
	case typeSpeechStarted:
		var raw struct {
			AudioStartMS int64 `json:"audio_start_ms"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return SpeechStarted{AudioStartMS: raw.AudioStartMS}, nil
	case typeTranscriptCompleted:
		var raw struct {
			ItemID     string `json:"item_id"`
			Transcript string `json:"transcript"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return TranscriptCompleted{ItemID: raw.ItemID, Transcript: raw.Transcript}, nil
	case typeResponseCreated:
		var raw struct {
			Response struct {
				ID string `json:"id"`
			} `json:"response"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return ResponseStarted{ResponseID: raw.Response.ID}, nil
	case typeAudioDelta:
		var raw struct {
			ResponseID string `json:"response_id"`
			ItemID     string `json:"item_id"`
			Delta      string `json:"delta"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return AudioDelta{ResponseID: raw.ResponseID, ItemID: raw.ItemID, Delta: raw.Delta}, nil
	case typeTranscriptDelta:
		var raw struct {
			ResponseID string `json:"response_id"`
			Delta      string `json:"delta"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return TranscriptDelta{ResponseID: raw.ResponseID, Delta: raw.Delta}, nil
	case typeTranscriptDone:
		var raw struct {
			ResponseID string `json:"response_id"`
			Transcript string `json:"transcript"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return TranscriptDone{ResponseID: raw.ResponseID, Transcript: raw.Transcript}, nil
	case typeResponseDone:
		var raw struct {
			Response struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"response"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return ResponseDone{ResponseID: raw.Response.ID, Status: raw.Response.Status}, nil
	case typeToolCallRequested:
		var raw struct {
			CallID    string `json:"call_id"`
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return ToolCallRequested{CallID: raw.CallID, Name: raw.Name, Arguments: raw.Arguments}, nil
	case typeError:
		var raw struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return ErrorEvent{Code: raw.Error.Code, Message: raw.Error.Message}, nil
	default:
		return nil, ErrUnknownEvent{Type: env.Type}
	}
}
