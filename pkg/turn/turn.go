package turn

import (
	"regexp"
	"strings"
	"sync"
	"time"
)

// Status tags how a turn ended.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusInterrupted Status = "interrupted"
	StatusError       Status = "error"
)

// Record is the unit of conversational logging: one user utterance plus
// one agent response.
type Record struct {
	SessionID           string
	UserID              string
	UserTranscript      string
	AssistantTranscript string
	LinksMarkdown       string
	StartedAt           time.Time
	Latency             time.Duration
	Status              Status
}

// Builder assembles the turn in progress. A turn opens when a completed
// user transcript arrives and closes exactly once, on response done,
// barge-in, or error.
type Builder struct {
	mu         sync.Mutex
	open       bool
	sessionID  string
	userID     string
	user       string
	assistant  strings.Builder
	finalText  string
	links      []string
	startedAt  time.Time
	firstDelta time.Time
}

func NewBuilder(sessionID, userID string) *Builder {
	return &Builder{sessionID: sessionID, userID: userID}
}

// Begin opens a new turn, snapshotting the user transcript and dropping
// any stale tool links from a previous turn.
func (b *Builder) Begin(transcript string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = true
	b.user = strings.TrimSpace(transcript)
	b.assistant.Reset()
	b.finalText = ""
	b.links = nil
	b.startedAt = time.Now()
	b.firstDelta = time.Time{}
}

// Open reports whether a turn is in progress.
func (b *Builder) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// MarkFirstDelta records when the agent started answering; turn latency
// is measured to this point.
func (b *Builder) MarkFirstDelta() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open && b.firstDelta.IsZero() {
		b.firstDelta = time.Now()
	}
}

// AppendAssistant accumulates one transcript fragment.
func (b *Builder) AppendAssistant(delta string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		b.assistant.WriteString(delta)
	}
}

// SetAssistantTranscript replaces the accumulated fragments with the
// complete transcript when the agent provides one.
func (b *Builder) SetAssistantTranscript(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		b.finalText = text
	}
}

var linkPattern = regexp.MustCompile(`https?://[^\s)\]">]+`)

// AddLinksFromText extracts URLs from a tool result and keeps them as
// markdown for the turn log.
func (b *Builder) AddLinksFromText(text string) {
	urls := linkPattern.FindAllString(text, -1)
	if len(urls) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return
	}
	for _, u := range urls {
		b.links = append(b.links, "- ["+u+"]("+u+")")
	}
}

// Finalize closes the turn and returns its record. ok is false when no
// turn was open; a turn is finalized at most once.
func (b *Builder) Finalize(status Status) (Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return Record{}, false
	}
	b.open = false

	assistant := b.finalText
	if assistant == "" {
		assistant = b.assistant.String()
	}
	latencyEnd := time.Now()
	if !b.firstDelta.IsZero() {
		latencyEnd = b.firstDelta
	}
	return Record{
		SessionID:           b.sessionID,
		UserID:              b.userID,
		UserTranscript:      b.user,
		AssistantTranscript: strings.TrimSpace(assistant),
		LinksMarkdown:       strings.Join(b.links, "\n"),
		StartedAt:           b.startedAt,
		Latency:             latencyEnd.Sub(b.startedAt),
		Status:              status,
	}, true
}
