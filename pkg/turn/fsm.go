package turn

import (
	"sync"
	"time"
)

// StateChange represents a state transition event.
type StateChange struct {
	FromState State
	ToState   State
	Timestamp time.Time
	Reason    string
}

// StateListener observes turn state changes (UI status text, diagnostics).
type StateListener interface {
	OnStateChange(event StateChange)
}

// Machine is the conversation state machine. It is driven by inbound
// protocol events and validates every transition; barge-in is signalled
// to the emitter before the state flips back to listening.
type Machine struct {
	mu           sync.RWMutex
	currentState State

	speakingStartTime  time.Time
	listeningStartTime time.Time

	stateChangeListeners []StateListener

	emitter InterruptEmitter
}

func NewMachine(emitter InterruptEmitter) *Machine {
	return &Machine{
		currentState: StateIdle,
		emitter:      emitter,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentState
}

// transitionValid checks if a state transition is valid (must be called with lock held).
func (m *Machine) transitionValid(from, to State) bool {
	validTransitions := map[State][]State{
		StateIdle:      {StateListening},
		StateListening: {StateThinking, StateIdle},
		StateThinking:  {StateSpeaking, StateListening, StateIdle},
		StateSpeaking:  {StateListening, StateIdle},
	}

	allowedStates, exists := validTransitions[from]
	if !exists {
		return false
	}

	for _, allowed := range allowedStates {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves to a new state with validation.
func (m *Machine) Transition(state State, reason string) error {
	m.mu.Lock()

	if !m.transitionValid(m.currentState, state) {
		m.mu.Unlock()
		return &InvalidTransitionError{
			From: m.currentState,
			To:   state,
		}
	}

	oldState := m.currentState
	m.currentState = state

	switch state {
	case StateListening:
		m.listeningStartTime = time.Now()
	case StateSpeaking:
		m.speakingStartTime = time.Now()
	}

	event := StateChange{
		FromState: oldState,
		ToState:   state,
		Timestamp: time.Now(),
		Reason:    reason,
	}

	listeners := make([]StateListener, len(m.stateChangeListeners))
	copy(listeners, m.stateChangeListeners)
	m.mu.Unlock()

	for _, listener := range listeners {
		listener.OnStateChange(event)
	}
	return nil
}

// AddListener registers a listener for state change events.
func (m *Machine) AddListener(listener StateListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateChangeListeners = append(m.stateChangeListeners, listener)
}

// InvalidTransitionError represents an invalid state transition attempt
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid state transition from " + e.From.String() + " to " + e.To.String()
}

// OnUserSpeechStart handles a "speech started" event. While the agent is
// thinking or speaking it is a barge-in: the emitter is signalled before
// the transition so playback is flushed ahead of the cancel round trip.
// Returns true when an in-progress response was interrupted.
func (m *Machine) OnUserSpeechStart() bool {
	m.mu.RLock()
	currentState := m.currentState
	emitter := m.emitter
	m.mu.RUnlock()

	switch currentState {
	case StateThinking, StateSpeaking:
		if emitter != nil {
			_ = emitter.Emit(NewBargeInFrame("", time.Now().UnixNano()))
		}
		_ = m.Transition(StateListening, "barge-in detected")
		return true
	case StateIdle:
		_ = m.Transition(StateListening, "user speech started")
	}
	return false
}

// OnUserTranscript handles a completed user transcript: the turn begins
// and the agent is now thinking.
func (m *Machine) OnUserTranscript() {
	if m.State() == StateIdle {
		_ = m.Transition(StateListening, "transcript while idle")
	}
	_ = m.Transition(StateThinking, "user transcript completed")
}

// OnAgentAudioStart handles the first audio delta of a response.
func (m *Machine) OnAgentAudioStart() {
	if m.State() == StateThinking {
		_ = m.Transition(StateSpeaking, "first audio delta")
	}
}

// OnResponseDone handles response completion, cancellation, or error.
func (m *Machine) OnResponseDone(reason string) {
	switch m.State() {
	case StateSpeaking, StateThinking:
		_ = m.Transition(StateListening, reason)
	}
}

// Reset returns to idle on session teardown.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.currentState = StateIdle
	m.mu.Unlock()
}
