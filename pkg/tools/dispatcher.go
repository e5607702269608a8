package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/tradeup-ai/voxline/pkg/errorsx"
	"github.com/tradeup-ai/voxline/pkg/logging"
	"github.com/tradeup-ai/voxline/pkg/metrics"
)

// Call is one tool invocation requested by the remote agent mid-response.
type Call struct {
	CallID        string
	Name          string
	ArgumentsJSON string
}

// ResultSink receives tool outputs and the resume signal. Both must be
// sent for every call or the agent's turn stalls permanently.
type ResultSink interface {
	SubmitToolResult(callID, output string) error
	ResumeResponse() error
}

type Options struct {
	Concurrency int
	QueueSize   int
}

// Dispatcher runs tool calls off the event loop. Guarantees: exactly one
// result per callId (malformed arguments and backend failures become
// failure text, never a dropped call), at most one in-flight request per
// callId, no automatic retries. Results may complete out of order; they
// are matched by callId, never by arrival order.
type Dispatcher struct {
	registry Registry
	sink     ResultSink
	tasks    chan Call
	opts     Options
	observer metrics.Observer
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewDispatcher(registry Registry, sink ResultSink, opts Options) *Dispatcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		registry: registry,
		sink:     sink,
		tasks:    make(chan Call, opts.QueueSize),
		opts:     opts,
		observer: metrics.NoopObserver{},
		logger:   logging.NewComponentLogger(slog.Default(), "tool_dispatcher"),
		inflight: make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := 0; i < opts.Concurrency; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// SetObserver wires a diagnostics observer for tool latency events.
func (d *Dispatcher) SetObserver(obs metrics.Observer) {
	if obs != nil {
		d.observer = obs
	}
}

// Dispatch accepts a tool call. A duplicate callId while the original is
// still in flight is ignored; a full queue falls back to a dedicated
// goroutine so the call can never be lost.
func (d *Dispatcher) Dispatch(call Call) {
	if call.CallID == "" || call.Name == "" {
		d.logger.Warn("tool_call_missing_identity", "tool_name", call.Name)
		return
	}
	d.mu.Lock()
	if d.inflight[call.CallID] {
		d.mu.Unlock()
		d.logger.Warn("tool_call_duplicate", "call_id", call.CallID)
		return
	}
	d.inflight[call.CallID] = true
	d.mu.Unlock()

	select {
	case d.tasks <- call:
	default:
		go d.exec(call)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case call := <-d.tasks:
			d.exec(call)
		}
	}
}

func (d *Dispatcher) exec(call Call) {
	started := time.Now()
	status := "ok"

	args := map[string]any{}
	var result string
	if err := json.Unmarshal([]byte(call.ArgumentsJSON), &args); err != nil && call.ArgumentsJSON != "" {
		// Malformed arguments are a local failure: the agent still needs
		// exactly one result to continue.
		status = "bad_args"
		result = "The tool call arguments could not be parsed: " + err.Error()
		d.logger.Warn("tool_args_invalid",
			"call_id", call.CallID,
			"tool_name", call.Name,
			"reason_code", string(errorsx.ReasonToolArgs))
	} else {
		out, err := d.registry.Handle(d.ctx, call.Name, args)
		if err != nil {
			status = "error"
			result = "I ran into an issue checking that. " + friendlyDetail(out)
			d.logger.Warn("tool_call_failed",
				"call_id", call.CallID,
				"tool_name", call.Name,
				"error", err.Error(),
				"reason_code", string(errorsx.Reason(err)))
		} else {
			result = out
		}
	}

	d.submit(call.CallID, result)

	d.mu.Lock()
	delete(d.inflight, call.CallID)
	d.mu.Unlock()

	d.observer.RecordEvent(metrics.MetricsEvent{
		Name:  "tool_call",
		Time:  time.Now(),
		Value: float64(time.Since(started).Milliseconds()),
		Tags:  map[string]string{"tool_name": call.Name, "status": status},
	})
}

// submit sends the result then the resume signal; skipping either leaves
// the remote agent's turn stalled.
func (d *Dispatcher) submit(callID, output string) {
	if err := d.sink.SubmitToolResult(callID, output); err != nil {
		d.logger.Warn("tool_result_submit_failed", "call_id", callID, "error", err.Error())
		return
	}
	if err := d.sink.ResumeResponse(); err != nil {
		d.logger.Warn("tool_resume_failed", "call_id", callID, "error", err.Error())
	}
}

func friendlyDetail(partial string) string {
	if partial == "" {
		return "Please try again in a moment."
	}
	return partial
}

// Close stops the workers. In-flight executions finish their submission.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.cancel()
		d.wg.Wait()
	})
}
