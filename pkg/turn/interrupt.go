package turn

import (
	"github.com/tradeup-ai/voxline/pkg/frames"
)

// InterruptEmitter receives barge-in control frames. The session layer
// implements it: clear playback first, then cancel the in-flight response.
type InterruptEmitter interface {
	Emit(frame frames.Frame) error
}

func NewBargeInFrame(sessionID string, pts int64) frames.ControlFrame {
	return frames.NewControlFrame(sessionID, pts, frames.ControlBargeIn, nil)
}
