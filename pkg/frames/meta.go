package frames

// Meta keys shared across pipeline stages.
const (
	MetaSessionID = "session_id"
	MetaUserID    = "user_id"
	MetaSource    = "source"
	MetaDirection = "direction"
	MetaEncoding  = "encoding"
	MetaIsFinal   = "is_final"
)

// Direction values for audio frames.
const (
	DirectionCapture  = "capture"
	DirectionPlayback = "playback"
)
