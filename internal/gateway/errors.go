package gateway

import "errors"

// ErrSession is returned when the session store rejects an operation,
// typically because the session expired between stages.
var ErrSession = errors.New("gateway: session store failure")

// ErrTranscription is returned when the transcription stage fails. It wraps
// the underlying cause, so callers can still distinguish invalid audio from
// decoder faults with errors.Is.
var ErrTranscription = errors.New("gateway: transcription failed")

// ErrGeneration is returned when the LLM stage fails. No turn is committed
// to the session in this case.
var ErrGeneration = errors.New("gateway: reply generation failed")

// ErrSynthesis marks a synthesis-stage failure. It is never returned from
// VoiceTurn — synthesis failures degrade the turn instead of aborting it —
// but is available for callers that inspect degraded results.
var ErrSynthesis = errors.New("gateway: speech synthesis failed")
