package transcribe

import "errors"

// ErrInvalidAudio is returned when a payload fails up-front audio validation
// (not a WAV container, or the wrong sample rate / channel count / bit depth).
// The caller's input is at fault; nothing was decoded.
var ErrInvalidAudio = errors.New("transcribe: invalid audio")

// ErrDecode is returned when the speech decoder itself fails on audio that
// passed validation.
var ErrDecode = errors.New("transcribe: decode failed")

// ErrNoSpeech is returned when decoding succeeds but yields an empty
// transcript. Callers surface this to the client rather than storing an
// empty turn.
var ErrNoSpeech = errors.New("transcribe: no speech recognized")

// ErrClosed is returned by engine operations after the stream has finished
// or been closed.
var ErrClosed = errors.New("transcribe: stream closed")
