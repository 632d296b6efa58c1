package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/MrWong99/voicegate/internal/observe"
	"github.com/MrWong99/voicegate/internal/transcribe"
	"github.com/MrWong99/voicegate/pkg/audio"
	"github.com/MrWong99/voicegate/pkg/provider/stt"
)

// finishSignal is the text frame a client sends to commit the stream and
// request the final transcript.
const finishSignal = "FINISH"

// streamEvent is the JSON wire form of a transcription event. Partials are
// revisable; exactly one final (or error) event ends the stream.
type streamEvent struct {
	Type      string    `json:"type"`
	Seq       uint64    `json:"seq"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// handleStream upgrades to a websocket and runs one streaming transcription
// over it. The client sends binary frames of raw 16-bit little-endian PCM
// and a single "FINISH" text frame; the server answers with ordered JSON
// events ending in a final transcript or an error.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	ctx := r.Context()
	log := observe.Logger(ctx)

	dec, err := s.stt.NewDecoder(ctx, stt.StreamConfig{
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	})
	if err != nil {
		log.Error("stream: decoder unavailable", "err", err)
		conn.Close(websocket.StatusInternalError, "decoder unavailable")
		return
	}

	eng := transcribe.NewEngine(ctx, dec)
	defer eng.Close()

	s.metrics.ActiveStreams.Add(ctx, 1)
	defer s.metrics.ActiveStreams.Add(ctx, -1)

	// Writer: drain engine events onto the socket. The terminal event ends
	// the stream, so the writer closes the connection itself; that also
	// unblocks the read loop when the engine dies mid-stream.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for ev := range eng.Events() {
			msg := streamEvent{
				Type:      string(ev.Type),
				Seq:       ev.Seq,
				Result:    ev.Text,
				Timestamp: time.Now().UTC(),
			}
			if ev.Err != nil {
				msg.Error = ev.Err.Error()
			}
			if err := wsjson.Write(ctx, conn, msg); err != nil {
				return
			}
			if ev.Type != transcribe.EventPartial {
				conn.Close(websocket.StatusNormalClosure, "stream complete")
				return
			}
		}
	}()

	if err := s.streamReadLoop(r, conn, eng); err != nil {
		eng.Close()
		<-writerDone
		log.Warn("stream: protocol violation", "err", err)
		conn.Close(websocket.StatusUnsupportedData, "protocol violation")
		return
	}

	<-writerDone
	conn.Close(websocket.StatusNormalClosure, "stream complete")
}

// streamReadLoop pumps client frames into the engine. Binary frames carry
// audio; a "FINISH" text frame commits the stream and ends the loop. Any
// other frame is a protocol violation. A read error means the client went
// away: the engine is aborted and the loop returns cleanly.
func (s *Server) streamReadLoop(r *http.Request, conn *websocket.Conn, eng *transcribe.Engine) error {
	ctx := r.Context()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			eng.Close()
			return nil
		}

		switch typ {
		case websocket.MessageBinary:
			// A Feed error means the engine already terminated (the writer
			// has delivered the error event); stop reading.
			if err := eng.Feed(data); err != nil {
				return nil
			}
		case websocket.MessageText:
			if string(data) != finishSignal {
				return fmt.Errorf("unexpected text frame %q", data)
			}
			eng.Finish()
			return nil
		default:
			return fmt.Errorf("unexpected frame type %v", typ)
		}
	}
}
