// Package bridge runs one phone call end to end: it relays audio
// between a Twilio media stream and a Gemini Live session, handles
// barge-in, dispatches tool calls, and periodically distills the
// transcript into the caller's profile.
package bridge

import (
	"context"
	"sync"

	"github.com/grottohq/voicebridge/pkg/gemini"
	"github.com/grottohq/voicebridge/pkg/session"
	"github.com/grottohq/voicebridge/pkg/twilio"
)

// Conn is the caller-side WebSocket. Satisfied by both
// gofiber/websocket and gorilla connections.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// syncConn serializes writes. The playback loop and the model-event
// loop both write the caller socket, and the WebSocket libraries allow
// only one concurrent writer.
type syncConn struct {
	Conn
	mu sync.Mutex
}

func (s *syncConn) WriteJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Conn.WriteJSON(v)
}

// LiveSession is the model-side duplex stream.
type LiveSession interface {
	Events() <-chan gemini.ServerEvent
	Err() error
	SendAudio(pcm16 []byte) error
	SendText(text string) error
	SendToolResponses(responses []gemini.ToolResponse) error
	Close() error
}

// Extractor distills structured caller facts from a transcript.
type Extractor interface {
	ExtractQuestions(ctx context.Context, conversation string) ([]string, error)
	ExtractProfile(ctx context.Context, conversation string) (session.CallerProfile, error)
}

// CallControl issues out-of-band commands on the live call leg,
// implemented by the Twilio REST client.
type CallControl interface {
	Announce(ctx context.Context, callSID, text string) error
	Redirect(ctx context.Context, callSID, number string) error
}

var (
	_ LiveSession = (*gemini.LiveClient)(nil)
	_ Extractor   = (*gemini.Extractor)(nil)
	_ CallControl = (*twilio.Client)(nil)
)
