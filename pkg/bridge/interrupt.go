package bridge

import (
	"sync/atomic"

	"github.com/grottohq/voicebridge/internal/log"
	"github.com/grottohq/voicebridge/pkg/twilio"
)

// Interrupter coordinates barge-in. When the model reports the caller
// spoke over it, Trigger raises the flag, tells Twilio to drop its
// playback buffer, and flushes everything queued locally. The playback
// loop idles while the flag is up; the flag drops when the model's next
// uninterrupted audio arrives.
type Interrupter struct {
	active atomic.Bool
}

// Trigger handles one barge-in: raise the flag, clear Twilio's buffer,
// drain the local queue.
func (i *Interrupter) Trigger(conn Conn, streamSID string, queue chan []byte) {
	i.active.Store(true)
	if err := conn.WriteJSON(twilio.ClearMessage(streamSID)); err != nil {
		log.Warn("barge-in: clear failed", "error", err)
	}
	for {
		select {
		case <-queue:
		default:
			return
		}
	}
}

// Clear drops the flag; called when fresh model audio arrives.
func (i *Interrupter) Clear() {
	i.active.Store(false)
}

// Active reports whether playback is suppressed.
func (i *Interrupter) Active() bool {
	return i.active.Load()
}
