package bridge

import (
	"context"
	"encoding/base64"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grottohq/voicebridge/internal/log"
	"github.com/grottohq/voicebridge/pkg/audio"
	"github.com/grottohq/voicebridge/pkg/gemini"
	"github.com/grottohq/voicebridge/pkg/inventory"
	"github.com/grottohq/voicebridge/pkg/session"
	"github.com/grottohq/voicebridge/pkg/twilio"
)

// State tracks where a call is in its lifecycle. Transitions only move
// forward: Connecting -> Active -> Ending -> Closed.
type State int32

const (
	StateConnecting State = iota
	StateActive
	StateEnding
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateEnding:
		return "ending"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	playbackQueueSize = 256
	idlePollInterval  = 50 * time.Millisecond
)

// Config wires one call's collaborators.
type Config struct {
	Conn      Conn
	Live      LiveSession
	Session   *session.CallSession
	Store     session.Store
	Recorder  *session.Recorder
	Extractor Extractor
	Control   CallControl

	HumanNumber     string
	ExtractInterval time.Duration
}

// Call orchestrates one phone call: four loops over a shared playback
// queue, interrupt flag, and session, torn down together when either
// side hangs up or a terminal tool fires.
type Call struct {
	conn      Conn
	live      LiveSession
	sess      *session.CallSession
	store     session.Store
	recorder  *session.Recorder
	extractor Extractor
	dispatch  *Dispatcher

	extractInterval time.Duration

	streamSID string
	queue     chan []byte
	interrupt Interrupter

	state   atomic.Int32
	endOnce sync.Once
	cancel  context.CancelFunc
}

// NewCall builds the orchestrator for one accepted call.
func NewCall(cfg Config) *Call {
	c := &Call{
		conn:            &syncConn{Conn: cfg.Conn},
		live:            cfg.Live,
		sess:            cfg.Session,
		store:           cfg.Store,
		recorder:        cfg.Recorder,
		extractor:       cfg.Extractor,
		extractInterval: cfg.ExtractInterval,
		queue:           make(chan []byte, playbackQueueSize),
	}
	c.dispatch = NewDispatcher(cfg.Session, inventory.Catalog(), cfg.Control, cfg.HumanNumber)
	return c
}

// State returns the call's current lifecycle state.
func (c *Call) State() State {
	return State(c.state.Load())
}

func (c *Call) setState(s State) {
	c.state.Store(int32(s))
	log.Debug("call state", "call_sid", c.sess.CallSID, "state", s.String())
}

// Run drives the call to completion. It blocks until every loop has
// stopped and the session has been persisted.
func (c *Call) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	defer cancel()

	// ReadMessage has no context; closing the conn is the only way
	// cancellation reaches a blocked read.
	context.AfterFunc(ctx, func() { c.conn.Close() })

	if !c.awaitStart() {
		c.finish()
		return
	}
	c.setState(StateActive)

	// Prime the model so it greets the caller first.
	if err := c.live.SendText(""); err != nil {
		log.Error("prime turn failed", "call_sid", c.sess.CallSID, "error", err)
	}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); c.receiveLoop(ctx) }()
	go func() { defer wg.Done(); c.forwardLoop(ctx) }()
	go func() { defer wg.Done(); c.sendLoop(ctx) }()
	go func() { defer wg.Done(); c.extractLoop(ctx) }()
	wg.Wait()

	c.finish()
}

// awaitStart reads the socket until Twilio announces the stream,
// discarding the connected handshake and anything else that precedes
// start. Returns false if the socket dies first.
func (c *Call) awaitStart() bool {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Warn("stream ended before start", "call_sid", c.sess.CallSID, "error", err)
			return false
		}
		msg, err := twilio.ParseMessage(data)
		if err != nil || msg.Event != twilio.EventStart {
			continue
		}
		c.streamSID = msg.StreamSID
		if msg.Start != nil {
			if msg.Start.StreamSID != "" {
				c.streamSID = msg.Start.StreamSID
			}
			if c.sess.CallSID == "" && msg.Start.CallSID != "" {
				c.sess.CallSID = msg.Start.CallSID
			}
		}
		log.Info("stream started", "call_sid", c.sess.CallSID, "stream_sid", c.streamSID)
		return true
	}
}

// receiveLoop consumes model events: transcripts into the session,
// interruptions to the interrupter, audio onto the playback queue, and
// tool calls to the dispatcher.
func (c *Call) receiveLoop(ctx context.Context) {
	events := c.live.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				if err := c.live.Err(); err != nil {
					log.Error("model stream failed", "call_sid", c.sess.CallSID, "error", err)
				}
				c.cancel()
				return
			}
			c.handleEvent(ctx, event)
		}
	}
}

func (c *Call) handleEvent(ctx context.Context, event gemini.ServerEvent) {
	if event.InputTranscript != "" {
		c.sess.Append(session.SpeakerCaller, event.InputTranscript)
	}
	if event.OutputTranscript != "" {
		c.sess.Append(session.SpeakerAgent, event.OutputTranscript)
	}

	if event.Interrupted {
		log.Info("caller barge-in", "call_sid", c.sess.CallSID)
		c.interrupt.Trigger(c.conn, c.streamSID, c.queue)
		return
	}

	if len(event.ToolCalls) > 0 {
		responses := c.dispatch.Dispatch(ctx, event.ToolCalls, c)
		if len(responses) > 0 {
			if err := c.live.SendToolResponses(responses); err != nil {
				log.Error("tool response failed", "call_sid", c.sess.CallSID, "error", err)
			}
		}
		return
	}

	if len(event.Audio) > 0 {
		// Fresh, uninterrupted model speech resumes playback.
		c.interrupt.Clear()
		select {
		case c.queue <- event.Audio:
		case <-ctx.Done():
		}
	}
}

// forwardLoop relays caller audio from Twilio to the model, upsampling
// mu-law 8kHz to PCM 16kHz chunk by chunk.
func (c *Call) forwardLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Info("caller stream closed", "call_sid", c.sess.CallSID)
			}
			c.cancel()
			return
		}

		msg, err := twilio.ParseMessage(data)
		if err != nil {
			continue
		}
		switch msg.Event {
		case twilio.EventMedia:
			if msg.Media == nil {
				continue
			}
			mulaw, err := base64.StdEncoding.DecodeString(msg.Media.Payload)
			if err != nil {
				continue
			}
			if err := c.live.SendAudio(audio.MuLawToPCM16k(mulaw)); err != nil {
				log.Error("audio forward failed", "call_sid", c.sess.CallSID, "error", err)
				c.cancel()
				return
			}
		case twilio.EventStop, twilio.EventClosed:
			log.Info("caller hung up", "call_sid", c.sess.CallSID)
			c.cancel()
			return
		}
	}
}

// sendLoop paces model audio back to Twilio as 20ms mu-law frames.
func (c *Call) sendLoop(ctx context.Context) {
	for {
		if c.interrupt.Active() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idlePollInterval):
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case pcm := <-c.queue:
			if !c.playChunk(ctx, pcm) {
				return
			}
		}
	}
}

// playChunk converts one 24kHz PCM chunk to mu-law frames and writes
// them at wall-clock rate, aborting mid-utterance on barge-in. Returns
// false when the socket is gone.
func (c *Call) playChunk(ctx context.Context, pcm []byte) bool {
	frames := audio.Frames(audio.PCM24kToMuLaw(pcm))
	next := time.Now()
	for _, frame := range frames {
		if c.interrupt.Active() {
			return true
		}
		if wait := time.Until(next); wait > 0 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(wait):
			}
		}
		msg := twilio.MediaMessage(c.streamSID, base64.StdEncoding.EncodeToString(frame))
		if err := c.conn.WriteJSON(msg); err != nil {
			if ctx.Err() == nil {
				log.Warn("playback write failed", "call_sid", c.sess.CallSID, "error", err)
			}
			c.cancel()
			return false
		}
		next = next.Add(audio.FrameDuration)
	}
	return true
}

// extractLoop periodically distills the transcript into the caller's
// profile and open questions. Failures skip the tick; the next one
// retries with the fuller transcript.
func (c *Call) extractLoop(ctx context.Context) {
	if c.extractor == nil || c.extractInterval <= 0 {
		return
	}
	ticker := time.NewTicker(c.extractInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.sess.TranscriptLen() == 0 {
				continue
			}
			c.extractOnce(ctx)
		}
	}
}

func (c *Call) extractOnce(ctx context.Context) {
	conversation := c.sess.ConversationText()

	var (
		wg        sync.WaitGroup
		questions []string
		profile   session.CallerProfile
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		if questions, err = c.extractor.ExtractQuestions(ctx, conversation); err != nil {
			log.Warn("question extraction failed", "call_sid", c.sess.CallSID, "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if profile, err = c.extractor.ExtractProfile(ctx, conversation); err != nil {
			log.Warn("profile extraction failed", "call_sid", c.sess.CallSID, "error", err)
		}
	}()
	wg.Wait()

	c.sess.MergeExtraction(profile, questions)
}

// WaitIdle blocks until the playback queue has drained; terminal tools
// call this so queued speech finishes before the line drops.
func (c *Call) WaitIdle(ctx context.Context) {
	for len(c.queue) > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(idlePollInterval):
		}
	}
}

// End performs the agent-initiated teardown once: close event to
// Twilio, transport close, and loop cancellation.
func (c *Call) End(reason string) {
	c.endOnce.Do(func() {
		c.setState(StateEnding)
		log.Info("ending call", "call_sid", c.sess.CallSID, "reason", reason)
		if err := c.conn.WriteJSON(twilio.CloseMessage(c.streamSID)); err != nil {
			log.Warn("close event failed", "call_sid", c.sess.CallSID, "error", err)
		}
		if err := c.conn.Close(); err != nil {
			log.Debug("transport close", "call_sid", c.sess.CallSID, "error", err)
		}
		if c.cancel != nil {
			c.cancel()
		}
	})
}

// finish persists the session and releases resources. Every call ends
// here exactly once, whatever stopped it.
func (c *Call) finish() {
	if c.State() < StateEnding {
		c.setState(StateEnding)
	}

	if c.recorder != nil {
		if path, err := c.recorder.Save(c.sess); err != nil {
			log.Error("record save failed", "call_sid", c.sess.CallSID, "error", err)
		} else {
			log.Info("call record saved", "call_sid", c.sess.CallSID, "path", path)
		}
	}
	if c.store != nil {
		c.store.Put(c.sess)
	}
	if err := c.live.Close(); err != nil {
		log.Debug("model session close", "call_sid", c.sess.CallSID, "error", err)
	}
	c.conn.Close()

	c.setState(StateClosed)
	log.Info("call finished", "call_sid", c.sess.CallSID, "transcript_lines", c.sess.TranscriptLen())
}
