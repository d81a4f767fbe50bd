package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grottohq/voicebridge/pkg/gemini"
	"github.com/grottohq/voicebridge/pkg/session"
	"github.com/grottohq/voicebridge/pkg/twilio"
)

var errConnClosed = errors.New("connection closed")

type fakeConn struct {
	reads chan []byte

	mu     sync.Mutex
	writes []twilio.Message

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		reads:  make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) push(v any) {
	data, _ := json.Marshal(v)
	f.reads <- data
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-f.reads:
		return 1, data, nil
	case <-f.closed:
		return 0, nil, errConnClosed
	}
}

func (f *fakeConn) WriteJSON(v any) error {
	select {
	case <-f.closed:
		return errConnClosed
	default:
	}
	msg, ok := v.(twilio.Message)
	if !ok {
		return fmt.Errorf("unexpected write type %T", v)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, msg)
	return nil
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) written(event twilio.EventType) []twilio.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []twilio.Message
	for _, msg := range f.writes {
		if msg.Event == event {
			out = append(out, msg)
		}
	}
	return out
}

type fakeLive struct {
	events chan gemini.ServerEvent

	mu        sync.Mutex
	audio     [][]byte
	texts     []string
	responses [][]gemini.ToolResponse
	closed    bool
}

func newFakeLive() *fakeLive {
	return &fakeLive{events: make(chan gemini.ServerEvent, 16)}
}

func (f *fakeLive) Events() <-chan gemini.ServerEvent { return f.events }
func (f *fakeLive) Err() error                        { return nil }

func (f *fakeLive) SendAudio(pcm16 []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, pcm16)
	return nil
}

func (f *fakeLive) SendText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeLive) SendToolResponses(responses []gemini.ToolResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, responses)
	return nil
}

func (f *fakeLive) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeExtractor struct {
	questions []string
	profile   session.CallerProfile
}

func (f *fakeExtractor) ExtractQuestions(context.Context, string) ([]string, error) {
	return f.questions, nil
}

func (f *fakeExtractor) ExtractProfile(context.Context, string) (session.CallerProfile, error) {
	return f.profile, nil
}

func startEvent(streamSID, callSID string) twilio.Message {
	return twilio.Message{
		Event:     twilio.EventStart,
		StreamSID: streamSID,
		Start:     &twilio.StartPayload{StreamSID: streamSID, CallSID: callSID},
	}
}

func newTestCall(t *testing.T, conn *fakeConn, live *fakeLive) (*Call, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	sess := store.GetOrCreate("+15550001111", "CA123")
	call := NewCall(Config{
		Conn:            conn,
		Live:            live,
		Session:         sess,
		Store:           store,
		Extractor:       &fakeExtractor{},
		Control:         &fakeControl{},
		HumanNumber:     "+15164598996",
		ExtractInterval: 10 * time.Millisecond,
	})
	call.dispatch.WithSettle(0)
	return call, store
}

func runCall(call *Call) chan struct{} {
	done := make(chan struct{})
	go func() {
		call.Run(context.Background())
		close(done)
	}()
	return done
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCallHangup(t *testing.T) {
	conn := newFakeConn()
	live := newFakeLive()
	call, store := newTestCall(t, conn, live)

	conn.push(twilio.Message{Event: twilio.EventConnected})
	conn.push(startEvent("MZ123", "CA123"))

	mulaw := make([]byte, 160)
	conn.push(twilio.MediaMessage("MZ123", base64.StdEncoding.EncodeToString(mulaw)))

	live.events <- gemini.ServerEvent{InputTranscript: "I need a car"}
	live.events <- gemini.ServerEvent{OutputTranscript: "Happy to help"}

	done := runCall(call)
	waitFor(t, "transcript", func() bool { return call.sess.TranscriptLen() == 2 })

	conn.push(twilio.Message{Event: twilio.EventStop, StreamSID: "MZ123"})
	<-done

	if call.State() != StateClosed {
		t.Errorf("state = %v, want closed", call.State())
	}

	// 160 mu-law bytes become 320 samples of 16kHz PCM, 640 bytes.
	live.mu.Lock()
	if len(live.audio) != 1 || len(live.audio[0]) != 640 {
		t.Errorf("forwarded audio = %d chunks", len(live.audio))
	}
	primed := len(live.texts) == 1 && live.texts[0] == ""
	live.mu.Unlock()
	if !primed {
		t.Error("model was not primed with an empty turn")
	}

	if store.ActiveCount() != 0 {
		t.Error("session not retired")
	}
	if _, ok := store.CallerData("+15550001111"); !ok {
		t.Error("caller data not persisted")
	}
}

func TestCallBargeIn(t *testing.T) {
	conn := newFakeConn()
	live := newFakeLive()
	call, _ := newTestCall(t, conn, live)

	conn.push(startEvent("MZ123", "CA123"))
	done := runCall(call)

	// Queue several seconds of speech, then the caller talks over it.
	pcm := make([]byte, 48000)
	for i := 0; i < 3; i++ {
		live.events <- gemini.ServerEvent{Audio: pcm}
	}
	waitFor(t, "playback start", func() bool {
		return len(conn.written(twilio.EventMedia)) > 0
	})

	live.events <- gemini.ServerEvent{Interrupted: true}
	waitFor(t, "barge-in", func() bool { return call.interrupt.Active() })

	if len(conn.written(twilio.EventClear)) != 1 {
		t.Errorf("clear events = %d, want 1", len(conn.written(twilio.EventClear)))
	}
	if len(call.queue) != 0 {
		t.Errorf("queue not drained: %d chunks left", len(call.queue))
	}

	// Fresh audio resumes playback.
	live.events <- gemini.ServerEvent{Audio: make([]byte, 480)}
	waitFor(t, "resume", func() bool { return !call.interrupt.Active() })

	conn.Close()
	<-done
}

func TestCallTerminalTool(t *testing.T) {
	conn := newFakeConn()
	live := newFakeLive()
	call, _ := newTestCall(t, conn, live)

	conn.push(startEvent("MZ123", "CA123"))
	done := runCall(call)

	waitFor(t, "active", func() bool { return call.State() == StateActive })
	live.events <- gemini.ServerEvent{ToolCalls: []gemini.ToolCall{{ID: "fc-1", Name: "end_call"}}}
	<-done

	if call.State() != StateClosed {
		t.Errorf("state = %v, want closed", call.State())
	}
	if len(conn.written(twilio.EventClose)) != 1 {
		t.Errorf("close events = %d, want 1", len(conn.written(twilio.EventClose)))
	}
	live.mu.Lock()
	defer live.mu.Unlock()
	if len(live.responses) != 0 {
		t.Errorf("terminal tool sent %d response batches, want none", len(live.responses))
	}
	if !live.closed {
		t.Error("model session left open")
	}
}

func TestCallToolResponses(t *testing.T) {
	conn := newFakeConn()
	live := newFakeLive()
	call, _ := newTestCall(t, conn, live)

	conn.push(startEvent("MZ123", "CA123"))
	done := runCall(call)

	live.events <- gemini.ServerEvent{ToolCalls: []gemini.ToolCall{
		{ID: "fc-1", Name: "can_end_call"},
		{ID: "fc-2", Name: "nonsense"},
	}}
	waitFor(t, "tool responses", func() bool {
		live.mu.Lock()
		defer live.mu.Unlock()
		return len(live.responses) == 1
	})

	live.mu.Lock()
	batch := live.responses[0]
	live.mu.Unlock()
	if len(batch) != 2 {
		t.Fatalf("batch size = %d, want 2", len(batch))
	}
	if batch[0].ID != "fc-1" || batch[1].ID != "fc-2" {
		t.Errorf("batch order = %s, %s", batch[0].ID, batch[1].ID)
	}
	if batch[1].Response["error"] != "unknown tool: nonsense" {
		t.Errorf("unknown tool response = %v", batch[1].Response)
	}

	conn.Close()
	<-done
}

func TestCallExtractionMerges(t *testing.T) {
	conn := newFakeConn()
	live := newFakeLive()
	call, _ := newTestCall(t, conn, live)
	call.extractor = &fakeExtractor{
		questions: []string{"Do you have SUVs?"},
		profile:   session.CallerProfile{Name: "Dana", BudgetHigh: 45000},
	}

	conn.push(startEvent("MZ123", "CA123"))
	done := runCall(call)

	live.events <- gemini.ServerEvent{InputTranscript: "Hi, I'm Dana. Do you have SUVs?"}
	waitFor(t, "extraction", func() bool {
		data := call.sess.Data()
		return data.Profile.Name == "Dana" && len(data.Questions) == 1
	})

	conn.Close()
	<-done

	data := call.sess.Data()
	if data.Profile.BudgetHigh != 45000 {
		t.Errorf("budget = %v", data.Profile.BudgetHigh)
	}
}

// overlapConn counts writes that enter WriteJSON while another write is
// still inside it. The playback loop and the model-event loop share one
// caller socket, and the socket allows a single writer.
type overlapConn struct {
	*fakeConn
	inWrite  atomic.Int32
	overlaps atomic.Int32
}

func (o *overlapConn) WriteJSON(v any) error {
	if o.inWrite.Add(1) > 1 {
		o.overlaps.Add(1)
	}
	time.Sleep(200 * time.Microsecond)
	err := o.fakeConn.WriteJSON(v)
	o.inWrite.Add(-1)
	return err
}

func TestCallWritesSerialized(t *testing.T) {
	oc := &overlapConn{fakeConn: newFakeConn()}
	live := newFakeLive()
	store := session.NewMemoryStore()
	sess := store.GetOrCreate("+15550001111", "CA123")
	call := NewCall(Config{
		Conn:            oc,
		Live:            live,
		Session:         sess,
		Store:           store,
		Extractor:       &fakeExtractor{},
		Control:         &fakeControl{},
		HumanNumber:     "+15164598996",
		ExtractInterval: time.Hour,
	})
	call.dispatch.WithSettle(0)

	oc.push(startEvent("MZ123", "CA123"))
	done := runCall(call)

	// Keep the playback loop busy with long turns while barge-ins force
	// clear writes from the model-event loop.
	pcm := make([]byte, 48000)
	for i := 0; i < 10; i++ {
		live.events <- gemini.ServerEvent{Audio: pcm}
		time.Sleep(5 * time.Millisecond)
		live.events <- gemini.ServerEvent{Interrupted: true}
	}

	oc.Close()
	<-done

	// Hammer the wrapped socket directly as well.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				call.conn.WriteJSON(twilio.ClearMessage("MZ123"))
			}
		}()
	}
	wg.Wait()

	if n := oc.overlaps.Load(); n != 0 {
		t.Errorf("%d overlapping writes on the caller socket", n)
	}
}

func TestCallModelStreamLost(t *testing.T) {
	conn := newFakeConn()
	live := newFakeLive()
	call, store := newTestCall(t, conn, live)

	conn.push(startEvent("MZ123", "CA123"))
	done := runCall(call)
	waitFor(t, "active", func() bool { return call.State() == StateActive })

	// The model leg dies while the caller socket stays silent. The call
	// must still unwind and persist the session.
	close(live.events)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("call did not finish after the model stream closed")
	}
	if call.State() != StateClosed {
		t.Errorf("state = %v, want closed", call.State())
	}
	if store.ActiveCount() != 0 {
		t.Error("session not retired")
	}
	if _, ok := store.CallerData("+15550001111"); !ok {
		t.Error("caller data not persisted")
	}
}
