package session

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Speaker identifies who produced a transcript line.
type Speaker string

const (
	SpeakerCaller Speaker = "caller"
	SpeakerAgent  Speaker = "agent"
)

// TranscriptEntry is one line of conversation. Entries are immutable
// once appended; append order is chronological order.
type TranscriptEntry struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	Time    time.Time `json:"time"`
}

// CallSession is the in-memory state of one active call. The transcript
// is the single source of truth for conversation content; the caller
// data is a derived cache that may lag it by one extraction tick.
//
// Three loops touch a session concurrently (the model-event receiver
// appends transcript lines, the extraction loop merges profile data),
// so all access goes through the mutex.
type CallSession struct {
	CallSID      string
	CallerNumber string
	StartTime    time.Time

	mu         sync.Mutex
	transcript []TranscriptEntry
	intents    []string
	data       CallerData
}

// New creates a session for an accepted call.
func New(callSID, callerNumber string) *CallSession {
	return &CallSession{
		CallSID:      callSID,
		CallerNumber: callerNumber,
		StartTime:    time.Now(),
		data:         NewCallerData(),
	}
}

// Append adds a transcript line. A zero timestamp defaults to now.
func (s *CallSession) Append(speaker Speaker, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, TranscriptEntry{
		Speaker: speaker,
		Text:    text,
		Time:    time.Now(),
	})
}

// TranscriptLen returns the number of transcript lines.
func (s *CallSession) TranscriptLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transcript)
}

// Transcript returns a copy of the transcript.
func (s *CallSession) Transcript() []TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// AddIntent records an intent label once per distinct value.
func (s *CallSession) AddIntent(intent string) {
	if intent == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.intents {
		if existing == intent {
			return
		}
	}
	s.intents = append(s.intents, intent)
}

// Intents returns a copy of the recorded intent labels.
func (s *CallSession) Intents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.intents))
	copy(out, s.intents)
	return out
}

// ConversationText renders the transcript as speaker-prefixed lines for
// the extraction service.
func (s *CallSession) ConversationText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	for i, entry := range s.transcript {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", entry.Speaker, entry.Text)
	}
	return b.String()
}

// SeedData replaces the caller data wholesale, used when a repeat
// caller's persisted data is loaded at session start.
func (s *CallSession) SeedData(data CallerData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
}

// MergeExtraction folds one extraction tick's results into the caller
// data: profile fields additively, questions as a sorted union.
func (s *CallSession) MergeExtraction(profile CallerProfile, questions []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Profile = MergeProfile(s.data.Profile, profile)
	s.data.Questions = MergeQuestions(s.data.Questions, questions)
}

// Data returns a copy of the current caller data.
func (s *CallSession) Data() CallerData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyDataLocked()
}

func (s *CallSession) copyDataLocked() CallerData {
	data := s.data
	data.Profile.CarPreferences = append([]string(nil), s.data.Profile.CarPreferences...)
	data.Profile.AdditionalNotes = append([]string(nil), s.data.Profile.AdditionalNotes...)
	data.Questions = append([]string(nil), s.data.Questions...)
	return data
}

// Record is the persisted snapshot of a finished call.
type Record struct {
	CallSID      string     `json:"call_sid"`
	CallerNumber string     `json:"caller_number"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      time.Time  `json:"end_time"`
	Transcript   string     `json:"transcript"`
	Intents      []string   `json:"intents"`
	Questions    []string   `json:"questions"`
	Profile      CallerData `json:"caller_profile"`
}

// Snapshot produces the end-of-call record.
func (s *CallSession) Snapshot() Record {
	text := s.ConversationText()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Record{
		CallSID:      s.CallSID,
		CallerNumber: s.CallerNumber,
		StartTime:    s.StartTime,
		EndTime:      time.Now(),
		Transcript:   text,
		Intents:      append([]string(nil), s.intents...),
		Questions:    append([]string(nil), s.data.Questions...),
		Profile:      s.copyDataLocked(),
	}
}
