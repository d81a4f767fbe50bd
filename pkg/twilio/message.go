// Package twilio implements the pieces of Twilio this service touches:
// the Media Streams WebSocket protocol, TwiML response construction, and
// the REST call-control API used to redirect live calls.
package twilio

import "encoding/json"

// EventType identifies a Media Streams WebSocket event.
type EventType string

const (
	// Twilio -> service events.
	EventConnected EventType = "connected"
	EventStart     EventType = "start"
	EventMedia     EventType = "media"
	EventStop      EventType = "stop"
	EventClosed    EventType = "closed"

	// Bidirectional.
	EventMark EventType = "mark"

	// Service -> Twilio events.
	EventClear EventType = "clear"
	EventClose EventType = "close"
)

// Message is the wire format of a Media Streams event. Only the fields
// relevant to the active event are populated; unrecognized events are
// ignored by consumers rather than treated as errors.
type Message struct {
	Event     EventType     `json:"event"`
	StreamSID string        `json:"streamSid,omitempty"`
	Start     *StartPayload `json:"start,omitempty"`
	Media     *MediaPayload `json:"media,omitempty"`
	Mark      *MarkPayload  `json:"mark,omitempty"`
}

// StartPayload accompanies the start event and announces the stream.
type StartPayload struct {
	StreamSID  string   `json:"streamSid"`
	AccountSID string   `json:"accountSid,omitempty"`
	CallSID    string   `json:"callSid,omitempty"`
	Tracks     []string `json:"tracks,omitempty"`
}

// MediaPayload carries one chunk of base64-encoded mu-law audio.
type MediaPayload struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

// MarkPayload names a playback checkpoint: sent with outbound audio and
// echoed back by Twilio once that audio has played out.
type MarkPayload struct {
	Name string `json:"name"`
}

// ParseMessage decodes a raw WebSocket frame into a Message.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MediaMessage builds an outbound media event for one audio frame.
func MediaMessage(streamSID, payloadB64 string) Message {
	return Message{
		Event:     EventMedia,
		StreamSID: streamSID,
		Media:     &MediaPayload{Payload: payloadB64},
	}
}

// ClearMessage builds the event that flushes Twilio's buffered playback,
// sent on barge-in.
func ClearMessage(streamSID string) Message {
	return Message{Event: EventClear, StreamSID: streamSID}
}

// MarkMessage builds a playback checkpoint event.
func MarkMessage(streamSID, name string) Message {
	return Message{Event: EventMark, StreamSID: streamSID, Mark: &MarkPayload{Name: name}}
}

// CloseMessage builds the event that ends the media stream, sent just
// before the WebSocket is closed.
func CloseMessage(streamSID string) Message {
	return Message{Event: EventClose, StreamSID: streamSID}
}
