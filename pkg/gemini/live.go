// Package gemini talks to the Gemini Live API over WebSocket for
// duplex speech-to-speech, and to the generateContent REST API for
// transcript extraction.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grottohq/voicebridge/internal/log"
)

const (
	liveURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	vertexLiveURLFormat = "wss://%s-aiplatform.googleapis.com/ws/google.cloud.aiplatform.v1beta1.LlmBidiService/BidiGenerateContent"

	handshakeTimeout = 10 * time.Second
)

var (
	ErrNotConnected = errors.New("gemini: not connected")
	ErrMissingAuth  = errors.New("gemini: no API key or Vertex credentials")
)

// ToolDeclaration describes one function the model may call.
type ToolDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToolCall is one function invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResponse is the result returned for one ToolCall.
type ToolResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// ServerEvent carries everything of interest from a single server
// message. Fields are optional; a message may carry, say, both audio
// and an output transcript fragment.
type ServerEvent struct {
	SetupComplete    bool
	InputTranscript  string
	OutputTranscript string
	Interrupted      bool
	TurnComplete     bool
	Audio            []byte // PCM16 mono, 24kHz
	ToolCalls        []ToolCall
}

// LiveConfig configures a duplex session.
type LiveConfig struct {
	Auth         Auth
	Model        string
	SystemPrompt string
	Tools        []ToolDeclaration

	// Voice selects a prebuilt voice (Puck, Charon, Kore, Fenrir,
	// Aoede); empty keeps the model default.
	Voice string
}

// LiveClient is one duplex Gemini Live session. Writes are serialized;
// a single reader goroutine delivers ServerEvents until the connection
// drops or Close is called.
type LiveClient struct {
	ws   *websocket.Conn
	wsMu sync.Mutex

	events chan ServerEvent
	done   chan struct{}

	mu     sync.Mutex
	closed bool
	err    error
}

// Dial connects, sends the setup message, and starts the read loop.
func Dial(ctx context.Context, cfg LiveConfig) (*LiveClient, error) {
	url, header, err := cfg.Auth.liveEndpoint(ctx)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("gemini: connect: %w", err)
	}

	c := &LiveClient{
		ws:     ws,
		events: make(chan ServerEvent, 32),
		done:   make(chan struct{}),
	}

	if err := c.sendSetup(cfg); err != nil {
		c.Close()
		return nil, fmt.Errorf("gemini: setup: %w", err)
	}

	go c.readLoop()
	return c, nil
}

func (c *LiveClient) sendSetup(cfg LiveConfig) error {
	generation := map[string]any{
		"response_modalities": []string{"AUDIO"},
	}
	if cfg.Voice != "" {
		generation["speech_config"] = map[string]any{
			"voice_config": map[string]any{
				"prebuilt_voice_config": map[string]any{
					"voice_name": cfg.Voice,
				},
			},
		}
	}
	setup := map[string]any{
		"model":             cfg.Auth.modelPath(cfg.Model),
		"generation_config": generation,
		"system_instruction": map[string]any{
			"parts": []map[string]any{{"text": cfg.SystemPrompt}},
		},
		"input_audio_transcription":  map[string]any{},
		"output_audio_transcription": map[string]any{},
	}
	if len(cfg.Tools) > 0 {
		setup["tools"] = []map[string]any{
			{"function_declarations": cfg.Tools},
		}
	}
	return c.sendJSON(map[string]any{"setup": setup})
}

// Events returns the server event stream. The channel is closed when
// the connection ends; check Err afterwards.
func (c *LiveClient) Events() <-chan ServerEvent {
	return c.events
}

// Err reports why the read loop stopped, nil on clean close.
func (c *LiveClient) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// SendAudio streams one chunk of 16kHz PCM16 caller audio.
func (c *LiveClient) SendAudio(pcm16 []byte) error {
	return c.sendJSON(map[string]any{
		"realtime_input": map[string]any{
			"media_chunks": []map[string]any{
				{
					"data":      base64.StdEncoding.EncodeToString(pcm16),
					"mime_type": "audio/pcm;rate=16000",
				},
			},
		},
	})
}

// SendText submits a complete user text turn. Sending an empty turn
// right after setup primes the model to speak first.
func (c *LiveClient) SendText(text string) error {
	return c.sendJSON(map[string]any{
		"client_content": map[string]any{
			"turns": []map[string]any{
				{
					"role":  "user",
					"parts": []map[string]any{{"text": text}},
				},
			},
			"turn_complete": true,
		},
	})
}

// SendToolResponses returns function results to the model.
func (c *LiveClient) SendToolResponses(responses []ToolResponse) error {
	if len(responses) == 0 {
		return nil
	}
	return c.sendJSON(map[string]any{
		"tool_response": map[string]any{
			"function_responses": responses,
		},
	})
}

// Close tears down the connection. Safe to call more than once.
func (c *LiveClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	close(c.done)
	return c.ws.Close()
}

func (c *LiveClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *LiveClient) sendJSON(v any) error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.ws == nil {
		return ErrNotConnected
	}
	return c.ws.WriteJSON(v)
}

func (c *LiveClient) readLoop() {
	defer close(c.events)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !c.isClosed() {
				c.mu.Lock()
				c.err = err
				c.mu.Unlock()
			}
			return
		}

		event, ok := parseServerMessage(data)
		if !ok {
			continue
		}
		select {
		case c.events <- event:
		case <-c.done:
			return
		}
	}
}

// Wire shapes for server messages. The server writes camelCase.
type serverMessage struct {
	SetupComplete *struct{}      `json:"setupComplete"`
	ServerContent *serverContent `json:"serverContent"`
	ToolCall      *toolCallMsg   `json:"toolCall"`
}

type serverContent struct {
	ModelTurn           *modelTurn     `json:"modelTurn"`
	InputTranscription  *transcription `json:"inputTranscription"`
	OutputTranscription *transcription `json:"outputTranscription"`
	Interrupted         bool           `json:"interrupted"`
	TurnComplete        bool           `json:"turnComplete"`
}

type modelTurn struct {
	Parts []turnPart `json:"parts"`
}

type turnPart struct {
	Text       string      `json:"text"`
	InlineData *inlineData `json:"inlineData"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type transcription struct {
	Text string `json:"text"`
}

type toolCallMsg struct {
	FunctionCalls []functionCall `json:"functionCalls"`
}

type functionCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

func parseServerMessage(data []byte) (ServerEvent, bool) {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Debug("gemini: unparseable server message", "error", err)
		return ServerEvent{}, false
	}

	var event ServerEvent
	if msg.SetupComplete != nil {
		event.SetupComplete = true
	}
	if sc := msg.ServerContent; sc != nil {
		event.Interrupted = sc.Interrupted
		event.TurnComplete = sc.TurnComplete
		if sc.InputTranscription != nil {
			event.InputTranscript = sc.InputTranscription.Text
		}
		if sc.OutputTranscription != nil {
			event.OutputTranscript = sc.OutputTranscription.Text
		}
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part.InlineData == nil || part.InlineData.Data == "" {
					continue
				}
				audio, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil || len(audio) == 0 {
					continue
				}
				event.Audio = append(event.Audio, audio...)
			}
		}
	}
	if msg.ToolCall != nil {
		for _, fc := range msg.ToolCall.FunctionCalls {
			if fc.Name == "" {
				continue
			}
			event.ToolCalls = append(event.ToolCalls, ToolCall{
				ID:   fc.ID,
				Name: fc.Name,
				Args: fc.Args,
			})
		}
	}
	return event, true
}
