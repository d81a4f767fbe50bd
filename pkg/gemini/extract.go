package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/grottohq/voicebridge/internal/httpc"
	"github.com/grottohq/voicebridge/pkg/session"
)

// Extractor pulls structured facts out of a call transcript with a
// lightweight generateContent model. Safe for concurrent use.
type Extractor struct {
	auth    Auth
	model   string
	baseURL string
	client  *http.Client
}

// NewExtractor builds an extractor for the given model.
func NewExtractor(auth Auth, model string) *Extractor {
	return &Extractor{
		auth:   auth,
		model:  model,
		client: httpc.NewClient(httpc.DefaultTimeout),
	}
}

// WithBaseURL points the extractor at an alternate endpoint. Used in tests.
func (e *Extractor) WithBaseURL(url string) *Extractor {
	e.baseURL = url
	return e
}

const questionsPrompt = `Extract the distinct questions the caller asked during this phone conversation.

Conversation:
%s

Respond with a JSON array of strings, one per question, rephrased as a complete standalone question. Respond with [] if the caller asked nothing. Output only the JSON array.`

const profilePrompt = `Extract what is known about the caller from this phone conversation with a car dealership agent.

Conversation:
%s

Respond with a JSON object with exactly these fields:
{
  "name": "caller's name, or empty string if unknown",
  "budget_low": 0,
  "budget_high": 0,
  "car_preferences": ["stated preferences such as car type, make, features"],
  "additional_notes": ["other relevant facts about the caller"]
}

Use 0 for unknown budgets and empty arrays when nothing applies. Output only the JSON object.`

// ExtractQuestions returns the caller's questions, sorted and deduplicated.
func (e *Extractor) ExtractQuestions(ctx context.Context, conversation string) ([]string, error) {
	raw, err := e.generate(ctx, fmt.Sprintf(questionsPrompt, conversation))
	if err != nil {
		return nil, err
	}

	var questions []string
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, fmt.Errorf("gemini: parse questions: %w", err)
	}

	seen := make(map[string]bool, len(questions))
	out := questions[:0]
	for _, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	sort.Strings(out)
	return out, nil
}

// ExtractProfile returns the caller facts stated so far. Fields the
// conversation does not establish come back zero-valued.
func (e *Extractor) ExtractProfile(ctx context.Context, conversation string) (session.CallerProfile, error) {
	raw, err := e.generate(ctx, fmt.Sprintf(profilePrompt, conversation))
	if err != nil {
		return session.CallerProfile{}, err
	}

	var profile session.CallerProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return session.CallerProfile{}, fmt.Errorf("gemini: parse profile: %w", err)
	}
	return profile, nil
}

type textPart struct {
	Text string `json:"text"`
}

type textContent struct {
	Parts []textPart `json:"parts"`
}

type generateRequest struct {
	Contents         []textContent `json:"contents"`
	GenerationConfig struct {
		Temperature      float64 `json:"temperature"`
		ResponseMimeType string  `json:"responseMimeType"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content textContent `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (e *Extractor) generate(ctx context.Context, prompt string) (string, error) {
	payload := generateRequest{
		Contents: []textContent{{Parts: []textPart{{Text: prompt}}}},
	}
	payload.GenerationConfig.Temperature = 0.1
	payload.GenerationConfig.ResponseMimeType = "application/json"

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	url, header, err := e.auth.generateEndpoint(ctx, e.model)
	if err != nil {
		return "", err
	}
	if e.baseURL != "" {
		url = fmt.Sprintf("%s/models/%s:generateContent", e.baseURL, e.model)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header = header

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("gemini: parse response: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("gemini: api error: %s", result.Error.Message)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}
	return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
