package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/grottohq/voicebridge/internal/config"
	"github.com/grottohq/voicebridge/pkg/bridge"
	"github.com/grottohq/voicebridge/pkg/session"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:            8080,
		PublicWSURL:     "wss://example.ngrok.io",
		Greeting:        "Welcome to our car rental service.",
		HumanNumber:     "+15164598996",
		ExtractInterval: time.Second,
	}
}

func newTestServer() (*Server, *session.MemoryStore) {
	store := session.NewMemoryStore()
	dial := func(ctx context.Context) (bridge.LiveSession, error) { return nil, nil }
	s := New(testConfig(), store, nil, nil, nil, dial)
	return s, store
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer()
	for _, path := range []string{"/", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp, err := s.App().Test(req)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d", path, resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), `"status":"ok"`) {
			t.Errorf("GET %s body = %s", path, body)
		}
	}
}

func TestStats(t *testing.T) {
	s, store := newTestServer()
	store.GetOrCreate("+15550001111", "CA1")
	store.GetOrCreate("+15550002222", "CA2")

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("GET /stats: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"active_calls":2`) {
		t.Errorf("stats body = %s", body)
	}
}

func TestWebhook(t *testing.T) {
	s, store := newTestServer()

	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("From", "+15550001111")
	form.Set("To", "+15559998888")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("POST /webhook: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "xml") {
		t.Errorf("content type = %q", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	twiml := string(body)
	if !strings.Contains(twiml, "Welcome to our car rental service.") {
		t.Errorf("missing greeting: %s", twiml)
	}
	if !strings.Contains(twiml, "wss://example.ngrok.io/ws/+15550001111") {
		t.Errorf("missing stream url: %s", twiml)
	}

	sess, ok := store.Get("+15550001111")
	if !ok {
		t.Fatal("session not created")
	}
	if sess.CallSID != "CA123" {
		t.Errorf("call sid = %q", sess.CallSID)
	}
}

func TestWebhookMissingFields(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("To=%2B15559998888"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("POST /webhook: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStreamRequiresUpgrade(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/ws/+15550001111", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("GET /ws: %v", err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status = %d, want 426", resp.StatusCode)
	}
}
