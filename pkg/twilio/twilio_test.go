package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseMessage(t *testing.T) {
	raw := `{"event":"start","streamSid":"MZ123","start":{"streamSid":"MZ123","callSid":"CA456"}}`
	msg, err := ParseMessage([]byte(raw))
	if err != nil {
		t.Fatalf("failed to parse message: %v", err)
	}
	if msg.Event != EventStart {
		t.Errorf("expected start event, got %q", msg.Event)
	}
	if msg.Start == nil || msg.Start.CallSID != "CA456" {
		t.Errorf("expected callSid CA456, got %+v", msg.Start)
	}
}

func TestParseMessageUnknownEvent(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"event":"dtmf","streamSid":"MZ1"}`))
	if err != nil {
		t.Fatalf("unknown events must parse cleanly: %v", err)
	}
	if msg.Event != "dtmf" {
		t.Errorf("expected event preserved, got %q", msg.Event)
	}
}

func TestStreamResponse(t *testing.T) {
	twiml := StreamResponse("Welcome", "wss://example.com/ws/+15550001111")
	for _, want := range []string{"<Say>Welcome</Say>", "<Connect>", `<Stream url="wss://example.com/ws/+15550001111">`} {
		if !strings.Contains(twiml, want) {
			t.Errorf("expected TwiML to contain %q, got:\n%s", want, twiml)
		}
	}
}

func TestDialResponse(t *testing.T) {
	twiml := DialResponse("+15164598996")
	if !strings.Contains(twiml, "<Dial>+15164598996</Dial>") {
		t.Errorf("expected Dial verb, got:\n%s", twiml)
	}
}

func TestUpdateCall(t *testing.T) {
	var gotPath, gotTwiml, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		gotTwiml = r.PostFormValue("Twiml")
		user, _, _ := r.BasicAuth()
		gotAuth = user
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient("AC123", "secret").WithBaseURL(srv.URL)
	if err := client.Redirect(context.Background(), "CA456", "+15164598996"); err != nil {
		t.Fatalf("redirect failed: %v", err)
	}

	if gotPath != "/Accounts/AC123/Calls/CA456.json" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotTwiml, "<Dial>") {
		t.Errorf("expected Dial TwiML, got %q", gotTwiml)
	}
	if gotAuth != "AC123" {
		t.Errorf("expected basic auth user AC123, got %q", gotAuth)
	}
}

func TestUpdateCallErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient("AC123", "secret").WithBaseURL(srv.URL)
	if err := client.Announce(context.Background(), "CA999", "hold please"); err == nil {
		t.Error("expected error for 404 response")
	}
}
