package twilio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/grottohq/voicebridge/internal/httpc"
)

// DefaultAPIBaseURL is the Twilio REST API base URL.
const DefaultAPIBaseURL = "https://api.twilio.com/2010-04-01"

// Client talks to the Twilio REST API for call control. It is used by
// the terminal tools to announce and redirect a live call leg.
type Client struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Twilio REST client with account credentials.
func NewClient(accountSID, authToken string) *Client {
	return &Client{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    DefaultAPIBaseURL,
		httpClient: httpc.Client,
	}
}

// WithBaseURL overrides the API base URL. Used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

// UpdateCall replaces the in-progress call's instructions with the given
// TwiML. Announcing and then dialing another number transfers the call.
func (c *Client) UpdateCall(ctx context.Context, callSID, twiml string) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls/%s.json", c.baseURL, c.accountSID, callSID)

	form := url.Values{}
	form.Set("Twiml", twiml)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio: build request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio: update call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio: update call %s: status %d: %s", callSID, resp.StatusCode, string(body))
	}
	return nil
}

// Announce speaks a short message on the live call.
func (c *Client) Announce(ctx context.Context, callSID, text string) error {
	return c.UpdateCall(ctx, callSID, SayResponse(text))
}

// Redirect transfers the live call to another number.
func (c *Client) Redirect(ctx context.Context, callSID, number string) error {
	return c.UpdateCall(ctx, callSID, DialResponse(number))
}
