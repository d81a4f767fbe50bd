package gemini

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Auth selects between API-key access to generativelanguage.googleapis.com
// and Vertex AI access with application-default credentials. APIKey wins
// when both are set.
type Auth struct {
	APIKey string

	Project string
	Region  string

	// TokenSource overrides application-default credentials; used by
	// tests and by callers that manage their own credentials.
	TokenSource oauth2.TokenSource
}

func (a Auth) useVertex() bool {
	return a.APIKey == "" && a.Project != ""
}

// liveEndpoint returns the WebSocket URL and headers for a Live session.
func (a Auth) liveEndpoint(ctx context.Context) (string, http.Header, error) {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	if a.APIKey != "" {
		return fmt.Sprintf("%s?key=%s", liveURL, a.APIKey), header, nil
	}
	if !a.useVertex() {
		return "", nil, ErrMissingAuth
	}

	token, err := a.token(ctx)
	if err != nil {
		return "", nil, err
	}
	header.Set("Authorization", "Bearer "+token)
	return fmt.Sprintf(vertexLiveURLFormat, a.Region), header, nil
}

// generateEndpoint returns the REST URL and headers for generateContent.
func (a Auth) generateEndpoint(ctx context.Context, model string) (string, http.Header, error) {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	if a.APIKey != "" {
		url := fmt.Sprintf(
			"https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
			model, a.APIKey,
		)
		return url, header, nil
	}
	if !a.useVertex() {
		return "", nil, ErrMissingAuth
	}

	token, err := a.token(ctx)
	if err != nil {
		return "", nil, err
	}
	header.Set("Authorization", "Bearer "+token)
	url := fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1beta1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		a.Region, a.Project, a.Region, model,
	)
	return url, header, nil
}

// modelPath qualifies the model name the way each backend expects.
func (a Auth) modelPath(model string) string {
	if a.useVertex() {
		return fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s",
			a.Project, a.Region, model)
	}
	return "models/" + model
}

func (a Auth) token(ctx context.Context) (string, error) {
	src := a.TokenSource
	if src == nil {
		var err error
		src, err = google.DefaultTokenSource(ctx, cloudPlatformScope)
		if err != nil {
			return "", fmt.Errorf("gemini: default credentials: %w", err)
		}
	}
	token, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("gemini: token: %w", err)
	}
	return token.AccessToken, nil
}
