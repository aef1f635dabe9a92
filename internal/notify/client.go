// internal/notify/client.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/naturelicensing/trapreg/internal/config"
)

// Mailer is the outbound edge to the transactional email gateway. The core
// only ever supplies a template id and a personalisation payload; rendering
// happens on the gateway's side.
type Mailer interface {
	SendEmail(ctx context.Context, templateID, emailAddress string, personalisation map[string]string, reference, emailReplyToID string) error
}

// Client talks to a GOV.UK-Notify-compatible email API. Requests are
// authenticated with a short-lived JWT derived from the API key.
type Client struct {
	baseURL    string
	serviceID  string
	secret     string
	httpClient *http.Client
}

// API keys have the form "<name>-<service uuid>-<secret uuid>"; the name may
// itself contain hyphens, so the two UUIDs are taken from the tail.
const apiKeyTailLength = 73

func NewClient(cfg config.NotifyConfig) (*Client, error) {
	if len(cfg.APIKey) < apiKeyTailLength {
		return nil, fmt.Errorf("notify API key is malformed")
	}

	tail := cfg.APIKey[len(cfg.APIKey)-apiKeyTailLength:]
	serviceID := tail[:36]
	secret := tail[37:]

	if _, err := uuid.Parse(serviceID); err != nil {
		return nil, fmt.Errorf("notify API key has invalid service id: %w", err)
	}
	if _, err := uuid.Parse(secret); err != nil {
		return nil, fmt.Errorf("notify API key has invalid secret: %w", err)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		serviceID:  serviceID,
		secret:     secret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type emailRequest struct {
	EmailAddress    string            `json:"email_address"`
	TemplateID      string            `json:"template_id"`
	Personalisation map[string]string `json:"personalisation,omitempty"`
	Reference       string            `json:"reference,omitempty"`
	EmailReplyToID  string            `json:"email_reply_to_id,omitempty"`
}

func (c *Client) SendEmail(ctx context.Context, templateID, emailAddress string, personalisation map[string]string, reference, emailReplyToID string) error {
	token, err := c.authToken()
	if err != nil {
		return fmt.Errorf("failed to build gateway auth token: %w", err)
	}

	body, err := json.Marshal(emailRequest{
		EmailAddress:    emailAddress,
		TemplateID:      templateID,
		Personalisation: personalisation,
		Reference:       reference,
		EmailReplyToID:  emailReplyToID,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/notifications/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("email gateway returned %d: %s", resp.StatusCode, string(detail))
	}

	return nil
}

func (c *Client) authToken() (string, error) {
	claims := jwt.MapClaims{
		"iss": c.serviceID,
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(c.secret))
}
