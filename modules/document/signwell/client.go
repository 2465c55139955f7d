package signwell

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"meetbook/core/config"
)

// Client is a minimal SignWell REST client covering envelope creation from
// a template. Webhook deliveries carry everything else we need.
type Client struct {
	baseURL    string
	apiKey     string
	templateID string
	httpClient *http.Client
}

func New(cfg config.SignWellConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = "https://www.signwell.com/api/v1"
	}
	return &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		templateID: cfg.TemplateID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether envelope creation can reach the provider.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.templateID != ""
}

type CreateEnvelopeParams struct {
	SignerEmail string
	SignerName  string
	HoldID      string
	Subject     string
}

type createDocumentRequest struct {
	TemplateID string            `json:"template_id"`
	Subject    string            `json:"subject,omitempty"`
	Recipients []recipient       `json:"recipients"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type recipient struct {
	ID              string `json:"id"`
	PlaceholderName string `json:"placeholder_name"`
	Name            string `json:"name,omitempty"`
	Email           string `json:"email"`
}

type createDocumentResponse struct {
	ID string `json:"id"`
}

// CreateEnvelope creates and sends a template-based signature request and
// returns the provider document id.
func (c *Client) CreateEnvelope(ctx context.Context, p CreateEnvelopeParams) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("signwell is not configured")
	}

	body, err := json.Marshal(createDocumentRequest{
		TemplateID: c.templateID,
		Subject:    p.Subject,
		Recipients: []recipient{{
			ID:              "1",
			PlaceholderName: "signer",
			Name:            p.SignerName,
			Email:           p.SignerEmail,
		}},
		Metadata: map[string]string{"hold_id": p.HoldID},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/document_templates/documents/", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("signwell request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("signwell returned %d: %s", resp.StatusCode, respBody)
	}

	var created createDocumentResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("decode signwell response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("signwell response missing document id")
	}
	return created.ID, nil
}
