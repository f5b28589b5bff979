package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/upwatch-dev/upwatch/internal/models"
	"github.com/upwatch-dev/upwatch/internal/types"
)

// SMSSender posts to a configured HTTP SMS gateway; the gateway owns carrier
// delivery.
type SMSSender struct{}

type smsGatewayRequest struct {
	To      []string `json:"to"`
	Message string   `json:"message"`
}

func (s *SMSSender) Send(ctx context.Context, channel *models.NotificationChannel, msg Message) error {
	var cfg types.SMSChannelConfig

	if err := json.Unmarshal(channel.Config, &cfg); err != nil {
		return fmt.Errorf("invalid sms config: %w", err)
	}

	if cfg.GatewayURL == "" {
		return fmt.Errorf("sms channel %d has no gateway url", channel.ID)
	}

	if len(cfg.To) == 0 {
		return fmt.Errorf("sms channel %d has no recipients", channel.ID)
	}

	payload := smsGatewayRequest{
		To:      cfg.To,
		Message: fmt.Sprintf("%s - %s", msg.Title, msg.Body),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.GatewayURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	return nil
}
