package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/upwatch-dev/upwatch/internal/models"
	"github.com/upwatch-dev/upwatch/internal/types"
)

const (
	colorRed   = 16711680 // #FF0000 - down
	colorGreen = 65280    // #00FF00 - recovered

	webhookUsername = "Upwatch Monitor"
	webhookTimeout  = 10 * time.Second
)

type DiscordWebhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbed struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Color       int                   `json:"color"`
	Fields      []DiscordWebhookField `json:"fields"`
	Timestamp   string                `json:"timestamp"`
}

type DiscordWebhookRequest struct {
	Username string         `json:"username"`
	Embeds   []DiscordEmbed `json:"embeds"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Fields    []SlackField `json:"fields"`
	Timestamp int64        `json:"ts"`
}

type SlackWebhookRequest struct {
	Username    string            `json:"username"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

type DiscordSender struct{}

func (s *DiscordSender) Send(ctx context.Context, channel *models.NotificationChannel, msg Message) error {
	var cfg types.DiscordChannelConfig

	if err := json.Unmarshal(channel.Config, &cfg); err != nil {
		return fmt.Errorf("invalid discord config: %w", err)
	}

	if cfg.WebhookURL == "" {
		return fmt.Errorf("discord channel %d has no webhook url", channel.ID)
	}

	color := colorRed
	if msg.Status == types.StateUp {
		color = colorGreen
	}

	payload := DiscordWebhookRequest{
		Username: webhookUsername,
		Embeds: []DiscordEmbed{
			{
				Title:       msg.Title,
				Description: msg.Body,
				Color:       color,
				Fields: []DiscordWebhookField{
					{Name: "Monitor", Value: msg.MonitorName, Inline: true},
					{Name: "Region", Value: msg.Region, Inline: true},
					{Name: "Status", Value: string(msg.Status), Inline: true},
				},
				Timestamp: msg.At.Format(time.RFC3339),
			},
		},
	}

	if msg.Error != "" {
		payload.Embeds[0].Fields = append(payload.Embeds[0].Fields,
			DiscordWebhookField{Name: "Error", Value: msg.Error})
	}

	return postJSON(ctx, cfg.WebhookURL, payload)
}

type SlackSender struct{}

func (s *SlackSender) Send(ctx context.Context, channel *models.NotificationChannel, msg Message) error {
	var cfg types.SlackChannelConfig

	if err := json.Unmarshal(channel.Config, &cfg); err != nil {
		return fmt.Errorf("invalid slack config: %w", err)
	}

	if cfg.WebhookURL == "" {
		return fmt.Errorf("slack channel %d has no webhook url", channel.ID)
	}

	color := "danger"
	if msg.Status == types.StateUp {
		color = "good"
	}

	fields := []SlackField{
		{Title: "Monitor", Value: msg.MonitorName, Short: true},
		{Title: "Region", Value: msg.Region, Short: true},
		{Title: "Status", Value: string(msg.Status), Short: true},
	}

	if msg.Error != "" {
		fields = append(fields, SlackField{Title: "Error", Value: msg.Error})
	}

	payload := SlackWebhookRequest{
		Username: webhookUsername,
		Text:     msg.Title,
		Attachments: []SlackAttachment{
			{
				Color:     color,
				Title:     msg.Title,
				Text:      msg.Body,
				Fields:    fields,
				Timestamp: msg.At.Unix(),
			},
		},
	}

	return postJSON(ctx, cfg.WebhookURL, payload)
}

func postJSON(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
