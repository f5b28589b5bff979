package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/upwatch-dev/upwatch/internal/models"
	"github.com/upwatch-dev/upwatch/internal/types"
	"gopkg.in/gomail.v2"
)

// gomail's dialer has no deadline support, so sends are bounded externally.
const smtpTimeout = 10 * time.Second

type EmailSender struct {
	Settings SMTPSettings
}

func (s *EmailSender) Send(ctx context.Context, channel *models.NotificationChannel, msg Message) error {
	if s.Settings.Host == "" {
		return fmt.Errorf("email transport not configured")
	}

	var cfg types.EmailChannelConfig

	if err := json.Unmarshal(channel.Config, &cfg); err != nil {
		return fmt.Errorf("invalid email config: %w", err)
	}

	if len(cfg.To) == 0 {
		return fmt.Errorf("email channel %d has no recipients", channel.ID)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.Settings.From)
	m.SetHeader("To", cfg.To...)
	m.SetHeader("Subject", msg.Title)
	m.SetBody("text/plain", fmt.Sprintf("%s\n\nTime: %s\n", msg.Body, msg.At.Format("2006-01-02 15:04:05 UTC")))

	d := gomail.NewDialer(s.Settings.Host, s.Settings.Port, s.Settings.User, s.Settings.Pass)

	ctx, cancel := context.WithTimeout(ctx, smtpTimeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- d.DialAndSend(m)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("smtp send to %s timed out: %w", s.Settings.Host, ctx.Err())
	}
}
