package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/upwatch-dev/upwatch/internal/models"
	"github.com/upwatch-dev/upwatch/internal/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sender delivers one formatted message over a channel's transport.
type Sender interface {
	Send(ctx context.Context, channel *models.NotificationChannel, msg Message) error
}

type Message struct {
	Title       string
	Body        string
	MonitorName string
	MonitorType string
	Region      string
	Status      types.MonitorState
	Error       string
	At          time.Time
}

// Notifier decides whether and to whom to notify; transports do the actual
// delivery. One channel failing never blocks the others.
type Notifier struct {
	db      *gorm.DB
	logger  *zap.Logger
	senders map[types.ChannelType]Sender

	// serializes cooldown read-check-update across concurrent transitions
	mu sync.Mutex
}

type SMTPSettings struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

func New(db *gorm.DB, logger *zap.Logger, smtp SMTPSettings) *Notifier {
	return &Notifier{
		db:     db,
		logger: logger,
		senders: map[types.ChannelType]Sender{
			types.ChannelDiscord: &DiscordSender{},
			types.ChannelSlack:   &SlackSender{},
			types.ChannelEmail:   &EmailSender{Settings: smtp},
			types.ChannelSMS:     &SMSSender{},
		},
	}
}

// OnStatusChange fans a transition out to every matching channel, enforcing
// the per-channel cooldown. The mutex guards only the cooldown bookkeeping;
// transport sends run outside it so a slow channel never stalls transitions
// for other monitors. Implements tracker.Listener.
func (n *Notifier) OnStatusChange(ctx context.Context, event types.StatusChangeEvent) {
	var channels []models.NotificationChannel

	err := n.db.Where("org_id = ? AND enabled = ?", event.OrgID, true).Find(&channels).Error
	if err != nil {
		n.logger.Error("failed to load notification channels", zap.Error(err))
		return
	}

	msg := buildMessage(event)

	for i := range channels {
		channel := &channels[i]

		if !channel.Triggers(string(event.Trigger())) || !channel.AppliesTo(event.MonitorID) {
			continue
		}

		prev, ok := n.claimCooldown(channel, event.MonitorID, event.Region)
		if !ok {
			continue
		}

		if err := n.deliver(ctx, channel, msg); err != nil {
			n.logger.Error("notification transport failed",
				zap.Uint("channel_id", channel.ID),
				zap.String("type", channel.Type),
				zap.Error(err))
			n.restoreCooldown(channel, prev)
		}
	}
}

// claimCooldown atomically checks the channel's cooldown window and, when it
// is clear, stamps last_notified_at before the send so concurrent transitions
// cannot double-claim the same window. Returns the previous stamp for rollback.
func (n *Notifier) claimCooldown(channel *models.NotificationChannel, monitorID uint, region string) (*time.Time, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	// The loaded row may be stale by now; another transition could have
	// claimed the window since the channel list was read.
	var current models.NotificationChannel

	if err := n.db.Select("last_notified_at").First(&current, channel.ID).Error; err != nil {
		n.logger.Error("failed to read channel cooldown",
			zap.Uint("channel_id", channel.ID), zap.Error(err))
		return nil, false
	}

	now := time.Now()

	if channel.CooldownMinutes > 0 && current.LastNotifiedAt != nil {
		cooldown := time.Duration(channel.CooldownMinutes) * time.Minute
		if now.Sub(*current.LastNotifiedAt) < cooldown {
			// Cooldown is per-channel, not per-monitor; suppressed sends
			// are logged so the noise trade-off stays measurable.
			n.logger.Info("notification suppressed by cooldown",
				zap.Uint("channel_id", channel.ID),
				zap.Uint("monitor_id", monitorID),
				zap.String("region", region))
			return nil, false
		}
	}

	if err := n.db.Model(channel).Update("last_notified_at", now).Error; err != nil {
		n.logger.Error("failed to record notification time",
			zap.Uint("channel_id", channel.ID), zap.Error(err))
	}

	return current.LastNotifiedAt, true
}

// restoreCooldown puts back the previous stamp after a failed delivery so a
// transport error does not consume the cooldown window.
func (n *Notifier) restoreCooldown(channel *models.NotificationChannel, prev *time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.db.Model(channel).Update("last_notified_at", prev).Error; err != nil {
		n.logger.Error("failed to restore channel cooldown",
			zap.Uint("channel_id", channel.ID), zap.Error(err))
	}
}

// Test sends a test message over the channel, bypassing cooldown and
// trigger-event filtering entirely.
func (n *Notifier) Test(ctx context.Context, channel *models.NotificationChannel) error {
	msg := Message{
		Title:       "Test notification",
		Body:        fmt.Sprintf("Test message for channel %q. Delivery is working.", channel.Name),
		MonitorName: "test",
		Status:      types.StateUp,
		At:          time.Now(),
	}

	return n.deliver(ctx, channel, msg)
}

func (n *Notifier) deliver(ctx context.Context, channel *models.NotificationChannel, msg Message) error {
	sender, ok := n.senders[types.ChannelType(channel.Type)]
	if !ok {
		return fmt.Errorf("unsupported channel type %q", channel.Type)
	}

	return sender.Send(ctx, channel, msg)
}

func buildMessage(event types.StatusChangeEvent) Message {
	msg := Message{
		MonitorName: event.MonitorName,
		MonitorType: event.MonitorType,
		Region:      event.Region,
		Status:      event.To,
		Error:       event.Reason,
		At:          event.Result.Timestamp,
	}

	if event.To == types.StateDown {
		msg.Title = fmt.Sprintf("Monitor DOWN: %s", event.MonitorName)
		msg.Body = fmt.Sprintf("%s (%s, region %s) is down: %s",
			event.MonitorName, event.MonitorType, event.Region, event.Reason)
	} else {
		msg.Title = fmt.Sprintf("Monitor RECOVERED: %s", event.MonitorName)
		msg.Body = fmt.Sprintf("%s (%s, region %s) is back up.",
			event.MonitorName, event.MonitorType, event.Region)
	}

	return msg
}
