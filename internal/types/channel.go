package types

type ChannelType string

const (
	ChannelEmail   ChannelType = "email"
	ChannelDiscord ChannelType = "discord"
	ChannelSlack   ChannelType = "slack"
	ChannelSMS     ChannelType = "sms"
)

type TriggerEvent string

const (
	TriggerDown     TriggerEvent = "down"
	TriggerRecovery TriggerEvent = "recovery"
)

type EmailChannelConfig struct {
	To []string `json:"to"`
}

type DiscordChannelConfig struct {
	WebhookURL string `json:"webhook_url"`
}

type SlackChannelConfig struct {
	WebhookURL string `json:"webhook_url"`
}

// SMSChannelConfig points at an HTTP SMS gateway; the engine only decides
// whether to notify, delivery itself is the gateway's problem.
type SMSChannelConfig struct {
	GatewayURL string   `json:"gateway_url"`
	APIKey     string   `json:"api_key,omitempty"`
	To         []string `json:"to"`
}
