package handlers

import (
	"github.com/upwatch-dev/upwatch/internal/notify"
	"github.com/upwatch-dev/upwatch/internal/stats"
	"go.uber.org/zap"
)

var (
	logger       = zap.NewNop()
	notifier     *notify.Notifier
	statsService *stats.Service
)

// Init wires the handler package's collaborators at boot.
func Init(l *zap.Logger, n *notify.Notifier, s *stats.Service) {
	logger = l
	notifier = n
	statsService = s
}
