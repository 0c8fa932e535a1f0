package notifications

import (
	"context"
	"strings"

	"github.com/campusprint/campusprint-backend/pkg/enums"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

// Sender delivers one templated message to one recipient.
type Sender interface {
	Send(ctx context.Context, recipient string, template enums.NotificationTemplate, payload map[string]any) error
}

// LogSender writes every message to the structured log instead of mailing it.
// It is the default sender until a mail provider is configured.
type LogSender struct {
	from string
	logg *logger.Logger
}

func NewLogSender(from string, logg *logger.Logger) *LogSender {
	return &LogSender{from: strings.TrimSpace(from), logg: logg}
}

func (s *LogSender) Send(ctx context.Context, recipient string, template enums.NotificationTemplate, payload map[string]any) error {
	fields := map[string]any{
		"from":      s.from,
		"recipient": recipient,
		"template":  string(template),
	}
	for k, v := range payload {
		if k == "code" {
			// verification codes never reach the log
			continue
		}
		fields["payload_"+k] = v
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "notifications.email_sent")
	return nil
}
