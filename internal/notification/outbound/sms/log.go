package sms

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/shandysiswandi/clovigo/internal/notification/entity"
	"github.com/shandysiswandi/clovigo/internal/pkg/clock"
)

// LogSender writes messages to the structured log instead of a provider.
// It backs the "log" driver used in local development.
type LogSender struct {
	clock clock.Clocker
	seq   atomic.Int64
}

func NewLogSender(clk clock.Clocker) *LogSender {
	return &LogSender{clock: clk}
}

func (l *LogSender) Send(ctx context.Context, msg entity.SMS) (entity.Delivery, error) {
	id := "log-" + strconv.FormatInt(l.seq.Add(1), 10)
	slog.InfoContext(ctx, "sms (log driver)", "to", msg.To, "sender", msg.Sender, "body", msg.Body, "message_id", id)

	return entity.Delivery{MessageID: id, Status: "logged", SentAt: l.clock.Now()}, nil
}
