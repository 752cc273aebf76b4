package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/clovigo/internal/pkg/config"
	"github.com/shandysiswandi/clovigo/internal/pkg/goroutine"
	"github.com/shandysiswandi/clovigo/internal/pkg/instrument"
	"github.com/shandysiswandi/clovigo/internal/pkg/messaging"
	"github.com/shandysiswandi/clovigo/internal/pkg/uid"
	"github.com/shandysiswandi/clovigo/internal/shared/event"
)

const defaultConsumerConcurrency = 10

// RegisterMQConsumer starts one goroutine per enabled consumer. A consumer
// runs only when its name is listed in modules.notification.consumer_names.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Messaging,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enableConsumerNames := cfg.GetArray("modules.notification.consumer_names")
	concurrency := cfg.GetInt("modules.notification.consumer_concurrency")
	if concurrency <= 0 {
		concurrency = defaultConsumerConcurrency
	}

	var consumers = []struct {
		name    string
		topic   string // destination where publisher sent message
		group   string // nsq channel and nats queue group
		handler messaging.Handler
	}{
		{
			name:    event.OTPDispatchConsumerSMS,
			topic:   event.OTPDispatchDestination,
			group:   event.OTPDispatchConsumerSMS,
			handler: mqHandler.OTPDispatchSMS,
		},
	}

	for _, consumer := range consumers {
		if !slices.Contains(enableConsumerNames, consumer.name) {
			continue
		}

		routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", consumer.name)
			return messenger.Consume(pCtx,
				consumer.topic,
				consumer.handler,
				messaging.WithChannel(consumer.group),
				messaging.WithQueueGroup(consumer.group),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(concurrency),
				messaging.WithMaxInFlight(concurrency),
			)
		})
	}
}
