package kafka

import (
	"context"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"go.uber.org/fx"

	"github.com/guideops/chat-core/internal/config"
	"github.com/guideops/chat-core/internal/usecase"
)

func StartConsumeMessages(
	sd fx.Shutdowner,
	lc fx.Lifecycle,
	conf *config.Config,
	publishUsecase usecase.PublishUsecase,
) error {
	if !conf.Kafka.Enabled {
		log.Warnf(context.Background(), "Kafka consumer is disabled in configuration")
		return nil
	}

	consumer, err := NewConsumer(&conf.Kafka, NewMessageHandler(publishUsecase))
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := consumer.Start(runCtx); err != nil {
					log.Errorw(runCtx, "kafka consumer stopped", "error", err)
					sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return consumer.Stop(ctx)
		},
	})
	return nil
}
