package app

import (
	"github.com/carousell/ct-go/pkg/logger"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"

	"github.com/guideops/chat-core/internal/config"
	"github.com/guideops/chat-core/internal/repo/mongodb"
	"github.com/guideops/chat-core/internal/repo/redisstream"
	"github.com/guideops/chat-core/internal/server"
	"github.com/guideops/chat-core/internal/usecase"
)

func Invoke(funcs ...any) *fx.App {
	log := logger.MustNamed("app")
	conf := config.MustLoad()
	log.Debugw("config loaded", log.Reflect("config", conf))
	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{
				Logger: log.Unwrap().Desugar(),
			}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Provide(
			newRedisClient,
			newMongoDB,

			server.NewHandler,
			server.NewStreamController,

			usecase.NewPublishUsecase,
			usecase.NewHistoryUsecase,
			usecase.NewAckUsecase,
			usecase.NewStreamUsecase,

			redisstream.NewStore,
			redisstream.NewDedupeGuard,
			redisstream.NewCursorStore,

			mongodb.NewMembershipRepository,
		),
		fx.Supply(conf),
		fx.Invoke(funcs...),
	)
}
