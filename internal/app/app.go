package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/worklane/portal-realtime/internal/bus"
	"github.com/worklane/portal-realtime/internal/client"
	"github.com/worklane/portal-realtime/internal/config"
	"github.com/worklane/portal-realtime/internal/server"
	"github.com/worklane/portal-realtime/internal/session"
)

func New() *fx.App {
	return fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Provide(
			newLogger,
			config.Load,
			newReadState,

			bus.New,
			client.New,
			session.New,
		),
		fx.Invoke(
			server.StartDebugServer,
			startSession,
		),
	)
}

func newLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

// startSession logs the identity in on startup and out on shutdown. One
// session, and therefore one realtime connection, exists per daemon process.
func startSession(lc fx.Lifecycle, sess *session.Session, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("logging in", zap.String("identity", sess.Identity()))
			return sess.Login(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return sess.Logout()
		},
	})
}
