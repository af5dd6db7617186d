// Package server exposes the daemon's local debug surface: health, presence
// and notification snapshots plus Prometheus metrics. It is bound to loopback
// by default and is not a portal backend.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/worklane/portal-realtime/internal/config"
	"github.com/worklane/portal-realtime/internal/session"
)

func StartDebugServer(
	lc fx.Lifecycle,
	sd fx.Shutdowner,
	conf *config.Config,
	sess *session.Session,
	log *zap.Logger,
) {
	if !conf.Debug.Enabled {
		return
	}
	log = log.Named("debug-server")

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error("panic recovered", zap.Error(err), zap.ByteString("stack", stack))
			return nil
		},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":    "ok",
			"identity":  sess.Identity(),
			"connected": sess.Connected(),
		})
	})
	e.GET("/presence", func(c echo.Context) error {
		return c.JSON(http.StatusOK, sess.PresenceSnapshot())
	})
	e.GET("/notifications", func(c echo.Context) error {
		return c.JSON(http.StatusOK, sess.UnreadNotifications())
	})
	e.POST("/focus", func(c echo.Context) error {
		var body struct {
			Surface string `json:"surface"`
		}
		if err := c.Bind(&body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
		sess.SetFocus(body.Surface)
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("starting debug server", zap.String("addr", conf.Debug.Addr))
				if err := e.Start(conf.Debug.Addr); !errors.Is(err, http.ErrServerClosed) {
					sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}
