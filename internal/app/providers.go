package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/worklane/portal-realtime/internal/config"
	"github.com/worklane/portal-realtime/internal/store"
)

func newReadState(lc fx.Lifecycle, conf *config.Config, log *zap.Logger) (*store.ReadState, error) {
	state, err := store.Open(conf.Storage.Dir, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return state.Close()
		},
	})
	return state, nil
}
