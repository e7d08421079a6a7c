package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-charger-client/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Open builds the adapter selected by store.backend
func Open(cfg config.StoreConfig, logger zerolog.Logger) (Store, error) {
	switch cfg.GetStoreBackend() {
	case config.BackendMemory:
		logger.Warn().Msg("using in-memory credential store, sessions end with the process")
		return NewMemory(), nil

	case config.BackendFile:
		opts := []FileOption{WithFileLogger(logger)}
		if cfg.GetStorePassphrase() != "" {
			opts = append(opts, WithPassphrase(cfg.GetStorePassphrase()))
		}
		logger.Debug().Str("path", cfg.GetStoreFilePath()).Bool("encrypted", cfg.GetStorePassphrase() != "").Msg("using file credential store")
		return NewFile(cfg.GetStoreFilePath(), opts...), nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		})
		r := NewRedis(client, cfg.GetRedisPrefix(), cfg.GetRedisTTL())

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.Ping(ctx); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.GetRedisAddr()).Msg("unable to reach redis")
		} else {
			logger.Debug().Str("addr", cfg.GetRedisAddr()).Msg("connected to redis")
		}
		return r, nil

	default:
		return nil, fmt.Errorf("[store Open] unknown backend %q", cfg.GetStoreBackend())
	}
}
