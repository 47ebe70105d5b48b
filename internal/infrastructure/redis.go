package infrastructure

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DevDizzle/galatiq-invoice-agent/pkg/lifecycle"
)

const redisPingTimeout = 5 * time.Second

func startRedis(lc *lifecycle.Coordinator, client *redis.Client, logger *slog.Logger) {
	lc.OnStartup(func() {
		ctx, cancel := context.WithTimeout(lc.Context(), redisPingTimeout)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("redis ping failed", "error", err)
			return
		}

		logger.Info("redis connection established", "addr", client.Options().Addr)
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()

		if err := client.Close(); err != nil {
			logger.Error("redis close failed", "error", err)
			return
		}

		logger.Info("redis connection closed")
	})
}
