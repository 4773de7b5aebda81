package app

import (
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/webshop/internal/cache"
	healthcheck "github.com/vladislavdragonenkov/webshop/internal/health"
)

// initReadCache подключает Redis, если задан адрес. checker и closer равны nil без Redis.
func initReadCache(cfg Config, logger *log.Entry) (cache.ReadCache, healthcheck.Checker, io.Closer) {
	if cfg.RedisAddr == "" {
		return cache.Noop{}, nil, nil
	}

	redisCache := cache.NewRedisCache(cache.NewRedisClient(cfg.RedisAddr), cfg.RedisCacheTTL)
	logger.WithField("redis_addr", cfg.RedisAddr).Info("read cache enabled")
	return redisCache, healthcheck.NewCheckFunc("redis", redisCache.Ping), redisCache
}
