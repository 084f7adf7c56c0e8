package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"line-digest-bot/internal/domain"
	"line-digest-bot/internal/infra/config"
	"line-digest-bot/internal/infra/log"
	"line-digest-bot/internal/infra/queue"
)

// Планировщик раз в сутки публикует задачи дневной рассылки.
// Повторная публикация безопасна: воркер держит суточный замок.
func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Warn().Err(err).Str("tz", cfg.TZ).Msg("часовой пояс не найден, используется UTC")
		loc = time.UTC
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	broadcastQueue := queue.NewRedisBroadcastQueue(redisClient, cfg.Broadcast.QueueKey)

	logger.Info().Str("daily_time", cfg.Broadcast.DailyTime).Str("tz", loc.String()).Msg("планировщик запущен")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastFired string
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("остановка планировщика")
			return
		case <-ticker.C:
		}

		now := time.Now().In(loc)
		if now.Format("15:04") != cfg.Broadcast.DailyTime {
			continue
		}
		date := now.Format("2006-01-02")
		if date == lastFired {
			continue
		}
		lastFired = date

		for _, kind := range []domain.BroadcastKind{domain.BroadcastStories, domain.BroadcastSummary} {
			job := domain.BroadcastJob{
				ID:         uuid.NewString(),
				Kind:       kind,
				EnqueuedAt: time.Now().UTC(),
			}
			if err := broadcastQueue.Enqueue(ctx, job); err != nil {
				logger.Error().Err(err).Str("kind", string(kind)).Msg("не удалось опубликовать задачу")
				continue
			}
			logger.Info().Str("job_id", job.ID).Str("kind", string(kind)).Msg("задача рассылки опубликована")
		}
	}
}
