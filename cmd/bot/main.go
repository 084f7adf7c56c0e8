package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"line-digest-bot/internal/adapters/bot"
	"line-digest-bot/internal/adapters/feed"
	"line-digest-bot/internal/adapters/kagi"
	"line-digest-bot/internal/adapters/line"
	"line-digest-bot/internal/adapters/summarizer"
	"line-digest-bot/internal/infra/cache"
	"line-digest-bot/internal/infra/config"
	infraHTTP "line-digest-bot/internal/infra/http"
	"line-digest-bot/internal/infra/log"
	"line-digest-bot/internal/infra/metrics"
	"line-digest-bot/internal/infra/openai"
	"line-digest-bot/internal/infra/queue"
	"line-digest-bot/internal/usecase/broadcast"
	"line-digest-bot/internal/usecase/conversation"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	metrics.MustRegister(prometheus.DefaultRegisterer)
	metrics.StartServer(ctx, logger, cfg.MetricsAddr)

	prompts, err := config.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось загрузить промпты")
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	redisCache := cache.NewRedis(redisClient)
	broadcastQueue := queue.NewRedisBroadcastQueue(redisClient, cfg.Broadcast.QueueKey)

	openaiClient := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)
	summarizerAdapter := summarizer.NewOpenAI(openaiClient, cfg.OpenAI.Model, cfg.OpenAI.TranslateModel, prompts, cfg.OpenAI.Timeout)
	kagiClient := kagi.NewClient(cfg.Kagi.APIKey, cfg.Kagi.BaseURL, cfg.Kagi.Engine, cfg.Kagi.TargetLanguage, cfg.Kagi.Timeout)
	lineClient := line.NewClient(cfg.Line.ChannelToken, cfg.Line.APIBaseURL, cfg.Line.Timeout)

	fetcher := feed.NewFetcher(cfg.Feed.URL, feed.RetryPolicy{
		MaxAttempts: cfg.Feed.MaxAttempts,
		BaseDelay:   cfg.Feed.BaseDelay,
		MaxDelay:    cfg.Feed.MaxDelay,
		MaxElapsed:  cfg.Feed.MaxElapsed,
	}, redisCache, cfg.Feed.CacheTTL, logger)

	broadcastService := broadcast.NewService(fetcher, summarizerAdapter, lineClient, redisCache, broadcastQueue, broadcast.Config{
		Concurrency:  cfg.Broadcast.Concurrency,
		BatchTimeout: cfg.Broadcast.BatchTimeout,
		MaxStories:   cfg.Broadcast.MaxStories,
	}, logger)
	conversationService := conversation.NewService(summarizerAdapter, kagiClient, logger)

	handler := bot.NewHandler(broadcastService, conversationService, lineClient, cfg.Line.ChannelSecret, logger)

	server := infraHTTP.NewServer(logger)
	handler.Register(server.Router)

	go func() {
		if err := broadcastService.RunWorker(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("воркер рассылок остановлен")
		}
	}()

	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("остановка бота")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("корректное завершение не удалось")
	}
}
