package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/speechrelay/config"
	"github.com/yoockh/speechrelay/internal/api/handlers"
	"github.com/yoockh/speechrelay/internal/api/middleware"
	"github.com/yoockh/speechrelay/internal/api/routes"
	"github.com/yoockh/speechrelay/internal/broadcast"
	"github.com/yoockh/speechrelay/internal/cache"
	"github.com/yoockh/speechrelay/internal/logger"
	"github.com/yoockh/speechrelay/internal/metrics"
	"github.com/yoockh/speechrelay/internal/pipeline"
	"github.com/yoockh/speechrelay/internal/providers/stt"
	"github.com/yoockh/speechrelay/internal/providers/translate"
	"github.com/yoockh/speechrelay/internal/providers/tts"
	"github.com/yoockh/speechrelay/internal/reassembly"
	mongorepo "github.com/yoockh/speechrelay/internal/repositories/mongo"
	pgrepo "github.com/yoockh/speechrelay/internal/repositories/postgres"
	"github.com/yoockh/speechrelay/internal/services"
	"github.com/yoockh/speechrelay/internal/storage"
	"github.com/yoockh/speechrelay/internal/translation"
	"github.com/yoockh/speechrelay/internal/transport"
	"github.com/yoockh/speechrelay/internal/workers"
)

func main() {
	_ = godotenv.Load()

	settings, err := config.LoadSettings()
	if err != nil {
		logrus.WithError(err).Fatal("invalid settings")
	}
	log := logger.New(settings.Log.Level, settings.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Datastores
	if err := config.InitMongo(settings.Mongo); err != nil {
		log.WithError(err).Fatal("MongoDB init error")
	}
	if err := config.EnsureMongoIndexes(settings.Mongo.DB); err != nil {
		log.WithError(err).Warn("MongoDB index setup failed")
	}
	log.Info("MongoDB connected")

	if err := config.InitPostgres(settings.Postgres); err != nil {
		log.WithError(err).Fatal("PostgreSQL init error")
	}
	log.Info("PostgreSQL connected")

	if err := config.InitRedis(settings.Redis); err != nil {
		log.WithError(err).Fatal("Redis init error")
	}
	log.Info("Redis connected")

	// Engines
	speech, err := stt.NewGoogleSpeech(ctx, settings.Google.CredentialsFile)
	if err != nil {
		log.WithError(err).Fatal("speech-to-text client")
	}
	defer speech.Close()

	voice, err := tts.NewGoogleTTS(ctx, settings.Google.CredentialsFile)
	if err != nil {
		log.WithError(err).Fatal("text-to-speech client")
	}
	defer voice.Close()

	var engine translate.Provider
	switch strings.ToLower(settings.Translation.Engine) {
	case "libre":
		engine = translate.NewLibreTranslate(settings.Translation.LibreURL, settings.Translation.LibreAPIKey, settings.Translation.Timeout)
	default:
		engine, err = translate.NewGoogleTranslate(ctx, settings.Google.ProjectID, settings.Google.CredentialsFile)
		if err != nil {
			log.WithError(err).Fatal("translation client")
		}
	}
	defer engine.Close()

	// Transport
	signer, err := transport.NewTokenSigner(settings.Transport.APIKey, settings.Transport.APISecret)
	if err != nil {
		log.WithError(err).Fatal("token signer")
	}
	redisTransport := transport.NewRedis(config.RedisClient)
	var media transport.Transport = redisTransport
	var fanout handlers.RoomSubscriber = redisTransport
	if strings.ToLower(settings.Transport.Kind) == "livekit" {
		media = transport.NewLiveKit(settings.Transport.Host, signer, settings.Transport.Timeout)
		fanout = nil
	}

	// Relay core
	chunks := reassembly.New(reassembly.Config{
		Shards:        settings.Reassembly.Shards,
		IdleTimeout:   settings.Reassembly.IdleTimeout,
		SweepInterval: settings.Reassembly.SweepInterval,
		Logger:        log,
		Metrics:       m,
	})
	go chunks.Run(ctx)

	cacheCfg := translation.CacheConfig{
		TTL:           settings.Translation.CacheTTL,
		SweepInterval: settings.Translation.SweepInterval,
		Logger:        log,
		Metrics:       m,
	}
	if settings.Translation.RedisCache {
		cacheCfg.Remote = cache.NewRedisCache(config.RedisClient, "speechrelay:translation")
	}
	trCache := translation.NewCache(cacheCfg)
	go trCache.Run(ctx)
	translator := translation.NewService(engine, trCache, log, m)

	retryQueue := &workers.StreamQueue{Redis: config.RedisClient}
	publisher := broadcast.NewPublisher(media, retryQueue, log, m)

	hostname, _ := os.Hostname()
	retryPool := &workers.BroadcastRetryPool{
		Redis:          config.RedisClient,
		Transport:      media,
		Queue:          retryQueue,
		NumWorkers:     settings.Retry.Workers,
		MaxAttempts:    settings.Retry.MaxAttempts,
		Backoff:        settings.Retry.Backoff,
		Logger:         log,
		Metrics:        m,
		ConsumerPrefix: hostname,
	}
	if err := retryPool.Start(ctx); err != nil {
		log.WithError(err).Fatal("broadcast retry pool")
	}

	pipe := pipeline.New(pipeline.Config{
		SourceLanguage: settings.Pipeline.SourceLanguage,
		DegradedMode:   settings.Pipeline.DegradedMode,
		DemoText:       settings.Pipeline.DemoText,
	}, pipeline.Deps{
		STT:         speech,
		TTS:         voice,
		Translator:  translator,
		Broadcaster: publisher,
		Logger:      log,
		Metrics:     m,
	})

	// Repositories and services
	mongoDB := config.MongoClient.Database(settings.Mongo.DB)
	users := pgrepo.NewUserRepo(config.PostgresDB)
	rooms := pgrepo.NewRoomRepo(config.PostgresDB)
	roomTokens := pgrepo.NewRoomTokenRepo(config.PostgresDB)
	utterances := mongorepo.NewUtteranceRepo(mongoDB)

	var images storage.Uploader
	if settings.Google.ImageBucket != "" {
		gcs, err := storage.NewGCSUploader(ctx, settings.Google.ImageBucket, settings.Google.CredentialsFile, settings.Google.PublicImages)
		if err != nil {
			log.WithError(err).Fatal("image storage")
		}
		defer gcs.Close()
		images = gcs
	}

	historySvc := services.NewUtteranceLogService(utterances, settings.Mongo.UtteranceTTL)
	audioSvc := services.NewAudioService(chunks, pipe, historySvc, log)
	roomSvc := services.NewRoomService(rooms, roomTokens, users, media, signer, log)
	userSvc := services.NewUserService(users, images, settings.Auth.JWTSecret, settings.Auth.TokenTTL)

	// HTTP
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log, m))
	routes.RegisterRoutes(r, routes.Deps{
		JWTSecret:   settings.Auth.JWTSecret,
		Gatherer:    reg,
		Audio:       handlers.NewAudioHandler(audioSvc),
		Translate:   handlers.NewTranslateHandler(translator),
		Auth:        handlers.NewAuthHandler(userSvc),
		Room:        handlers.NewRoomHandler(roomSvc),
		Transcripts: handlers.NewTranscriptHandler(historySvc),
		Admin:       handlers.NewAdminHandler(audioSvc, translator),
		WS:          handlers.NewWSHandler(audioSvc, fanout, log),
	})

	srv := &http.Server{
		Addr:         ":" + settings.HTTP.Port,
		Handler:      r,
		ReadTimeout:  settings.HTTP.ReadTimeout,
		WriteTimeout: settings.HTTP.WriteTimeout,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	audioSvc.Close()

	_ = config.RedisClient.Close()
	if err := config.MongoClient.Disconnect(shutdownCtx); err != nil {
		log.WithError(err).Warn("mongo disconnect")
	}
	if sqlDB, err := config.PostgresDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
