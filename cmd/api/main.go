package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"community_chat/internal/config"
	"community_chat/internal/handler"
	"community_chat/internal/middleware"
	"community_chat/internal/observability"
	"community_chat/internal/pkg"
	"community_chat/internal/repository/rdb"
	"community_chat/internal/repository/redis"
	"community_chat/internal/router"
	"community_chat/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, err := pkg.NewLogger(cfg.Env, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.InitOTel(ctx, log, cfg.Env, cfg.OTel)
	if err != nil {
		return err
	}

	db, err := rdb.Open(cfg.DB.Driver, cfg.DB.DSN, cfg.DB.MaxOpenConns)
	if err != nil {
		return err
	}
	// 自动建表
	if err := rdb.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// redis 可选：只在启用时注入，避免接口里装着 nil 指针
	var (
		communityCache service.CommunityCache
		activityCache  service.ActivityCache
		sessions       middleware.SessionStore
	)
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		communityCache = redis.NewCommunityCache(client)
		activityCache = redis.NewActivityCache(client)
		if cfg.Auth.CheckSession {
			sessions = redis.NewSessionRepository(client)
		}
		log.Info("redis connected", "addr", cfg.Redis.Addr)
	}

	communities := service.NewCommunityService(db, log, communityCache)
	members := service.NewMemberService(db, log, communities)
	chat := service.NewChatService(db, log, communities, members, activityCache)
	activity := service.NewActivityService(db, log, activityCache)

	r := router.InitRouter(router.Deps{
		DB:          db,
		Log:         log,
		Secret:      []byte(cfg.Auth.AccessSecret),
		Sessions:    sessions,
		Origins:     cfg.CORS.AllowOrigins,
		ServiceName: cfg.OTel.ServiceName,
		Community:   handler.NewCommunityHandler(communities, members, log),
		Chat:        handler.NewChatHandler(communities, chat, members, activity, log),
	})

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.HTTP.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown failed", "error", err)
		}
		if err := shutdownOTel(shutdownCtx); err != nil {
			log.Warn("otel shutdown failed", "error", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		return nil
	})
	return g.Wait()
}
