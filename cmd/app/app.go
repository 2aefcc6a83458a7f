package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	v1 "decisiondeck/api/v1"
	"decisiondeck/internal/auth"
	"decisiondeck/internal/config"
	"decisiondeck/internal/models"
	"decisiondeck/internal/realtime"
	"decisiondeck/internal/services"
	"decisiondeck/internal/store"
	"decisiondeck/pkg/async"
	"decisiondeck/pkg/logger"
	"decisiondeck/pkg/server"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp/reuseport"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Println("加载 .env 文件失败，请检查是否存在", err)
		os.Exit(1)
	}
	cfg := config.FromEnv()

	level := zerolog.InfoLevel
	if cfg.Dev() {
		level = zerolog.DebugLevel
	}
	logger.Configure(level)

	ctx := context.Background()
	st, pool := newStore(ctx, cfg)

	hub := realtime.NewHub()
	tokens := auth.NewTokens(cfg.JWTSecret)

	authSvc := services.NewAuthService(st, tokens)
	if err := seedAdmin(ctx, st, cfg); err != nil {
		log.Fatal().Err(err).Msg("初始化管理员失败")
	}

	app := server.NewFiber(cfg.AllowOrigin)
	v1.SetupRoutes(app, v1.Deps{
		Auth:           authSvc,
		Users:          services.NewUserService(st),
		Candidates:     services.NewCandidateService(st),
		Votes:          services.NewVoteService(st, hub),
		Query:          services.NewQueryService(st),
		Analytics:      services.NewAnalyticsService(st, hub),
		Hub:            hub,
		JWTSecret:      cfg.JWTSecret,
		SystemKey:      cfg.SystemKey,
		AuthRateMax:    cfg.AuthRateMax,
		AuthRateWindow: cfg.AuthRateWindow,
	})

	run(app, cfg, pool)
}

func newStore(ctx context.Context, cfg config.Config) (store.Store, *pgxpool.Pool) {
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("APP_DB 未配置，使用内存存储（仅限本地）")
		return store.NewMemory(), nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("数据库连接失败")
	}
	if err := store.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("建表失败")
	}
	return store.NewPostgres(pool), pool
}

func seedAdmin(ctx context.Context, st store.Store, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	if _, err := st.UserByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	now := time.Now()
	admin := &models.User{
		Id:        uuid.NewString(),
		Handle:    "admin",
		Email:     cfg.AdminEmail,
		Password:  hash,
		Role:      models.RoleAdmin,
		Status:    models.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.CreateUser(ctx, admin); err != nil {
		return err
	}
	log.Info().Str("email", cfg.AdminEmail).Msg("已创建初始管理员")
	return nil
}

func run(app *fiber.App, cfg config.Config, pool *pgxpool.Pool) {
	if cfg.Dev() {
		log.Info().Msg("开发模式已启用")
		log.Fatal().Err(app.Listen(cfg.Port)).Send()
	} else {
		go func() {
			ln, err := reuseport.Listen("tcp4", cfg.Port)
			if err != nil {
				log.Panic().Err(err).Msg("无法监听")
			}

			if err = app.Listener(ln); err != nil {
				log.Panic().Err(err).Msg("无法监听")
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGHUP)
		<-c

		log.Info().Msg("正在关闭服务端...")
		select {
		case err := <-async.ErrAble(app.Shutdown):
			if err != nil {
				log.Error().Err(err).Msg("关闭异常")
			}
		case <-time.After(10 * time.Second):
			log.Warn().Msg("关闭超时，强制退出")
		}
		if pool != nil {
			log.Info().Msg("关闭数据库连接中...")
			pool.Close()
		}
	}
}
