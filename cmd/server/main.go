package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/makeasinger/musicgen/internal/auth"
	"github.com/makeasinger/musicgen/internal/client"
	"github.com/makeasinger/musicgen/internal/config"
	"github.com/makeasinger/musicgen/internal/feature"
	"github.com/makeasinger/musicgen/internal/handler"
	"github.com/makeasinger/musicgen/internal/logging"
	"github.com/makeasinger/musicgen/internal/middleware"
	"github.com/makeasinger/musicgen/internal/service"
	"github.com/makeasinger/musicgen/internal/store"
	ws "github.com/makeasinger/musicgen/internal/websocket"
	"github.com/makeasinger/musicgen/internal/worker"
)

// @title          Music Generation API
// @version        1.0
// @description    Task proxy and background job API for AI music generation.
// @host           localhost:8000
// @BasePath       /
// @schemes        http https
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
// @description    Enter your bearer token in the format **Bearer &lt;token&gt;**
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}
	logger := logging.New(cfg.Server.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", "err", err)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "addr", cfg.Redis.Addr, "err", err)
	}

	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	validate := feature.NewValidator()
	hub := ws.NewHub(logger)

	sunoClient := client.NewSunoClient(&cfg.Suno, logger)
	if !sunoClient.IsConfigured() {
		logger.Warn("SUNO_API_KEY not set, upstream calls will fail")
	}

	taskStore := store.NewRedisStore(redisClient, cfg.Store.TTL)

	var objectStore client.ObjectStore
	if cfg.R2.Archive {
		r2Client, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			logger.Warn("R2 client not initialized, media will not be archived", "err", err)
		} else {
			objectStore = r2Client
		}
	}

	verifier := buildVerifier(ctx, cfg, logger)

	var authenticate fiber.Handler
	if cfg.Gateway.Enabled {
		logger.Info("gateway mode enabled, using header-based auth")
		authenticate = middleware.GatewayAuthMiddleware(cfg.Gateway.Secret)
	} else {
		authenticate = middleware.NewAuthMiddleware(verifier).Authenticate()
	}

	jobService := service.NewJobService(redisClient, asynqClient, validate)
	pollOpts := cfg.Poll.Options()
	taskWorker := worker.NewTaskWorker(
		jobService,
		service.NewArchiveService(objectStore, logger),
		hub,
		feature.Config{
			Backend:   sunoClient,
			Store:     taskStore,
			Poll:      &pollOpts,
			Validator: validate,
			Logger:    logger,
		},
		logger,
	)

	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		BodyLimit:             1 * 1024 * 1024,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
	}
	app.Use(fiberlogger.New(fiberlogger.Config{Format: logFormat}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"suno":  sunoClient.IsConfigured(),
				"redis": redisClient.Ping(c.UserContext()).Err() == nil,
				"r2":    objectStore != nil,
				"auth":  cfg.Gateway.Enabled || len(verifier) > 0,
			},
		})
	})

	routes := &handler.Routes{
		Authenticate: authenticate,
		RateLimiter:  middleware.NewRateLimiter(redisClient, logger),
		Limits:       cfg.RateLimit,
		Auth:         handler.NewAuthHandler(verifier),
		Suno:         handler.NewSunoHandler(sunoClient, validate),
		Tasks:        handler.NewTaskHandler(taskStore),
		Jobs:         handler.NewJobHandler(jobService),
		Hub:          hub,
	}
	routes.Mount(app)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			service.QueueTasks: 1,
		},
		LogLevel:        asynqLogLevel(cfg.Server.LogLevel),
		ShutdownTimeout: 10 * time.Second,
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypePoll, taskWorker.ProcessTask)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		if err := srv.Start(mux); err != nil {
			logger.Error("asynq worker not started, jobs will stay queued", "err", err)
			<-ctx.Done()
			return nil
		}
		<-ctx.Done()
		srv.Shutdown()
		return nil
	})

	g.Go(func() error {
		addr := ":" + cfg.Server.Port
		logger.Info("server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildVerifier(ctx context.Context, cfg *config.Config, logger *log.Logger) auth.Chain {
	var chain auth.Chain
	if cfg.OIDC.Issuer != "" || cfg.OIDC.Domain != "" {
		v, err := auth.NewJWKSVerifier(ctx, &cfg.OIDC)
		if err != nil {
			logger.Warn("JWKS verifier not initialized", "err", err)
		} else {
			chain = append(chain, v)
		}
	}
	if hmac := auth.NewHMACVerifier(cfg.JWT.Secret); hmac != nil {
		chain = append(chain, hmac)
	}
	if len(chain) == 0 && !cfg.Gateway.Enabled {
		logger.Warn("no token verifier configured, API routes will reject every request")
	}
	return chain
}

func asynqLogLevel(level string) asynq.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return asynq.DebugLevel
	case "warn":
		return asynq.WarnLevel
	case "error":
		return asynq.ErrorLevel
	}
	return asynq.InfoLevel
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
