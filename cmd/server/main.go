package main // Entry point of the task tracker API

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/database"
	"github.com/iliyamo/task-tracker/internal/handler"
	"github.com/iliyamo/task-tracker/internal/queue"
	"github.com/iliyamo/task-tracker/internal/repository"
	"github.com/iliyamo/task-tracker/internal/router"
	"github.com/iliyamo/task-tracker/internal/service"
	"github.com/iliyamo/task-tracker/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}
	cfg := config.Load()

	users, tasks, closeStore := openStores(cfg)
	defer closeStore()

	events, closeEvents := openPublisher(cfg)
	defer closeEvents()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	issuer := utils.NewSessionIssuer(cfg.JWTSecret, cfg.SessionTTL)
	authSvc := service.NewAuthService(users, issuer, events)
	taskSvc := service.NewTaskService(tasks, events)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
		AllowCredentials: true,
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))

	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(authSvc),
		Tasks:     handler.NewTaskHandler(taskSvc),
		Tokens:    issuer,
		Users:     authSvc,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, db=%s, events=%s)", addr, cfg.Env, cfg.DBDriver, cfg.Broker)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// openStores selects the persistence backend named by DB_DRIVER.
func openStores(cfg config.Config) (service.UserStore, service.TaskStore, func()) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := database.OpenPostgres(cfg.DatabaseURL, cfg.Env == "dev")
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		closer := func() {}
		if sqlDB, err := db.DB(); err == nil {
			closer = func() { _ = sqlDB.Close() }
		}
		return repository.NewGormUserRepo(db, cfg.BcryptCost), repository.NewGormTaskRepo(db), closer
	case config.DriverMemory:
		log.Printf("warning: DB_DRIVER=memory, data is lost on restart")
		store := repository.NewMemoryStore(cfg.BcryptCost)
		return store.Users(), store.Tasks(), func() {}
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("mysql: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("mysql: %v", err)
		}
		return repository.NewUserRepo(db, cfg.BcryptCost), repository.NewTaskRepo(db), func() { _ = db.Close() }
	}
}

// openPublisher selects the event broker named by EVENTS_BROKER.  A NATS
// server that cannot be reached disables events rather than the API.
func openPublisher(cfg config.Config) (queue.Publisher, func()) {
	switch cfg.Broker {
	case config.BrokerRabbitMQ:
		return queue.NewRabbitPublisher(cfg.AMQPURL), func() {}
	case config.BrokerNATS:
		p, err := queue.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			log.Printf("events: nats unavailable, publishing disabled: %v", err)
			return queue.Noop{}, func() {}
		}
		return p, func() { closeQuietly(p) }
	default:
		return queue.Noop{}, func() {}
	}
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		log.Printf("close: %v", err)
	}
}
