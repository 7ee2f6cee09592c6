package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	productapp "github.com/muhammadheryan/catalog-api/application/product"
	roleapp "github.com/muhammadheryan/catalog-api/application/role"
	uploadapp "github.com/muhammadheryan/catalog-api/application/upload"
	userapp "github.com/muhammadheryan/catalog-api/application/user"
	"github.com/muhammadheryan/catalog-api/cmd/config"
	redisclient "github.com/muhammadheryan/catalog-api/cmd/redis"
	_ "github.com/muhammadheryan/catalog-api/docs"
	"github.com/muhammadheryan/catalog-api/migrations"
	productRepo "github.com/muhammadheryan/catalog-api/repository/product"
	redisRepo "github.com/muhammadheryan/catalog-api/repository/redis"
	roleRepo "github.com/muhammadheryan/catalog-api/repository/role"
	"github.com/muhammadheryan/catalog-api/repository/storage"
	txRepo "github.com/muhammadheryan/catalog-api/repository/tx"
	userRepo "github.com/muhammadheryan/catalog-api/repository/user"
	"github.com/muhammadheryan/catalog-api/thirdparty/rabbitmq"
	"github.com/muhammadheryan/catalog-api/transport"
	"github.com/muhammadheryan/catalog-api/utils/logger"
	"github.com/muhammadheryan/catalog-api/utils/token"
	validatorx "github.com/muhammadheryan/catalog-api/utils/validator"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// @title Catalog API
// @version 1.0
// @description Product catalog REST API with JWT authentication
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		// fallback to standard log if zap init fails
		panic(err)
	}
	defer logger.Close()

	validatorx.Init()
	logger.Info("Starting server", zap.String("env", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := sqlx.Connect("mysql", cfg.GetDSN())
	if err != nil {
		logger.Fatal("err connect db", zap.Error(err))
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(ctx, db.DB); err != nil {
			logger.Fatal("err migrate db", zap.Error(err))
		}
	}

	// Redis is optional: a nil client disables cache, denylist and rate limit
	redisClient, err := redisclient.New(cfg.Redis)
	if err != nil {
		logger.Fatal("err connect redis", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher := rabbitmq.NewNoopPublisher()
	if cfg.RabbitMQ.Enabled {
		publisher, err = rabbitmq.NewPublisher(cfg.RabbitMQ.Host, cfg.RabbitMQ.Port, cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.Exchange)
		if err != nil {
			logger.Fatal("err connect rabbitmq", zap.Error(err))
		}
	}
	defer publisher.Close()

	imageStorage, err := storage.NewLocalStorage(cfg.Upload.Dir, cfg.Upload.URLPrefix)
	if err != nil {
		logger.Fatal("err init upload storage", zap.Error(err))
	}

	// Initialize repositories
	UserRepo := userRepo.NewUserRepository(db)
	RoleRepo := roleRepo.NewRoleRepository(db)
	ProductRepo := productRepo.NewProductRepository(db)
	TxRepo := txRepo.NewTxRepository(db)
	RedisRepo := redisRepo.NewRepository(redisClient)

	// Initialize application layers
	RoleApp := roleapp.NewRoleApp(RoleRepo)
	UserApp := userapp.NewUserApp(cfg, token.NewService(cfg.Auth), UserRepo, RoleRepo, RedisRepo)
	ProductApp := productapp.NewProductApp(cfg, ProductRepo, TxRepo, RedisRepo, imageStorage, publisher)
	UploadApp := uploadapp.NewUploadApp(imageStorage)

	if err := RoleApp.Seed(ctx); err != nil {
		logger.Fatal("err seed roles", zap.Error(err))
	}
	if err := UserApp.EnsureAdmin(ctx); err != nil {
		logger.Fatal("err ensure admin", zap.Error(err))
	}

	httpTransport := transport.NewTransport(&transport.RestHandler{
		Config:     cfg,
		UserApp:    UserApp,
		ProductApp: ProductApp,
		UploadApp:  UploadApp,
		RedisRepo:  RedisRepo,
		DB:         db,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      httpTransport,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server running", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("failed server", zap.Error(err))
	}
}
