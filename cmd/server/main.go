package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vendora/vendora-edge/internal/config"
	"github.com/vendora/vendora-edge/internal/handlers"
	"github.com/vendora/vendora-edge/internal/middleware"
	"github.com/vendora/vendora-edge/internal/repository"
	"github.com/vendora/vendora-edge/internal/service"
	"github.com/vendora/vendora-edge/internal/session"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	logger.SetLevel(cfg.Log.Level)

	backendService, err := service.NewBackendService(&cfg.Backend, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize backend client")
	}

	auditService, err := initAudit(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize audit trail")
	}

	cookies := session.NewCookieStore(cfg.Cookie.Secure)
	tokenService := service.NewTokenService()

	authHandlers := handlers.NewAuthHandlers(backendService, tokenService, cookies, auditService, logger)
	proxyHandlers := handlers.NewProxyHandlers(backendService, cookies, logger)
	pageHandlers, err := handlers.NewPageHandlers(cfg.Pages.Upstream, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize page upstream")
	}

	limiter, closeLimiter := initLimiter(cfg, logger)
	defer closeLimiter()

	router := handlers.NewRouter(handlers.RouterDependencies{
		AuthHandlers:  authHandlers,
		ProxyHandlers: proxyHandlers,
		PageHandlers:  pageHandlers,
		LoginLimit:    middleware.RateLimit(limiter, middleware.LoginKey, cfg.RateLimit.LoginLimit, cfg.RateLimit.LoginWindow),
	})

	clientIP, err := middleware.NewClientIPResolver(cfg.Server.TrustedProxies)
	if err != nil {
		logger.WithError(err).Fatal("Invalid TRUSTED_PROXIES")
	}

	localeMiddleware := middleware.NewLocaleMiddleware(&cfg.Locale, logger, "/health")
	handler := middleware.Chain(router,
		middleware.RequestID,
		clientIP.Handle,
		middleware.LoggingMiddleware(logger),
		localeMiddleware.Handle,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":            cfg.Server.Port,
			"backend":         cfg.Backend.InternalURL,
			"public_api_base": cfg.Backend.PublicURL,
			"locales":         cfg.Locale.Locales,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

// initLimiter prefers Redis so limits hold across instances.
func initLimiter(cfg *config.Config, logger *logrus.Logger) (middleware.Limiter, func()) {
	if cfg.Redis.Endpoint == "" {
		logger.Info("Redis not configured, using in-memory login rate limiter")
		return middleware.NewRateLimiter(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Endpoint,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unreachable at startup, limiter will fail open until it recovers")
	}

	logger.WithField("endpoint", cfg.Redis.Endpoint).Info("Redis login rate limiter initialized")
	return service.NewRedisLimiter(client, logger), func() {
		if err := client.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close Redis client")
		}
	}
}

func initAudit(cfg *config.Config, logger *logrus.Logger) (*service.AuditService, error) {
	if cfg.Audit.TableName == "" {
		logger.Info("AUDIT_TABLE_NAME not set, session audit trail disabled")
		return nil, nil
	}

	dynamoClient, err := initDynamoDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	repo := repository.NewAuditRepository(dynamoClient, cfg.Audit.TableName, logger)
	return service.NewAuditService(repo, cfg.Audit.Retention, logger), nil
}

func initDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.DynamoDB.Endpoint,
						SigningRegion: cfg.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(cfg.DynamoDB.Region))
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}
