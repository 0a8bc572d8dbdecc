package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"checkout-service/internal/catalog"
	"checkout-service/internal/config"
	httpapi "checkout-service/internal/controllers/http"
	"checkout-service/internal/infra"
	"checkout-service/internal/infra/kafka"
	mmysql "checkout-service/internal/infra/mysql"
	"checkout-service/internal/infra/rabbitmq"
	"checkout-service/internal/metrics"
	"checkout-service/internal/repository"
	"checkout-service/internal/repository/memory"
	mysqlrepo "checkout-service/internal/repository/mysql"
	redisrepo "checkout-service/internal/repository/redis"
	"checkout-service/internal/services"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	repo, closeRepo, err := newOrderRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	pub, closePub, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	defer closePub()

	s := services.NewOrderService(repo, cat, newGateway(cfg), pub, services.Options{
		Currency:       cfg.Currency,
		KeySecret:      cfg.RazorpayKeySecret,
		WebhookSecret:  cfg.RazorpayWebhookSecret,
		GatewayTimeout: cfg.GatewayTimeout,
		StoreName:      cfg.StoreName,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewServerMetrics(reg, "api")
	s.SetMetrics(m)

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.NewHandler(s, cfg.WebhookEnabled()), m)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting checkout service on port %s (gateway=%s store=%s events=%s)", cfg.Port, cfg.GatewayMode, cfg.OrderStore, cfg.EventsBroker)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server run: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Println("Shutting down checkout service")
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	s.Drain()
	return err
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

func newGateway(cfg *config.Config) infra.GatewayClientInterface {
	if cfg.GatewayMode == config.GatewaySandbox {
		log.Println("Using sandbox payment gateway; orders are not sent to Razorpay")
		return infra.NewSandboxGateway()
	}
	return infra.NewRazorpayClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.GatewayTimeout)
}

func newOrderRepository(ctx context.Context, cfg *config.Config) (repository.OrderRepository, func(), error) {
	switch cfg.OrderStore {
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			DB:           cfg.RedisDB,
			PoolSize:     50,
			MinIdleConns: 5,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("redis: ping: %w", err)
		}
		return redisrepo.NewOrderRepository(rdb), func() { rdb.Close() }, nil
	case config.StoreMySQL:
		db, err := mmysql.Open(mysqlConfig(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("db: connect: %w", err)
		}
		if err := mmysql.Migrate(db); err != nil {
			return nil, nil, fmt.Errorf("db: migrate: %w", err)
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
		return mysqlrepo.NewOrderRepository(db), closeDB, nil
	default:
		log.Println("Using in-memory order store; orders are lost on restart")
		return memory.NewOrderRepository(), func() {}, nil
	}
}

func newPublisher(cfg *config.Config) (infra.PublisherInterface, func(), error) {
	switch cfg.EventsBroker {
	case config.BrokerRabbitMQ:
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init publisher: %w", err)
		}
		return p, func() { p.Close() }, nil
	case config.BrokerKafka:
		p, err := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { p.Close() }, nil
	default:
		return infra.NoopPublisher{}, func() {}, nil
	}
}

func mysqlConfig(cfg *config.Config) mmysql.Config {
	return mmysql.Config{
		User:     cfg.MySQLUser,
		Password: cfg.MySQLPassword,
		Host:     cfg.MySQLHost,
		Port:     cfg.MySQLPort,
		Database: cfg.MySQLDatabase,
	}
}
