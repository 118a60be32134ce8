package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/actions"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

func newServeCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger())
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	products := catalog.NewPostgresRepository(pool)
	var browse catalog.Reader = products
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		browse = catalog.NewCachedReader(products, client, cfg.CatalogCacheTTL, logger)
		logger.Printf("catalog cache enabled addr=%s ttl=%s", cfg.RedisAddr, cfg.CatalogCacheTTL)
	}

	// Cart and checkout read live stock, never the cache.
	carts := cart.NewService(cart.NewPostgresRepository(pool), products, logger)
	orderRepo := order.NewPostgresRepository(pool)
	orders := order.NewService(orderRepo, carts, events.NewFactory(cfg.Producer), logger)
	users := identity.NewUserRepository(pool)

	var conn *amqp.Connection
	if cfg.PublishEvents || cfg.ConsumeStatusEvents {
		conn, err = events.Dial(cfg.RabbitURL)
		if err != nil {
			return err
		}
		defer conn.Close()
	}

	var amqpPub *events.AMQPPublisher
	if cfg.PublishEvents {
		amqpPub, err = events.NewAMQPPublisher(conn)
		if err != nil {
			return fmt.Errorf("create publisher: %w", err)
		}
		defer func() {
			if err := amqpPub.Close(); err != nil {
				logger.Printf("publisher close error: %v", err)
			}
		}()
	}

	// Deferred after the broker closers so it runs before them.
	bg := newBackground(ctx)
	defer bg.stop()

	if amqpPub != nil {
		pub := events.NewBreakerPublisher(amqpPub, events.BreakerSettings{}, logger)
		relay := events.NewOutboxRelay(pool, pub, cfg.OutboxPollInterval, logger)
		bg.run(relay.Run)
	}

	if cfg.ConsumeStatusEvents {
		handler := events.OrderStatusChangedHandler(orderRepo, events.NewCheckpoints(pool), logger, "")
		done, err := events.StartConsumer(bg.ctx, conn, events.OrderStatusChangedRoutingKey, handler, logger)
		if err != nil {
			return fmt.Errorf("start status consumer: %w", err)
		}
		bg.await(done)
	}

	a := actions.New(identity.ContextProvider{}, carts, orders, users, logger)
	router := httpapi.NewRouter(httpapi.NewHandler(a, browse, logger), cfg.RequestTimeout, cfg.AllowOrigins)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("storefront listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown error: %v", err)
	}
	bg.stop()
	logger.Printf("background workers stopped")
	return nil
}
