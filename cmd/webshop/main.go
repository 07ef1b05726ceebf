package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Cheertaboi/nexu-webshop/internal/api"
	"github.com/Cheertaboi/nexu-webshop/internal/app"
	"github.com/Cheertaboi/nexu-webshop/internal/auth"
	"github.com/Cheertaboi/nexu-webshop/internal/config"
	"github.com/Cheertaboi/nexu-webshop/internal/email"
	"github.com/Cheertaboi/nexu-webshop/internal/payment"
	"github.com/Cheertaboi/nexu-webshop/internal/repository/memory"
	"github.com/Cheertaboi/nexu-webshop/internal/service"
	"github.com/Cheertaboi/nexu-webshop/internal/telemetry"
	"github.com/Cheertaboi/nexu-webshop/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint, "nexu-webshop")
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	storage, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer closeStorage()

	var gateway payment.Gateway = payment.Unconfigured{}
	if cfg.PaymentsEnabled() {
		gateway = payment.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret, nil)
	} else {
		log.Println("payments: stripe keys not set, card checkout disabled")
	}

	var mailer email.Sender = email.LogSender{}
	if cfg.SMTPEnabled() {
		mailer = email.NewSMTPSender(cfg.SMTP)
	}

	deps, err := app.Build(storage, app.Options{
		Gateway:          gateway,
		Mailer:           mailer,
		Currency:         cfg.Currency,
		MinorFactor:      cfg.CurrencyMinorFactor,
		StaleOrderAfter:  cfg.StaleOrderAfter,
		CleanupWorkers:   cfg.CleanupWorkers,
		SettingsCacheTTL: cfg.SettingsCacheTTL,
		CouponLimit:      api.Limit{Requests: cfg.CouponRate.Limit, Window: cfg.CouponRate.Window},
		CheckoutLimit:    api.Limit{Requests: cfg.CheckoutRate.Limit, Window: cfg.CheckoutRate.Window},
	})
	if err != nil {
		log.Fatalf("wire services: %v", err)
	}

	if cfg.JWTSecret != "" {
		verifier, err := auth.NewVerifier(cfg.JWTSecret)
		if err != nil {
			log.Fatalf("auth: %v", err)
		}
		deps.Verifier = verifier
	} else {
		log.Println("auth: NEXU_JWT_SECRET not set, bearer tokens will be rejected")
	}

	go runCleanup(ctx, deps.Orders, deps.Alerts, cfg.CleanupInterval)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Printf("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	log.Printf("starting nexu-webshop on %s storage=%s", cfg.HTTPAddr, cfg.Storage)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("listen: %s\n", err)
	}

	<-idleConnsClosed
	log.Println("server stopped")
}

func openStorage(ctx context.Context, cfg config.Config) (app.Storage, func(), error) {
	if cfg.Storage == config.StorageMemory {
		log.Println("storage: using in-memory store, data is lost on exit")
		return app.MemoryStorage(memory.New()), func() {}, nil
	}

	conn, err := db.NewPostgresConnection(cfg.Postgres)
	if err != nil {
		return app.Storage{}, nil, err
	}
	if err := db.Migrate(ctx, conn); err != nil {
		_ = conn.Close()
		return app.Storage{}, nil, err
	}
	return app.PostgresStorage(conn), func() { closeDB(conn) }, nil
}

func closeDB(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		log.Printf("db close: %v", err)
	}
}

// runCleanup cancels stale pending orders and checks price alerts on open
// sales on every tick until ctx ends.
func runCleanup(ctx context.Context, orders *service.OrderService, alerts *service.PriceAlertService, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := alerts.EvaluateSales(ctx); err != nil {
				log.Printf("price-alerts: %v", err)
			} else if n > 0 {
				log.Printf("price-alerts: triggered=%d", n)
			}
			res, err := orders.ExpireStale(ctx)
			if err != nil {
				log.Printf("cleanup: %v", err)
				continue
			}
			if res.Cancelled > 0 || res.Failed > 0 {
				log.Printf("cleanup: scanned=%d cancelled=%d skipped=%d failed=%d",
					res.Scanned, res.Cancelled, res.Skipped, res.Failed)
			}
		}
	}
}
