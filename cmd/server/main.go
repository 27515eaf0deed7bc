package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	adminhandler "recoup/internal/admin/handler"
	"recoup/internal/audit"
	audithandler "recoup/internal/audit/handler"
	"recoup/internal/cases"
	caseshandler "recoup/internal/cases/handler"
	"recoup/internal/events"
	"recoup/internal/intake"
	intakehandler "recoup/internal/intake/handler"
	"recoup/internal/invoice"
	"recoup/internal/platform/config"
	"recoup/internal/platform/httpserver"
	"recoup/internal/platform/logger"
	"recoup/internal/platform/metrics"
	"recoup/internal/platform/redis"
	"recoup/internal/scoring"
	"recoup/internal/sla"
	slahandler "recoup/internal/sla/handler"
	httptransport "recoup/internal/transport/http"
	txcontext "recoup/pkg/platform/tx"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	var (
		caseStore    cases.Store
		invoiceStore invoice.Store
		auditStore   audit.Store
		runner       txcontext.Runner
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("failed to open postgres", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Error("postgres unreachable", "error", err.Error())
			os.Exit(1)
		}
		caseStore = cases.NewPostgres(db)
		invoiceStore = invoice.NewPostgres(db)
		auditStore = audit.NewPostgres(db)
		runner = txcontext.NewSQLRunner(db)
		log.Info("using postgres storage")
	} else {
		caseStore = cases.NewInMemoryStore()
		invoiceStore = invoice.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		runner = txcontext.NewNopRunner()
		log.Warn("RECOUP_POSTGRES_URL not set, using in-memory storage")
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := events.NewKafkaPublisher(cfg.Kafka, log)
		if err != nil {
			log.Error("failed to create kafka publisher", "error", err.Error())
			os.Exit(1)
		}
		publisher = kafka
	}
	defer publisher.Close()

	auditor := audit.NewPublisher(auditStore)
	caseSvc := cases.NewService(caseStore, auditor,
		cases.WithLogger(log),
		cases.WithMetrics(m),
		cases.WithEvents(publisher),
		cases.WithTxRunner(runner),
	)
	intakeSvc := intake.NewService(invoiceStore, caseSvc, scoring.NewEngine(), log,
		intake.WithTxRunner(runner),
	)

	monitorOpts := []sla.MonitorOption{
		sla.WithMonitorMetrics(m),
		sla.WithInterval(cfg.ScanInterval),
	}
	if redisClient != nil {
		monitorOpts = append(monitorOpts, sla.WithRedis(redisClient))
	}
	monitor := sla.NewMonitor(caseSvc, auditor, log, monitorOpts...)

	router := httptransport.NewRouter(log,
		caseshandler.New(caseSvc, auditor, log),
		intakehandler.New(intakeSvc, invoiceStore, log),
		audithandler.New(auditor, log),
		slahandler.New(monitor, log),
		// Reset order is load-bearing on postgres: cases hold a foreign key
		// into invoices, so invoices must be wiped last.
		adminhandler.New(log, auditor, caseSvc, invoiceStore),
	)
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting recoup server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting sla monitor", "interval", cfg.ScanInterval.String())
		if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err.Error())
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
