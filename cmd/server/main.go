// Command server runs the passport application tracking API.
//
// main wires dependencies and owns process lifecycle; business logic lives
// in the internal service packages.
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

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	adminservice "passtrack/internal/admin/service"
	identityservice "passtrack/internal/identity/service"
	"passtrack/internal/identity/store/revocation"
	userstore "passtrack/internal/identity/store/user"
	"passtrack/internal/jwttoken"
	lifecycleservice "passtrack/internal/lifecycle/service"
	applicationstore "passtrack/internal/lifecycle/store/application"
	approvalstore "passtrack/internal/lifecycle/store/approval"
	photosignstore "passtrack/internal/lifecycle/store/photosign"
	processingstore "passtrack/internal/lifecycle/store/processing"
	tokenstore "passtrack/internal/lifecycle/store/token"
	verificationstore "passtrack/internal/lifecycle/store/verification"
	"passtrack/internal/platform/config"
	"passtrack/internal/platform/httpserver"
	"passtrack/internal/platform/logger"
	platformredis "passtrack/internal/platform/redis"
	"passtrack/pkg/platform/audit/publisher"
	auditpostgres "passtrack/pkg/platform/audit/store/postgres"
	txrunner "passtrack/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		log.Error("open postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		log.Error("postgres unreachable", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	var trl identityservice.TokenRevoker
	var revocations revocationChecker
	if redisClient != nil {
		store := revocation.NewRedisTRL(redisClient.Client)
		trl, revocations = store, store
		defer redisClient.Close()
	} else {
		log.Warn("redis not configured, using in-memory token revocation list")
		store := revocation.NewMemoryTRL()
		trl, revocations = store, store
	}

	var tracePublisher *publisher.Kafka
	if len(cfg.Kafka.Brokers) > 0 {
		tracePublisher, err = publisher.NewKafka(ctx, cfg.Kafka.Brokers, cfg.Kafka.TraceTopic, log)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("kafka not configured, request traces disabled")
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "passtrack", "passtrack-api")
	tx := txrunner.NewSQLRunner(db)
	auditor := auditpostgres.New(db)

	users := userstore.NewPostgres(db)
	apps := applicationstore.NewPostgres(db)
	tokens := tokenstore.NewPostgres(db)
	photoSigns := photosignstore.NewPostgres(db)
	verifications := verificationstore.NewPostgres(db)
	processings := processingstore.NewPostgres(db)
	approvals := approvalstore.NewPostgres(db)

	identitySvc := identityservice.New(users, auditor, jwtService, trl, tx, cfg.TokenTTL, log)
	lifecycleSvc := lifecycleservice.New(apps, tokens, photoSigns, verifications, processings, approvals, auditor, tx, log)
	adminSvc := adminservice.New(users, apps, tokens, photoSigns, verifications, processings, approvals, auditor, tx, log)

	router := newRouter(routerDeps{
		identity:  identitySvc,
		lifecycle: lifecycleSvc,
		admin:     adminSvc,
		jwt:       jwttoken.NewJWTServiceAdapter(jwtService),
		revoked:   revocations,
		db:        db,
		redis:     redisClient,
		tracer:    tracePublisher,
		logger:    log,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if tracePublisher != nil {
			if err := tracePublisher.Close(shutdownCtx); err != nil {
				log.Warn("trace publisher close", "error", err)
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
