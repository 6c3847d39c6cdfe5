// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"qualification-workers/internal/common/aws"
	"qualification-workers/internal/common/camunda"
	"qualification-workers/internal/common/config"
	"qualification-workers/internal/common/database"
	commonhttp "qualification-workers/internal/common/http"
	"qualification-workers/internal/common/logger"
	"qualification-workers/internal/common/observability"
	"qualification-workers/internal/documents"
	"qualification-workers/internal/intake"
	"qualification-workers/internal/inventory"
	"qualification-workers/internal/prospects"
	"qualification-workers/internal/tenants"

	// Qualification Workers (3)
	ec "qualification-workers/internal/workers/qualification/estimate-capacity"
	rdr "qualification-workers/internal/workers/qualification/resolve-document-requirements"
	vp "qualification-workers/internal/workers/qualification/validate-plan"

	// Prospect Workers (3)
	cp "qualification-workers/internal/workers/prospect/create-prospect"
	fp "qualification-workers/internal/workers/prospect/finalize-prospect"
	ri "qualification-workers/internal/workers/prospect/record-interest"

	// Inventory, Documents and Intake Workers (3)
	ai "qualification-workers/internal/workers/intake/advance-intake"
	sd "qualification-workers/internal/workers/documents/store-document"
	mi "qualification-workers/internal/workers/inventory/match-inventory"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress, config.GetDuration(cfg.Camunda.RequestTimeout))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			return err
		}
		return pg.EnsureSchema(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		if err := esClient.Ping(ctx); err != nil {
			return err
		}
		return esClient.EnsureInventoryIndex(ctx, cfg.Database.Elasticsearch.InventoryIndex)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	rdb := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Domain services ---
	tenantStore := tenants.NewStore(pg.DB, rdb.Client, time.Duration(cfg.Intake.TenantCacheTTL)*time.Second, log)
	prospectStore := prospects.NewPostgresStore(pg.DB)
	interests := inventory.NewPostgresInterestWriter(pg.DB)

	roomPolicy, err := inventory.ParseRoomPolicy(cfg.Matching.RoomPolicy)
	if err != nil {
		zapLog.Fatal("invalid room policy", zap.Error(err))
	}
	matcher := inventory.NewMatcher(
		inventory.NewESReader(esClient.Client, cfg.Database.Elasticsearch.InventoryIndex, cfg.Matching.PageSize),
		inventory.Options{RoomPolicy: roomPolicy, Limit: cfg.Matching.MaxResults},
		log,
	)

	custodyCfg := cfg.Integrations.Custody
	custody := documents.NewCustodyClient(
		commonhttp.NewClient(commonhttp.ClientOptions{
			BaseURL:    custodyCfg.BaseURL,
			Timeout:    config.GetDuration(custodyCfg.Timeout),
			RetryCount: 2,
		}),
		documents.NewOAuthTokens(custodyCfg.ClientID, custodyCfg.ClientSecret, custodyCfg.TokenURL, custodyCfg.RefreshToken),
		log,
	)
	signer := documents.NewSigner(cfg.Intake.SignatureTemplate)

	var events intake.EventPublisher
	if cfg.Integrations.AWS.SNS.Enabled {
		sns, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region, cfg.Integrations.AWS.SNS.TopicARN)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		events = sns
		zapLog.Info("SNS event publishing enabled", zap.String("topicArn", cfg.Integrations.AWS.SNS.TopicARN))
	}

	intakeService := intake.NewService(intake.OptionsFromConfig(cfg.Intake), intake.Dependencies{
		Prospects: prospectStore,
		Tenants:   tenantStore,
		Matcher:   matcher,
		Custody:   custody,
		Signer:    signer,
		Sessions:  intake.NewRedisSessionStore(rdb.Client, time.Duration(cfg.Intake.SessionTTL)*time.Second),
		Events:    events,
	}, log)

	zapLog.Info("All domain services initialized")

	// --- Register Workers ---
	var workers []worker.JobWorker
	start := func(taskType string, handler camunda.JobHandler) {
		if !config.IsWorkerEnabled(cfg, taskType) {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		wcfg := config.GetWorkerConfig(cfg, taskType)
		workers = append(workers, camunda.Open(zeebe.GetClient(), taskType, wcfg, camunda.Instrument(taskType, handler, obs), log))
	}
	timeout := func(taskType string) time.Duration {
		return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
	}

	// --- 1. Qualification Workers (3) ---
	start(ec.TaskType, ec.NewHandler(&ec.Config{Timeout: timeout(ec.TaskType)}, nil, log).Handle)
	start(rdr.TaskType, rdr.NewHandler(&rdr.Config{Timeout: timeout(rdr.TaskType)}, tenantStore, log).Handle)
	start(vp.TaskType, vp.NewHandler(&vp.Config{Timeout: timeout(vp.TaskType)}, tenantStore, log).Handle)

	// --- 2. Prospect Workers (3) ---
	start(cp.TaskType, cp.NewHandler(&cp.Config{Timeout: timeout(cp.TaskType)}, prospectStore, log).Handle)
	start(fp.TaskType, fp.NewHandler(&fp.Config{Timeout: timeout(fp.TaskType)}, prospectStore, events, log).Handle)
	start(ri.TaskType, ri.NewHandler(&ri.Config{Timeout: timeout(ri.TaskType)}, interests, log).Handle)

	// --- 3. Inventory, Documents and Intake Workers (3) ---
	start(mi.TaskType, mi.NewHandler(&mi.Config{Timeout: timeout(mi.TaskType)}, tenantStore, matcher, log).Handle)
	start(sd.TaskType, sd.NewHandler(&sd.Config{Timeout: timeout(sd.TaskType)}, custody, signer, log).Handle)
	start(ai.TaskType, ai.NewHandler(&ai.Config{Timeout: timeout(ai.TaskType)}, intakeService, log).Handle)

	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", readyHandler(2*time.Second,
		readinessCheck{name: "zeebe", check: zeebe.HealthCheck},
		readinessCheck{name: "postgres", check: pg.Ping},
		readinessCheck{name: "redis", check: rdb.Ping},
	))
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.App.HTTPAddress, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.App.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	obs.Shutdown(shutdownCtx)

	zapLog.Info("Worker manager stopped gracefully")
}

type readinessCheck struct {
	name  string
	check func(context.Context) error
}

// readyHandler reports ready only when every check passes within timeout.
func readyHandler(timeout time.Duration, checks ...readinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		for _, c := range checks {
			if err := c.check(ctx); err != nil {
				writeStatus(w, http.StatusServiceUnavailable, c.name+" unavailable")
				return
			}
		}
		writeStatus(w, http.StatusOK, "ready")
	}
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
