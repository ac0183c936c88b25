package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"callguard/internal/config"
	"callguard/internal/events"
	"callguard/internal/infra/provider"
	workerPkg "callguard/internal/infra/worker"
	"callguard/internal/observability/logging"
	"callguard/internal/observability/slo"
	"callguard/internal/resilience/circuitbreaker"
	"callguard/internal/resilience/health"
	"callguard/internal/resilience/retry"
	callUC "callguard/internal/usecase/call"
	pkgconfig "callguard/pkg/config"
)

// shutdownGrace bounds how long shutdown waits for an in-flight batch.
const shutdownGrace = 30 * time.Second

func main() {
	logger := initLogger()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Int("batch_parallelism", workerConfig.BatchParallelism),
		slog.Duration("call_timeout", workerConfig.CallTimeout),
		slog.Int("health_port", workerConfig.HealthPort))

	// Resilience defaults are strict: a broken value here would change
	// retry and breaker behavior silently, so the worker refuses to start.
	resilienceConfig, err := config.LoadResilienceConfig()
	if err != nil {
		logger.Error("failed to load resilience configuration", slog.Any("error", err))
		os.Exit(1)
	}

	servicesConfig, err := config.LoadServicesConfig()
	if err != nil {
		logger.Error("failed to load services configuration", slog.Any("error", err))
		os.Exit(1)
	}

	sink := setupEventSink(logger)
	registry := setupRegistry(logger, resilienceConfig, servicesConfig, sink)
	caller := setupCaller(logger, registry, resilienceConfig, servicesConfig, sink)
	llm, speech := setupProviders(logger, servicesConfig)

	// Health monitor probes unhealthy services and resets their breakers
	// once the dependency answers again.
	monitor := health.NewMonitor(resilienceConfig.HealthConfig(), registry, logger)
	monitor.Register(callUC.ServiceLLM, llm.Probe)
	monitor.Register(callUC.ServiceSpeech, speech.Probe)
	monitor.OnRecovery(callUC.RecoveryRecorder(sink))
	monitor.Start()

	svc := callUC.NewService(
		caller,
		registry,
		llm,
		speech,
		monitor,
		logger,
		workerConfig.BatchParallelism,
		workerConfig.CallTimeout,
	)

	// Start metrics HTTP server
	startMetricsServer(ctx, logger, svc)

	// Start health check server
	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	startCronWorker(logger, svc, workerConfig, workerMetrics, healthServer)

	// startCronWorker returns once a shutdown signal arrived and the
	// running batch (if any) finished or timed out.
	logger.Info("shutting down worker")
	healthServer.SetReady(false)
	monitor.Stop()
	cancel()

	// Let the HTTP servers drain before the process exits.
	time.Sleep(time.Second)
	logger.Info("worker stopped")
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// setupEventSink builds the resilience event sink: structured JSON
// events, rate capped so a flapping dependency cannot flood the log
// stream.
func setupEventSink(logger *slog.Logger) events.Sink {
	sinkConfig, err := pkgconfig.LoadEventSinkConfig()
	if err != nil {
		logger.Error("failed to load event sink configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("event sink initialized",
		slog.Float64("events_per_second", sinkConfig.EventsPerSecond),
		slog.Int("burst", sinkConfig.Burst))

	return events.NewRateLimitedSink(events.NewLogSink(logger), sinkConfig.EventsPerSecond, sinkConfig.Burst)
}

// setupRegistry creates the breaker registry with Prometheus state
// metrics, applies per-service overrides from the services config file,
// and forwards state transitions to the event sink.
func setupRegistry(logger *slog.Logger, resilienceConfig *config.ResilienceConfig, servicesConfig *config.ServicesConfig, sink events.Sink) *circuitbreaker.Registry {
	defaults := resilienceConfig.BreakerConfig()

	registry := circuitbreaker.NewRegistryWithRecorder(defaults, logger, circuitbreaker.NewPrometheusStateRecorder())
	for name := range servicesConfig.Services {
		registry.SetOverride(name, servicesConfig.BreakerConfigFor(name, defaults))
		logger.Info("circuit breaker override applied", slog.String("service", name))
	}
	registry.OnTransition(callUC.TransitionRecorder(sink))

	return registry
}

// setupCaller wires the guarded invoker with per-stage retry policies.
// Each stage starts from its preset and the services config file can
// override individual fields.
func setupCaller(logger *slog.Logger, registry *circuitbreaker.Registry, resilienceConfig *config.ResilienceConfig, servicesConfig *config.ServicesConfig, sink events.Sink) *callUC.Caller {
	caller := callUC.NewCaller(registry, retry.NewHandler(logger), sink, logger)
	caller.SetDefaultPolicy(resilienceConfig.RetryPolicy())
	caller.SetPolicy(callUC.ServiceLLM, servicesConfig.RetryPolicyFor(callUC.ServiceLLM, retry.LLMPolicy()))
	caller.SetPolicy(callUC.ServiceSpeech, servicesConfig.RetryPolicyFor(callUC.ServiceSpeech, retry.SpeechSynthesisPolicy()))
	return caller
}

// setupProviders builds the simulated downstream services, applying
// overrides from the services config file on top of the environment.
func setupProviders(logger *slog.Logger, servicesConfig *config.ServicesConfig) (*provider.LLM, *provider.Speech) {
	llmConfig := provider.LoadLLMConfig()
	if v := servicesConfig.Providers.LLM.Latency; v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			llmConfig.Latency = d
		}
	}
	if v := servicesConfig.Providers.LLM.RequestsPerSecond; v > 0 {
		llmConfig.RequestsPerSecond = v
	}
	if v := servicesConfig.Providers.LLM.Burst; v > 0 {
		llmConfig.Burst = v
	}

	speechConfig := provider.LoadSpeechConfig()
	if v := servicesConfig.Providers.Speech.Latency; v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			speechConfig.Latency = d
		}
	}
	if v := servicesConfig.Providers.Speech.FailFirst; v > 0 {
		speechConfig.FailFirst = v
	}

	llm := provider.NewLLMWithConfig(llmConfig, provider.NewPrometheusProviderMetrics())
	speech := provider.NewSpeechWithConfig(speechConfig, provider.NewPrometheusProviderMetrics())

	logger.Info("simulated providers initialized",
		slog.Duration("llm_latency", llmConfig.Latency),
		slog.Float64("llm_requests_per_second", llmConfig.RequestsPerSecond),
		slog.Duration("speech_latency", speechConfig.Latency),
		slog.Int("speech_fail_first", speechConfig.FailFirst))

	return llm, speech
}

// startCronWorker starts the cron scheduler and blocks until a shutdown
// signal arrives.
func startCronWorker(logger *slog.Logger, svc callUC.Service, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	// Load timezone
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.CronSchedule, func() {
		runCallJob(logger, svc, cfg, metrics)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	// Mark as ready after cron is set up
	healthServer.SetReady(true)
	logger.Info("worker marked as ready")

	logger.Info("worker started", slog.String("schedule", cfg.CronSchedule), slog.String("timezone", cfg.Timezone))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")

	// Stop scheduling and wait for a running batch to finish.
	select {
	case <-c.Stop().Done():
	case <-time.After(shutdownGrace):
		logger.Warn("shutdown timed out waiting for the running batch")
	}
}

// runCallJob executes a single outbound batch with timeout and error handling.
func runCallJob(logger *slog.Logger, svc callUC.Service, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) {
	startTime := time.Now()
	metrics.RecordJobRun("started")
	logger.Info("call batch started")

	contacts, err := workerPkg.LoadContacts(cfg.CallsFile)
	if err != nil {
		logger.Error("failed to load call batch", slog.Any("error", err), slog.String("calls_file", cfg.CallsFile))
		metrics.RecordJobRun("failure")
		metrics.RecordJobDuration(time.Since(startTime).Seconds())
		return
	}

	// Worst case every call uses its full budget back-to-back when
	// parallelism is 1, so that is the batch deadline.
	batchBudget := cfg.CallTimeout * time.Duration(len(contacts))
	ctx, cancel := context.WithTimeout(context.Background(), batchBudget)
	defer cancel()

	stats, err := svc.ProcessBatch(ctx, contacts)
	if err != nil {
		logger.Error("call batch failed", slog.Any("error", err))
		metrics.RecordJobRun("failure")
		metrics.RecordJobDuration(time.Since(startTime).Seconds())
		return
	}

	// Record metrics
	metrics.RecordJobRun("success")
	metrics.RecordJobDuration(time.Since(startTime).Seconds())
	metrics.RecordContactsCalled(stats.Contacts)
	metrics.RecordLastSuccess()
	recordBatchSLOs(stats)

	logger.Info("call batch completed",
		slog.Int("contacts", stats.Contacts),
		slog.Int64("completed", stats.Completed),
		slog.Int64("degraded", stats.Degraded),
		slog.Int64("failed", stats.Failed),
		slog.Int64("rejected", stats.Rejected),
		slog.Duration("duration", stats.Duration),
	)
}

// recordBatchSLOs publishes the per-batch SLO gauges from the batch outcome.
func recordBatchSLOs(stats *callUC.BatchStats) {
	if stats == nil || stats.Contacts == 0 {
		return
	}
	total := float64(stats.Contacts)
	slo.UpdateReachRatio(float64(stats.Completed+stats.Degraded) / total)
	slo.UpdateDegradedRatio(float64(stats.Degraded) / total)
	slo.UpdateFailureRatio(float64(stats.Failed+stats.Rejected) / total)
	slo.UpdateBatchDuration(stats.Duration.Seconds())
}
