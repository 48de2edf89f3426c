package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-converter/internal/delivery"
	"media-converter/internal/fetcher"
	"media-converter/internal/filesystem"
	"media-converter/internal/handlers"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/memory"
	"media-converter/internal/metrics"
	"media-converter/internal/middleware"
	"media-converter/internal/orchestrator"
	"media-converter/internal/progress"
	"media-converter/internal/startup"
	"media-converter/internal/transcoder"
	"media-converter/internal/workers"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout   = 30 * time.Second
	collectorInterval = time.Minute
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.InitializeMetrics(orchestrator.FormatLabels())
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	trans := transcoder.New(config.FFmpegPath)

	tracker := setupTracking(config)
	observers := []progress.Observer{progress.Log()}
	var jobs handlers.JobStore
	if tracker != nil {
		observers = append(observers, tracker)
		jobs = tracker
	}

	store, err := setupStoreSinks(config)
	if err != nil {
		startup.LogFatal("Delivery setup error: %v", err)
	}

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	orch := orchestrator.New(orchestrator.Options{
		Fetcher:          fetcher.NewHTTPFetcher(config.FetchTimeout, mediatypes.MaxInputSize),
		Runner:           trans,
		WorkDir:          config.WorkDir,
		Limiter:          memory.NewGate(monitor, workers.NewLimiter(config.Workers)),
		Observer:         progress.Multi(observers...),
		TranscodeTimeout: config.TranscodeTimeout,
	})

	h := handlers.New(orch, jobs, store, config)

	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	srv := newServer(config, router)

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsPort, h.MetricsHandler())
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	collector := metrics.NewCollector(config.WorkDir, collectorInterval)
	collector.Start()

	bg := background{collector: collector, monitor: monitor, trans: trans}
	if tracker != nil {
		bg.tracker = tracker
	}

	done := make(chan struct{})
	go handleShutdown(done, srv, metricsSrv, bg)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

// setupTracking connects to Redis when REDIS_ADDR is set. An unreachable
// server is not fatal; the tracker drops events it cannot write in time.
func setupTracking(config *startup.Config) *progress.RedisTracker {
	if !config.TrackingEnabled() {
		startup.LogTrackingInit("", nil)
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.RedisAddr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	tracker := progress.NewRedisTracker(client, config.RedisJobTTL)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	startup.LogTrackingInit(config.RedisAddr, tracker.Ping(ctx))

	return tracker
}

// setupStoreSinks builds the sinks used by delivery=store, or nil if none is
// configured.
func setupStoreSinks(config *startup.Config) (delivery.Sink, error) {
	var sinks delivery.Multi

	if config.DirectoryDeliveryEnabled {
		dir, err := delivery.NewDirectorySink(config.OutputDir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, dir)
	}

	if config.S3Enabled() {
		s3Sink, err := delivery.NewS3Sink(delivery.S3Config{
			Bucket:    config.S3Bucket,
			Region:    config.S3Region,
			Prefix:    config.S3Prefix,
			Endpoint:  config.S3Endpoint,
			AccessKey: config.S3AccessKey,
			SecretKey: config.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 sink: %w", err)
		}
		sinks = append(sinks, s3Sink)
	}

	if len(sinks) == 0 {
		return nil, nil
	}
	return sinks, nil
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/convert", h.Convert).Methods("POST")
	api.HandleFunc("/addaudio", h.AddAudio).Methods("POST")
	api.HandleFunc("/formats", h.GetFormats).Methods("GET")
	api.HandleFunc("/jobs/{id}", h.GetJob).Methods("GET")

	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	return r
}

func newServer(config *startup.Config, router http.Handler) *http.Server {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	return &http.Server{
		Addr:              ":" + config.Port,
		Handler:           middleware.Logger(loggingConfig)(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // conversions stream for as long as ffmpeg runs
		IdleTimeout:       60 * time.Second,
	}
}

func newMetricsServer(port string, handler http.Handler) *http.Server {
	serveMux := http.NewServeMux()
	serveMux.Handle("/metrics", handler)
	return &http.Server{
		Addr:              ":" + port,
		Handler:           serveMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

type stopper interface{ Stop() }

// background holds the long-lived components stopped on shutdown. Nil
// fields are skipped.
type background struct {
	collector stopper
	monitor   stopper
	trans     interface{ Cleanup() }
	tracker   io.Closer
}

func handleShutdown(done chan<- struct{}, srv, metricsSrv *http.Server, bg background) {
	defer close(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdown(ctx, srv, metricsSrv, bg)
}

// shutdown stops accepting requests and lets running conversions finish
// until ctx expires. Only then are the remaining ffmpeg processes killed, so
// no request can start one after the kill.
func shutdown(ctx context.Context, srv, metricsSrv *http.Server, bg background) {
	startup.LogShutdownStep("Stopping monitors")
	if bg.collector != nil {
		bg.collector.Stop()
	}
	if bg.monitor != nil {
		bg.monitor.Stop()
	}
	startup.LogShutdownStepComplete("Monitors stopped")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Killing ffmpeg processes")
	if bg.trans != nil {
		bg.trans.Cleanup()
	}
	startup.LogShutdownStepComplete("Transcoder cleanup complete")

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	if bg.tracker != nil {
		if err := bg.tracker.Close(); err != nil {
			logging.Warn("Redis close error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Redis client closed")
		}
	}

	startup.LogShutdownComplete()
}
