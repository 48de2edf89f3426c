package startup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"media-converter/internal/filesystem"
	"media-converter/internal/ledger"
	"media-converter/internal/logging"
	"media-converter/internal/transcoder"
	"media-converter/internal/workers"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	WorkDir          string
	OutputDir        string
	Port             string
	MetricsPort      string
	MetricsEnabled   bool
	LogHealthChecks  bool
	FetchTimeout     time.Duration
	TranscodeTimeout time.Duration
	StaleFileAge     time.Duration
	FFmpegPath       string
	Workers          int

	S3Bucket    string
	S3Region    string
	S3Prefix    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	RedisAddr   string
	RedisJobTTL time.Duration

	// Feature flags derived from the values above
	DirectoryDeliveryEnabled bool
	FFmpegAvailable          bool
}

// S3Enabled reports whether artifacts should be uploaded to object storage.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// TrackingEnabled reports whether job progress is mirrored to Redis.
func (c *Config) TrackingEnabled() bool {
	return c.RedisAddr != ""
}

// LoadConfig loads and validates configuration from the environment. A .env
// file in the working directory is read first if present; variables already
// set in the environment win.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	if err := loadDotEnv(".env"); err != nil {
		logging.Warn("  Failed to load .env: %v", err)
	}

	config := &Config{
		WorkDir:          getEnv("WORK_DIR", filepath.Join(os.TempDir(), "media-converter")),
		OutputDir:        getEnv("OUTPUT_DIR", ""),
		Port:             getEnv("PORT", "8080"),
		MetricsPort:      getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:   getEnvBool("METRICS_ENABLED", true),
		LogHealthChecks:  getEnvBool("LOG_HEALTH_CHECKS", true),
		FetchTimeout:     getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		TranscodeTimeout: getEnvDuration("TRANSCODE_TIMEOUT", 10*time.Minute),
		StaleFileAge:     getEnvDuration("STALE_FILE_AGE", time.Hour),
		FFmpegPath:       getEnv("FFMPEG_PATH", "ffmpeg"),
		Workers:          getEnvInt(workers.EnvOverride, workers.ForCPU(0)),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		S3Prefix:         getEnv("S3_PREFIX", ""),
		S3Endpoint:       getEnv("S3_ENDPOINT", ""),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:      getEnv("S3_SECRET_KEY", ""),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisJobTTL:      getEnvDuration("REDIS_JOB_TTL", 24*time.Hour),
	}

	logging.Info("  WORK_DIR:            %s", config.WorkDir)
	logging.Info("  OUTPUT_DIR:          %s", orNone(config.OutputDir))
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  FETCH_TIMEOUT:       %v", config.FetchTimeout)
	logging.Info("  TRANSCODE_TIMEOUT:   %v", config.TranscodeTimeout)
	logging.Info("  STALE_FILE_AGE:      %v", config.StaleFileAge)
	logging.Info("  FFMPEG_PATH:         %s", config.FFmpegPath)
	logging.Info("  %s:     %d", workers.EnvOverride, config.Workers)
	logging.Info("  S3_BUCKET:           %s", orNone(config.S3Bucket))
	if config.S3Enabled() {
		logging.Info("  S3_REGION:           %s", config.S3Region)
		logging.Info("  S3_PREFIX:           %s", orNone(config.S3Prefix))
		logging.Info("  S3_ENDPOINT:         %s", orNone(config.S3Endpoint))
		logging.Info("  S3_ACCESS_KEY:       %s", mask(config.S3AccessKey))
	}
	logging.Info("  REDIS_ADDR:          %s", orNone(config.RedisAddr))
	logging.Info("  REDIS_JOB_TTL:       %v", config.RedisJobTTL)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	workDir, err := filepath.Abs(config.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve work directory path: %w", err)
	}
	config.WorkDir = workDir
	logging.Info("  Work directory (absolute): %s", workDir)

	if err := ensureDirectory(workDir, "work"); err != nil {
		return nil, fmt.Errorf("work directory error: %w", err)
	}
	logging.Debug("  Testing work directory write access...")
	if err := testWriteAccess(workDir); err != nil {
		return nil, fmt.Errorf("work directory is not writable: %w", err)
	}
	logging.Info("  [OK] Work directory is writable")

	if freed, err := ledger.Sweep(workDir, config.StaleFileAge); err != nil {
		logging.Warn("  Stale file sweep failed: %v", err)
	} else if freed > 0 {
		logging.Info("  Freed %s of stale work files", formatBytes(freed))
	}

	if config.OutputDir != "" {
		outputDir, err := filepath.Abs(config.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve output directory path: %w", err)
		}
		config.OutputDir = outputDir
		logging.Info("  Output directory (absolute): %s", outputDir)
		config.DirectoryDeliveryEnabled = setupOptionalDir(outputDir, "output")
	}

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"work":   config.WorkDir,
		"output": config.OutputDir,
	}))

	config.FFmpegAvailable = LogTranscoderInit(config.FFmpegPath)

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Directory delivery: %s", enabledString(config.DirectoryDeliveryEnabled))
	logging.Info("    S3 delivery:        %s", enabledString(config.S3Enabled()))
	logging.Info("    Job tracking:       %s", enabledString(config.TrackingEnabled()))
	logging.Info("    Metrics:            %s", enabledString(config.MetricsEnabled))

	return config, nil
}

// loadDotEnv reads path into the environment. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		logging.Info("  Loaded environment from %s", path)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s delivery will be disabled", name)
		return false
	}

	if err := testWriteAccess(path); err != nil {
		logging.Warn("    %s directory is not writable: %v", name, err)
		logging.Warn("    %s delivery will be disabled", name)
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// mask hides all but the last four characters of a credential.
func mask(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// LogTranscoderInit checks that ffmpeg can be executed and reports whether it
// is available. Conversions still start without it; they fail individually.
func LogTranscoderInit(ffmpegPath string) bool {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("TRANSCODER INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if err := checkFFmpeg(ffmpegPath); err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Conversions will fail until ffmpeg is installed")
		return false
	}
	logging.Info("  [OK] FFmpeg is available")
	return true
}

// LogTrackingInit logs the outcome of connecting to Redis.
func LogTrackingInit(addr string, err error) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("JOB TRACKING")
	logging.Info("------------------------------------------------------------")

	switch {
	case addr == "":
		logging.Info("  Job tracking disabled (set REDIS_ADDR to enable)")
	case err != nil:
		logging.Warn("  Redis at %s unreachable: %v", addr, err)
		logging.Warn("  Job state will be written when it becomes available")
	default:
		logging.Info("  [OK] Connected to Redis at %s", addr)
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs the registered routes at debug level, grouped by prefix.
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			group := getRouteGroup(route.Path)
			groups[group] = append(groups[group], route)
		}

		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		logging.Debug("  Registered routes (%d total):", len(routes))
		for _, group := range keys {
			logging.Debug("  [%s]", group)
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	if logHealthChecks {
		logging.Info("  Health check logging: ON")
	} else {
		logging.Info("  Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup returns "api/<name>" for API routes and the first path
// segment otherwise.
func getRouteGroup(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	if parts[0] == "api" && len(parts) > 1 {
		return "api/" + parts[1]
	}
	if parts[0] == "" {
		return "root"
	}
	return parts[0]
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("  API:             http://0.0.0.0:%s/api/convert", config.Port)
	if config.MetricsEnabled {
		logging.Info("  Metrics:         http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("  Metrics:         DISABLED")
	}
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
   __  ___       ___         _____                         __
  /  |/  /__ ___/ (_)__ _   / ___/__  ___ _  _____ ____  / /_
 / /|_/ / -_) _  / / _ '/  / /__/ _ \/ _ \ |/ / -_) __/ / __/
/_/  /_/\__/\_,_/_/\_,_/   \___/\___/_//_/___/\__/_/    \__/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}
	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func checkFFmpeg(binary string) error {
	path, err := transcoder.New(binary).CheckBinary()
	if err != nil {
		return err
	}
	logging.Debug("  FFmpeg path: %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	if first, _, _ := strings.Cut(string(output), "\n"); first != "" {
		logging.Info("  %s", strings.TrimSpace(first))
	}
	return nil
}

// formatBytes renders n in binary units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
