package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
	if info.OS == "" || info.Arch == "" {
		t.Errorf("Expected OS and Arch to be set, got %q/%q", info.OS, info.Arch)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		setEnv       bool
		want         string
	}{
		{"Returns default when env var not set", "TEST_MC_UNSET", "default", "", false, "default"},
		{"Returns env value when set", "TEST_MC_SET", "default", "custom", true, "custom"},
		{"Returns default when env var is empty", "TEST_MC_EMPTY", "default", "", true, "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			}
			if got := getEnv(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"Unset uses default", "", true, true},
		{"true", "true", false, true},
		{"false", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"Invalid uses default", "maybe", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_MC_BOOL", tt.envValue)
			if got := getEnvBool("TEST_MC_BOOL", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		envValue string
		want     int
	}{
		{"", 4},
		{"8", 8},
		{"0", 0},
		{"-2", 4},
		{"lots", 4},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("TEST_MC_INT", tt.envValue)
			if got := getEnvInt("TEST_MC_INT", 4); got != tt.want {
				t.Errorf("getEnvInt(%q) = %d, want %d", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		envValue string
		want     time.Duration
	}{
		{"", 30 * time.Second},
		{"2m", 2 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"30", 30 * time.Second},
		{"-5s", 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("TEST_MC_DURATION", tt.envValue)
			if got := getEnvDuration("TEST_MC_DURATION", 30*time.Second); got != tt.want {
				t.Errorf("getEnvDuration(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/convert", "api/convert"},
		{"/api/jobs/{id}", "api/jobs"},
		{"/health", "health"},
		{"/", "root"},
	}

	for _, tt := range tests {
		if got := getRouteGroup(tt.path); got != tt.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestGetRoutes(t *testing.T) {
	router := mux.NewRouter()
	noop := func(http.ResponseWriter, *http.Request) {}
	router.HandleFunc("/api/convert", noop).Methods("POST").Name("convert")
	router.HandleFunc("/health", noop).Methods("GET", "HEAD")

	routes, err := GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}
	if len(routes) != 3 {
		t.Fatalf("got %d routes, want 3: %+v", len(routes), routes)
	}
	if routes[0].Method != "POST" || routes[0].Path != "/api/convert" || routes[0].Name != "convert" {
		t.Errorf("routes[0] = %+v", routes[0])
	}
}

func TestMask(t *testing.T) {
	tests := map[string]string{
		"":             "(not set)",
		"abc":          "****",
		"AKIAEXAMPLE1": "********PLE1",
	}
	for in, want := range tests {
		if got := mask(in); got != want {
			t.Errorf("mask(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{100 * 1024 * 1024, "100.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "TEST_MC_DOTENV_VALUE"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(key+"=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv() error = %v", err)
	}
	if got := os.Getenv(key); got != "from-file" {
		t.Errorf("%s = %q, want from-file", key, got)
	}

	if err := loadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}
}

func TestEnsureDirectory(t *testing.T) {
	dir := t.TempDir()

	nested := filepath.Join(dir, "a", "b")
	if err := ensureDirectory(nested, "work"); err != nil {
		t.Fatalf("ensureDirectory() error = %v", err)
	}
	if info, err := os.Stat(nested); err != nil || !info.IsDir() {
		t.Errorf("directory was not created: %v", err)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ensureDirectory(file, "work"); err == nil {
		t.Error("expected an error for a regular file")
	}
}

func TestLoadConfig(t *testing.T) {
	root := t.TempDir()
	workDir := filepath.Join(root, "work")
	outputDir := filepath.Join(root, "out")

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(workDir, "input_1700000000000_42.mp4")
	if err := os.WriteFile(stale, []byte("left over"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}

	t.Setenv("WORK_DIR", workDir)
	t.Setenv("OUTPUT_DIR", outputDir)
	t.Setenv("FFMPEG_PATH", filepath.Join(root, "no-such-ffmpeg"))
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("CONVERT_WORKERS", "3")
	t.Setenv("S3_BUCKET", "")
	t.Setenv("REDIS_ADDR", "")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if config.WorkDir != workDir {
		t.Errorf("WorkDir = %q, want %q", config.WorkDir, workDir)
	}
	if !config.DirectoryDeliveryEnabled {
		t.Error("DirectoryDeliveryEnabled = false, want true")
	}
	if config.FFmpegAvailable {
		t.Error("FFmpegAvailable = true for a missing binary")
	}
	if config.FetchTimeout != 5*time.Second || config.TranscodeTimeout != 10*time.Minute {
		t.Errorf("timeouts = %v/%v", config.FetchTimeout, config.TranscodeTimeout)
	}
	if config.Workers != 3 {
		t.Errorf("Workers = %d, want 3", config.Workers)
	}
	if config.S3Enabled() || config.TrackingEnabled() {
		t.Error("optional integrations should be disabled")
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale work file was not swept")
	}
}

func TestLoadConfigUnwritableWorkDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WORK_DIR", file)
	t.Setenv("FFMPEG_PATH", "no-such-ffmpeg")

	if _, err := LoadConfig(); err == nil {
		t.Error("expected an error when WORK_DIR is a file")
	}
}
