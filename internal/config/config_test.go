package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("BACKEND_BASE_URL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("INITIAL_SYNC", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
	if cfg.BackendBaseURL != "http://127.0.0.1:8000" {
		t.Fatalf("unexpected backend url %q", cfg.BackendBaseURL)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"http://localhost:5173"}) {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if !cfg.InitialSync {
		t.Fatalf("expected initial sync enabled by default")
	}
}

func TestLoadParsesTypedValues(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT_MS", "5000")
	t.Setenv("BACKEND_RPS", "2.5")
	t.Setenv("INITIAL_SYNC", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("REPORT_AWAIT_ATTEMPTS", "not-a-number")

	cfg := Load()
	if cfg.BackendTimeoutMS != 5000 || cfg.BackendRPS != 2.5 || cfg.InitialSync {
		t.Fatalf("unexpected typed values %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if cfg.ReportAwaitAttempts != 5 {
		t.Fatalf("expected fallback for invalid int, got %d", cfg.ReportAwaitAttempts)
	}
}

func TestLoadDotEnvKeepsProcessEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "export BACKEND_BASE_URL=\"http://backend:8000\"\nPORT=9090 # console port\nREDIS_ADDR=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("REDIS_ADDR", "from-process")
	t.Setenv("BACKEND_BASE_URL", "")
	t.Setenv("PORT", "")
	os.Unsetenv("BACKEND_BASE_URL")
	os.Unsetenv("PORT")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if got := os.Getenv("BACKEND_BASE_URL"); got != "http://backend:8000" {
		t.Fatalf("expected quoted value, got %q", got)
	}
	if got := os.Getenv("PORT"); got != "9090" {
		t.Fatalf("expected inline comment stripped, got %q", got)
	}
	if got := os.Getenv("REDIS_ADDR"); got != "from-process" {
		t.Fatalf("expected process env to win, got %q", got)
	}
}

func TestParseDotEnvValueExpandsReferences(t *testing.T) {
	t.Setenv("BACKEND_HOST", "analysis")
	if got := parseDotEnvValue(`"http://${BACKEND_HOST}:8000"`); got != "http://analysis:8000" {
		t.Fatalf("unexpected expansion %q", got)
	}
	if got := parseDotEnvValue(`'${BACKEND_HOST}'`); got != "${BACKEND_HOST}" {
		t.Fatalf("single quotes must stay literal, got %q", got)
	}
}
