package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseEnvLine(t *testing.T) {
	tests := []struct {
		line    string
		key     string
		val     string
		wantKey bool
	}{
		{line: "RESET_DELAY=4s", key: "RESET_DELAY", val: "4s", wantKey: true},
		{line: "export OBJECT_STORE=minio", key: "OBJECT_STORE", val: "minio", wantKey: true},
		{line: `KB_SEED_FILE="./seed data.yaml"`, key: "KB_SEED_FILE", val: "./seed data.yaml", wantKey: true},
		{line: "MINIO_SECRET_KEY='p#ss'", key: "MINIO_SECRET_KEY", val: "p#ss", wantKey: true},
		{line: "ANALYZE_LATENCY=2500ms # simulated", key: "ANALYZE_LATENCY", val: "2500ms", wantKey: true},
		{line: "# comment"},
		{line: "NOEQUALS"},
		{line: "=value"},
	}
	for _, tt := range tests {
		key, val, ok := parseEnvLine(tt.line)
		if ok != tt.wantKey || key != tt.key || val != tt.val {
			t.Fatalf("parseEnvLine(%q) = %q %q %v", tt.line, key, val, ok)
		}
	}
}

func TestLoadEnvFilesKeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "TRIAGE_DOTENV_TEST_NEW=from-file\nTRIAGE_DOTENV_TEST_SET=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("TRIAGE_DOTENV_TEST_SET", "from-env")
	t.Setenv("TRIAGE_DOTENV_TEST_NEW", "")
	os.Unsetenv("TRIAGE_DOTENV_TEST_NEW")

	loadEnvFiles(path, filepath.Join(t.TempDir(), "missing.env"))

	if got := os.Getenv("TRIAGE_DOTENV_TEST_NEW"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := os.Getenv("TRIAGE_DOTENV_TEST_SET"); got != "from-env" {
		t.Fatalf("expected environment to win, got %q", got)
	}
}
