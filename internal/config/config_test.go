package config

import (
	"bytes"
	goerrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/kinesis/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func code(err error) string {
	var ke *errors.KinesisError
	if goerrors.As(err, &ke) {
		return ke.Code
	}
	return ""
}

func TestNew(t *testing.T) {
	cfg := New()
	if cfg.Server.Port != DefaultPort || cfg.Server.Host != DefaultHost {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Journal.Backend != BackendMemory {
		t.Errorf("Journal.Backend = %q, want %q", cfg.Journal.Backend, BackendMemory)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "kinesis.yaml", `
server:
  port: 9090
  maxSessions: 10
  heartbeat: 5s
journal:
  enabled: true
  backend: s3
  bucket: traces
log:
  level: debug
  format: json
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.MaxSessions != 10 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.Heartbeat.Std() != 5*time.Second {
		t.Errorf("Heartbeat = %s", cfg.Server.Heartbeat)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Host = %q, want default", cfg.Server.Host)
	}
	if cfg.Server.ReadTimeout.Std() != 60*time.Second {
		t.Errorf("ReadTimeout = %s, want default 1m0s", cfg.Server.ReadTimeout)
	}
	if cfg.Journal.Bucket != "traces" || cfg.Journal.Prefix != "journals" {
		t.Errorf("Journal = %+v", cfg.Journal)
	}
	if cfg.Path() != filepath.Join(dir, "kinesis.yaml") {
		t.Errorf("Path() = %q", cfg.Path())
	}
	if level, _ := cfg.Log.SlogLevel(); level != slog.LevelDebug {
		t.Errorf("level = %v", level)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "kinesis.json", `{
  "server": {"port": 3000, "debug": true, "writeTimeout": "2s"},
  "metrics": {"enabled": false}
}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 3000 || !cfg.Server.Debug || cfg.Server.WriteTimeout.Std() != 2*time.Second {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics should be disabled")
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Namespace = %q", cfg.Metrics.Namespace)
	}
}

func TestLoadPrefersYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "kinesis.json", `{"server": {"port": 1}}`)
	writeFile(t, dir, "kinesis.yaml", "server:\n  port: 2\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 2 {
		t.Errorf("Port = %d, want 2 from kinesis.yaml", cfg.Server.Port)
	}
}

func TestLoadMissing(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); code(err) != "K080" {
		t.Errorf("Load err = %v, want K080", err)
	}
	cfg, err := LoadOrDefault(dir)
	if err != nil || cfg.Server.Port != DefaultPort {
		t.Errorf("LoadOrDefault = %+v, %v", cfg, err)
	}
	if _, err := LoadFile(filepath.Join(dir, "nope.yaml")); code(err) != "K080" {
		t.Errorf("LoadFile err = %v, want K080", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantCode string
		wantLine int
		wantText string
	}{
		{
			name:     "yaml syntax",
			file:     "kinesis.yaml",
			content:  "server:\n  port: 1\n  host: [oops\n",
			wantCode: "K081",
		},
		{
			name:     "yaml unknown key",
			file:     "kinesis.yaml",
			content:  "server:\n  port: 1\n  colour: red\n",
			wantCode: "K081",
			wantLine: 3,
			wantText: "colour",
		},
		{
			name:     "yaml bad duration",
			file:     "kinesis.yaml",
			content:  "server:\n  heartbeat: soon\n",
			wantCode: "K081",
			wantLine: 2,
			wantText: "soon",
		},
		{
			name:     "json syntax",
			file:     "kinesis.json",
			content:  "{\n  \"server\": {\"port\": 1,}\n}",
			wantCode: "K081",
			wantLine: 2,
		},
		{
			name:     "json wrong type",
			file:     "kinesis.json",
			content:  "{\n  \"server\": {\"port\": \"x\"}\n}",
			wantCode: "K081",
			wantLine: 2,
		},
		{
			name:     "port range",
			file:     "kinesis.yaml",
			content:  "server:\n  port: 70000\n",
			wantCode: "K082",
			wantText: "server.port",
		},
		{
			name:     "heartbeat past read timeout",
			file:     "kinesis.yaml",
			content:  "server:\n  heartbeat: 90s\n",
			wantCode: "K082",
			wantText: "server.heartbeat",
		},
		{
			name:     "unknown backend",
			file:     "kinesis.yaml",
			content:  "journal:\n  backend: tape\n",
			wantCode: "K082",
			wantText: "tape",
		},
		{
			name:     "s3 without bucket",
			file:     "kinesis.yaml",
			content:  "journal:\n  enabled: true\n  backend: s3\n",
			wantCode: "K082",
			wantText: "journal.bucket",
		},
		{
			name:     "log level",
			file:     "kinesis.yaml",
			content:  "log:\n  level: loud\n",
			wantCode: "K082",
			wantText: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			_, err := LoadFile(path)
			if code(err) != tt.wantCode {
				t.Fatalf("err = %v, want %s", err, tt.wantCode)
			}
			var ke *errors.KinesisError
			goerrors.As(err, &ke)
			if ke.Location == nil || ke.Location.File != path {
				t.Errorf("Location = %v, want file %s", ke.Location, path)
			} else if tt.wantLine != 0 && ke.Location.Line != tt.wantLine {
				t.Errorf("Location.Line = %d, want %d (%v)", ke.Location.Line, tt.wantLine, err)
			}
			if text := err.Error() + ke.Detail; !strings.Contains(text, tt.wantText) {
				t.Errorf("error %q does not mention %q", text, tt.wantText)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"kinesis.yaml", "kinesis.json"} {
		t.Run(name, func(t *testing.T) {
			cfg := New()
			cfg.Server.Port = 4000
			cfg.Journal.FlushInterval = Duration(1500 * time.Millisecond)

			path := filepath.Join(t.TempDir(), name)
			if err := cfg.SaveTo(path); err != nil {
				t.Fatal(err)
			}
			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if loaded.Server.Port != 4000 || loaded.Journal.FlushInterval.Std() != 1500*time.Millisecond {
				t.Errorf("loaded = %+v", loaded)
			}
		})
	}

	if err := New().Save(); err == nil {
		t.Error("Save without a path should fail")
	}
}

func TestServerConfig(t *testing.T) {
	cfg := New()
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 9000
	cfg.Server.MaxSessions = 5
	cfg.Server.Debug = true
	cfg.Server.MailboxSize = 7
	cfg.Server.MaxFollowups = 3

	sc := cfg.ServerConfig()
	if sc.Address != "0.0.0.0:9000" || sc.MaxSessions != 5 || !sc.EnableDebug {
		t.Errorf("ServerConfig = %+v", sc)
	}
	if sc.SessionConfig.MailboxSize != 7 || sc.SessionConfig.MaxFollowups != 3 || sc.SessionConfig.HeartbeatInterval != 30*time.Second {
		t.Errorf("SessionConfig = %+v", sc.SessionConfig)
	}
	if sc.CheckOrigin == nil {
		t.Error("CheckOrigin not defaulted")
	}
}

func TestLogHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(LogConfig{Level: "warn", Format: "json"}.Handler(&buf))
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record passed a warn handler")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("output = %q", out)
	}
}
