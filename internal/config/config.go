package config

import (
	"bytes"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/kinesis/internal/errors"
	"github.com/vango-dev/kinesis/pkg/server"
)

// FileNames are the configuration files Load looks for, in order.
var FileNames = []string{"kinesis.yaml", "kinesis.yml", "kinesis.json"}

const (
	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "kinesis"

	// DefaultTracerName is the default OpenTelemetry tracer name.
	DefaultTracerName = "github.com/vango-dev/kinesis"

	// DefaultJournalDir is where the file journal backend writes.
	DefaultJournalDir = ".kinesis/journal"
)

// Journal backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendS3     = "s3"
)

// Config is the complete CLI configuration.
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Log     LogConfig     `json:"log" yaml:"log"`
	Demo    DemoConfig    `json:"demo" yaml:"demo"`

	// path is where the config was loaded from.
	path string
}

// ServerConfig configures the HTTP and WebSocket host.
type ServerConfig struct {
	Host        string `json:"host,omitempty" yaml:"host,omitempty"`
	Port        int    `json:"port,omitempty" yaml:"port,omitempty"`
	MaxSessions int    `json:"maxSessions,omitempty" yaml:"maxSessions,omitempty"`

	// Debug mounts /debug/tree.
	Debug bool `json:"debug,omitempty" yaml:"debug,omitempty"`

	// Durations use time.ParseDuration syntax, e.g. "30s".
	ReadTimeout     Duration `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`
	WriteTimeout    Duration `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`
	Heartbeat       Duration `json:"heartbeat,omitempty" yaml:"heartbeat,omitempty"`
	ShutdownTimeout Duration `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`

	MaxEventQueue int `json:"maxEventQueue,omitempty" yaml:"maxEventQueue,omitempty"`
	MailboxSize   int `json:"mailboxSize,omitempty" yaml:"mailboxSize,omitempty"`
	MaxFollowups  int `json:"maxFollowups,omitempty" yaml:"maxFollowups,omitempty"`
}

// MetricsConfig configures the Prometheus observer and /metrics.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// TracingConfig configures the OpenTelemetry observer.
type TracingConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`
}

// JournalConfig configures session journaling.
type JournalConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// Dir is used by the file backend.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Bucket, Prefix, Region and Endpoint are used by the s3 backend.
	// Endpoint is only needed for S3-compatible stores.
	Bucket   string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`

	FlushInterval Duration `json:"flushInterval,omitempty" yaml:"flushInterval,omitempty"`
	BatchSize     int      `json:"batchSize,omitempty" yaml:"batchSize,omitempty"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// DemoConfig configures the demo tree served by `kinesis serve`.
type DemoConfig struct {
	Counters int `json:"counters,omitempty" yaml:"counters,omitempty"`

	// Tick is the clock period; "0s" stops the clock.
	Tick Duration `json:"tick" yaml:"tick"`
}

// New returns a Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     Duration(60 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
			Heartbeat:       Duration(30 * time.Second),
			ShutdownTimeout: Duration(30 * time.Second),
			MaxEventQueue:   256,
			MailboxSize:     1024,
			MaxFollowups:    256,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			TracerName: DefaultTracerName,
		},
		Journal: JournalConfig{
			Backend:       BackendMemory,
			Dir:           DefaultJournalDir,
			Prefix:        "journals",
			Region:        "us-east-1",
			FlushInterval: Duration(5 * time.Second),
			BatchSize:     256,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Demo: DemoConfig{
			Counters: 3,
			Tick:     Duration(time.Second),
		},
	}
}

// Find returns the first configuration file present in dir.
func Find(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Load reads the configuration file in dir. A directory without one is
// an error; use LoadOrDefault to fall back to New.
func Load(dir string) (*Config, error) {
	path, ok := Find(dir)
	if !ok {
		return nil, errors.New("K080").
			WithDetail("No " + strings.Join(FileNames, ", ") + " found in " + dir).
			WithSuggestion("create kinesis.yaml or pass --config")
	}
	return LoadFile(path)
}

// LoadOrDefault loads the configuration in dir, or returns New when the
// directory has none.
func LoadOrDefault(dir string) (*Config, error) {
	if _, ok := Find(dir); !ok {
		return New(), nil
	}
	return Load(dir)
}

// LoadFile reads a configuration file. The format follows the file
// extension: .json is JSON, anything else YAML. Unknown keys are
// rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("K080").
				WithDetail(path + " does not exist").
				Wrap(err)
		}
		return nil, errors.New("K081").Wrap(err)
	}

	cfg := New()
	if filepath.Ext(path) == ".json" {
		err = decodeJSON(data, cfg)
	} else {
		err = decodeYAML(data, cfg)
	}
	if err != nil {
		ke := errors.New("K081").
			WithLocationFromError(path, err).
			WithSuggestion("check " + filepath.Base(path) + " against the documented keys").
			Wrap(err)
		if ke.Location == nil {
			ke.Location = &errors.Location{File: path}
		}
		return nil, ke
	}

	cfg.path = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		var ke *errors.KinesisError
		if goerrors.As(err, &ke) && ke.Location == nil {
			ke.Location = &errors.Location{File: path}
		}
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func decodeJSON(data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	err := dec.Decode(cfg)
	if err == nil {
		return nil
	}
	var syntax *json.SyntaxError
	if goerrors.As(err, &syntax) {
		line, col := position(data, syntax.Offset)
		return fmt.Errorf("%w at line %d, column %d", err, line, col)
	}
	var typeErr *json.UnmarshalTypeError
	if goerrors.As(err, &typeErr) {
		line, col := position(data, typeErr.Offset)
		return fmt.Errorf("%w at line %d, column %d", err, line, col)
	}
	return err
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (line, col int) {
	offset = min(offset, int64(len(data)))
	before := data[:offset]
	line = bytes.Count(before, []byte{'\n'}) + 1
	col = int(offset) - bytes.LastIndexByte(before, '\n')
	return line, max(col-1, 1)
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.path)
}

// SaveTo writes the configuration to path, as JSON or YAML by extension.
func (c *Config) SaveTo(path string) error {
	var data []byte
	var err error
	if filepath.Ext(path) == ".json" {
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return errors.New("K081").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("K081").Wrap(err)
	}
	c.path = path
	return nil
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) applyDefaults() {
	d := New()
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = d.Tracing.TracerName
	}
	if c.Journal.Backend == "" {
		c.Journal.Backend = d.Journal.Backend
	}
	if c.Journal.Dir == "" {
		c.Journal.Dir = d.Journal.Dir
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = d.Journal.FlushInterval
	}
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = d.Journal.BatchSize
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

func invalid(detail string) *errors.KinesisError {
	return errors.New("K082").WithDetail(detail)
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid("server.port must be between 0 and 65535, got " + strconv.Itoa(c.Server.Port))
	}
	if c.Server.MaxSessions < 0 {
		return invalid("server.maxSessions must not be negative")
	}
	if c.Server.MaxFollowups < 0 {
		return invalid("server.maxFollowups must not be negative")
	}
	for name, d := range map[string]Duration{
		"server.readTimeout":     c.Server.ReadTimeout,
		"server.writeTimeout":    c.Server.WriteTimeout,
		"server.heartbeat":       c.Server.Heartbeat,
		"server.shutdownTimeout": c.Server.ShutdownTimeout,
		"journal.flushInterval":  c.Journal.FlushInterval,
		"demo.tick":              c.Demo.Tick,
	} {
		if d < 0 {
			return invalid(name + " must not be negative")
		}
	}
	if c.Server.Heartbeat > 0 && c.Server.ReadTimeout > 0 && c.Server.Heartbeat >= c.Server.ReadTimeout {
		return invalid("server.heartbeat must be shorter than server.readTimeout").
			WithSuggestion("clients answer pings; a heartbeat at or past the read timeout drops idle sessions")
	}

	switch c.Journal.Backend {
	case BackendMemory, BackendFile:
	case BackendS3:
		if c.Journal.Enabled && c.Journal.Bucket == "" {
			return invalid("journal.bucket is required for the s3 backend")
		}
	default:
		return invalid(fmt.Sprintf("journal.backend must be memory, file or s3, got %q", c.Journal.Backend))
	}
	if c.Journal.BatchSize < 0 {
		return invalid("journal.batchSize must not be negative")
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return invalid(err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid(fmt.Sprintf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Demo.Counters < 0 {
		return invalid("demo.counters must not be negative")
	}
	return nil
}

// Address returns host:port.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// ServerConfig converts the file settings into a server configuration.
// Zero values are left for the server to default.
func (c *Config) ServerConfig() *server.ServerConfig {
	sc := server.DefaultServerConfig().WithAddress(c.Address()).WithMaxSessions(c.Server.MaxSessions)
	sc.EnableDebug = c.Server.Debug
	sc.ShutdownTimeout = c.Server.ShutdownTimeout.Std()
	sc.SessionConfig.ReadTimeout = c.Server.ReadTimeout.Std()
	sc.SessionConfig.WriteTimeout = c.Server.WriteTimeout.Std()
	sc.SessionConfig.HeartbeatInterval = c.Server.Heartbeat.Std()
	sc.SessionConfig.MaxEventQueue = c.Server.MaxEventQueue
	sc.SessionConfig.MailboxSize = c.Server.MailboxSize
	sc.SessionConfig.MaxFollowups = c.Server.MaxFollowups
	return sc
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", l.Level)
	}
	return level, nil
}

// Handler builds the slog handler the configuration describes.
func (l LogConfig) Handler(w io.Writer) slog.Handler {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
