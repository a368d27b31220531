package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jmehdipour/eventlog/internal/util"
	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP         HTTPConfig         `mapstructure:"http"`
	Log          LogConfig          `mapstructure:"log"`
	Admin        AdminConfig        `mapstructure:"admin"`
	Registration RegistrationConfig `mapstructure:"registration"`
	Retention    RetentionConfig    `mapstructure:"retention"`
	Database     DatabaseConfig     `mapstructure:"database"`
	ClickHouse   DatabaseConfig     `mapstructure:"clickhouse"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Archiver     ArchiverConfig     `mapstructure:"archiver"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr      string `mapstructure:"addr"`
	Port      string `mapstructure:"port"` // overrides the port part of Addr when set
	BodyLimit string `mapstructure:"body_limit"`
}

// ListenAddr returns Addr, or ":<Port>" when a bare port was configured.
func (h HTTPConfig) ListenAddr() string {
	if p := strings.TrimSpace(h.Port); p != "" {
		return ":" + p
	}
	return h.Addr
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
}

type AdminConfig struct {
	Password string `mapstructure:"password"` // empty disables every admin route
}

type RegistrationConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// RetentionConfig is loaded and reported at startup; nothing prunes events yet.
type RetentionConfig struct {
	Days int `mapstructure:"days"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite | mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string      `mapstructure:"brokers"`
	Topic          string        `mapstructure:"topic"`
	GroupID        string        `mapstructure:"group_id"`
	MinBytes       int           `mapstructure:"min_bytes"`
	MaxBytes       int           `mapstructure:"max_bytes"`
	CommitInterval int           `mapstructure:"commit_interval_ms"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
	PublishQueue   int           `mapstructure:"publish_queue"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"` // 0 disables the limiter
}

type ArchiverConfig struct {
	Table     string        `mapstructure:"table"`
	BatchSize int           `mapstructure:"batch_size"`
	BatchWait time.Duration `mapstructure:"batch_wait"`
}

// plain environment names understood for compatibility with older deployments.
// REGISTRATION_ENABLED and RETENTION_DAYS keep their own loose parsing, see
// applyLegacyEnv.
var legacyEnv = map[string]string{
	"http.port":      "PORT",
	"admin.password": "ADMIN_PASSWORD",
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (EVLOG_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	// env override (EVLOG_*)
	v.SetEnvPrefix("EVLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, name := range legacyEnv {
		envKey := "EVLOG_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, name); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	applyLegacyEnv(&cfg)
	return cfg, nil
}

// applyLegacyEnv honours REGISTRATION_ENABLED and RETENTION_DAYS unless the
// EVLOG_ form is set. Registration opens only on a case-insensitive "true";
// a retention value that is not a number leaves the default in place.
func applyLegacyEnv(cfg *Config) {
	if _, set := os.LookupEnv("EVLOG_REGISTRATION_ENABLED"); !set {
		if raw, ok := os.LookupEnv("REGISTRATION_ENABLED"); ok {
			cfg.Registration.Enabled = strings.EqualFold(raw, "true")
		}
	}
	if _, set := os.LookupEnv("EVLOG_RETENTION_DAYS"); !set {
		if raw := os.Getenv("RETENTION_DAYS"); raw != "" {
			if n := util.ParseNumber(raw); util.IsFinite(n) {
				cfg.Retention.Days = int(n)
			}
		}
	}
}
