package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "VPC"
	DefaultCfgName = ".vpctl"
)

type Config struct {
	Platform   PlatformConfig
	Auth       AuthConfig
	Retry      RetryConfig
	Polling    PollingConfig
	Archive    ArchiveConfig
	Kubernetes KubernetesConfig
	Server     ServerConfig
	Database   DatabaseConfig
	Simulation SimulationConfig
	Logger     LoggerConfig
}

type PlatformConfig struct {
	URL      string
	Timeout  time.Duration
	PageSize int
	WorkDir  string
}

type AuthConfig struct {
	Username    string
	Password    string
	Token       string
	RefreshSkew time.Duration
}

type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Factor         float64
	Jitter         float64
	MaxBackoff     time.Duration
}

type PollingConfig struct {
	Interval      time.Duration
	Timeout       time.Duration
	FailOnTimeout bool
}

type ArchiveConfig struct {
	Dir string
	S3  S3Config
}

// S3Config selects the S3 archive store when Bucket is set.
type S3Config struct {
	Bucket          string
	Prefix          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

type KubernetesConfig struct {
	Enabled        bool
	InCluster      bool
	KubeConfigPath string
	DefaultNS      string
	Runtime        string
}

// ServerConfig configures the reference platform server.
type ServerConfig struct {
	Host           string
	Port           int
	TokenSecret    string
	AccessTokenTTL time.Duration
	Username       string
	Password       string
	AccessToken    string
}

type DatabaseConfig struct {
	Driver          string // "memory" | "postgres"
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type SimulationConfig struct {
	ReadsPerState int
}

type LoggerConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("platform.url", "http://localhost:8080")
	v.SetDefault("platform.timeout", "30s")
	v.SetDefault("platform.page_size", 100)
	v.SetDefault("platform.work_dir", os.TempDir())

	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.token", "")
	v.SetDefault("auth.refresh_skew", "30s")

	v.SetDefault("retry.max_attempts", 4)
	v.SetDefault("retry.initial_backoff", "500ms")
	v.SetDefault("retry.factor", 2.0)
	v.SetDefault("retry.jitter", 0.1)
	v.SetDefault("retry.max_backoff", "10s")

	v.SetDefault("polling.interval", "5s")
	v.SetDefault("polling.timeout", "30m")
	v.SetDefault("polling.fail_on_timeout", false)

	v.SetDefault("archive.dir", "./archives")
	v.SetDefault("archive.s3.bucket", "")
	v.SetDefault("archive.s3.prefix", "")
	v.SetDefault("archive.s3.endpoint", "")
	v.SetDefault("archive.s3.region", "us-east-1")
	v.SetDefault("archive.s3.access_key_id", "")
	v.SetDefault("archive.s3.secret_access_key", "")

	v.SetDefault("kubernetes.enabled", false)
	v.SetDefault("kubernetes.in_cluster", false)
	v.SetDefault("kubernetes.kubeconfig", "")
	v.SetDefault("kubernetes.namespace", "model-serving")
	v.SetDefault("kubernetes.runtime", "")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.token_secret", "change-me")
	v.SetDefault("server.access_token_ttl", "15m")
	v.SetDefault("server.username", "admin")
	v.SetDefault("server.password", "admin")
	v.SetDefault("server.access_token", "")

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "vision_platform")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("simulation.reads_per_state", 3)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
}

// Load reads defaults, then the config file, then VPC_* environment variables.
// An empty path falls back to $HOME/.vpctl.yaml when it exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Env
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(DefaultCfgName)
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Platform: PlatformConfig{
			URL:      v.GetString("platform.url"),
			Timeout:  v.GetDuration("platform.timeout"),
			PageSize: v.GetInt("platform.page_size"),
			WorkDir:  v.GetString("platform.work_dir"),
		},
		Auth: AuthConfig{
			Username:    v.GetString("auth.username"),
			Password:    v.GetString("auth.password"),
			Token:       v.GetString("auth.token"),
			RefreshSkew: v.GetDuration("auth.refresh_skew"),
		},
		Retry: RetryConfig{
			MaxAttempts:    v.GetInt("retry.max_attempts"),
			InitialBackoff: v.GetDuration("retry.initial_backoff"),
			Factor:         v.GetFloat64("retry.factor"),
			Jitter:         v.GetFloat64("retry.jitter"),
			MaxBackoff:     v.GetDuration("retry.max_backoff"),
		},
		Polling: PollingConfig{
			Interval:      v.GetDuration("polling.interval"),
			Timeout:       v.GetDuration("polling.timeout"),
			FailOnTimeout: v.GetBool("polling.fail_on_timeout"),
		},
		Archive: ArchiveConfig{
			Dir: v.GetString("archive.dir"),
			S3: S3Config{
				Bucket:          v.GetString("archive.s3.bucket"),
				Prefix:          v.GetString("archive.s3.prefix"),
				Endpoint:        v.GetString("archive.s3.endpoint"),
				Region:          v.GetString("archive.s3.region"),
				AccessKeyID:     v.GetString("archive.s3.access_key_id"),
				SecretAccessKey: v.GetString("archive.s3.secret_access_key"),
			},
		},
		Kubernetes: KubernetesConfig{
			Enabled:        v.GetBool("kubernetes.enabled"),
			InCluster:      v.GetBool("kubernetes.in_cluster"),
			KubeConfigPath: v.GetString("kubernetes.kubeconfig"),
			DefaultNS:      v.GetString("kubernetes.namespace"),
			Runtime:        v.GetString("kubernetes.runtime"),
		},
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			TokenSecret:    v.GetString("server.token_secret"),
			AccessTokenTTL: v.GetDuration("server.access_token_ttl"),
			Username:       v.GetString("server.username"),
			Password:       v.GetString("server.password"),
			AccessToken:    v.GetString("server.access_token"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Simulation: SimulationConfig{
			ReadsPerState: v.GetInt("simulation.reads_per_state"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("logger.level"),
			Format: v.GetString("logger.format"),
		},
	}

	if cfg.Archive.Dir != "" {
		if abs, err := filepath.Abs(cfg.Archive.Dir); err == nil {
			cfg.Archive.Dir = abs
		}
	}

	return cfg, nil
}
