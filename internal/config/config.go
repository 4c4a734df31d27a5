package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env   string      `yaml:"env"`
	HTTP  HTTPConfig  `yaml:"http"`
	DB    DBConfig    `yaml:"db"`
	Redis RedisConfig `yaml:"redis"`
	Auth  AuthConfig  `yaml:"auth"`
	CORS  CORSConfig  `yaml:"cors"`
	OTel  OTelConfig  `yaml:"otel"`
	Log   LogConfig   `yaml:"log"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DBConfig struct {
	Driver       string `yaml:"driver"` // mysql | sqlite
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	AccessSecret string `yaml:"access_secret"`
	CheckSession bool   `yaml:"check_session"`
}

type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins"`
}

type OTelConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Exporter    string `yaml:"exporter"` // stdout | otlp
	Endpoint    string `yaml:"endpoint"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	return &Config{
		Env: "dev",
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		DB: DBConfig{
			Driver:       "mysql",
			DSN:          "user:password@tcp(127.0.0.1:3306)/community?charset=utf8mb4&parseTime=True&loc=UTC",
			MaxOpenConns: 20,
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		Auth: AuthConfig{
			AccessSecret: "secret-key",
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		},
		OTel: OTelConfig{
			ServiceName: "community-chat",
			Exporter:    "stdout",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load 默认值 -> YAML 文件（可选）-> 环境变量
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString("APP_ENV", &c.Env)
	setString("HTTP_ADDR", &c.HTTP.Addr)
	setString("DB_DRIVER", &c.DB.Driver)
	setString("DB_DSN", &c.DB.DSN)
	setString("REDIS_ADDR", &c.Redis.Addr)
	setString("REDIS_PASSWORD", &c.Redis.Password)
	setString("JWT_ACCESS_SECRET", &c.Auth.AccessSecret)
	setString("OTEL_SERVICE_NAME", &c.OTel.ServiceName)
	setString("OTEL_EXPORTER", &c.OTel.Exporter)
	setString("OTEL_EXPORTER_OTLP_ENDPOINT", &c.OTel.Endpoint)
	setString("LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup("CORS_ALLOW_ORIGINS"); ok {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORS.AllowOrigins = origins
	}

	for name, dst := range map[string]*bool{
		"REDIS_ENABLED":      &c.Redis.Enabled,
		"AUTH_CHECK_SESSION": &c.Auth.CheckSession,
		"OTEL_ENABLED":       &c.OTel.Enabled,
	} {
		if v, ok := lookup(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("env %s: %w", name, err)
			}
			*dst = b
		}
	}
	for name, dst := range map[string]*int{
		"REDIS_DB":          &c.Redis.DB,
		"DB_MAX_OPEN_CONNS": &c.DB.MaxOpenConns,
	} {
		if v, ok := lookup(name); ok {
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("env %s: %w", name, err)
			}
			*dst = i
		}
	}
	if v, ok := lookup("HTTP_SHUTDOWN_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("env HTTP_SHUTDOWN_TIMEOUT: %w", err)
		}
		c.HTTP.ShutdownTimeout = d
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return errors.New("db dsn required")
	}
	if c.IsProd() && (c.Auth.AccessSecret == "" || c.Auth.AccessSecret == Default().Auth.AccessSecret) {
		return errors.New("auth access secret must be set in prod")
	}
	if c.Auth.CheckSession && !c.Redis.Enabled {
		return errors.New("auth.check_session requires redis")
	}
	switch c.OTel.Exporter {
	case "stdout", "otlp":
	default:
		return fmt.Errorf("unsupported otel exporter %q", c.OTel.Exporter)
	}
	return nil
}

func (c *Config) IsProd() bool {
	e := strings.ToLower(c.Env)
	return e == "prod" || e == "production"
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func setString(name string, dst *string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}
