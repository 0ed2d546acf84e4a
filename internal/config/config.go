// Package config loads service configuration from an optional YAML file and
// the environment. Environment variables always win over file values.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          string `yaml:"port"`
	LogLevel      string `yaml:"log_level"`
	StorageDriver string `yaml:"storage_driver"`

	DatabaseURL string   `yaml:"database_url"`
	DB          DBConfig `yaml:"db"`

	Redis  RedisConfig  `yaml:"redis"`
	Auth   AuthConfig   `yaml:"auth"`
	Upload UploadConfig `yaml:"upload"`
	Minio  MinioConfig  `yaml:"minio"`

	Staff     []string `yaml:"staff"`
	Buildings []string `yaml:"buildings"`

	// TrustedProxies lists the IPs or CIDRs allowed to set client forwarding headers.
	TrustedProxies []string `yaml:"trusted_proxies"`

	// LocalesDir overlays notification message catalogs on the built-in English one.
	LocalesDir string `yaml:"locales_dir"`
}

type DBConfig struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Port     string `yaml:"port"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	Channel  string `yaml:"channel"`
}

type AuthConfig struct {
	JWTSecret          string        `yaml:"jwt_secret"`
	TokenTTL           time.Duration `yaml:"token_ttl"`
	AdminUsername      string        `yaml:"admin_username"`
	AdminPassword      string        `yaml:"admin_password"`
	AdminPasswordHash  string        `yaml:"admin_password_hash"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
}

type UploadConfig struct {
	Driver     string   `yaml:"driver"`
	Dir        string   `yaml:"dir"`
	BaseURL    string   `yaml:"base_url"`
	MaxBytes   int64    `yaml:"max_bytes"`
	Extensions []string `yaml:"extensions"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	PublicURL string `yaml:"public_url"`
}

// Default returns the configuration used for local development.
func Default() Config {
	return Config{
		Port:          "8000",
		LogLevel:      "info",
		StorageDriver: "postgres",
		DB: DBConfig{
			Host:    "localhost",
			User:    "user",
			Name:    "complaints",
			Port:    "5432",
			SSLMode: "disable",
		},
		Redis: RedisConfig{Channel: "complaints:notifications"},
		Auth: AuthConfig{
			JWTSecret:          DefaultJWTSecret,
			TokenTTL:           DefaultTokenTTL,
			AdminUsername:      DefaultAdminUsername,
			AdminPassword:      DefaultAdminPassword,
			RateLimitPerMinute: 20,
		},
		Upload: UploadConfig{
			Driver:     "file",
			Dir:        "./uploads",
			BaseURL:    DefaultUploadBaseURL,
			MaxBytes:   DefaultMaxUploadBytes,
			Extensions: append([]string(nil), DefaultImageExtensions...),
		},
		Minio:     MinioConfig{Bucket: "complaint-images"},
		Staff:     append([]string(nil), DefaultStaffRoster...),
		Buildings: append([]string(nil), DefaultCampusBuildings...),
	}
}

// Load reads path (if not empty), applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.StorageDriver, "STORAGE_DRIVER")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.DB.Host, "DB_HOST")
	setString(&c.DB.User, "DB_USER")
	setString(&c.DB.Password, "DB_PASSWORD")
	setString(&c.DB.Name, "DB_NAME")
	setString(&c.DB.Port, "DB_PORT")
	setString(&c.DB.SSLMode, "DB_SSLMODE")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Redis.Channel, "REDIS_CHANNEL")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.AdminUsername, "ADMIN_USERNAME")
	setString(&c.Auth.AdminPassword, "ADMIN_PASSWORD")
	setString(&c.Auth.AdminPasswordHash, "ADMIN_PASSWORD_HASH")
	setString(&c.Upload.Driver, "BLOB_DRIVER")
	setString(&c.Upload.Dir, "UPLOAD_DIR")
	setString(&c.Upload.BaseURL, "UPLOAD_BASE_URL")
	setList(&c.Upload.Extensions, "ALLOWED_IMAGE_EXTENSIONS")
	setString(&c.Minio.Endpoint, "MINIO_ENDPOINT")
	setString(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	setString(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	setString(&c.Minio.Bucket, "MINIO_BUCKET")
	setString(&c.Minio.PublicURL, "MINIO_PUBLIC_URL")
	setList(&c.Staff, "STAFF_ROSTER")
	setList(&c.Buildings, "CAMPUS_BUILDINGS")
	setString(&c.LocalesDir, "LOCALES_DIR")
	setList(&c.TrustedProxies, "TRUSTED_PROXIES")

	if v, ok := lookup("TOKEN_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TOKEN_TTL: %w", err)
		}
		c.Auth.TokenTTL = d
	}
	if v, ok := lookup("MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		c.Upload.MaxBytes = n
	}
	if v, ok := lookup("AUTH_RATE_LIMIT_PER_MINUTE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AUTH_RATE_LIMIT_PER_MINUTE: %w", err)
		}
		c.Auth.RateLimitPerMinute = n
	}
	if v, ok := lookup("MINIO_USE_SSL"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MINIO_USE_SSL: %w", err)
		}
		c.Minio.UseSSL = b
	}
	return nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	switch c.Upload.Driver {
	case "file":
		if c.Upload.Dir == "" {
			return errors.New("upload dir is required for the file blob driver")
		}
	case "minio":
		if c.Minio.Endpoint == "" || c.Minio.Bucket == "" {
			return errors.New("minio endpoint and bucket are required for the minio blob driver")
		}
	default:
		return fmt.Errorf("unsupported blob driver %q", c.Upload.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if c.Auth.AdminUsername == "" {
		return errors.New("admin username is required")
	}
	if c.Auth.AdminPassword == "" && c.Auth.AdminPasswordHash == "" {
		return errors.New("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required")
	}
	if c.Upload.MaxBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}
	for _, proxy := range c.TrustedProxies {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			return fmt.Errorf("TRUSTED_PROXIES: %q is not an IP or CIDR", proxy)
		}
	}
	return nil
}

// InsecureDefaults names the settings still carrying their development default.
func (c *Config) InsecureDefaults() []string {
	var keys []string
	if c.Auth.JWTSecret == DefaultJWTSecret {
		keys = append(keys, "JWT_SECRET")
	}
	if c.Auth.AdminPasswordHash == "" && c.Auth.AdminPassword == DefaultAdminPassword {
		keys = append(keys, "ADMIN_PASSWORD")
	}
	return keys
}

// DSN returns DatabaseURL when set, otherwise a key/value DSN built from DB.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s",
		c.DB.Host, c.DB.User, c.DB.Password, c.DB.Name, c.DB.Port)
	if c.DB.SSLMode != "" {
		dsn += " sslmode=" + c.DB.SSLMode
	}
	return dsn
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}
