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

const defaultPath = "config/config.yaml"

type AuthConfig struct {
	SecretKey             string `yaml:"secret_key"`
	AccessTokenMinutes    int    `yaml:"access_token_minutes"`
	RefreshTokenDays      int    `yaml:"refresh_token_days"`
	InvitationExpireHours int    `yaml:"invitation_expire_hours"`
	EncryptionKey         string `yaml:"encryption_key"`
}

type GoogleConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURI  string   `yaml:"redirect_uri"`
	Scopes       []string `yaml:"scopes"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
	FromName     string `yaml:"from_name"`
}

type LimitsConfig struct {
	DefaultMaxUsers         int `yaml:"default_max_users"`
	DefaultMaxDevices       int `yaml:"default_max_devices"`
	MaxDevicesPerUser       int `yaml:"max_devices_per_user"`
	DeviceCodeExpireMinutes int `yaml:"device_code_expire_minutes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
		Env     string `yaml:"env"`
	} `yaml:"app"`
	Server struct {
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Database struct {
		DSN         string `yaml:"url"`
		AutoMigrate bool   `yaml:"auto_migrate"`
		MaxOpen     int    `yaml:"max_open_conns"`
	} `yaml:"database"`
	Frontend struct {
		URL       string `yaml:"url"`
		StaticDir string `yaml:"static_dir"`
	} `yaml:"frontend"`
	Auth    AuthConfig    `yaml:"auth"`
	Google  GoogleConfig  `yaml:"google"`
	Email   EmailConfig   `yaml:"email"`
	Limits  LimitsConfig  `yaml:"limits"`
	Logging LoggingConfig `yaml:"logs"`
}

func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTokenMinutes) * time.Minute
}

func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTokenDays) * 24 * time.Hour
}

func (a AuthConfig) InvitationTTL() time.Duration {
	return time.Duration(a.InvitationExpireHours) * time.Hour
}

func (l LimitsConfig) DeviceCodeTTL() time.Duration {
	return time.Duration(l.DeviceCodeExpireMinutes) * time.Minute
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

// LoadConfig reads CONFIG_FILE (or config/config.yaml), applies environment
// overrides and defaults, and validates the result. A missing file is not an
// error: the service can be configured from the environment alone.
func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = defaultPath
	}
	return Load(path)
}

func Load(path string) (*Config, error) {
	var cfg Config
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env only
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(c *Config) {
	setString(&c.App.Env, "APP_ENV")
	setString(&c.App.Name, "APP_NAME")
	setString(&c.App.Version, "APP_VERSION")
	setInt(&c.Server.Port, "PORT")
	setList(&c.Server.CORSOrigins, "CORS_ORIGINS")
	setString(&c.Database.DSN, "DATABASE_URL")
	setBool(&c.Database.AutoMigrate, "DB_AUTO_MIGRATE")
	setString(&c.Frontend.URL, "FRONTEND_URL")
	setString(&c.Frontend.StaticDir, "FRONTEND_STATIC_DIR")

	setString(&c.Auth.SecretKey, "SECRET_KEY")
	setString(&c.Auth.EncryptionKey, "ENCRYPTION_KEY")
	setInt(&c.Auth.AccessTokenMinutes, "ACCESS_TOKEN_EXPIRE_MINUTES")
	setInt(&c.Auth.RefreshTokenDays, "REFRESH_TOKEN_EXPIRE_DAYS")
	setInt(&c.Auth.InvitationExpireHours, "INVITATION_TOKEN_EXPIRE_HOURS")

	setString(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&c.Google.RedirectURI, "GOOGLE_REDIRECT_URI")
	setList(&c.Google.Scopes, "GOOGLE_SCOPES")

	setString(&c.Email.SMTPHost, "SMTP_HOST")
	setInt(&c.Email.SMTPPort, "SMTP_PORT")
	setString(&c.Email.SMTPUser, "SMTP_USERNAME")
	setString(&c.Email.SMTPPassword, "SMTP_PASSWORD")
	setString(&c.Email.FromEmail, "FROM_EMAIL")
	setString(&c.Email.FromName, "FROM_NAME")

	setInt(&c.Limits.DefaultMaxUsers, "DEFAULT_MAX_USERS_PER_COMPANY")
	setInt(&c.Limits.DefaultMaxDevices, "DEFAULT_MAX_DEVICES_PER_COMPANY")
	setInt(&c.Limits.MaxDevicesPerUser, "MAX_DEVICES_PER_USER")
	setInt(&c.Limits.DeviceCodeExpireMinutes, "DEVICE_CODE_EXPIRE_MINUTES")

	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	setString(&c.Logging.File, "LOG_FILE_PATH")
}

func applyDefaults(c *Config) {
	if c.App.Name == "" {
		c.App.Name = "Simple Digital Signage"
	}
	if c.App.Version == "" {
		c.App.Version = "1.0.0"
	}
	if c.App.Env == "" {
		c.App.Env = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Database.MaxOpen == 0 {
		c.Database.MaxOpen = 10
	}
	if c.Auth.AccessTokenMinutes == 0 {
		c.Auth.AccessTokenMinutes = 30
	}
	if c.Auth.RefreshTokenDays == 0 {
		c.Auth.RefreshTokenDays = 7
	}
	if c.Auth.InvitationExpireHours == 0 {
		c.Auth.InvitationExpireHours = 72
	}
	if c.Google.RedirectURI == "" {
		c.Google.RedirectURI = fmt.Sprintf("http://localhost:%d/api/v1/auth/google/callback", c.Server.Port)
	}
	if len(c.Google.Scopes) == 0 {
		c.Google.Scopes = []string{"openid", "email", "profile"}
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Email.FromName == "" {
		c.Email.FromName = c.App.Name
	}
	if c.Limits.DefaultMaxUsers == 0 {
		c.Limits.DefaultMaxUsers = 10
	}
	if c.Limits.DefaultMaxDevices == 0 {
		c.Limits.DefaultMaxDevices = 5
	}
	if c.Limits.MaxDevicesPerUser == 0 {
		c.Limits.MaxDevicesPerUser = 10
	}
	if c.Limits.DeviceCodeExpireMinutes == 0 {
		c.Limits.DeviceCodeExpireMinutes = 15
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func isPlaceholder(secret string) bool {
	s := strings.ToLower(secret)
	return strings.Contains(s, "change-this") || strings.HasPrefix(s, "your-")
}

func validate(c *Config) error {
	if strings.TrimSpace(c.Auth.SecretKey) == "" {
		return errors.New("auth.secret_key must be set")
	}
	if strings.TrimSpace(c.Auth.EncryptionKey) == "" {
		return errors.New("auth.encryption_key must be set")
	}
	if c.IsProduction() && (isPlaceholder(c.Auth.SecretKey) || isPlaceholder(c.Auth.EncryptionKey)) {
		return errors.New("default secret keys must be changed in production")
	}
	if c.Database.DSN != "" &&
		!strings.HasPrefix(c.Database.DSN, "postgres://") &&
		!strings.HasPrefix(c.Database.DSN, "postgresql://") {
		return errors.New("database.url must start with postgres:// or postgresql://")
	}
	if c.Auth.AccessTokenMinutes < 0 || c.Auth.RefreshTokenDays < 0 || c.Auth.InvitationExpireHours < 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.Limits.DefaultMaxUsers < 1 || c.Limits.DefaultMaxDevices < 1 {
		return errors.New("default company limits must be at least 1")
	}
	if c.Limits.MaxDevicesPerUser < 1 {
		return errors.New("limits.max_devices_per_user must be at least 1")
	}
	if c.Limits.DeviceCodeExpireMinutes < 1 {
		return errors.New("limits.device_code_expire_minutes must be at least 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

func setList(dst *[]string, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}
