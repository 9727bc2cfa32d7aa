package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port     int    `yaml:"port"`
	GinMode  string `yaml:"gin_mode"`
	LogLevel string `yaml:"log_level"`
	Timezone string `yaml:"timezone"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	LogLevel string `yaml:"log_level"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

type OTPConfig struct {
	TTL          string `yaml:"ttl"`
	Length       int    `yaml:"length"`
	SessionTTL   string `yaml:"session_ttl"`
	ResendLimit  int    `yaml:"resend_limit"`
	ResendWindow string `yaml:"resend_window"`
}

type SMSConfig struct {
	Provider string `yaml:"provider"` // "twilio" or "sns"
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type SNSConfig struct {
	Region string `yaml:"region"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type CasbinConfig struct {
	ModelPath string `yaml:"model_path"`
}

type SchedulerConfig struct {
	SweepInterval string `yaml:"sweep_interval"`
	Enabled       bool   `yaml:"enabled"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type ConfigFile struct {
	App       AppConfig       `yaml:"app"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	OTP       OTPConfig       `yaml:"otp"`
	SMS       SMSConfig       `yaml:"sms"`
	Twilio    TwilioConfig    `yaml:"twilio"`
	SNS       SNSConfig       `yaml:"sns"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Casbin    CasbinConfig    `yaml:"casbin"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type Config struct {
	Port            string
	GinMode         string
	LogLevel        string
	Location        *time.Location
	DSN             string
	DBLogLevel      string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	JWTSecret       string
	JWTIssuer       string
	OTP_TTL         time.Duration
	OTP_Length      int
	SessionTTL      time.Duration
	ResendLimit     int
	ResendWindow    time.Duration
	SMSProvider     string
	TwilioSID       string
	TwilioToken     string
	TwilioFrom      string
	SNSRegion       string
	SMTPHost        string
	SMTPPort        int
	SMTPFrom        string
	SMTPUsername    string
	SMTPPassword    string
	CasbinModelPath string
	SweepInterval   time.Duration
	SweepEnabled    bool
	HTTPRate        float64
	HTTPBurst       int
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

const (
	minOTPLength = 4
	maxOTPLength = 10
)

// Load reads .env (if present), then the YAML file named by CONFIG_PATH
// (default config/config.yml), then applies environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFile(env("CONFIG_PATH", "config/config.yml"))
}

// LoadFile builds a Config from the YAML file at path plus environment overrides.
func LoadFile(path string) (*Config, error) {
	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	applyDefaults(configFile)

	otpTTL, err := time.ParseDuration(env("OTP_TTL", configFile.OTP.TTL))
	if err != nil {
		return nil, fmt.Errorf("invalid OTP TTL: %w", err)
	}
	if otpTTL <= 0 {
		return nil, fmt.Errorf("otp ttl must be positive, got %s", otpTTL)
	}
	if l := configFile.OTP.Length; l < minOTPLength || l > maxOTPLength {
		return nil, fmt.Errorf("otp length must be between %d and %d, got %d", minOTPLength, maxOTPLength, l)
	}

	sessTTL, err := time.ParseDuration(env("OTP_SESSION_TTL", configFile.OTP.SessionTTL))
	if err != nil {
		return nil, fmt.Errorf("invalid OTP session TTL: %w", err)
	}
	if sessTTL <= 0 {
		return nil, fmt.Errorf("otp session ttl must be positive, got %s", sessTTL)
	}
	if sessTTL > otpTTL {
		return nil, fmt.Errorf("otp session ttl %s must not exceed otp ttl %s", sessTTL, otpTTL)
	}

	resWnd, err := time.ParseDuration(env("OTP_RESEND_WINDOW", configFile.OTP.ResendWindow))
	if err != nil {
		return nil, fmt.Errorf("invalid OTP resend window: %w", err)
	}
	if resWnd <= 0 {
		return nil, fmt.Errorf("otp resend window must be positive, got %s", resWnd)
	}
	if configFile.OTP.ResendLimit < 0 {
		return nil, fmt.Errorf("otp resend limit must not be negative, got %d", configFile.OTP.ResendLimit)
	}

	sweepEvery, err := time.ParseDuration(env("SWEEP_INTERVAL", configFile.Scheduler.SweepInterval))
	if err != nil {
		return nil, fmt.Errorf("invalid sweep interval: %w", err)
	}
	if sweepEvery <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", sweepEvery)
	}

	loc, err := time.LoadLocation(env("APP_TIMEZONE", configFile.App.Timezone))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	return &Config{
		Port:            env("APP_PORT", fmt.Sprintf("%d", configFile.App.Port)),
		GinMode:         env("GIN_MODE", configFile.App.GinMode),
		LogLevel:        env("LOG_LEVEL", configFile.App.LogLevel),
		Location:        loc,
		DSN:             env("DATABASE_DSN", configFile.Database.DSN),
		DBLogLevel:      configFile.Database.LogLevel,
		RedisAddr:       env("REDIS_ADDR", configFile.Redis.Addr),
		RedisPassword:   env("REDIS_PASSWORD", configFile.Redis.Password),
		RedisDB:         envInt("REDIS_DB", configFile.Redis.DB),
		JWTSecret:       env("JWT_SECRET", configFile.JWT.Secret),
		JWTIssuer:       configFile.JWT.Issuer,
		OTP_TTL:         otpTTL,
		OTP_Length:      configFile.OTP.Length,
		SessionTTL:      sessTTL,
		ResendLimit:     configFile.OTP.ResendLimit,
		ResendWindow:    resWnd,
		SMSProvider:     env("SMS_PROVIDER", configFile.SMS.Provider),
		TwilioSID:       env("TWILIO_ACCOUNT_SID", configFile.Twilio.AccountSID),
		TwilioToken:     env("TWILIO_AUTH_TOKEN", configFile.Twilio.AuthToken),
		TwilioFrom:      env("TWILIO_FROM_NUMBER", configFile.Twilio.FromNumber),
		SNSRegion:       env("SNS_REGION", configFile.SNS.Region),
		SMTPHost:        env("SMTP_HOST", configFile.SMTP.Host),
		SMTPPort:        envInt("SMTP_PORT", configFile.SMTP.Port),
		SMTPFrom:        env("SMTP_FROM", configFile.SMTP.From),
		SMTPUsername:    env("SMTP_USERNAME", configFile.SMTP.Username),
		SMTPPassword:    env("SMTP_PASSWORD", configFile.SMTP.Password),
		CasbinModelPath: configFile.Casbin.ModelPath,
		SweepInterval:   sweepEvery,
		SweepEnabled:    configFile.Scheduler.Enabled,
		HTTPRate:        configFile.RateLimit.RequestsPerSecond,
		HTTPBurst:       configFile.RateLimit.Burst,
	}, nil
}

func applyDefaults(c *ConfigFile) {
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.Timezone == "" {
		c.App.Timezone = "Local"
	}
	if c.OTP.TTL == "" {
		c.OTP.TTL = "600s"
	}
	if c.OTP.SessionTTL == "" {
		c.OTP.SessionTTL = c.OTP.TTL
	}
	if c.OTP.Length == 0 {
		c.OTP.Length = 6
	}
	if c.OTP.ResendLimit == 0 {
		c.OTP.ResendLimit = 3
	}
	if c.OTP.ResendWindow == "" {
		c.OTP.ResendWindow = "600s"
	}
	if c.SMS.Provider == "" {
		c.SMS.Provider = "twilio"
	}
	if c.Scheduler.SweepInterval == "" {
		c.Scheduler.SweepInterval = "5m"
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 5
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}
