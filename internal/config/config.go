package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	UploadDir    string `mapstructure:"upload_dir" yaml:"upload_dir"`

	OTPSecret    string        `mapstructure:"otp_secret" yaml:"otp_secret"`
	AccessSecret string        `mapstructure:"access_secret" yaml:"access_secret"`
	JWTIssuer    string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience  string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	OTPTTL       time.Duration `mapstructure:"otp_ttl" yaml:"otp_ttl"`
	AccessTTL    time.Duration `mapstructure:"access_ttl" yaml:"access_ttl"`

	IdentityWaitTimeout time.Duration `mapstructure:"identity_wait_timeout" yaml:"identity_wait_timeout"`
	OTPRateLimit        int           `mapstructure:"otp_rate_limit" yaml:"otp_rate_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",

		DatabasePath: "peyk.db",
		UploadDir:    "uploads",

		OTPSecret:    "dev-otp-secret-change-me",
		AccessSecret: "dev-access-secret-change-me",
		JWTIssuer:    "peyk-server",
		JWTAudience:  "peyk-client",
		OTPTTL:       2 * time.Minute,
		AccessTTL:    24 * time.Hour,

		IdentityWaitTimeout: 5 * time.Second,
		OTPRateLimit:        30,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.UploadDir != "" {
		c.UploadDir = other.UploadDir
	}
}
