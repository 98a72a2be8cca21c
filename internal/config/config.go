package config

import (
	"fmt"
	"time"
)

// Config represents the global configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Redis       RedisConfig       `mapstructure:"redis"`
	RabbitMQ    RabbitMQConfig    `mapstructure:"rabbitmq"`
	Discount    DiscountConfig    `mapstructure:"discount"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	WS          WSConfig          `mapstructure:"ws"`
	Log         LogConfig         `mapstructure:"log"`
}

// ServerConfig represents the HTTP server configuration (ws + ops surface)
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RabbitMQConfig represents broker connection configuration
type RabbitMQConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	VHost    string `mapstructure:"vhost"`
	Prefetch int    `mapstructure:"prefetch"`
}

// URL builds the AMQP connection URL
func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s", c.User, c.Password, c.Host, c.Port, c.VHost)
}

// DiscountConfig represents the discount gRPC peer and its circuit breaker
type DiscountConfig struct {
	Addr             string        `mapstructure:"addr"`
	CallTimeout      time.Duration `mapstructure:"call_timeout"`
	BreakerWindow    time.Duration `mapstructure:"breaker_window"`
	BreakerMinCalls  uint32        `mapstructure:"breaker_min_calls"`
	BreakerFailRate  float64       `mapstructure:"breaker_fail_rate"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
	BreakerHalfOpen  uint32        `mapstructure:"breaker_half_open"`
}

// IdempotencyConfig represents the processing marker store configuration
type IdempotencyConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// WSConfig represents the live-connection endpoint configuration
type WSConfig struct {
	ReadLimit      int64         `mapstructure:"read_limit"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	ConnectRate    float64       `mapstructure:"connect_rate"`  // handshakes per second per IP
	ConnectBurst   int           `mapstructure:"connect_burst"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// SetDefaults fills zero values with sane defaults
func (c *Config) SetDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8085
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "debug"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}

	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}

	if c.RabbitMQ.Host == "" {
		c.RabbitMQ.Host = "localhost"
	}
	if c.RabbitMQ.Port == 0 {
		c.RabbitMQ.Port = 5672
	}
	if c.RabbitMQ.User == "" {
		c.RabbitMQ.User = "guest"
	}
	if c.RabbitMQ.Password == "" {
		c.RabbitMQ.Password = "guest"
	}
	if c.RabbitMQ.VHost == "" {
		c.RabbitMQ.VHost = "/"
	}
	if c.RabbitMQ.Prefetch == 0 {
		c.RabbitMQ.Prefetch = 8
	}

	if c.Discount.Addr == "" {
		c.Discount.Addr = "localhost:9090"
	}
	if c.Discount.CallTimeout == 0 {
		c.Discount.CallTimeout = 5 * time.Second
	}
	if c.Discount.BreakerWindow == 0 {
		c.Discount.BreakerWindow = time.Minute
	}
	if c.Discount.BreakerMinCalls == 0 {
		c.Discount.BreakerMinCalls = 10
	}
	if c.Discount.BreakerFailRate == 0 {
		c.Discount.BreakerFailRate = 0.5
	}
	if c.Discount.BreakerCooldown == 0 {
		c.Discount.BreakerCooldown = 30 * time.Second
	}
	if c.Discount.BreakerHalfOpen == 0 {
		c.Discount.BreakerHalfOpen = 5
	}

	if c.Idempotency.TTL == 0 {
		c.Idempotency.TTL = 10 * time.Minute
	}

	if c.WS.ReadLimit == 0 {
		c.WS.ReadLimit = 64 * 1024
	}
	if c.WS.WriteTimeout == 0 {
		c.WS.WriteTimeout = 10 * time.Second
	}
	if c.WS.ConnectRate == 0 {
		c.WS.ConnectRate = 10
	}
	if c.WS.ConnectBurst == 0 {
		c.WS.ConnectBurst = 20
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
}

// Validate checks the configuration for obvious mistakes
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Redis.Host == "" {
		return fmt.Errorf("redis host is required")
	}
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}
	if c.Discount.Addr == "" {
		return fmt.Errorf("discount service address is required")
	}
	if c.Discount.BreakerFailRate <= 0 || c.Discount.BreakerFailRate > 1 {
		return fmt.Errorf("breaker fail rate must be in (0,1]: %f", c.Discount.BreakerFailRate)
	}
	if c.Idempotency.TTL <= 0 {
		return fmt.Errorf("idempotency ttl must be positive")
	}
	return nil
}
