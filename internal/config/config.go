package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	GatewayRazorpay = "razorpay"
	GatewaySandbox  = "sandbox"

	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMySQL  = "mysql"

	BrokerNone     = "none"
	BrokerRabbitMQ = "rabbitmq"
	BrokerKafka    = "kafka"
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

type Config struct {
	Port      string `mapstructure:"PORT"`
	Currency  string `mapstructure:"CURRENCY"`
	StoreName string `mapstructure:"STORE_NAME"`

	GatewayMode           string        `mapstructure:"GATEWAY_MODE"`
	RazorpayKeyID         string        `mapstructure:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string        `mapstructure:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string        `mapstructure:"RAZORPAY_WEBHOOK_SECRET"`
	RazorpayBaseURL       string        `mapstructure:"RAZORPAY_BASE_URL"`
	GatewayTimeout        time.Duration `mapstructure:"GATEWAY_TIMEOUT"`

	CatalogPath string `mapstructure:"CATALOG_PATH"`

	OrderStore string `mapstructure:"ORDER_STORE"`
	RedisAddr  string `mapstructure:"REDIS_ADDR"`
	RedisDB    int    `mapstructure:"REDIS_DB"`

	MySQLUser     string `mapstructure:"MYSQL_USER"`
	MySQLPassword string `mapstructure:"MYSQL_PASSWORD"`
	MySQLHost     string `mapstructure:"MYSQL_HOST"`
	MySQLPort     string `mapstructure:"MYSQL_PORT"`
	MySQLDatabase string `mapstructure:"MYSQL_DATABASE"`

	EventsBroker     string `mapstructure:"EVENTS_BROKER"`
	RabbitMQURL      string `mapstructure:"RABBITMQ_URL"`
	RabbitMQExchange string `mapstructure:"RABBITMQ_EXCHANGE"`
	KafkaBrokers     string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic       string `mapstructure:"KAFKA_TOPIC"`
}

var defaults = map[string]any{
	"PORT":                    "8080",
	"CURRENCY":                "INR",
	"STORE_NAME":              "Glitch",
	"GATEWAY_MODE":            GatewayRazorpay,
	"RAZORPAY_KEY_ID":         "",
	"RAZORPAY_KEY_SECRET":     "",
	"RAZORPAY_WEBHOOK_SECRET": "",
	"RAZORPAY_BASE_URL":       "https://api.razorpay.com/v1",
	"GATEWAY_TIMEOUT":         "10s",
	"CATALOG_PATH":            "",
	"ORDER_STORE":             StoreMemory,
	"REDIS_ADDR":              "localhost:6379",
	"REDIS_DB":                0,
	"MYSQL_USER":              "",
	"MYSQL_PASSWORD":          "",
	"MYSQL_HOST":              "localhost",
	"MYSQL_PORT":              "3306",
	"MYSQL_DATABASE":          "checkout",
	"EVENTS_BROKER":           BrokerNone,
	"RABBITMQ_URL":            "",
	"RABBITMQ_EXCHANGE":       "order.exchange",
	"KAFKA_BROKERS":           "",
	"KAFKA_TOPIC":             "checkout.orders",
}

// Load reads defaults, then the optional YAML file at path, then the
// environment. Later sources win.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	c.GatewayMode = strings.ToLower(strings.TrimSpace(c.GatewayMode))
	c.OrderStore = strings.ToLower(strings.TrimSpace(c.OrderStore))
	c.EventsBroker = strings.ToLower(strings.TrimSpace(c.EventsBroker))
}

// Validate checks settings needed to serve traffic.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if !currencyCode.MatchString(c.Currency) {
		errs = append(errs, fmt.Errorf("CURRENCY must be an ISO 4217 code, got %q", c.Currency))
	}
	if c.GatewayTimeout <= 0 {
		errs = append(errs, errors.New("GATEWAY_TIMEOUT must be positive"))
	}
	if c.RazorpayKeySecret == "" {
		errs = append(errs, errors.New("RAZORPAY_KEY_SECRET is required"))
	}

	switch c.GatewayMode {
	case GatewayRazorpay:
		if c.RazorpayKeyID == "" {
			errs = append(errs, errors.New("RAZORPAY_KEY_ID is required in razorpay mode"))
		}
	case GatewaySandbox:
	default:
		errs = append(errs, fmt.Errorf("unknown GATEWAY_MODE %q", c.GatewayMode))
	}

	switch c.OrderStore {
	case StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis store"))
		}
	case StoreMySQL:
		if c.MySQLUser == "" || c.MySQLHost == "" || c.MySQLDatabase == "" {
			errs = append(errs, errors.New("MYSQL_USER, MYSQL_HOST and MYSQL_DATABASE are required for the mysql store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ORDER_STORE %q", c.OrderStore))
	}

	switch c.EventsBroker {
	case BrokerNone:
	case BrokerRabbitMQ:
		if c.RabbitMQURL == "" {
			errs = append(errs, errors.New("RABBITMQ_URL is required for the rabbitmq broker"))
		}
	case BrokerKafka:
		if c.KafkaBrokers == "" {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka broker"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EVENTS_BROKER %q", c.EventsBroker))
	}

	return errors.Join(errs...)
}

func (c *Config) WebhookEnabled() bool {
	return c.RazorpayWebhookSecret != ""
}
