package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration is the root application configuration, loaded from
// config.yaml and overridable with BILLING_* environment variables.
type Configuration struct {
	Deployment   DeploymentConfig   `mapstructure:"deployment"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Postgres     PostgresConfig     `mapstructure:"postgres"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Billing      BillingConfig      `mapstructure:"billing"`
	Gateways     GatewaysConfig     `mapstructure:"gateways"`
	Provisioning ProvisioningConfig `mapstructure:"provisioning"`
}

type DeploymentConfig struct {
	Mode string `mapstructure:"mode" validate:"required"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host" validate:"required"`
	Port                   int    `mapstructure:"port" validate:"required"`
	User                   string `mapstructure:"user" validate:"required"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname" validate:"required"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
}

func (c PostgresConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, sslMode,
	)
}

type KafkaConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	Brokers           []string `mapstructure:"brokers"`
	ClientID          string   `mapstructure:"client_id"`
	NotificationTopic string   `mapstructure:"notification_topic"`
	TLS               bool     `mapstructure:"tls"`
	UseSASL           bool     `mapstructure:"use_sasl"`
	SASLMechanism     string   `mapstructure:"sasl_mechanism"`
	SASLUser          string   `mapstructure:"sasl_user"`
	SASLPassword      string   `mapstructure:"sasl_password"`
}

// BillingConfig carries the renewal policy knobs. Defaults match the
// production policy: 30-day renewal period, 3-day proration floor,
// 1-minute scheduler cadence with a 2-minute checkpoint tolerance,
// 30-second ingestion cadence over a trailing 5-minute window.
type BillingConfig struct {
	RenewalPeriodDays       int           `mapstructure:"renewal_period_days" validate:"required,gt=0"`
	MinPartialRenewalDays   int           `mapstructure:"min_partial_renewal_days" validate:"gte=0"`
	SchedulerInterval       time.Duration `mapstructure:"scheduler_interval"`
	CheckpointTolerance     time.Duration `mapstructure:"checkpoint_tolerance"`
	IngestionInterval       time.Duration `mapstructure:"ingestion_interval"`
	IngestionTrailingWindow time.Duration `mapstructure:"ingestion_trailing_window"`
}

type GatewayConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GatewaysConfig struct {
	MobileMoney GatewayConfig `mapstructure:"mobile_money"`
	Bank        GatewayConfig `mapstructure:"bank"`
}

type ProvisioningConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// NewConfig loads configuration from ./config/config.yaml and the
// environment. A missing config file is not fatal so long as required
// values arrive via environment variables.
func NewConfig() (*Configuration, error) {
	// Load .env if present; environment always wins over file values
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", "local")
	v.SetDefault("logging.level", "info")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "billing")
	v.SetDefault("postgres.dbname", "billing")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 30)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.client_id", "billing-engine")
	v.SetDefault("kafka.notification_topic", "billing.notifications")

	v.SetDefault("billing.renewal_period_days", 30)
	v.SetDefault("billing.min_partial_renewal_days", 3)
	v.SetDefault("billing.scheduler_interval", time.Minute)
	v.SetDefault("billing.checkpoint_tolerance", 2*time.Minute)
	v.SetDefault("billing.ingestion_interval", 30*time.Second)
	v.SetDefault("billing.ingestion_trailing_window", 5*time.Minute)

	v.SetDefault("gateways.mobile_money.timeout", 15*time.Second)
	v.SetDefault("gateways.bank.timeout", 15*time.Second)
	v.SetDefault("provisioning.timeout", 15*time.Second)
}

// Validate runs struct-tag validation over the configuration
func (c *Configuration) Validate() error {
	return validator.New().Struct(c)
}

// GetDefaultConfig returns a configuration suitable for tests and scripts
// without reading any file or environment.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: "test"},
		Logging:    LoggingConfig{Level: "debug"},
		Billing: BillingConfig{
			RenewalPeriodDays:       30,
			MinPartialRenewalDays:   3,
			SchedulerInterval:       time.Minute,
			CheckpointTolerance:     2 * time.Minute,
			IngestionInterval:       30 * time.Second,
			IngestionTrailingWindow: 5 * time.Minute,
		},
	}
}
