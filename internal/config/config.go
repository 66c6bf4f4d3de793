package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type (
	// Config represents an application configuration.
	Config struct {
		// The data source name (DSN) for connecting to the database.
		// Empty DSN runs the service on the in-memory store.
		DSN string `yaml:"dsn" env:"DATABASE_URI"`
		// Subconfigs.
		HTTPServer    HTTPServer    `yaml:"http_server"`
		JWT           JWT           `yaml:"jwt"`
		Logger        Logger        `yaml:"logger"`
		Currency      Currency      `yaml:"currency"`
		Workflow      Workflow      `yaml:"workflow"`
		Payout        Payout        `yaml:"payout"`
		Notifications Notifications `yaml:"notifications"`
		// Cost of the password to hash. Must be grater than 3.
		PasswordHashCost int `yaml:"password_hash_cost" env:"PASSWORD_HASH_COST" env-default:"14"`
	}
	// Config for HTTP server.
	HTTPServer struct {
		// The server startup address.
		Address string `yaml:"run_address" env:"RUN_ADDRESS" env-default:"127.0.0.1:8080"`
		// Read Header Timeout in seconds.
		Timeout time.Duration `yaml:"timeout" env-default:"5s"`
		// Idle timeoutin in seconds.
		IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
		// Shutdown timeout in seconds.
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
	}
	// Config for application's logger.
	Logger struct {
		// Path to store log files.
		Path string `yaml:"path" env:"LOG_PATH"`
		// Application logging level.
		Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
		// Log files details.
		MaxSizeMB  int `yaml:"max_size_mb" env-default:"100"`
		MaxBackups int `yaml:"max_backups" env-default:"3"`
		MaxAgeDays int `yaml:"max_age_days" env-default:"28"`
	}
	// Config for JWT.
	JWT struct {
		// JWT signing key.
		SigningKey string `yaml:"signing_key" env:"JWT_SIGNING_KEY"`
		// JWT expiration in hours.
		Expiration time.Duration `yaml:"expiration" env:"JWT_EXPIRATION" env-default:"24h"`
	}
	// Config for money representation.
	Currency struct {
		// Digits between major units on the wire and stored minor units.
		Exponent int32 `yaml:"exponent" env:"CURRENCY_EXPONENT" env-default:"2"`
	}
	// Config for the withdrawal workflow.
	Workflow struct {
		// Refuse to execute requests that are not approved by every co-owner.
		RequireApproval bool `yaml:"require_approval" env:"WORKFLOW_REQUIRE_APPROVAL"`
		// Refuse to execute the same request twice.
		SingleExecution bool `yaml:"single_execution" env:"WORKFLOW_SINGLE_EXECUTION"`
	}
	// Config for the payout system that receives released funds.
	Payout struct {
		// Empty address accepts every transfer without calling out.
		Address string `yaml:"address" env:"PAYOUT_SYSTEM_ADDRESS"`
		// Request timeout.
		Timeout time.Duration `yaml:"timeout" env-default:"10s"`
		// One request per interval, bursts up to Burst.
		RateInterval time.Duration `yaml:"rate_interval" env-default:"100ms"`
		Burst        int           `yaml:"burst" env-default:"10"`
	}
	// Config for the notification relay.
	Notifications struct {
		// Empty URL writes notifications to the log.
		WebhookURL   string        `yaml:"webhook_url" env:"NOTIFICATIONS_WEBHOOK_URL"`
		Timeout      time.Duration `yaml:"timeout" env-default:"5s"`
		BatchSize    int           `yaml:"batch_size" env-default:"100"`
		PollInterval time.Duration `yaml:"poll_interval" env-default:"1s"`
		MaxAttempts  int           `yaml:"max_attempts" env-default:"10"`
	}
)

// MustLoad returns an application configuration which is populated
// from the given configuration file, environment variables and flags.
// It stops the program on any error.
func MustLoad() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// Load reads the YAML file given with -config (if it exists),
// then command line flags, then environment variables.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("jointaccount", flag.ContinueOnError)

	// Configuration yaml file path.
	configPath := fs.String("config", "./config/local.yml", "path to the config file")
	address := fs.String("a", "", "server startup address")
	dsn := fs.String("d", "", "server data source name")
	payout := fs.String("p", "", "server address of the payout system")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var cfg Config

	// Load from YAML cfg file.
	if _, err := os.Stat(*configPath); err == nil {
		file, err := os.Open(*configPath)
		if err != nil {
			return nil, fmt.Errorf("open config file %s: %w", *configPath, err)
		}
		defer file.Close()

		if err = cleanenv.ParseYAML(file, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", *configPath, err)
		}
	}

	// Read given flags.
	if *address != "" {
		cfg.HTTPServer.Address = *address
	}
	if *dsn != "" {
		cfg.DSN = *dsn
	}
	if *payout != "" {
		cfg.Payout.Address = *payout
	}

	// Read environment variables.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports settings that would make the service misbehave.
func (c *Config) Validate() error {
	if c.PasswordHashCost < 4 {
		return errors.New("config: password hash cost must be greater than 3")
	}
	if c.Currency.Exponent < 0 || c.Currency.Exponent > 18 {
		return fmt.Errorf("config: currency exponent %d is out of range [0, 18]", c.Currency.Exponent)
	}
	if c.Notifications.BatchSize <= 0 {
		return errors.New("config: notifications batch size must be positive")
	}
	if c.Payout.Burst <= 0 {
		return errors.New("config: payout burst must be positive")
	}
	return nil
}
