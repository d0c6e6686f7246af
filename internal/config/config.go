package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the POS backend.
type Config struct {
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	Redis    RedisConfig
	POS      POSConfig
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// RabbitMQConfig holds RabbitMQ connection configuration. An empty host
// disables kitchen event publishing.
type RabbitMQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

// RedisConfig holds Redis connection configuration. An empty host
// disables the order-detail cache.
type RedisConfig struct {
	Host string
	Port int
}

// POSConfig holds business configuration for the order engine.
type POSConfig struct {
	TaxRate               float64
	ModifierPolicy        string
	RequestTimeoutSeconds int
}

// Load reads configuration from a YAML file. Only the flat
// section/key format used by config.yaml is supported.
func Load(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	config := &Config{
		POS: POSConfig{
			TaxRate:               0.10,
			ModifierPolicy:        "strict",
			RequestTimeoutSeconds: 30,
		},
	}

	scanner := bufio.NewScanner(file)
	var currentSection string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Section headers
		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			currentSection = strings.TrimSuffix(line, ":")
			continue
		}

		// Key-value pairs
		if strings.Contains(line, ":") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.Trim(strings.TrimSpace(parts[1]), `"`)

			if err := config.setValue(currentSection, key, value); err != nil {
				return nil, fmt.Errorf("failed to set config value %s.%s: %w", currentSection, key, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) setValue(section, key, value string) error {
	switch section {
	case "database":
		return c.setDatabaseValue(key, value)
	case "rabbitmq":
		return c.setRabbitMQValue(key, value)
	case "redis":
		return c.setRedisValue(key, value)
	case "pos":
		return c.setPOSValue(key, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func (c *Config) setDatabaseValue(key, value string) error {
	switch key {
	case "host":
		c.Database.Host = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port value: %w", err)
		}
		c.Database.Port = port
	case "user":
		c.Database.User = value
	case "password":
		c.Database.Password = value
	case "database":
		c.Database.Database = value
	default:
		return fmt.Errorf("unknown database key: %s", key)
	}
	return nil
}

func (c *Config) setRabbitMQValue(key, value string) error {
	switch key {
	case "host":
		c.RabbitMQ.Host = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port value: %w", err)
		}
		c.RabbitMQ.Port = port
	case "user":
		c.RabbitMQ.User = value
	case "password":
		c.RabbitMQ.Password = value
	default:
		return fmt.Errorf("unknown rabbitmq key: %s", key)
	}
	return nil
}

func (c *Config) setRedisValue(key, value string) error {
	switch key {
	case "host":
		c.Redis.Host = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port value: %w", err)
		}
		c.Redis.Port = port
	default:
		return fmt.Errorf("unknown redis key: %s", key)
	}
	return nil
}

func (c *Config) setPOSValue(key, value string) error {
	switch key {
	case "tax_rate":
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid tax_rate value: %w", err)
		}
		c.POS.TaxRate = rate
	case "modifier_policy":
		c.POS.ModifierPolicy = value
	case "request_timeout_seconds":
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid request_timeout_seconds value: %w", err)
		}
		c.POS.RequestTimeoutSeconds = seconds
	default:
		return fmt.Errorf("unknown pos key: %s", key)
	}
	return nil
}

func (c *Config) validate() error {
	if c.POS.TaxRate < 0 || c.POS.TaxRate >= 1 {
		return fmt.Errorf("pos.tax_rate must be in [0, 1), got %v", c.POS.TaxRate)
	}
	if c.POS.ModifierPolicy != "strict" && c.POS.ModifierPolicy != "lenient" {
		return fmt.Errorf("pos.modifier_policy must be strict or lenient, got %q", c.POS.ModifierPolicy)
	}
	if c.POS.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("pos.request_timeout_seconds must be positive, got %d", c.POS.RequestTimeoutSeconds)
	}
	return nil
}

// DatabaseURL returns a PostgreSQL connection URL.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL.
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}

// RabbitMQEnabled reports whether kitchen event publishing is configured.
func (c *Config) RabbitMQEnabled() bool {
	return c.RabbitMQ.Host != ""
}

// RedisAddr returns the Redis host:port address.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// RedisEnabled reports whether the order-detail cache is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}
