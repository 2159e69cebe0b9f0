package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env             string        `yaml:"env" env-default:"local"`
	Storage         string        `yaml:"storage" env-default:"sqlite"`
	StoragePath     string        `yaml:"storage_path"`
	Mongo           MongoConfig   `yaml:"mongo"`
	HTTP            HTTPConfig    `yaml:"http"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env-default:"168h"`
	JWTSecret       string        `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	LoginRateLimit  RateLimit     `yaml:"login_rate_limit"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type HTTPConfig struct {
	Port    int           `yaml:"port" env-default:"8080"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

type RateLimit struct {
	Window time.Duration `yaml:"window" env-default:"15m"`
	Max    int           `yaml:"max" env-default:"1000"`
}

// LoadConfig reads the YAML config and the environment. A missing config
// file or a missing JWT_SECRET is fatal: the process refuses to start rather
// than serve with an insecure or incomplete configuration.
func LoadConfig(path string) *Config {
	var cfg Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		panic("config file not found: " + path)
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	return &cfg
}
