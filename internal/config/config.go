package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env          string        `yaml:"env" env:"ENV" env-default:"local"`
	StoragePath  string        `yaml:"storage_path" env:"STORAGE_PATH" env-required:"true"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"1h"`
	Secret       string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	PasswordCost int           `yaml:"password_cost" env-default:"10"`
	AdminEmails  []string      `yaml:"admin_emails" env:"ADMIN_EMAILS" env-separator:","`
	HTTPServer   `yaml:"http_server"`
	Session      Session `yaml:"session"`
	Blob         Blob    `yaml:"blob"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"5s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

// Session configures the store that keeps partial registrations between steps.
type Session struct {
	Store        string        `yaml:"store" env:"SESSION_STORE" env-default:"sqlite"`
	Lifetime     time.Duration `yaml:"lifetime" env-default:"24h"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env-default:"1h"`
	CookieName   string        `yaml:"cookie_name" env-default:"registration_session"`
	CookieSecure bool          `yaml:"cookie_secure" env-default:"false"`
	Redis        Redis         `yaml:"redis"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

// Blob configures where article attachments are uploaded.
type Blob struct {
	Driver string    `yaml:"driver" env:"BLOB_DRIVER" env-default:"local"`
	Folder string    `yaml:"folder" env-default:"newsportal_uploads"`
	Local  LocalBlob `yaml:"local"`
	S3     S3Blob    `yaml:"s3"`
}

type LocalBlob struct {
	Dir     string `yaml:"dir" env-default:"./uploads"`
	BaseURL string `yaml:"base_url" env-default:"http://localhost:8080/uploads"`
}

type S3Blob struct {
	Bucket        string `yaml:"bucket" env:"S3_BUCKET"`
	Region        string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	Endpoint      string `yaml:"endpoint" env:"S3_ENDPOINT"`
	AccessKey     string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey     string `yaml:"secret_key" env:"S3_SECRET_KEY"`
	PublicBaseURL string `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL"`
}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	cfg, err := Load(path)
	if err != nil {
		log.Panicf("error loading config: %v", err)
	}

	return cfg
}

// Load reads the YAML file at path and applies environment overrides.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("error opening config file: %w", err)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return &cfg, nil
}

func fetchConfigPath() string {
	var path string
	flag.StringVar(&path, "config", "", "sets path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	return path
}
