package config

import (
	"flag"
	"regexp"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

const (
	defaultBaseURL      = "localhost:8081"
	defaultBlobMaxSize  = "50MB"
	defaultStoreTimeout = 5 * time.Second
	defaultUser         = "anonymous"
)

type Config struct {
	// Server-side settings
	DatabaseDSN  string        `env:"DATABASE_URI"`
	BlobBackend  string        `env:"BLOB_BACKEND"`
	BlobDir      string        `env:"BLOB_DIR"`
	BlobMaxSize  string        `env:"BLOB_MAX_SIZE"`
	BlobMaxBytes int64         `env:"-"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT"`

	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`

	// Shared settings
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`

	// Client-side settings
	ServerURL string `env:"-"`
	User      string `env:"CHAT_USER"`
	Version   bool   `env:"-"` // show client version and exit (flag only)
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags работают как override поверх env
	// Server flags
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД (postgres DSN или путь sqlite)")
	flag.StringVar(&cfg.BlobBackend, "blob-backend", cfg.BlobBackend, "хранилище вложений: local | s3")
	flag.StringVar(&cfg.BlobDir, "blob-dir", cfg.BlobDir, "каталог вложений для local backend")
	flag.StringVar(&cfg.BlobMaxSize, "blob-max-size", cfg.BlobMaxSize, "максимальный размер вложения, например 50MB")
	flag.DurationVar(&cfg.StoreTimeout, "store-timeout", cfg.StoreTimeout, "таймаут одного вызова хранилища")
	// Shared/client flags
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "address of the chat server (host:port)")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS (client: prefer https scheme for BaseURL)")
	// Client flags
	flag.StringVar(&cfg.User, "user", cfg.User, "имя отправителя сообщений (client)")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show client version and exit")

	flag.Parse()

	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.BlobBackend == "" {
		cfg.BlobBackend = "local"
	}
	if cfg.BlobDir == "" {
		cfg.BlobDir = "./attachments"
	}
	if cfg.BlobMaxSize == "" {
		cfg.BlobMaxSize = defaultBlobMaxSize
	}
	size, err := humanize.ParseBytes(cfg.BlobMaxSize)
	if err != nil || size == 0 {
		cfg.BlobMaxSize = defaultBlobMaxSize
		size, _ = humanize.ParseBytes(defaultBlobMaxSize)
	}
	cfg.BlobMaxBytes = int64(size)

	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}

	// validate BaseURL: must be in "address:port" (no scheme, no path). Otherwise use default.
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}

	if cfg.User == "" {
		cfg.User = defaultUser
	}
}
