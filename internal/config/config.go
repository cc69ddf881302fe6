// config предоставляет структуру конфигурации сервиса тональности новостей
// и функции загрузки из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — корневая конфигурация сервиса.
// Приоритет источников:
//  1. явный путь, переданный в Load (флаг --config);
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
type Config struct {
	Env          string        `yaml:"env"     env:"ENV"        env-default:"local"`
	HTTP         HTTPConfig    `yaml:"http"`
	GRPC         GRPCConfig    `yaml:"grpc"`
	DB           DBConfig      `yaml:"db"`
	Redis        RedisConfig   `yaml:"redis"`
	Lexicon      LexiconConfig `yaml:"lexicon"`
	Fetcher      FetcherConfig `yaml:"fetcher"`
	LimitsConfig LimitsConfig  `yaml:"limits"`
	Timeouts     TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	// Service — таймаут обработки одного запроса (HTTP/gRPC).
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
	// Fetch — таймаут HTTP-клиента источников.
	Fetch time.Duration `yaml:"fetch" env:"FETCH_TIMEOUT" env-default:"30s"`
	// Shutdown — время на корректную остановку серверов.
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// GRPCConfig — сетевые настройки gRPC-сервера (только health).
type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50053"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// Addr возвращает адрес в формате host:port.
func (g HTTPConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// DBConfig — настройки подключения к базе данных.
type DBConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL" env-required:"true"`
}

// RedisConfig — распределённая блокировка ингеста.
// Пустой URL — блокировка внутри процесса.
type RedisConfig struct {
	URL     string        `yaml:"url"      env:"REDIS_URL"`
	LockKey string        `yaml:"lock_key" env:"REDIS_LOCK_KEY" env-default:"sentiment:ingest:lock"`
	LockTTL time.Duration `yaml:"lock_ttl" env:"REDIS_LOCK_TTL" env-default:"10m"`
}

// LexiconConfig — путь к CSV словаря.
type LexiconConfig struct {
	Path string `yaml:"path" env:"LEXICON_PATH" env-default:"data/lexicon.csv"`
}

// FetcherConfig — параметры периодического ингеста.
type FetcherConfig struct {
	Query    string        `yaml:"query"    env:"FETCH_QUERY"    env-default:"finance OR economy OR stocks OR market"`
	Lookback time.Duration `yaml:"lookback" env:"FETCH_LOOKBACK" env-default:"24h"`
	Interval time.Duration `yaml:"interval" env:"FETCH_INTERVAL" env-default:"6h"`
	NewsAPI  NewsAPIConfig `yaml:"newsapi"`
	RSS      RSSConfig     `yaml:"rss"`
}

// NewsAPIConfig — клиент NewsAPI. Без ключа источник отключён.
type NewsAPIConfig struct {
	APIKey  string `yaml:"api_key"  env:"NEWS_API_KEY"`
	BaseURL string `yaml:"base_url" env:"NEWS_API_BASE_URL" env-default:"https://newsapi.org"`
	// Список идентификаторов издателей. Через ENV — разделитель запятая.
	Sources  []string `yaml:"sources"   env:"NEWS_API_SOURCES" env-separator:"," env-default:"bloomberg,reuters,financial-times,the-wall-street-journal,business-insider,cnbc"`
	PageSize int      `yaml:"page_size" env:"NEWS_API_PAGE_SIZE" env-default:"50"`
}

// RSSConfig — дополнительные RSS/Atom ленты.
type RSSConfig struct {
	// Список URL лент. Можно задать через ENV RSS_FEEDS, разделитель — запятая.
	Feeds       []string `yaml:"feeds"       env:"RSS_FEEDS" env-separator:","`
	Concurrency int      `yaml:"concurrency" env:"RSS_CONCURRENCY" env-default:"5"`
}

// LimitsConfig — серверные лимиты на выдачу.
type LimitsConfig struct {
	// Применяется при запросе с limit=0.
	Default int32 `yaml:"default" env:"DEFAULT_LIMIT" env-default:"20"`
	// Верхняя граница для limit.
	Max int32 `yaml:"max" env:"MAX_LIMIT" env-default:"200"`
	// Глубина /api/sentiment-data по умолчанию и максимум, в днях.
	DefaultDays int `yaml:"default_days" env:"DEFAULT_DAYS" env-default:"30"`
	MaxDays     int `yaml:"max_days"     env:"MAX_DAYS"     env-default:"365"`
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
func Load(path string) (*Config, error) {
	var cfg Config

	read := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file does not exist: %s", p)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", p, err)
		}
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	if path != "" {
		return read(path)
	}

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return read(envPath)
	}

	if _, err := os.Stat("local.yaml"); err == nil {
		return read("local.yaml")
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// HasSources сообщает, настроен ли хотя бы один источник статей.
func (f FetcherConfig) HasSources() bool {
	return f.NewsAPI.APIKey != "" || len(f.RSS.Feeds) > 0
}

// validate — базовая валидация значений.
func (c *Config) validate() error {
	if c.DB.URL == "" {
		return fmt.Errorf("db.url is required")
	}
	if c.Lexicon.Path == "" {
		return fmt.Errorf("lexicon.path is required")
	}
	if !c.Fetcher.HasSources() {
		return fmt.Errorf("fetcher: set newsapi.api_key or at least one rss feed")
	}
	if c.Fetcher.Interval < time.Minute {
		return fmt.Errorf("fetcher.interval must be at least 1m")
	}
	if c.Fetcher.Lookback <= 0 {
		return fmt.Errorf("fetcher.lookback must be > 0")
	}
	if c.Fetcher.NewsAPI.PageSize <= 0 || c.Fetcher.NewsAPI.PageSize > 100 {
		return fmt.Errorf("fetcher.newsapi.page_size must be in (0, 100]")
	}
	if c.Fetcher.RSS.Concurrency <= 0 {
		return fmt.Errorf("fetcher.rss.concurrency must be > 0")
	}
	if c.Redis.URL != "" && c.Redis.LockTTL <= 0 {
		return fmt.Errorf("redis.lock_ttl must be > 0")
	}
	if c.LimitsConfig.Default <= 0 {
		return fmt.Errorf("limits.default must be > 0")
	}
	if c.LimitsConfig.Max <= 0 {
		return fmt.Errorf("limits.max must be > 0")
	}
	if c.LimitsConfig.Default > c.LimitsConfig.Max {
		return fmt.Errorf("limits.default must be <= limits.max")
	}
	if c.LimitsConfig.DefaultDays <= 0 || c.LimitsConfig.DefaultDays > c.LimitsConfig.MaxDays {
		return fmt.Errorf("limits.default_days must be in (0, limits.max_days]")
	}
	return nil
}
