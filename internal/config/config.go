package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Geocoder GeocoderConfig
	Geocache GeocacheConfig
	Query    QueryConfig
	Log      LogConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

// StorageConfig selects the storage backend. Every backend honors the same
// store interfaces; nothing above the repository layer branches on it.
type StorageConfig struct {
	Backend string // "redis" or "postgres"
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type GeocoderConfig struct {
	// Mapbox is the primary commercial provider; disabled when the token
	// is empty.
	MapboxToken   string
	MapboxBaseURL string

	// LocalNominatimURL points at the self-hosted open-data index, which in
	// this deployment holds domestic data only.
	LocalNominatimURL     string
	LocalNominatimEnabled bool

	// PublicNominatimURL is the shared public instance, used as a last
	// resort and rate-limited to stay inside its usage policy.
	PublicNominatimURL string
	PublicRateRPS      float64

	RequestTimeout time.Duration
	SuggestLimit   int
}

type GeocacheConfig struct {
	MaxEntries int
	EvictBatch int
}

type QueryConfig struct {
	DefaultRadiusKm      float64
	MaxCells             int
	DayScanBatch         int
	DefaultWindowDays    int
	CalendarWindowMonths int
	CalendarCap          int
	EventRetention       time.Duration
}

type LogConfig struct {
	Level string
}

type WorkerConfig struct {
	Enabled        bool
	ImportInterval time.Duration
	BackfillBatch  int
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("API_HOST"),
			Port: viper.GetInt("API_PORT"),
			Env:  viper.GetString("API_ENV"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(viper.GetString("STORAGE_BACKEND")),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			DBName:          viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxConns:        viper.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(viper.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Geocoder: GeocoderConfig{
			MapboxToken:           viper.GetString("MAPBOX_ACCESS_TOKEN"),
			MapboxBaseURL:         viper.GetString("MAPBOX_BASE_URL"),
			LocalNominatimURL:     viper.GetString("NOMINATIM_LOCAL_URL"),
			LocalNominatimEnabled: viper.GetBool("NOMINATIM_LOCAL_ENABLED"),
			PublicNominatimURL:    viper.GetString("NOMINATIM_PUBLIC_URL"),
			PublicRateRPS:         viper.GetFloat64("NOMINATIM_PUBLIC_RATE_RPS"),
			RequestTimeout:        time.Duration(viper.GetInt("GEOCODER_REQUEST_TIMEOUT")) * time.Second,
			SuggestLimit:          viper.GetInt("GEOCODER_SUGGEST_LIMIT"),
		},
		Geocache: GeocacheConfig{
			MaxEntries: viper.GetInt("GEOCACHE_MAX_ENTRIES"),
			EvictBatch: viper.GetInt("GEOCACHE_EVICT_BATCH"),
		},
		Query: QueryConfig{
			DefaultRadiusKm:      viper.GetFloat64("QUERY_DEFAULT_RADIUS_KM"),
			MaxCells:             viper.GetInt("QUERY_MAX_CELLS"),
			DayScanBatch:         viper.GetInt("QUERY_DAY_SCAN_BATCH"),
			DefaultWindowDays:    viper.GetInt("QUERY_DEFAULT_WINDOW_DAYS"),
			CalendarWindowMonths: viper.GetInt("QUERY_CALENDAR_WINDOW_MONTHS"),
			CalendarCap:          viper.GetInt("QUERY_CALENDAR_CAP"),
			EventRetention:       time.Duration(viper.GetInt("EVENT_RETENTION_DAYS")) * 24 * time.Hour,
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Worker: WorkerConfig{
			Enabled:        viper.GetBool("WORKER_ENABLED"),
			ImportInterval: time.Duration(viper.GetInt("WORKER_IMPORT_INTERVAL")) * time.Second,
			BackfillBatch:  viper.GetInt("WORKER_BACKFILL_BATCH"),
		},
	}

	// Set default values if not provided
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "redis"
	}
	if cfg.Geocoder.MapboxBaseURL == "" {
		cfg.Geocoder.MapboxBaseURL = "https://api.mapbox.com"
	}
	if cfg.Geocoder.PublicNominatimURL == "" {
		cfg.Geocoder.PublicNominatimURL = "https://nominatim.openstreetmap.org"
	}
	if cfg.Geocoder.PublicRateRPS == 0 {
		cfg.Geocoder.PublicRateRPS = 1
	}
	if cfg.Geocoder.RequestTimeout == 0 {
		cfg.Geocoder.RequestTimeout = 10 * time.Second
	}
	if cfg.Geocoder.SuggestLimit == 0 {
		cfg.Geocoder.SuggestLimit = 5
	}
	if cfg.Geocache.MaxEntries == 0 {
		cfg.Geocache.MaxEntries = 10000
	}
	if cfg.Geocache.EvictBatch == 0 {
		cfg.Geocache.EvictBatch = 100
	}
	if cfg.Query.DefaultRadiusKm == 0 {
		cfg.Query.DefaultRadiusKm = 100
	}
	if cfg.Query.MaxCells == 0 {
		cfg.Query.MaxCells = 50
	}
	if cfg.Query.DayScanBatch == 0 {
		cfg.Query.DayScanBatch = 10
	}
	if cfg.Query.DefaultWindowDays == 0 {
		cfg.Query.DefaultWindowDays = 90
	}
	if cfg.Query.CalendarWindowMonths == 0 {
		cfg.Query.CalendarWindowMonths = 3
	}
	if cfg.Query.CalendarCap == 0 {
		cfg.Query.CalendarCap = 5000
	}
	if cfg.Query.EventRetention == 0 {
		cfg.Query.EventRetention = 30 * 24 * time.Hour
	}
	if cfg.Worker.ImportInterval == 0 {
		cfg.Worker.ImportInterval = 300 * time.Second
	}
	if cfg.Worker.BackfillBatch == 0 {
		cfg.Worker.BackfillBatch = 25
	}

	return cfg, nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
