package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Bot      BotConfig
	API      APIConfig
	SMM      SMMConfig
	Order    OrderConfig
	Cron     CronConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
}

type DatabaseConfig struct {
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

type BotConfig struct {
	Token         string
	WebhookURL    string
	UpdateMode    string // "webhook", "polling", "auto"
	AdminID       string
	AdminUsername string
}

type APIConfig struct {
	Key string
}

// SMMServiceConfig describes one fixed service ordered per submitted link.
type SMMServiceConfig struct {
	ID       string
	Quantity int
	MaxPrice float64
}

// SMMConfig holds credentials and the fixed service pair for the
// external SMM panel.
type SMMConfig struct {
	APIURL    string
	APIKey    string
	SecretKey string
	Service1  SMMServiceConfig
	Service2  SMMServiceConfig
	Timeout   time.Duration
}

type OrderConfig struct {
	// ProgressEvery controls how often the processing message is edited
	// during a batch (every N links).
	ProgressEvery int
	// ChargeFailedLinks charges limit for every attempted link instead of
	// only successfully placed ones. Kept configurable on purpose; default
	// matches the historical behavior of charging successes only.
	ChargeFailedLinks bool
	SessionTTL        time.Duration
}

type CronConfig struct {
	StatusSyncSpec  string
	StatusSyncBatch int
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("BOT_UPDATE_MODE", "auto")
	viper.SetDefault("SMM_SERVICE1_QUANTITY", 1000)
	viper.SetDefault("SMM_SERVICE2_QUANTITY", 100)
	viper.SetDefault("SMM_SERVICE1_MAX_PRICE", 10000)
	viper.SetDefault("SMM_SERVICE2_MAX_PRICE", 150000)
	viper.SetDefault("SMM_TIMEOUT", "30s")
	viper.SetDefault("ORDER_PROGRESS_EVERY", 3)
	viper.SetDefault("ORDER_CHARGE_FAILED_LINKS", false)
	viper.SetDefault("SESSION_TTL", "30m")
	viper.SetDefault("CRON_STATUS_SYNC", "@every 10m")
	viper.SetDefault("CRON_SYNC_BATCH", 25)

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		Database: DatabaseConfig{
			Host:    viper.GetString("DB_HOST"),
			Port:    viper.GetString("DB_PORT"),
			Name:    viper.GetString("DB_NAME"),
			User:    viper.GetString("DB_USER"),
			Pass:    viper.GetString("DB_PASS"),
			Charset: viper.GetString("DB_CHARSET"),
		},
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		Bot: BotConfig{
			Token:         viper.GetString("BOT_TOKEN"),
			WebhookURL:    viper.GetString("BOT_WEBHOOK_URL"),
			UpdateMode:    viper.GetString("BOT_UPDATE_MODE"),
			AdminID:       viper.GetString("BOT_ADMIN_ID"),
			AdminUsername: viper.GetString("BOT_ADMIN_USERNAME"),
		},
		API: APIConfig{
			Key: viper.GetString("API_KEY"),
		},
		SMM: SMMConfig{
			APIURL:    viper.GetString("SMM_API_URL"),
			APIKey:    viper.GetString("SMM_API_KEY"),
			SecretKey: viper.GetString("SMM_SECRET_KEY"),
			Service1: SMMServiceConfig{
				ID:       viper.GetString("SMM_SERVICE1_ID"),
				Quantity: viper.GetInt("SMM_SERVICE1_QUANTITY"),
				MaxPrice: viper.GetFloat64("SMM_SERVICE1_MAX_PRICE"),
			},
			Service2: SMMServiceConfig{
				ID:       viper.GetString("SMM_SERVICE2_ID"),
				Quantity: viper.GetInt("SMM_SERVICE2_QUANTITY"),
				MaxPrice: viper.GetFloat64("SMM_SERVICE2_MAX_PRICE"),
			},
			Timeout: durationOr("SMM_TIMEOUT", 30*time.Second),
		},
		Order: OrderConfig{
			ProgressEvery:     viper.GetInt("ORDER_PROGRESS_EVERY"),
			ChargeFailedLinks: viper.GetBool("ORDER_CHARGE_FAILED_LINKS"),
			SessionTTL:        durationOr("SESSION_TTL", 30*time.Minute),
		},
		Cron: CronConfig{
			StatusSyncSpec:  viper.GetString("CRON_STATUS_SYNC"),
			StatusSyncBatch: viper.GetInt("CRON_SYNC_BATCH"),
		},
	}

	if cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}
	if cfg.Bot.Token == "" {
		log.Println("WARNING: BOT_TOKEN is not set")
	}
	if cfg.SMM.APIURL == "" {
		log.Println("WARNING: SMM_API_URL is not set")
	}

	return cfg, nil
}

func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return fallback
	}
	return d
}

// DSN returns the MySQL DSN string for GORM.
func (d *DatabaseConfig) DSN() string {
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=Local"
}
