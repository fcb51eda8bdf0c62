package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	SkipAuth    bool
	Environment string
	AppId       string
	CORSOrigins string

	// Persistence port
	StoreDriver string // memory | file | mongo | postgres | sqlite | redis | s3
	StorePath   string // directory for the file driver
	ConfigKey   string // entry holding the dashboard document
	KeyStoreKey string // entry holding the base64 encryption key

	MongoURI    string
	DBName      string
	PostgresDSN string
	SQLitePath  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	S3Bucket   string
	S3Region   string
	S3Endpoint string
	S3Prefix   string

	// Grid
	Columns   int
	RowHeight int
	Gap       int

	// Plugins
	PluginManifest string
	PluginTimeout  time.Duration

	// Pointer events per second accepted from one client
	PointerRateLimit int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		SkipAuth:    getEnvBool("SKIP_AUTH", false),
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "apex-dashboard"),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),

		StoreDriver: getEnv("STORE_DRIVER", "file"),
		StorePath:   getEnv("STORE_PATH", "./data"),
		ConfigKey:   getEnv("CONFIG_KEY", "apex-dashboard-config"),
		KeyStoreKey: getEnv("KEY_STORE_KEY", "apex-dashboard-key"),

		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "apex-dashboard"),
		PostgresDSN: getEnv("POSTGRES_DSN", "postgres://localhost:5432/apex?sslmode=disable"),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/dashboard.db"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "apex:"),

		S3Bucket:   getEnv("S3_BUCKET", ""),
		S3Region:   getEnv("S3_REGION", "us-east-1"),
		S3Endpoint: getEnv("S3_ENDPOINT", ""),
		S3Prefix:   getEnv("S3_PREFIX", "apex-dashboard/"),

		Columns:   getEnvInt("GRID_COLUMNS", 12),
		RowHeight: getEnvInt("GRID_ROW_HEIGHT", 110),
		Gap:       getEnvInt("GRID_GAP", 16),

		PluginManifest: getEnv("PLUGIN_MANIFEST", "./plugins/manifest.json"),
		PluginTimeout:  getEnvDuration("PLUGIN_TIMEOUT", 10*time.Second),

		PointerRateLimit: getEnvInt("POINTER_RATE_LIMIT", 120),
	}, nil
}

// IsProduction reports whether the service runs with production logging.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid %s=%q, using %s", key, value, fallback)
		return fallback
	}
	return d
}
