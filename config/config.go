package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Price band in euro: candidates outside [PriceMin, PriceMax] are
	// filtered out before reconciliation.
	PriceMin int
	PriceMax int

	// Courtesy pacing between sources and between pages within a source.
	SourceDelayMs int
	PageDelayMs   int

	FetchTimeoutS int
	MaxPages      int
	MaxRetries    int

	SourcesFile   string
	CSVExportPath string
	DebugDir      string
	ChromeBin     string

	ListenAddr   string
	ScrapeSecret string

	LogLevel  string
	PrettyLog bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "immo"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "immo123"),
		PostgresDB:       getEnv("POSTGRES_DB", "immo_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		PriceMin: getEnvInt("PRICE_MIN", 450000),
		PriceMax: getEnvInt("PRICE_MAX", 600000),

		SourceDelayMs: getEnvInt("SOURCE_DELAY_MS", 1000),
		PageDelayMs:   getEnvInt("PAGE_DELAY_MS", 800),

		FetchTimeoutS: getEnvInt("FETCH_TIMEOUT_S", 30),
		MaxPages:      getEnvInt("MAX_PAGES", 20),
		MaxRetries:    getEnvInt("MAX_RETRIES", 2),

		SourcesFile:   getEnv("SOURCES_FILE", ""),
		CSVExportPath: getEnv("CSV_EXPORT_PATH", ""),
		DebugDir:      getEnv("DEBUG_DIR", "."),
		ChromeBin:     getEnv("CHROME_BIN", ""),

		ListenAddr:   getEnv("LISTEN_ADDR", ":8080"),
		ScrapeSecret: getEnv("SCRAPE_SECRET", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		PrettyLog: getEnvBool("PRETTY_LOG", true),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
