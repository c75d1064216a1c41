package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath  string
	APIPort int

	ERPAPIBaseURL   string
	ERPAPIToken     string
	ERPRateLimitRPS int
	ERPTimeoutMs    int
	ERPPageSize     int

	SearchDefaultLimit int
	ClarifyThreshold   int

	SpreadsheetID      string
	SheetsAPIKey       string
	ClassesTab         string
	CharacteristicsTab string
	RefDataXLSXPath    string
	SyncIntervalMin    int
	RefDataIntervalMin int
	SyncPruneMissing   bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:  getEnv("DB_PATH", filepath.Join(cwd, "data", "ldb.db")),
		APIPort: getEnvInt("API_PORT", 9898),

		ERPAPIBaseURL:   getEnv("ERP_API_BASE_URL", ""),
		ERPAPIToken:     getEnv("ERP_API_TOKEN", ""),
		ERPRateLimitRPS: getEnvInt("ERP_RATE_LIMIT_RPS", 5),
		ERPTimeoutMs:    getEnvInt("ERP_TIMEOUT_MS", 180000),
		ERPPageSize:     getEnvInt("ERP_PAGE_SIZE", 100000),

		SearchDefaultLimit: getEnvInt("SEARCH_DEFAULT_LIMIT", 200),
		ClarifyThreshold:   getEnvInt("CLARIFY_THRESHOLD", 10),

		SpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		SheetsAPIKey:       getEnv("GOOGLE_SHEETS_API_KEY", ""),
		ClassesTab:         getEnv("REFDATA_CLASSES_TAB", "Classes"),
		CharacteristicsTab: getEnv("REFDATA_CHARACTERISTICS_TAB", "Characteristics"),
		RefDataXLSXPath:    getEnv("REFDATA_XLSX_PATH", ""),
		SyncIntervalMin:    getEnvInt("SYNC_INTERVAL_MIN", 360),
		RefDataIntervalMin: getEnvInt("REFDATA_INTERVAL_MIN", 1440),
		SyncPruneMissing:   getEnvBool("SYNC_PRUNE_MISSING", true),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
