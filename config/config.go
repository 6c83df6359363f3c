package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application-level configuration
type Config struct {
	// Portal
	BaseURL  string
	DataYear int
	CarType  string

	// Scraper
	FetchBackend   string
	RateLimitDelay int // milliseconds between regions
	RequestTimeout int // seconds per request
	MaxRetries     int
	RegionLimit    int // 0 = every region

	// Output
	OutputDir   string
	DatabaseURL string

	// Google Sheets
	GoogleServiceAccountFile string
	GoogleSpreadsheetID      string
	MaxRequestsPerMinute     int
	RequestDelay             int // milliseconds before each Sheets call
	SkipExistingSheets       bool

	// Object storage
	S3Bucket          string
	S3Prefix          string
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string

	DailySchedule string
	LogFile       string
	Debug         bool

	// YAML only
	ElectricKeywords []string
	ProvinceMap      map[string]string
}

// DefaultElectricKeywords marks a national-table row as an electric car
var DefaultElectricKeywords = []string{
	"전기", "EV", "electric", "Electrified", "e-", "아이오닉", "레이", "EQC", "EQS", "Model",
	"볼트", "코나", "KONA", "GV60", "GV70", "ATTO", "BYD", "일렉트릭", "캐스퍼", "EV6", "EV9",
	"bZ4X", "Taycan", "e-tron", "EQA", "EQB", "EQV", "iX3", "i7", "Polestar", "XC40", "C40", "EX90",
}

var defaults = map[string]interface{}{
	"base_url":                    "https://ev.or.kr",
	"data_year":                   2025,
	"car_type":                    "11",
	"fetch_backend":               "resty",
	"rate_limit_delay_ms":         500,
	"request_timeout_s":           30,
	"max_retries":                 1,
	"region_limit":                0,
	"output_dir":                  "output",
	"database_url":                "",
	"google_service_account_file": "credentials.json",
	"google_spreadsheet_id":       "",
	"max_requests_per_minute":     60,
	"request_delay_ms":            1000,
	"skip_existing_sheets":        false,
	"s3_bucket":                   "",
	"s3_prefix":                   "ev-subsidy",
	"s3_endpoint":                 "",
	"s3_region":                   "ap-northeast-2",
	"s3_access_key_id":            "",
	"s3_secret_access_key":        "",
	"daily_schedule":              "0 2 * * *",
	"log_file":                    "",
	"debug":                       false,
}

var backends = map[string]bool{"auto": true, "resty": true, "colly": true, "chromedp": true, "rod": true}

// Load reads configuration from defaults, an optional .env file, the YAML file
// named by CONFIG_FILE and finally environment variables, later layers winning.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile is Load without the .env step; path may be empty
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		BaseURL:                  strings.TrimRight(v.GetString("base_url"), "/"),
		DataYear:                 v.GetInt("data_year"),
		CarType:                  v.GetString("car_type"),
		FetchBackend:             strings.ToLower(v.GetString("fetch_backend")),
		RateLimitDelay:           v.GetInt("rate_limit_delay_ms"),
		RequestTimeout:           v.GetInt("request_timeout_s"),
		MaxRetries:               v.GetInt("max_retries"),
		RegionLimit:              v.GetInt("region_limit"),
		OutputDir:                v.GetString("output_dir"),
		DatabaseURL:              v.GetString("database_url"),
		GoogleServiceAccountFile: v.GetString("google_service_account_file"),
		GoogleSpreadsheetID:      v.GetString("google_spreadsheet_id"),
		MaxRequestsPerMinute:     v.GetInt("max_requests_per_minute"),
		RequestDelay:             v.GetInt("request_delay_ms"),
		SkipExistingSheets:       v.GetBool("skip_existing_sheets"),
		S3Bucket:                 v.GetString("s3_bucket"),
		S3Prefix:                 v.GetString("s3_prefix"),
		S3Endpoint:               v.GetString("s3_endpoint"),
		S3Region:                 v.GetString("s3_region"),
		S3AccessKeyID:            v.GetString("s3_access_key_id"),
		S3SecretAccessKey:        v.GetString("s3_secret_access_key"),
		DailySchedule:            v.GetString("daily_schedule"),
		LogFile:                  v.GetString("log_file"),
		Debug:                    v.GetBool("debug"),
		ElectricKeywords:         v.GetStringSlice("electric_keywords"),
		ProvinceMap:              v.GetStringMapString("province_map"),
	}
	if len(cfg.ElectricKeywords) == 0 {
		cfg.ElectricKeywords = append([]string(nil), DefaultElectricKeywords...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the scraper cannot run with
func (c *Config) Validate() error {
	if !backends[c.FetchBackend] {
		return fmt.Errorf("unknown FETCH_BACKEND %q", c.FetchBackend)
	}
	if c.DataYear < 2000 {
		return fmt.Errorf("invalid DATA_YEAR %d", c.DataYear)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_S must be positive, got %d", c.RequestTimeout)
	}
	if c.RateLimitDelay < 0 || c.RequestDelay < 0 {
		return errors.New("delays must not be negative")
	}
	return nil
}

// SheetsEnabled reports whether both credentials and a target spreadsheet are configured
func (c *Config) SheetsEnabled() bool {
	if c.GoogleSpreadsheetID == "" || c.GoogleServiceAccountFile == "" {
		return false
	}
	_, err := os.Stat(c.GoogleServiceAccountFile)
	return err == nil
}

// loadDotEnv fills unset variables from path; a missing file is not an error
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}
