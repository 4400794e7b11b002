package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/leadharvest/internal/domain"
)

// Config holds all configuration for the application
type Config struct {
	VK       VKConfig       `yaml:"vk"`
	Harvest  HarvestConfig  `yaml:"harvest"`
	Filters  FiltersConfig  `yaml:"filters"`
	Pacing   PacingConfig   `yaml:"pacing"`
	Outreach OutreachConfig `yaml:"outreach"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Export   ExportConfig   `yaml:"export"`
	Log      LogConfig      `yaml:"log"`
}

// VKConfig holds API access settings
type VKConfig struct {
	Token          string `yaml:"token"`
	APIURL         string `yaml:"api_url" validate:"required,url"`
	APIVersion     string `yaml:"api_version" validate:"required"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gte=1"`
	MaxRetries     int    `yaml:"max_retries" validate:"gte=0,lte=10"` // HTTP-level retries on 429/5xx; 0 disables them
}

// Timeout returns the configured timeout as a duration
func (c VKConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HarvestConfig controls member fetching and niche search
type HarvestConfig struct {
	PageSize             int      `yaml:"page_size" validate:"gte=1,lte=1000"`
	MaxCandidates        int      `yaml:"max_candidates" validate:"gte=1"`
	RetryDelaySeconds    int      `yaml:"retry_delay_seconds" validate:"gte=0"`
	MaxConsecutiveErrors int      `yaml:"max_consecutive_errors" validate:"gte=1"`
	GroupSearchCount     int      `yaml:"group_search_count" validate:"gte=1,lte=1000"`
	MaxActiveGroups      int      `yaml:"max_active_groups" validate:"gte=1"`
	GroupPauseMinSeconds int      `yaml:"group_pause_min_seconds" validate:"gte=0"`
	GroupPauseMaxSeconds int      `yaml:"group_pause_max_seconds" validate:"gtefield=GroupPauseMinSeconds"`
	Niches               []string `yaml:"niches"`
	NicheStateFile       string   `yaml:"niche_state_file"`
	CommentKeywords      []string `yaml:"comment_keywords"`
	CommentMonths        int      `yaml:"comment_months" validate:"gte=1"`
	CommentsFile         string   `yaml:"comments_file"`
}

// RetryDelay returns the pause before retrying a failed page.
func (c HarvestConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// GroupPause returns the pause range between harvested groups.
func (c HarvestConfig) GroupPause() (time.Duration, time.Duration) {
	return time.Duration(c.GroupPauseMinSeconds) * time.Second, time.Duration(c.GroupPauseMaxSeconds) * time.Second
}

// FiltersConfig is the candidate criteria as written in YAML. OnlyActive is
// a pointer so that an absent key can default to true.
type FiltersConfig struct {
	CityIDs        []int64 `yaml:"city_ids"`
	AgeFrom        int     `yaml:"age_from" validate:"gte=0"`
	AgeTo          int     `yaml:"age_to" validate:"gte=0"`
	Sex            int     `yaml:"sex" validate:"gte=0,lte=2"`
	OnlyCanMessage bool    `yaml:"only_can_message"`
	OnlyActive     *bool   `yaml:"only_active"`
	HasMobile      bool    `yaml:"has_mobile"`
}

// Criteria converts the filters into domain criteria.
func (c FiltersConfig) Criteria() domain.Criteria {
	onlyActive := true
	if c.OnlyActive != nil {
		onlyActive = *c.OnlyActive
	}
	return domain.Criteria{
		CityIDs:        c.CityIDs,
		AgeFrom:        c.AgeFrom,
		AgeTo:          c.AgeTo,
		Sex:            domain.Sex(c.Sex),
		OnlyCanMessage: c.OnlyCanMessage,
		OnlyActive:     onlyActive,
		HasMobile:      c.HasMobile,
	}
}

// PacingConfig holds the delay policy applied before every API call, in milliseconds.
type PacingConfig struct {
	ShortMinMs  int `yaml:"short_min_ms" validate:"gte=0"`
	ShortMaxMs  int `yaml:"short_max_ms" validate:"gtefield=ShortMinMs"`
	SlowMinMs   int `yaml:"slow_min_ms" validate:"gte=0"`
	SlowMaxMs   int `yaml:"slow_max_ms" validate:"gtefield=SlowMinMs"`
	SlowEvery   int `yaml:"slow_every" validate:"gte=1"`
	LongEvery   int `yaml:"long_every" validate:"gte=1"`
	LongPauseMs int `yaml:"long_pause_ms" validate:"gte=0"`
}

// Ms converts a millisecond setting to a duration.
func Ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// OutreachConfig controls message sending
type OutreachConfig struct {
	Template               string   `yaml:"template"`
	TemplateFile           string   `yaml:"template_file"`
	ReminderTemplate       string   `yaml:"reminder_template"`
	Attachments            []string `yaml:"attachments"`
	DailyCap               int      `yaml:"daily_cap" validate:"gte=1"`
	MessageDelayMinSeconds int      `yaml:"message_delay_min_seconds" validate:"gte=0"`
	MessageDelayMaxSeconds int      `yaml:"message_delay_max_seconds" validate:"gtefield=MessageDelayMinSeconds"`
	CooldownSeconds        int      `yaml:"cooldown_seconds" validate:"gte=0"`
	DryRun                 bool     `yaml:"dry_run"`
	Account                string   `yaml:"account"`
	MaxImageSide           int      `yaml:"max_image_side" validate:"gte=0"`
}

// MessageDelay returns the pause range after each successful send.
func (c OutreachConfig) MessageDelay() (time.Duration, time.Duration) {
	return time.Duration(c.MessageDelayMinSeconds) * time.Second, time.Duration(c.MessageDelayMaxSeconds) * time.Second
}

// Cooldown returns the pause after a flood-control response.
func (c OutreachConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// LoadTemplate returns the message template, reading TemplateFile when set.
func (c OutreachConfig) LoadTemplate() (string, error) {
	if c.TemplateFile == "" {
		return c.Template, nil
	}
	data, err := os.ReadFile(c.TemplateFile)
	if err != nil {
		return "", fmt.Errorf("read template file: %w", err)
	}
	return string(data), nil
}

// DatabaseConfig locates the SQLite store
type DatabaseConfig struct {
	Path     string `yaml:"path" validate:"required"`
	Password string `yaml:"password"`
}

// StorageConfig holds backup storage configuration
type StorageConfig struct {
	Type       string `yaml:"type" validate:"oneof=local aws"`
	LocalPath  string `yaml:"local_path"`
	S3Bucket   string `yaml:"s3_bucket" validate:"required_if=Type aws"`
	S3Region   string `yaml:"s3_region"`
	AWSProfile string `yaml:"aws_profile"` // Empty string uses default credential chain
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	return c.AWSProfile
}

// RedisConfig enables the shared daily send counter when URL is set
type RedisConfig struct {
	URL string `yaml:"url"`
}

// ExportConfig sets where spreadsheets are written
type ExportConfig struct {
	Dir     string `yaml:"dir" validate:"required"`
	Overall string `yaml:"overall_file"`
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.VK.APIURL == "" {
		cfg.VK.APIURL = "https://api.vk.com/method/"
	}
	if cfg.VK.APIVersion == "" {
		cfg.VK.APIVersion = "5.199"
	}
	if cfg.VK.TimeoutSeconds == 0 {
		cfg.VK.TimeoutSeconds = 30
	}

	if cfg.Harvest.PageSize == 0 {
		cfg.Harvest.PageSize = 200
	}
	if cfg.Harvest.MaxCandidates == 0 {
		cfg.Harvest.MaxCandidates = 1000
	}
	if cfg.Harvest.RetryDelaySeconds == 0 {
		cfg.Harvest.RetryDelaySeconds = 5
	}
	if cfg.Harvest.MaxConsecutiveErrors == 0 {
		cfg.Harvest.MaxConsecutiveErrors = 3
	}
	if cfg.Harvest.GroupSearchCount == 0 {
		cfg.Harvest.GroupSearchCount = 100
	}
	if cfg.Harvest.MaxActiveGroups == 0 {
		cfg.Harvest.MaxActiveGroups = 10
	}
	if cfg.Harvest.GroupPauseMinSeconds == 0 && cfg.Harvest.GroupPauseMaxSeconds == 0 {
		cfg.Harvest.GroupPauseMinSeconds = 10
		cfg.Harvest.GroupPauseMaxSeconds = 20
	}
	if cfg.Harvest.NicheStateFile == "" {
		cfg.Harvest.NicheStateFile = "current_niche.txt"
	}
	if cfg.Harvest.CommentMonths == 0 {
		cfg.Harvest.CommentMonths = 3
	}
	if cfg.Harvest.CommentsFile == "" {
		cfg.Harvest.CommentsFile = "data.csv"
	}

	if cfg.Pacing == (PacingConfig{}) {
		cfg.Pacing = PacingConfig{
			ShortMinMs:  500,
			ShortMaxMs:  1500,
			SlowMinMs:   2000,
			SlowMaxMs:   4000,
			SlowEvery:   3,
			LongEvery:   20,
			LongPauseMs: 30000,
		}
	}

	if cfg.Outreach.DailyCap == 0 {
		cfg.Outreach.DailyCap = 20
	}
	if cfg.Outreach.MessageDelayMinSeconds == 0 && cfg.Outreach.MessageDelayMaxSeconds == 0 {
		cfg.Outreach.MessageDelayMinSeconds = 60
		cfg.Outreach.MessageDelayMaxSeconds = 120
	}
	if cfg.Outreach.CooldownSeconds == 0 {
		cfg.Outreach.CooldownSeconds = 3600
	}
	if cfg.Outreach.Account == "" {
		cfg.Outreach.Account = "default"
	}
	if cfg.Outreach.MaxImageSide == 0 {
		cfg.Outreach.MaxImageSide = 1280
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "users.db"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "backups"
	}
	if cfg.Storage.S3Region == "" {
		cfg.Storage.S3Region = "us-west-2"
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "cash"
	}
	if cfg.Export.Overall == "" {
		cfg.Export.Overall = "user_ids.xlsx"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars. An empty path
// starts from defaults.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("VK_ACCESS_TOKEN"); v != "" {
		cfg.VK.Token = v
	}
	if v := os.Getenv("VK_API_URL"); v != "" {
		cfg.VK.APIURL = v
	}
	if v := os.Getenv("LEADHARVEST_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LEADHARVEST_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("BACKUP_S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
		cfg.Storage.Type = "aws"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks ranges and required fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, validationMessage(fe))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Filters.AgeTo > 0 && c.Filters.AgeFrom > c.Filters.AgeTo {
		return fmt.Errorf("invalid config: filters.age_from must not exceed filters.age_to")
	}
	return nil
}

func validationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required", "required_if":
		return err.Namespace() + " is required"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Namespace(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Namespace(), err.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be below %s", err.Namespace(), err.Param())
	case "oneof":
		return err.Namespace() + " must be one of: " + err.Param()
	case "url":
		return err.Namespace() + " must be a URL"
	default:
		return err.Namespace() + " is invalid"
	}
}
