// Package config loads examgen configuration from the environment and an
// optional .env file. Every service in the fleet shares one Config; each
// role reads its own port from the Ports block.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
}

// ConnString builds a pgx-compatible connection string.
func (c DatabaseConfig) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.Name)
}

// GeminiConfig holds LLM provider settings.
type GeminiConfig struct {
	APIKey     string
	FlashModel string
	ProModel   string
	ImageModel string
}

// R2Config holds Cloudflare R2 (S3-compatible) object storage settings.
type R2Config struct {
	AccountID  string
	BucketName string
	AccessKey  string
	SecretKey  string
	PublicURL  string
}

// Endpoint returns the S3 endpoint for the configured R2 account.
func (c R2Config) Endpoint() string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
}

// Ports assigns a listen port to every service role.
type Ports struct {
	Orchestrator      int
	ConceptGuide      int
	Image             int
	Database          int
	QuestionGenerator int
	QualityChecker    int
	Verifier          int
	Correctness       int
}

// PipelineConfig tunes the question pipeline and batch orchestration.
type PipelineConfig struct {
	MaxRevisions      int
	RetryRounds       int
	StrictCorrectness bool
}

// Config is the root configuration object.
type Config struct {
	Database    DatabaseConfig
	Gemini      GeminiConfig
	R2          R2Config
	Ports       Ports
	Pipeline    PipelineConfig
	ConceptsDir string
	LogLevel    string

	// TopicIDs maps exam types to their topic UUIDs in the question bank.
	TopicIDs map[string]string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present; real environment variables win.
func Load() (*Config, error) {
	// Ignore the error: a missing .env file is the normal production case.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_NAME", "selective")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")

	v.SetDefault("GEMINI_FLASH_MODEL", "gemini-2.0-flash")
	v.SetDefault("GEMINI_PRO_MODEL", "gemini-3-pro-preview")
	v.SetDefault("GEMINI_IMAGE_MODEL", "gemini-3-pro-image-preview")

	v.SetDefault("CONCEPTS_DIR", "data/concepts/thinking_skills")
	v.SetDefault("A2A_LOG_LEVEL", "info")

	v.SetDefault("PORT_ORCHESTRATOR", 5000)
	v.SetDefault("PORT_CONCEPT_GUIDE", 5001)
	v.SetDefault("PORT_IMAGE", 5002)
	v.SetDefault("PORT_DATABASE", 5003)
	v.SetDefault("PORT_QUESTION_GENERATOR", 5004)
	v.SetDefault("PORT_QUALITY_CHECKER", 5005)
	v.SetDefault("PORT_VERIFIER", 5006)
	v.SetDefault("PORT_CORRECTNESS", 5007)

	v.SetDefault("PIPELINE_MAX_REVISIONS", 3)
	v.SetDefault("PIPELINE_RETRY_ROUNDS", 2)
	v.SetDefault("PIPELINE_STRICT_CORRECTNESS", false)

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
		},
		Gemini: GeminiConfig{
			APIKey:     v.GetString("GEMINI_API_KEY"),
			FlashModel: v.GetString("GEMINI_FLASH_MODEL"),
			ProModel:   v.GetString("GEMINI_PRO_MODEL"),
			ImageModel: v.GetString("GEMINI_IMAGE_MODEL"),
		},
		R2: R2Config{
			AccountID:  v.GetString("R2_ACCOUNT_ID"),
			BucketName: v.GetString("R2_BUCKET_NAME"),
			AccessKey:  v.GetString("R2_ACCESS_KEY"),
			SecretKey:  v.GetString("R2_SECRET_KEY"),
			PublicURL:  v.GetString("R2_PUBLIC_URL"),
		},
		Ports: Ports{
			Orchestrator:      v.GetInt("PORT_ORCHESTRATOR"),
			ConceptGuide:      v.GetInt("PORT_CONCEPT_GUIDE"),
			Image:             v.GetInt("PORT_IMAGE"),
			Database:          v.GetInt("PORT_DATABASE"),
			QuestionGenerator: v.GetInt("PORT_QUESTION_GENERATOR"),
			QualityChecker:    v.GetInt("PORT_QUALITY_CHECKER"),
			Verifier:          v.GetInt("PORT_VERIFIER"),
			Correctness:       v.GetInt("PORT_CORRECTNESS"),
		},
		Pipeline: PipelineConfig{
			MaxRevisions:      v.GetInt("PIPELINE_MAX_REVISIONS"),
			RetryRounds:       v.GetInt("PIPELINE_RETRY_ROUNDS"),
			StrictCorrectness: v.GetBool("PIPELINE_STRICT_CORRECTNESS"),
		},
		ConceptsDir: v.GetString("CONCEPTS_DIR"),
		LogLevel:    v.GetString("A2A_LOG_LEVEL"),
		TopicIDs: map[string]string{
			"reading":         "8e64a8a1-126a-41d4-a8a1-40116970e9bc",
			"mathematics":     "64cc2488-91f0-43e3-a560-b2bccf91442c",
			"thinking_skills": "096feb43-20f5-4ab7-8e3f-feb907884f9e",
			"writing":         "f2a2bd14-b5bc-424c-990a-1f60d55cb506",
		},
	}

	return cfg, nil
}
