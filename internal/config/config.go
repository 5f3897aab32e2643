package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all environment-driven settings.
type Config struct {
	HTTPPort         string
	DBPath           string
	Environment      string
	ProjectID        string
	SecretID         string
	SecretVersion    string
	SecretBaseURL    string
	SecretToken      string
	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiModel      string
	SourceCollection string
	DestCollection   string
	BatchLimit       int
	PacingDelay      time.Duration
	RetryMaxAttempts int
	RetryInitialWait time.Duration
	DenunciasDir     string
	EnableWatcher    bool
	Prompt           PromptConfig
}

// Load reads configuration from environment and optional .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		HTTPPort:         getenv("PORT", "8080"),
		DBPath:           getenv("DB_PATH", "./denuncias.db"),
		Environment:      getenv("ENVIRONMENT", "local"),
		ProjectID:        getenv("PROJECT_ID", "agentic-ai-476923"),
		SecretID:         getenv("SECRET_ID", "Gemini_API_KEY_denuncias"),
		SecretVersion:    getenv("SECRET_VERSION", "latest"),
		SecretBaseURL:    getenv("SECRET_MANAGER_URL", "https://secretmanager.googleapis.com"),
		SecretToken:      getenv("SECRET_ACCESS_TOKEN", ""),
		GeminiAPIKey:     getenv("GEMINI_API_KEY", ""),
		GeminiBaseURL:    getenv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiModel:      getenv("GEMINI_MODEL", "gemini-2.0-flash"),
		SourceCollection: getenv("SOURCE_COLLECTION", "denuncias"),
		DestCollection:   getenv("DEST_COLLECTION", "Síntesis de denuncias"),
		BatchLimit:       clampInt(getenvInt("BATCH_LIMIT", 400), 1, 500),
		PacingDelay:      time.Duration(getenvInt("PACING_DELAY_MS", 2000)) * time.Millisecond,
		RetryMaxAttempts: clampInt(getenvInt("RETRY_MAX_ATTEMPTS", 3), 1, 10),
		RetryInitialWait: time.Duration(getenvInt("RETRY_INITIAL_DELAY_MS", 5000)) * time.Millisecond,
		DenunciasDir:     getenv("DENUNCIAS_DIR", "./runtime/denuncias"),
		EnableWatcher:    getenvBool("ENABLE_WATCHER", false),
	}

	promptPath := getenv("CONFIG_PATH", "")
	prompt, err := LoadPromptConfig(promptPath)
	if err != nil {
		log.Printf("prompt config load failed (%s): %v (using defaults)", promptPath, err)
		prompt = DefaultPromptConfig()
	}
	cfg.Prompt = prompt

	log.Printf("config: db=%s source=%q dest=%q model=%s env=%s", cfg.DBPath, cfg.SourceCollection, cfg.DestCollection, cfg.GeminiModel, cfg.Environment)
	return cfg
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Now returns a UTC time helper for deterministic timestamps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
