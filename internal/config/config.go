package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultModel = "gemini-2.5-flash"

// Load reads .env from the current directory and sets env vars.
// Safe to call multiple times; existing env vars are not overwritten.
func Load() error {
	return godotenv.Load()
}

// APIKey returns the key that gates /api routes. Empty disables the gate.
func APIKey() string {
	return os.Getenv("STATUSCOMMS_API_KEY")
}

// GeminiAPIKey returns the Google Gemini API key.
func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

// GeminiModel returns the model used for all three call shapes.
func GeminiModel() string {
	if m := strings.TrimSpace(os.Getenv("GEMINI_MODEL")); m != "" {
		return m
	}
	return defaultModel
}

// ServiceTimeout bounds a single generative-text call attempt.
func ServiceTimeout() time.Duration {
	return positiveDuration("STATUSCOMMS_SERVICE_TIMEOUT", 45*time.Second)
}

// ServiceMaxAttempts is the number of tries for a transient failure, first call included.
func ServiceMaxAttempts() int {
	return positiveInt("STATUSCOMMS_SERVICE_MAX_ATTEMPTS", 3)
}

// ServiceBackoffInitial is the first retry pause.
func ServiceBackoffInitial() time.Duration {
	return positiveDuration("STATUSCOMMS_SERVICE_BACKOFF_INITIAL", 500*time.Millisecond)
}

// ServiceBackoffMax caps the retry pause.
func ServiceBackoffMax() time.Duration {
	return positiveDuration("STATUSCOMMS_SERVICE_BACKOFF_MAX", 8*time.Second)
}

// RunsDir returns the directory for archived pipeline runs.
func RunsDir() string {
	if v := os.Getenv("STATUSCOMMS_RUNS_DIR"); v != "" {
		return v
	}
	return "data/runs"
}

// RunsIndexLimit returns the max number of runs kept in index.json.
func RunsIndexLimit() int {
	return positiveInt("STATUSCOMMS_RUNS_INDEX_LIMIT", 50)
}

// RunsMax returns the maximum number of run artifacts to retain.
// If unset or invalid, defaults to 50. Set to 0 to disable pruning.
func RunsMax() int {
	if v := os.Getenv("STATUSCOMMS_RUNS_MAX"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return 50
}

// RunsDatabaseURL selects the Postgres run archive when set.
func RunsDatabaseURL() string {
	return os.Getenv("STATUSCOMMS_RUNS_DATABASE_URL")
}

// ExtractCacheDir enables the extraction cache when non-empty.
func ExtractCacheDir() string {
	return os.Getenv("STATUSCOMMS_EXTRACT_CACHE_DIR")
}

// StyleGuidePath points at an optional YAML style guide.
func StyleGuidePath() string {
	return os.Getenv("STATUSCOMMS_STYLE_GUIDE")
}

// AllowDegradedJudgment returns true if a failed judgment should yield a
// report without scores instead of failing the request.
func AllowDegradedJudgment() bool {
	return os.Getenv("STATUSCOMMS_ALLOW_DEGRADED_JUDGMENT") == "1"
}

// AttestMode is "stub" (default) or "groth16".
func AttestMode() string {
	if strings.EqualFold(os.Getenv("STATUSCOMMS_ATTEST_MODE"), "groth16") {
		return "groth16"
	}
	return "stub"
}

func PubSubProject() string { return os.Getenv("STATUSCOMMS_PUBSUB_PROJECT") }

func PubSubTopic() string { return os.Getenv("STATUSCOMMS_PUBSUB_TOPIC") }

// KafkaBrokers returns the comma-separated broker list, trimmed.
func KafkaBrokers() []string {
	var out []string
	for _, b := range strings.Split(os.Getenv("STATUSCOMMS_KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func KafkaTopic() string {
	if v := os.Getenv("STATUSCOMMS_KAFKA_TOPIC"); v != "" {
		return v
	}
	return "statuscomms.runs"
}

func DiscordBotToken() string { return os.Getenv("STATUSCOMMS_DISCORD_TOKEN") }

func DiscordChannelID() string { return os.Getenv("STATUSCOMMS_DISCORD_CHANNEL") }

func LogLevel() string {
	if v := os.Getenv("STATUSCOMMS_LOG_LEVEL"); v != "" {
		return v
	}
	return "info"
}

func LogFormat() string {
	if v := os.Getenv("STATUSCOMMS_LOG_FORMAT"); v != "" {
		return v
	}
	return "text"
}

// Port returns the HTTP listen port.
func Port() string {
	if v := os.Getenv("PORT"); v != "" {
		return v
	}
	return "8080"
}

func positiveInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func positiveDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
