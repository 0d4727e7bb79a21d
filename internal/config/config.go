package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	APIPort  string
	LogLevel string

	UploadDir      string
	AudioDir       string
	MaxUploadBytes int64

	RetentionInterval     time.Duration
	RetentionUploadGrace  time.Duration
	RetentionMaxAge       time.Duration
	RetentionErrorBackoff time.Duration

	DedupWindow       time.Duration
	DedupMaxEntries   int
	IDCollisionPolicy string

	NATSURL        string
	NATSSubject    string
	NATSQueueGroup string
	IngestWorkers  int
	IngestBuffer   int
	ProcessTimeout time.Duration

	SummaryEngine        string
	SummaryMaxInputChars int
	SummaryChunkTokens   int
	SummaryMaxLength     int

	OllamaURL         string
	OllamaModel       string
	OllamaModelHindi  string
	OllamaVisionModel string
	OllamaTimeout     time.Duration
	OCREnabled        bool

	GeminiAPIKey string
	GeminiModel  string

	TTSURL         string
	TTSAPIKey      string
	TTSModel       string
	TTSTimeout     time.Duration
	TTSVoicesFile  string
	TTSChunkTokens int

	RateLimitRPS      float64
	RateLimitBurst    int
	MaxInFlight       int
	MaxConnections    int
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration
	ResilienceRetries int
	BreakerEnabled    bool
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		UploadDir:      mustEnv("UPLOAD_DIR", "./data/uploads"),
		AudioDir:       mustEnv("AUDIO_DIR", "./data/audio"),
		MaxUploadBytes: int64(mustEnvInt("MAX_UPLOAD_BYTES", 32<<20)),

		RetentionInterval:     mustEnvDuration("RETENTION_INTERVAL", time.Hour),
		RetentionUploadGrace:  mustEnvDuration("RETENTION_UPLOAD_GRACE", time.Hour),
		RetentionMaxAge:       mustEnvDuration("RETENTION_MAX_AGE", 24*time.Hour),
		RetentionErrorBackoff: mustEnvDuration("RETENTION_ERROR_BACKOFF", time.Minute),

		DedupWindow:       mustEnvDuration("DEDUP_WINDOW", 2*time.Second),
		DedupMaxEntries:   mustEnvInt("DEDUP_MAX_ENTRIES", 4096),
		IDCollisionPolicy: mustEnv("ID_COLLISION_POLICY", "replace"),

		NATSURL:        os.Getenv("NATS_URL"),
		NATSSubject:    mustEnv("NATS_SUBJECT", "documents.ingest"),
		NATSQueueGroup: mustEnv("NATS_QUEUE_GROUP", "processors"),
		IngestWorkers:  mustEnvInt("INGEST_WORKERS", 2),
		IngestBuffer:   mustEnvInt("INGEST_BUFFER", 256),
		ProcessTimeout: mustEnvDuration("PROCESS_TIMEOUT", 5*time.Minute),

		SummaryEngine:        strings.ToLower(mustEnv("SUMMARY_ENGINE", "ollama")),
		SummaryMaxInputChars: mustEnvInt("SUMMARY_MAX_INPUT_CHARS", 7500),
		SummaryChunkTokens:   mustEnvInt("SUMMARY_CHUNK_TOKENS", 900),
		SummaryMaxLength:     mustEnvInt("SUMMARY_MAX_LENGTH", 512),

		OllamaURL:         mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:       mustEnv("OLLAMA_MODEL", "llama3.1:8b"),
		OllamaModelHindi:  os.Getenv("OLLAMA_MODEL_HI"),
		OllamaVisionModel: mustEnv("OLLAMA_VISION_MODEL", "llava"),
		OllamaTimeout:     mustEnvDuration("OLLAMA_TIMEOUT", 2*time.Minute),
		OCREnabled:        mustEnvBool("OCR_ENABLED", true),

		GeminiAPIKey: mustEnv("GEMINI_API_KEY", ""),
		GeminiModel:  mustEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		TTSURL:         mustEnv("TTS_URL", "http://localhost:8880"),
		TTSAPIKey:      mustEnv("TTS_API_KEY", ""),
		TTSModel:       mustEnv("TTS_MODEL", "tts-1"),
		TTSTimeout:     mustEnvDuration("TTS_TIMEOUT", time.Minute),
		TTSVoicesFile:  mustEnv("TTS_VOICES_FILE", ""),
		TTSChunkTokens: mustEnvInt("TTS_CHUNK_TOKENS", 1000),

		RateLimitRPS:      mustEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:    mustEnvInt("RATE_LIMIT_BURST", 40),
		MaxInFlight:       mustEnvInt("MAX_IN_FLIGHT", 64),
		MaxConnections:    mustEnvInt("MAX_CONNECTIONS", 256),
		RequestTimeout:    mustEnvDuration("REQUEST_TIMEOUT", 5*time.Minute),
		ShutdownTimeout:   mustEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		ResilienceRetries: mustEnvInt("RESILIENCE_MAX_ATTEMPTS", 3),
		BreakerEnabled:    mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go duration strings; a bare integer is read as seconds.
// "0" is kept so features can be disabled explicitly.
func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}
