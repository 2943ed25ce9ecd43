package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	LogFormat          string
	DefaultOrgID       string
	CORSAllowedOrigins []string
	AdminJWTSecret     string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Conversation engine
	SessionTTL         time.Duration
	SessionMaxHistory  int
	MaxMessageLength   int
	PhoneCountryCode   string
	PhoneLocalDigits   int
	AgentRulesPath     string
	AssistantName      string
	BusinessName       string
	CatalogContextSize int

	// Completion service
	CompletionProvider    string
	CompletionFallback    string
	CompletionTemperature float64
	CompletionMaxTokens   int
	CompletionTimeout     time.Duration
	OpenAIAPIKey          string
	OpenAIModel           string
	OpenAIBaseURL         string
	BedrockModelID        string
	GeminiAPIKey          string
	GeminiModelID         string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Storage
	DatabaseURL     string
	MongoURL        string
	MongoDatabase   string
	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool
	CatalogCacheTTL time.Duration

	// Email notifications
	EmailProvider     string
	SendGridAPIKey    string
	EmailFromAddress  string
	EmailFromName     string
	LeadNotifyAddress string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		DefaultOrgID:       getEnv("DEFAULT_ORG_ID", "default"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),

		SessionTTL:         getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		SessionMaxHistory:  getEnvAsInt("SESSION_MAX_HISTORY", 20),
		MaxMessageLength:   getEnvAsInt("MAX_MESSAGE_LENGTH", 2000),
		PhoneCountryCode:   getEnv("PHONE_COUNTRY_CODE", "51"),
		PhoneLocalDigits:   getEnvAsInt("PHONE_LOCAL_DIGITS", 9),
		AgentRulesPath:     getEnv("AGENT_RULES_PATH", ""),
		AssistantName:      getEnv("ASSISTANT_NAME", "Asistente"),
		BusinessName:       getEnv("BUSINESS_NAME", "nuestra empresa"),
		CatalogContextSize: getEnvAsInt("CATALOG_CONTEXT_SIZE", 12),

		CompletionProvider:    strings.ToLower(strings.TrimSpace(getEnv("COMPLETION_PROVIDER", "none"))),
		CompletionFallback:    strings.ToLower(strings.TrimSpace(getEnv("COMPLETION_FALLBACK", ""))),
		CompletionTemperature: getEnvAsFloat("COMPLETION_TEMPERATURE", 0.7),
		CompletionMaxTokens:   getEnvAsInt("COMPLETION_MAX_TOKENS", 500),
		CompletionTimeout:     getEnvAsDuration("COMPLETION_TIMEOUT", 20*time.Second),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", ""),
		BedrockModelID:        getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:         getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		DatabaseURL:     getEnv("DATABASE_URL", ""),
		MongoURL:        getEnv("MONGO_URL", ""),
		MongoDatabase:   getEnv("MONGO_DATABASE", "bizsite"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTLS:        getEnvAsBool("REDIS_TLS", false),
		CatalogCacheTTL: getEnvAsDuration("CATALOG_CACHE_TTL", 5*time.Minute),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress:  getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "Asistente comercial"),
		LeadNotifyAddress: getEnv("LEAD_NOTIFY_ADDRESS", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
