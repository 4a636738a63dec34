package config_test

import (
	"testing"
	"time"

	"github.com/CyberAshu/Chatwave-backend/internal/config"
)

// TestDefault sanity-checks the baked-in defaults.
func TestDefault(t *testing.T) {
	cfg := config.Default()

	if cfg.Port != ":8080" {
		t.Errorf("Port = %q, want :8080", cfg.Port)
	}
	if cfg.MaxMessageSize != 4096 {
		t.Errorf("MaxMessageSize = %d, want 4096", cfg.MaxMessageSize)
	}
	if cfg.SendBufferSize != 256 {
		t.Errorf("SendBufferSize = %d, want 256", cfg.SendBufferSize)
	}
	if cfg.RateLimit.Burst != 20 || cfg.RateLimit.RefillInterval != time.Second {
		t.Errorf("RateLimit = %+v, want burst 20 per second", cfg.RateLimit)
	}
	if cfg.MongoDatabase != "chatwave" {
		t.Errorf("MongoDatabase = %q, want chatwave", cfg.MongoDatabase)
	}
	if cfg.MongoURI != "" {
		t.Errorf("MongoURI = %q, want empty (in-memory store)", cfg.MongoURI)
	}
}

// TestFromEnv verifies every supported variable lands in the right field.
func TestFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9999")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MAX_MESSAGE_SIZE", "8192")
	t.Setenv("SEND_BUFFER_SIZE", "64")
	t.Setenv("RATE_LIMIT_BURST", "50")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("MONGO_DATABASE", "staging")

	cfg := config.FromEnv()

	if cfg.Port != ":9999" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.MaxMessageSize != 8192 {
		t.Errorf("MaxMessageSize = %d", cfg.MaxMessageSize)
	}
	if cfg.SendBufferSize != 64 {
		t.Errorf("SendBufferSize = %d", cfg.SendBufferSize)
	}
	if cfg.RateLimit.Burst != 50 {
		t.Errorf("RateLimit.Burst = %d", cfg.RateLimit.Burst)
	}
	if cfg.RateLimit.RefillInterval != 2*time.Second {
		t.Errorf("RateLimit.RefillInterval = %v", cfg.RateLimit.RefillInterval)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.MongoURI != "mongodb://db:27017" || cfg.MongoDatabase != "staging" {
		t.Errorf("Mongo settings = %q / %q", cfg.MongoURI, cfg.MongoDatabase)
	}
}

// TestFromEnvIgnoresGarbage verifies unparsable numeric settings fall back
// to defaults instead of breaking startup.
func TestFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "lots")
	t.Setenv("SEND_BUFFER_SIZE", "-5")
	t.Setenv("RATE_LIMIT_BURST", "")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "0")

	cfg := config.FromEnv()
	def := config.Default()

	if cfg.MaxMessageSize != def.MaxMessageSize {
		t.Errorf("MaxMessageSize = %d, want default %d", cfg.MaxMessageSize, def.MaxMessageSize)
	}
	if cfg.SendBufferSize != def.SendBufferSize {
		t.Errorf("SendBufferSize = %d, want default %d", cfg.SendBufferSize, def.SendBufferSize)
	}
	if cfg.RateLimit != def.RateLimit {
		t.Errorf("RateLimit = %+v, want default %+v", cfg.RateLimit, def.RateLimit)
	}
}

// TestSanitize verifies zero and negative values are replaced in place.
func TestSanitize(t *testing.T) {
	cfg := &config.Config{
		MaxMessageSize: -1,
		SendBufferSize: 0,
	}
	cfg.Sanitize()

	def := config.Default()
	if cfg.Port != def.Port {
		t.Errorf("Port = %q, want default %q", cfg.Port, def.Port)
	}
	if cfg.MaxMessageSize != def.MaxMessageSize || cfg.SendBufferSize != def.SendBufferSize {
		t.Errorf("sizes = %d/%d, want defaults", cfg.MaxMessageSize, cfg.SendBufferSize)
	}
	if cfg.RateLimit != def.RateLimit {
		t.Errorf("RateLimit = %+v, want default", cfg.RateLimit)
	}
	if cfg.MongoDatabase != def.MongoDatabase {
		t.Errorf("MongoDatabase = %q, want default", cfg.MongoDatabase)
	}
}
