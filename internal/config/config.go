package config

import (
	"fmt"
	"log"
	"strings"
	"time"
	_ "time/tzdata" // CLINIC_TIMEZONE must resolve in minimal images

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSlotTemplate is the clinic's half-hour booking grid.
const DefaultSlotTemplate = "09:00,09:30,10:00,10:30,11:00,11:30,12:00,12:30,13:00,13:30," +
	"14:00,14:30,15:00,15:30,16:00,16:30,17:00,17:30"

const devJWTSecret = "development-only-secret-do-not-use-in-production"

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	AMQPURL        string        `mapstructure:"AMQP_URL"`
	AMQPExchange   string        `mapstructure:"AMQP_EXCHANGE"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	JWTIssuer      string        `mapstructure:"JWT_ISSUER"`
	TokenTTL       time.Duration `mapstructure:"TOKEN_TTL"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	ClinicTimezone string        `mapstructure:"CLINIC_TIMEZONE"`
	LeadTime       time.Duration `mapstructure:"LEAD_TIME"`
	ConflictBuffer time.Duration `mapstructure:"CONFLICT_BUFFER"`
	SlotTemplate   []string      `mapstructure:"SLOT_TEMPLATE"`
}

// Load reads configuration from the environment. Values in the given dotenv
// files (default ".env") are loaded first but never override variables that
// are already set.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// Missing files are fine; the environment may be fully populated.
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("AMQP_EXCHANGE", "clinic.events")
	v.SetDefault("JWT_ISSUER", "clinic")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("CLINIC_TIMEZONE", "UTC")
	v.SetDefault("LEAD_TIME", "2h")
	v.SetDefault("CONFLICT_BUFFER", "30m")
	v.SetDefault("SLOT_TEMPLATE", DefaultSlotTemplate)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"REDIS_URL", "AMQP_URL", "AMQP_EXCHANGE",
		"JWT_SECRET", "JWT_ISSUER", "TOKEN_TTL",
		"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"CLINIC_TIMEZONE", "LEAD_TIME", "CONFLICT_BUFFER", "SLOT_TEMPLATE",
	} {
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.SlotTemplate = splitList(cfg.SlotTemplate, v.GetString("SLOT_TEMPLATE"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET is not set; using the built-in development secret.")
		log.Println("WARNING: Tokens issued by this server are NOT safe outside local development.")
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

// splitList normalises a comma separated env value. Viper may hand back a
// single element holding the whole raw string.
func splitList(parsed []string, raw string) []string {
	if len(parsed) == 1 && strings.Contains(parsed[0], ",") {
		parsed = nil
	}
	if parsed == nil && raw != "" {
		parsed = strings.Split(raw, ",")
	}
	out := parsed[:0:0]
	for _, p := range parsed {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location resolves CLINIC_TIMEZONE. Call Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}
	if !c.IsDev() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(c.JWTSecret))
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if _, err := time.LoadLocation(c.ClinicTimezone); err != nil {
		return fmt.Errorf("CLINIC_TIMEZONE %q: %w", c.ClinicTimezone, err)
	}
	if c.LeadTime < 0 {
		return fmt.Errorf("LEAD_TIME must not be negative, got %s", c.LeadTime)
	}
	if c.ConflictBuffer < 0 {
		return fmt.Errorf("CONFLICT_BUFFER must not be negative, got %s", c.ConflictBuffer)
	}
	if len(c.SlotTemplate) == 0 {
		return fmt.Errorf("SLOT_TEMPLATE must name at least one slot")
	}
	for _, label := range c.SlotTemplate {
		if _, err := time.Parse("15:04", label); err != nil {
			return fmt.Errorf("SLOT_TEMPLATE entry %q is not HH:MM", label)
		}
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
