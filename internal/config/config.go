package config

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

type Config struct {
	Port          string
	DBUrl         string
	RedisURL      string
	JWTSecret     string
	AppEnv        string
	LogLevel      string
	LogFormat     string
	EnableMetrics bool
	Booking       BookingConfig
}

// BookingConfig holds the marketplace's scheduling and pricing knobs.
type BookingConfig struct {
	CommissionRate       float64
	HorizonDays          int
	SlotGranularity      time.Duration
	SlotMaxDuration      time.Duration
	MaxSessionDuration   time.Duration
	DefaultTutorTimezone string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	jwtSecret := strings.TrimSpace(v.GetString("JWT_SECRET"))
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	booking, err := loadBooking(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:          v.GetString("PORT"),
		DBUrl:         v.GetString("DB_URL"),
		RedisURL:      strings.TrimSpace(v.GetString("REDIS_URL")),
		JWTSecret:     jwtSecret,
		AppEnv:        normalizeEnv(v.GetString("APP_ENV")),
		LogLevel:      v.GetString("LOG_LEVEL"),
		LogFormat:     v.GetString("LOG_FORMAT"),
		EnableMetrics: getBool(v, "ENABLE_METRICS", true),
		Booking:       booking,
	}
	if err := cfg.Booking.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadBooking parses the numeric knobs strictly. viper's GetFloat64 and GetInt
// read garbage as zero, which would pass as a valid 0% commission.
func loadBooking(v *viper.Viper) (BookingConfig, error) {
	rate, err := cast.ToFloat64E(strings.TrimSpace(v.GetString("PLATFORM_COMMISSION_RATE")))
	if err != nil {
		return BookingConfig{}, fmt.Errorf("PLATFORM_COMMISSION_RATE: %w", err)
	}
	horizon, err := getInt(v, "BOOKING_HORIZON_DAYS")
	if err != nil {
		return BookingConfig{}, err
	}
	granularity, err := getInt(v, "SLOT_GRANULARITY_MINUTES")
	if err != nil {
		return BookingConfig{}, err
	}
	slotMax, err := getInt(v, "SLOT_MAX_DURATION_MINUTES")
	if err != nil {
		return BookingConfig{}, err
	}
	sessionMax, err := getInt(v, "MAX_SESSION_HOURS")
	if err != nil {
		return BookingConfig{}, err
	}

	return BookingConfig{
		CommissionRate:       rate,
		HorizonDays:          horizon,
		SlotGranularity:      time.Duration(granularity) * time.Minute,
		SlotMaxDuration:      time.Duration(slotMax) * time.Minute,
		MaxSessionDuration:   time.Duration(sessionMax) * time.Hour,
		DefaultTutorTimezone: v.GetString("TUTOR_DEFAULT_TIMEZONE"),
	}, nil
}

func getInt(v *viper.Viper, key string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return value, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_URL", "")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("PLATFORM_COMMISSION_RATE", 0.3)
	v.SetDefault("BOOKING_HORIZON_DAYS", 7)
	v.SetDefault("SLOT_GRANULARITY_MINUTES", 30)
	v.SetDefault("SLOT_MAX_DURATION_MINUTES", 120)
	v.SetDefault("MAX_SESSION_HOURS", 8)
	v.SetDefault("TUTOR_DEFAULT_TIMEZONE", "Africa/Addis_Ababa")
}

func (b BookingConfig) Validate() error {
	if math.IsNaN(b.CommissionRate) || b.CommissionRate < 0 || b.CommissionRate >= 1 {
		return errors.New("PLATFORM_COMMISSION_RATE must be within [0, 1)")
	}
	if b.HorizonDays <= 0 {
		return errors.New("BOOKING_HORIZON_DAYS must be positive")
	}
	if b.SlotGranularity < time.Minute {
		return errors.New("SLOT_GRANULARITY_MINUTES must be positive")
	}
	if b.SlotMaxDuration < b.SlotGranularity {
		return errors.New("SLOT_MAX_DURATION_MINUTES must be at least the slot granularity")
	}
	if b.MaxSessionDuration < time.Hour || b.MaxSessionDuration > 24*time.Hour {
		return errors.New("MAX_SESSION_HOURS must be within [1, 24]")
	}
	if _, err := time.LoadLocation(b.DefaultTutorTimezone); err != nil {
		return fmt.Errorf("TUTOR_DEFAULT_TIMEZONE: %w", err)
	}
	return nil
}

func getBool(v *viper.Viper, key string, fallback bool) bool {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		return fallback
	}

	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
