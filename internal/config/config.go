package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	Port                      string
	Origin                    string
	Environment               string
	LogLevel                  string
	JWTSecret                 string
	JWTRefreshSecret          string
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	Database                  DatabaseConfig
	Commerce                  CommerceConfig
	Consultation              ConsultationConfig
	Integrations              IntegrationsConfig
	Jobs                      JobsConfig
	Emergency                 EmergencyConfig
	PrescriptionSecret        string
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// CommerceConfig holds cart and delivery pricing rules.
type CommerceConfig struct {
	FreeDeliveryThreshold float64
	DeliveryFee           float64
}

// ConsultationConfig holds video consultation settings.
type ConsultationConfig struct {
	MeetingBaseURL string
}

// IntegrationsConfig holds settings of the mocked AI and file integrations.
type IntegrationsConfig struct {
	MockDelay time.Duration
}

// JobsConfig holds background job schedules.
type JobsConfig struct {
	ReminderInterval      time.Duration
	ReminderLead          time.Duration
	NotificationRetention time.Duration
}

// EmergencyConfig holds emergency fan-out limits.
type EmergencyConfig struct {
	MaxHospitals int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Driver:   getEnv("DB_DRIVER", "mysql"),
		Host:     getEnv("DB_HOST", "localhost"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "medconnect"),
	}

	switch dbConfig.Driver {
	case "mysql":
		dbConfig.Port = getEnv("DB_PORT", "3306")
		dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)
	case "postgres":
		dbConfig.Port = getEnv("DB_PORT", "5432")
		dbConfig.DSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			dbConfig.Host, dbConfig.Username, dbConfig.Password, dbConfig.Name, dbConfig.Port)
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER: %q (expected mysql or postgres)", dbConfig.Driver)
	}

	jwtExpMinutes, err := getInt("JWT_EXPIRATION_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	jwtRefreshExpHours, err := getInt("JWT_REFRESH_EXPIRATION_HOURS", 168) // 7 days
	if err != nil {
		return nil, err
	}

	freeDelivery, err := getFloat("FREE_DELIVERY_THRESHOLD", 499)
	if err != nil {
		return nil, err
	}
	deliveryFee, err := getFloat("DELIVERY_FEE", 40)
	if err != nil {
		return nil, err
	}

	mockDelayMs, err := getInt("AI_MOCK_DELAY_MS", 800)
	if err != nil {
		return nil, err
	}

	reminderInterval, err := getInt("REMINDER_INTERVAL_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	reminderLead, err := getInt("REMINDER_LEAD_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	retentionDays, err := getInt("NOTIFICATION_RETENTION_DAYS", 30)
	if err != nil {
		return nil, err
	}

	maxHospitals, err := getInt("EMERGENCY_MAX_HOSPITALS", 5)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                      getEnv("PORT", "3001"),
		Origin:                    getEnv("ORIGIN", "http://localhost:5173"),
		Environment:               getEnv("APP_ENV", "development"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		JWTSecret:                 getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
		JWTExpirationMinutes:      jwtExpMinutes,
		JWTRefreshExpirationHours: jwtRefreshExpHours,
		Database:                  dbConfig,
		Commerce: CommerceConfig{
			FreeDeliveryThreshold: freeDelivery,
			DeliveryFee:           deliveryFee,
		},
		Consultation: ConsultationConfig{
			MeetingBaseURL: getEnv("MEETING_BASE_URL", "https://meet.jit.si/medconnect-"),
		},
		Integrations: IntegrationsConfig{
			MockDelay: time.Duration(mockDelayMs) * time.Millisecond,
		},
		Jobs: JobsConfig{
			ReminderInterval:      time.Duration(reminderInterval) * time.Minute,
			ReminderLead:          time.Duration(reminderLead) * time.Minute,
			NotificationRetention: time.Duration(retentionDays) * 24 * time.Hour,
		},
		Emergency: EmergencyConfig{
			MaxHospitals: maxHospitals,
		},
		PrescriptionSecret: getEnv("PRESCRIPTION_SIGNING_SECRET", "default_prescription_secret"),
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
