package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Access        AccessConfig
	Roster        RosterConfig
	Persistence   PersistenceConfig
	Notifications NotificationsConfig
	Contract      ContractConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AccessConfig holds the static allow-list consulted before the allowed users table.
type AccessConfig struct {
	AllowedEmails []string
}

// RosterConfig tunes the in-process roster model and its local snapshot.
type RosterConfig struct {
	SnapshotPrefix  string
	SnapshotTTL     time.Duration
	DefaultAreaCode string
}

// PersistenceConfig sizes the background persistence queue.
type PersistenceConfig struct {
	BufferSize int
}

// NotificationsConfig bounds the transient notification buffer.
type NotificationsConfig struct {
	BufferSize int
}

// ContractConfig describes the issuing institution printed on enrollment contracts.
type ContractConfig struct {
	IssuerName    string
	IssuerCNPJ    string
	IssuerAddress string
	IssuerPhones  string
	City          string
	SchoolYear    int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Access = AccessConfig{AllowedEmails: splitAndTrim(v.GetString("ALLOWED_EMAILS"))}

	cfg.Roster = RosterConfig{
		SnapshotPrefix:  v.GetString("ROSTER_SNAPSHOT_PREFIX"),
		SnapshotTTL:     parseDuration(v.GetString("ROSTER_SNAPSHOT_TTL"), 0),
		DefaultAreaCode: v.GetString("ROSTER_DEFAULT_AREA_CODE"),
	}

	cfg.Persistence = PersistenceConfig{BufferSize: v.GetInt("PERSISTENCE_BUFFER")}
	cfg.Notifications = NotificationsConfig{BufferSize: v.GetInt("NOTIFICATIONS_BUFFER")}

	cfg.Contract = ContractConfig{
		IssuerName:    v.GetString("CONTRACT_ISSUER_NAME"),
		IssuerCNPJ:    v.GetString("CONTRACT_ISSUER_CNPJ"),
		IssuerAddress: v.GetString("CONTRACT_ISSUER_ADDRESS"),
		IssuerPhones:  v.GetString("CONTRACT_ISSUER_PHONES"),
		City:          v.GetString("CONTRACT_CITY"),
		SchoolYear:    v.GetInt("CONTRACT_SCHOOL_YEAR"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "roster")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "roster-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ALLOWED_EMAILS", "")

	v.SetDefault("ROSTER_SNAPSHOT_PREFIX", "roster")
	v.SetDefault("ROSTER_SNAPSHOT_TTL", "0s")
	v.SetDefault("ROSTER_DEFAULT_AREA_CODE", "")

	v.SetDefault("PERSISTENCE_BUFFER", 256)
	v.SetDefault("NOTIFICATIONS_BUFFER", 50)

	v.SetDefault("CONTRACT_ISSUER_NAME", "ASSOCIAÇÃO REALIZANDO SONHOS")
	v.SetDefault("CONTRACT_ISSUER_CNPJ", "22.399.854/0001-25")
	v.SetDefault("CONTRACT_ISSUER_ADDRESS", "VARJÃO TORTO – QD. 08 CJ. E LT 15 | CEP: 71540-400")
	v.SetDefault("CONTRACT_ISSUER_PHONES", "(61) 3468-4594 / 98480-2841")
	v.SetDefault("CONTRACT_CITY", "Brasília")
	v.SetDefault("CONTRACT_SCHOOL_YEAR", time.Now().Year())
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
