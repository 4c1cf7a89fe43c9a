package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Log      LogConfig
	Matching MatchingConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration

	MigrateOnStart bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type JWTConfig struct {
	AccessSecret    string
	AccessExpiresIn time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// MatchingConfig holds the tunables of the matching engine. Weights are
// copied into an immutable matching.Weights value at startup.
type MatchingConfig struct {
	WeightCourseOverlap float64
	WeightStudyStyle    float64
	WeightAvailability  float64
	WeightLocation      float64
	WeightGoals         float64

	MinCompatibility    float64
	CandidateMultiplier int
	ScoreConcurrency    int

	MatchTTL         time.Duration
	SweepEnabled     bool
	SweepInterval    time.Duration
	SweepLockTTL     time.Duration
	SuggestionsCache time.Duration
}

var errMissingRequiredEnv = errors.New("missing required environment variables")

func Load() (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var missing []string
	req := func(key string) string {
		s := strings.TrimSpace(v.GetString(key))
		if s == "" {
			missing = append(missing, key)
		}
		return s
	}
	opt := func(key string) string {
		return strings.TrimSpace(v.GetString(key))
	}

	cfg := Config{}
	cfg.App = AppConfig{
		AppName:     req("APP_NAME"),
		Environment: req("APP_ENV"),
		HTTPPort:    req("HTTP_PORT"),
	}

	cfg.Database = DatabaseConfig{
		DBHost:                opt("DB_HOST"),
		DBPort:                opt("DB_PORT"),
		DBName:                opt("DB_NAME"),
		DBUser:                opt("DB_USER"),
		DBPassword:            v.GetString("DB_PASSWORD"),
		DBSSLMode:             opt("DB_SSL_MODE"),
		ConnectTimeout:        v.GetDuration("DB_CONNECT_TIMEOUT"),
		PoolMaxConns:          v.GetInt32("DB_POOL_MAX_CONNS"),
		PoolMinConns:          v.GetInt32("DB_POOL_MIN_CONNS"),
		PoolMaxConnLifetime:   v.GetDuration("DB_POOL_MAX_CONN_LIFETIME"),
		PoolMaxConnIdleTime:   v.GetDuration("DB_POOL_MAX_CONN_IDLE_TIME"),
		PoolHealthCheckPeriod: v.GetDuration("DB_POOL_HEALTH_CHECK_PERIOD"),
		MigrateOnStart:        v.GetBool("DB_MIGRATE_ON_START"),
	}

	cfg.Redis = RedisConfig{
		Host:     opt("REDIS_HOST"),
		Port:     opt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		AccessSecret:    req("JWT_ACCESS_SECRET"),
		AccessExpiresIn: v.GetDuration("JWT_ACCESS_EXPIRES_IN"),
	}

	cfg.Log = LogConfig{
		Level:  opt("LOG_LEVEL"),
		Format: opt("LOG_FORMAT"),
	}

	cfg.Matching = MatchingConfig{
		WeightCourseOverlap: v.GetFloat64("MATCH_WEIGHT_COURSE_OVERLAP"),
		WeightStudyStyle:    v.GetFloat64("MATCH_WEIGHT_STUDY_STYLE"),
		WeightAvailability:  v.GetFloat64("MATCH_WEIGHT_AVAILABILITY"),
		WeightLocation:      v.GetFloat64("MATCH_WEIGHT_LOCATION"),
		WeightGoals:         v.GetFloat64("MATCH_WEIGHT_GOALS"),
		MinCompatibility:    v.GetFloat64("MATCH_MIN_COMPATIBILITY"),
		CandidateMultiplier: v.GetInt("MATCH_CANDIDATE_MULTIPLIER"),
		ScoreConcurrency:    v.GetInt("MATCH_SCORE_CONCURRENCY"),
		MatchTTL:            v.GetDuration("MATCH_TTL"),
		SweepEnabled:        v.GetBool("MATCH_SWEEP_ENABLED"),
		SweepInterval:       v.GetDuration("MATCH_SWEEP_INTERVAL"),
		SweepLockTTL:        v.GetDuration("MATCH_SWEEP_LOCK_TTL"),
		SuggestionsCache:    v.GetDuration("MATCH_SUGGESTIONS_CACHE_TTL"),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}
	if err := cfg.Matching.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")
	v.SetDefault("DB_MIGRATE_ON_START", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_ACCESS_EXPIRES_IN", "15m")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MATCH_WEIGHT_COURSE_OVERLAP", 0.40)
	v.SetDefault("MATCH_WEIGHT_STUDY_STYLE", 0.20)
	v.SetDefault("MATCH_WEIGHT_AVAILABILITY", 0.15)
	v.SetDefault("MATCH_WEIGHT_LOCATION", 0.15)
	v.SetDefault("MATCH_WEIGHT_GOALS", 0.10)
	v.SetDefault("MATCH_MIN_COMPATIBILITY", 0.3)
	v.SetDefault("MATCH_CANDIDATE_MULTIPLIER", 3)
	v.SetDefault("MATCH_SCORE_CONCURRENCY", 8)
	v.SetDefault("MATCH_TTL", "168h")
	v.SetDefault("MATCH_SWEEP_ENABLED", true)
	v.SetDefault("MATCH_SWEEP_INTERVAL", "1h")
	v.SetDefault("MATCH_SWEEP_LOCK_TTL", "5m")
	v.SetDefault("MATCH_SUGGESTIONS_CACHE_TTL", "5m")
}

func (c MatchingConfig) Validate() error {
	if c.MinCompatibility <= 0 || c.MinCompatibility > 1 {
		return fmt.Errorf("MATCH_MIN_COMPATIBILITY must be within (0,1], got %v", c.MinCompatibility)
	}
	if c.CandidateMultiplier < 1 {
		return fmt.Errorf("MATCH_CANDIDATE_MULTIPLIER must be >= 1, got %d", c.CandidateMultiplier)
	}
	if c.MatchTTL <= 0 {
		return fmt.Errorf("MATCH_TTL must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("MATCH_SWEEP_INTERVAL must be positive")
	}
	return nil
}
