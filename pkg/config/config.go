package config

import (
	"fmt"
	"github.com/caarlos0/env"
	"reflect"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Address string `env:"NEXIUS_ADDR" envDefault:":8080"`

	DatabaseUri   string `env:"DATABASE_URI"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	DraftTTL      time.Duration `env:"DRAFT_TTL" envDefault:"15m"`
	SubmissionTTL time.Duration `env:"SUBMISSION_TTL" envDefault:"24h"`

	QuotaLimits  CategoryLimits `env:"QUOTA_LIMITS"`
	HelperRoles  CategoryRoles  `env:"HELPER_ROLES"`
	AdminRoleIds Snowflakes     `env:"ADMIN_ROLE_IDS"`
	MinMemberAge time.Duration  `env:"MIN_MEMBER_AGE" envDefault:"0s"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"nexius.tickets"`

	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS"`
	S3SecretKey string `env:"S3_SECRET"`
	S3Bucket    string `env:"S3_BUCKET"`

	SentryDsn      string `env:"SENTRY_DSN"`
	ProductionMode bool   `env:"PRODUCTION_MODE" envDefault:"false"`
	AdminAuthToken string `env:"ADMIN_AUTH_TOKEN"`
}

// Snowflakes is a comma separated list of Discord ids.
type Snowflakes []uint64

// CategoryLimits maps a category to its daily free-tier limit, written as regular=2,raid=1.
type CategoryLimits map[string]int

// CategoryRoles maps a category to the roles that may work it, written as regular=1|2,paid=3.
type CategoryRoles map[string][]uint64

func parseSnowflakes(value string) (Snowflakes, error) {
	var ids Snowflakes
	for _, raw := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '|' }) {
		id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid snowflake %q", raw)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

func parsePairs(value string, f func(category, raw string) error) error {
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		category, raw, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(category) == "" {
			return fmt.Errorf("expected category=value, got %q", pair)
		}

		if err := f(strings.TrimSpace(category), strings.TrimSpace(raw)); err != nil {
			return err
		}
	}

	return nil
}

func parseCategoryLimits(value string) (CategoryLimits, error) {
	limits := make(CategoryLimits)
	err := parsePairs(value, func(category, raw string) error {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return fmt.Errorf("invalid limit %q for %s", raw, category)
		}

		limits[category] = limit
		return nil
	})

	return limits, err
}

func parseCategoryRoles(value string) (CategoryRoles, error) {
	roles := make(CategoryRoles)
	err := parsePairs(value, func(category, raw string) error {
		ids, err := parseSnowflakes(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", category, err)
		}

		roles[category] = ids
		return nil
	})

	return roles, err
}

var parsers = env.CustomParsers{
	reflect.TypeOf(time.Duration(0)): func(value string) (interface{}, error) {
		return time.ParseDuration(value)
	},
	reflect.TypeOf(Snowflakes{}): func(value string) (interface{}, error) {
		return parseSnowflakes(value)
	},
	reflect.TypeOf(CategoryLimits{}): func(value string) (interface{}, error) {
		return parseCategoryLimits(value)
	},
	reflect.TypeOf(CategoryRoles{}): func(value string) (interface{}, error) {
		return parseCategoryRoles(value)
	},
}

// Load reads T from the environment.
func Load[T any]() (conf T, err error) {
	err = env.ParseWithFuncs(&conf, parsers)
	return
}

func Parse[T any]() T {
	conf, err := Load[T]()
	if err != nil {
		panic(err)
	}

	return conf
}
