// Package config reads the bot settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"autopvp/internal/skill"
)

const prefix = "AUTOPVP_"

var (
	ErrMissing = errors.New("config: missing required setting")
	ErrInvalid = errors.New("config: invalid setting")
)

type Config struct {
	UID     string
	Token   string
	Host    string
	Version int

	// Salt and Key configure the encrypted envelope; an empty Key sends plain JSON
	Salt         string
	Key          string
	VerifyDigest bool

	MinLevel  float64
	MaxLevel  float64
	IncFactor float64
	DecFactor float64

	NormalMax int
	VIPMax    int

	WarmUp    time.Duration
	Heartbeat time.Duration

	DBPath string
	// Banned is merged into the deny-list at startup
	Banned []string

	LogLevel string
	LogFile  string

	RestartDelay      time.Duration
	NetworkRetryDelay time.Duration
	CrashRetryDelay   time.Duration
}

// Load reads .env when present, then the environment. Variables already set win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the environment only
func FromEnv() (*Config, error) {
	r := &reader{}
	cfg := &Config{
		UID:     getEnv(prefix+"UID", ""),
		Token:   getEnv(prefix+"TOKEN", ""),
		Host:    getEnv(prefix+"HOST", "minesweeper.example.com"),
		Version: r.integer("VERSION", 1),

		Salt:         getEnv(prefix+"SALT", ""),
		Key:          getEnv(prefix+"KEY", ""),
		VerifyDigest: r.flag("VERIFY_DIGEST", true),

		MinLevel:  r.number("MIN_LEVEL", 0.5),
		MaxLevel:  r.number("MAX_LEVEL", 10),
		IncFactor: r.number("INC_FACTOR", skill.DefaultIncFactor),
		DecFactor: r.number("DEC_FACTOR", skill.DefaultDecFactor),

		NormalMax: r.integer("NORMAL_MAX", 10),
		VIPMax:    r.integer("VIP_MAX", 20),

		WarmUp:    r.duration("WARMUP", 6*time.Second),
		Heartbeat: r.duration("HEARTBEAT", 10*time.Second),

		DBPath: getEnv(prefix+"DB_PATH", "data/autopvp.db"),
		Banned: list(getEnv(prefix+"BANNED", "")),

		LogLevel: getEnv(prefix+"LOG_LEVEL", "info"),
		LogFile:  getEnv(prefix+"LOG_FILE", ""),

		RestartDelay:      r.duration("RESTART_DELAY", 3*time.Second),
		NetworkRetryDelay: r.duration("NETWORK_RETRY_DELAY", 30*time.Second),
		CrashRetryDelay:   r.duration("CRASH_RETRY_DELAY", 300*time.Second),
	}
	if r.err != nil {
		return nil, r.err
	}
	return cfg, nil
}

// Validate reports every problem at once
func (c *Config) Validate() error {
	var errs []error
	if c.UID == "" {
		errs = append(errs, fmt.Errorf("%w: %sUID", ErrMissing, prefix))
	}
	if c.Token == "" {
		errs = append(errs, fmt.Errorf("%w: %sTOKEN", ErrMissing, prefix))
	}
	if c.Host == "" {
		errs = append(errs, fmt.Errorf("%w: %sHOST", ErrMissing, prefix))
	}
	if c.MinLevel <= 0 {
		errs = append(errs, fmt.Errorf("%w: %sMIN_LEVEL must be positive, got %v", ErrInvalid, prefix, c.MinLevel))
	}
	if c.MinLevel > c.MaxLevel {
		errs = append(errs, fmt.Errorf("%w: %sMIN_LEVEL %v is above %sMAX_LEVEL %v", ErrInvalid, prefix, c.MinLevel, prefix, c.MaxLevel))
	}
	switch len(c.Key) {
	case 0, 16, 24, 32:
	default:
		errs = append(errs, fmt.Errorf("%w: %sKEY must be 16, 24 or 32 bytes, got %d", ErrInvalid, prefix, len(c.Key)))
	}
	if c.NormalMax < 0 || c.VIPMax < 0 {
		errs = append(errs, fmt.Errorf("%w: quotas must not be negative", ErrInvalid))
	}
	if c.Heartbeat <= 0 {
		errs = append(errs, fmt.Errorf("%w: %sHEARTBEAT must be positive", ErrInvalid, prefix))
	}
	return errors.Join(errs...)
}

// Bounds returns the level limits and starting gain factors
func (c *Config) Bounds() skill.Bounds {
	return skill.Bounds{
		MinLevel:  c.MinLevel,
		MaxLevel:  c.MaxLevel,
		IncFactor: c.IncFactor,
		DecFactor: c.DecFactor,
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func list(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// reader parses typed values and keeps the first failure
type reader struct {
	err error
}

func (r *reader) raw(key string) (string, string, bool) {
	name := prefix + key
	v := getEnv(name, "")
	return name, v, v != ""
}

func (r *reader) fail(name, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s=%q: %v", ErrInvalid, name, value, err)
	}
}

func (r *reader) integer(key string, def int) int {
	name, v, ok := r.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(name, v, err)
		return def
	}
	return n
}

func (r *reader) number(key string, def float64) float64 {
	name, v, ok := r.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(name, v, err)
		return def
	}
	return f
}

func (r *reader) flag(key string, def bool) bool {
	name, v, ok := r.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(name, v, err)
		return def
	}
	return b
}

// duration accepts Go durations ("45s") and bare seconds ("45")
func (r *reader) duration(key string, def time.Duration) time.Duration {
	name, v, ok := r.raw(key)
	if !ok {
		return def
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(name, v, err)
		return def
	}
	return d
}
