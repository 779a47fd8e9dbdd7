package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Required variables are enforced by must()
// and missing values cause the program to exit with a fatal log message;
// auction business constants fall back to defaults.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	// Auction business constants.  These are deliberately configuration
	// rather than literals in the engine: the exact values are product
	// decisions, not correctness requirements.
	MinIncrementPct decimal.Decimal // minimum bid increment as a fraction of the starting bid
	SnipeWindow     time.Duration   // trailing window in which a bid extends the auction
	SnipeExtension  time.Duration   // remaining lifetime granted by a late bid
	SweepInterval   time.Duration   // how often the expiry sweeper runs
}

// Load reads configuration from the environment and returns a Config.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		MinIncrementPct: envDec("AUCTION_MIN_INCREMENT_PCT", "0.01"),
		SnipeWindow:     envDur("AUCTION_SNIPE_WINDOW", 5*time.Minute),
		SnipeExtension:  envDur("AUCTION_SNIPE_EXTENSION", 5*time.Minute),
		SweepInterval:   envDur("AUCTION_SWEEP_INTERVAL", 30*time.Second),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// envDec parses a decimal environment variable, falling back to the
// given default on absence or parse failure.
func envDec(key, def string) decimal.Decimal {
	fallback := decimal.RequireFromString(def)
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		log.Printf("config: invalid decimal for %s: %q, using %s", key, v, def)
		return fallback
	}
	return d
}
