package auth

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"finparser/webui"
)

const (
	// DefaultRealm is sent in the WWW-Authenticate challenge.
	DefaultRealm = "Financial PDF Parser"

	DefaultMaxFailures   = 5
	DefaultFailureWindow = time.Minute
	DefaultBlockDuration = 5 * time.Minute
)

// Config configures BasicAuth.
type Config struct {
	// Username is optional; when empty any user name is accepted.
	Username string
	Realm    string

	// Cost is the bcrypt cost for the password hash held in memory.
	Cost int

	MaxFailures   int
	FailureWindow time.Duration
	BlockDuration time.Duration
}

// DefaultConfig returns the defaults for a single shared password.
func DefaultConfig() Config {
	return Config{
		Realm:         DefaultRealm,
		Cost:          MinCost,
		MaxFailures:   DefaultMaxFailures,
		FailureWindow: DefaultFailureWindow,
		BlockDuration: DefaultBlockDuration,
	}
}

// BasicAuth checks HTTP Basic credentials against a bcrypt hash and blocks
// clients after repeated failures.
type BasicAuth struct {
	username string
	hash     string
	realm    string
	limiter  *webui.RateLimiter
	logger   *zap.Logger
}

// NewBasicAuth creates a BasicAuth for password with DefaultConfig.
func NewBasicAuth(password string, logger *zap.Logger) (*BasicAuth, error) {
	return NewBasicAuthWithConfig(password, logger, DefaultConfig())
}

// NewBasicAuthWithConfig creates a BasicAuth with cfg. Zero fields take defaults.
func NewBasicAuthWithConfig(password string, logger *zap.Logger, cfg Config) (*BasicAuth, error) {
	defaults := DefaultConfig()
	if cfg.Realm == "" {
		cfg.Realm = defaults.Realm
	}
	if cfg.Cost == 0 {
		cfg.Cost = defaults.Cost
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaults.MaxFailures
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = defaults.FailureWindow
	}
	if cfg.BlockDuration <= 0 {
		cfg.BlockDuration = defaults.BlockDuration
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	hash, err := HashPassword(password, cfg.Cost)
	if err != nil {
		return nil, err
	}

	return &BasicAuth{
		username: cfg.Username,
		hash:     hash,
		realm:    cfg.Realm,
		limiter:  webui.NewRateLimiter(cfg.MaxFailures, cfg.FailureWindow, cfg.BlockDuration),
		logger:   logger.Named("auth"),
	}, nil
}

// Middleware rejects requests without valid credentials with 401, and
// blocked clients with 429.
func (a *BasicAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := webui.ClientIP(r)
		if allowed, remaining := a.limiter.Allow(ip); !allowed {
			a.logger.Warn("rate limit exceeded",
				zap.String("ip", ip),
				zap.Duration("remaining", remaining))
			w.Header().Set("Retry-After", formatRetryAfter(remaining))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		user, password, ok := r.BasicAuth()
		if !ok {
			a.challenge(w)
			return
		}
		if !a.check(user, password) {
			a.limiter.RecordAttempt(ip)
			a.logger.Info("failed authentication attempt",
				zap.String("ip", ip),
				zap.String("path", r.URL.Path))
			a.challenge(w)
			return
		}

		a.limiter.Reset(ip)
		next.ServeHTTP(w, r)
	})
}

func (a *BasicAuth) check(user, password string) bool {
	userOK := a.username == "" || subtle.ConstantTimeCompare([]byte(user), []byte(a.username)) == 1
	passOK := VerifyPassword(password, a.hash) == nil
	return userOK && passOK
}

func (a *BasicAuth) challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+a.realm+`", charset="UTF-8"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// Limiter exposes the failure limiter so callers can run its cleanup ticker.
func (a *BasicAuth) Limiter() *webui.RateLimiter {
	return a.limiter
}

func formatRetryAfter(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
