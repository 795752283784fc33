package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/squeezy/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig allows RequestsPerWindow requests per Window, with up to
// Burst of them back to back.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

func (c RateLimitConfig) limit() rate.Limit {
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// refillTime is how long an untouched bucket takes to fill up again.
func (c RateLimitConfig) refillTime() time.Duration {
	return c.Window * time.Duration(c.Burst) / time.Duration(c.RequestsPerWindow)
}

// Profiles are the limits applied per class of route.
type Profiles struct {
	// Strict guards credential and code endpoints against brute force.
	Strict RateLimitConfig
	// Moderate covers authenticated writes.
	Moderate RateLimitConfig
	// Lenient covers authenticated reads, bidding and health probes.
	Lenient RateLimitConfig
	// Public covers anonymous auction browsing.
	Public RateLimitConfig
}

func DefaultProfiles() Profiles {
	return Profiles{
		Strict:   RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5},
		Moderate: RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20},
		Lenient:  RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100},
		Public:   RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
	}
}

// ProfilesFromEnv returns DefaultProfiles with overrides read from
// RATELIMIT_{STRICT,MODERATE,LENIENT,PUBLIC}_{REQUESTS,WINDOW_SEC,BURST}.
func ProfilesFromEnv() Profiles {
	p := DefaultProfiles()
	p.Strict = configFromEnv("STRICT", p.Strict)
	p.Moderate = configFromEnv("MODERATE", p.Moderate)
	p.Lenient = configFromEnv("LENIENT", p.Lenient)
	p.Public = configFromEnv("PUBLIC", p.Public)
	return p
}

func configFromEnv(name string, c RateLimitConfig) RateLimitConfig {
	prefix := "RATELIMIT_" + name + "_"
	if n, ok := positiveEnv(prefix + "REQUESTS"); ok {
		c.RequestsPerWindow = n
	}
	if n, ok := positiveEnv(prefix + "WINDOW_SEC"); ok {
		c.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnv(prefix + "BURST"); ok {
		c.Burst = n
	}
	return c
}

func positiveEnv(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	return n, err == nil && n > 0
}

// KeyExtractor groups requests that share a bucket. An empty key means the
// request cannot be attributed and is let through.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor uses the first X-Forwarded-For hop, then X-Real-IP, then
// the socket address.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// UserIDKeyExtractor uses the Principal set by AuthnMiddleware.
func UserIDKeyExtractor(r *http.Request) string {
	if p, ok := PrincipalFromContext(r.Context()); ok {
		return p.UserID
	}
	return ""
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// JSONFieldKeyExtractor keys on a top-level string field of a JSON body,
// lower-cased, e.g. the email on login. The body is restored for the handler.
func JSONFieldKeyExtractor(fieldName string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err != nil {
			return ""
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return ""
		}
		var v string
		if err := json.Unmarshal(fields[fieldName], &v); err != nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(v))
	}
}

const minIdleTTL = 5 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore holds one token bucket per key. Buckets idle for longer than
// idleTTL are full again, so dropping them changes nothing but memory.
type limiterStore struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

func newLimiterStore(config RateLimitConfig) *limiterStore {
	return &limiterStore{
		limit:     config.limit(),
		burst:     config.Burst,
		idleTTL:   max(config.refillTime(), minIdleTTL),
		now:       time.Now,
		entries:   make(map[string]*limiterEntry),
		lastSweep: time.Now(),
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.idleTTL {
		for k, e := range s.entries {
			if now.Sub(e.lastSeen) >= s.idleTTL {
				delete(s.entries, k)
			}
		}
		s.lastSweep = now
	}

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (s *limiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RateLimitMiddleware rejects requests over config with 429 and a
// Retry-After header. Buckets are keyed by keyExtractor.
func RateLimitMiddleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	buckets := newLimiterStore(config)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyExtractor(r)
			if key == "" {
				slogx.FromContext(r.Context()).Warn("rate limit: no key for request, allowing")
				next.ServeHTTP(w, r)
				return
			}

			res := buckets.get(key).Reserve()
			if delay := res.Delay(); delay > 0 {
				res.Cancel()

				retryAfter := max(int(math.Ceil(delay.Seconds())), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", config.Window.String())

				slogx.FromContext(r.Context()).Warn("rate limit exceeded",
					"key", key,
					"path", r.URL.Path,
					"retry_after", retryAfter,
				)
				WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded",
					"Too many requests. Please try again later.", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits per client address.
func RateLimitByIP(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, IPKeyExtractor)
}

// RateLimitByUser limits per authenticated user and address. Mount it after
// AuthnMiddleware.
func RateLimitByUser(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":", UserIDKeyExtractor, IPKeyExtractor))
}

// RateLimitByIPAndJSONField limits per address and body field, so one email
// cannot be hammered from one address.
func RateLimitByIPAndJSONField(config RateLimitConfig, fieldName string) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":", IPKeyExtractor, JSONFieldKeyExtractor(fieldName)))
}
