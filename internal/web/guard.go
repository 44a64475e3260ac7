package web

import (
	"crypto/subtle"
	stderrors "errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kapu/multistream-checker-go/internal/constants"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidCredentials = stderrors.New("invalid username or password")
	ErrRateLimited        = stderrors.New("too many login attempts")
)

type GuardConfig struct {
	Username       string
	Password       string
	SessionTTL     time.Duration
	LoginPerMinute int
	SecureCookie   bool
	// TrustProxy keys the login limiter on X-Forwarded-For instead of the peer address.
	TrustProxy bool
}

// Guard gates the dispatcher behind a single configured account.
type Guard struct {
	cfg     GuardConfig
	limiter *ipRateLimiter
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]time.Time
}

func NewGuard(cfg GuardConfig) *Guard {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = constants.WebConfig.SessionTTL
	}
	return &Guard{
		cfg:      cfg,
		limiter:  newIPRateLimiter(cfg.LoginPerMinute),
		now:      time.Now,
		sessions: make(map[string]time.Time),
	}
}

// Login checks the credentials and opens a session on success.
func (g *Guard) Login(ip, username, password string) (string, error) {
	if !g.limiter.Allow(ip, g.now()) {
		return "", ErrRateLimited
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(g.cfg.Password)) == 1
	if !userOK || !passOK || g.cfg.Password == "" {
		return "", ErrInvalidCredentials
	}

	id := uuid.NewString()
	g.mu.Lock()
	g.sessions[id] = g.now().Add(g.cfg.SessionTTL)
	g.mu.Unlock()
	return id, nil
}

// SetCookie writes the session cookie for id.
func (g *Guard) SetCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.WebConfig.SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   g.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
		Expires:  g.now().Add(g.cfg.SessionTTL),
	})
}

func (g *Guard) IsAuthenticated(r *http.Request) bool {
	id := sessionID(r)
	if id == "" {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	expiry, ok := g.sessions[id]
	if !ok {
		return false
	}
	if g.now().After(expiry) {
		delete(g.sessions, id)
		return false
	}
	return true
}

// Logout ends the request's session, clears the cookie and returns how many sessions remain.
func (g *Guard) Logout(w http.ResponseWriter, r *http.Request) int {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.WebConfig.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	g.mu.Lock()
	defer g.mu.Unlock()
	if id := sessionID(r); id != "" {
		delete(g.sessions, id)
	}
	return g.activeLocked()
}

func (g *Guard) ActiveSessions() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activeLocked()
}

func (g *Guard) activeLocked() int {
	now := g.now()
	for id, expiry := range g.sessions {
		if now.After(expiry) {
			delete(g.sessions, id)
		}
	}
	return len(g.sessions)
}

func sessionID(r *http.Request) string {
	c, err := r.Cookie(constants.WebConfig.SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipRateLimiter struct {
	mu       sync.Mutex
	entries  map[string]*clientLimiter
	rate     rate.Limit
	burst    int
	lifetime time.Duration
}

// newIPRateLimiter allows perMinute attempts per IP, refilled evenly. Zero disables limiting.
func newIPRateLimiter(perMinute int) *ipRateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &ipRateLimiter{
		entries:  make(map[string]*clientLimiter),
		rate:     rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
		lifetime: 10 * time.Minute,
	}
}

func (l *ipRateLimiter) Allow(ip string, now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[ip]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.entries[ip] = entry
	}
	entry.lastSeen = now
	allowed := entry.limiter.AllowN(now, 1)

	if len(l.entries) > 1024 {
		expireBefore := now.Add(-l.lifetime)
		for key, e := range l.entries {
			if e.lastSeen.Before(expireBefore) {
				delete(l.entries, key)
			}
		}
	}
	return allowed
}

// ClientIP returns the address the login limiter is keyed on.
func (g *Guard) ClientIP(r *http.Request) string {
	return remoteIP(r, g.cfg.TrustProxy)
}

func remoteIP(r *http.Request, trustProxy bool) string {
	if xff := r.Header.Get("X-Forwarded-For"); trustProxy && xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if p := strings.TrimSpace(part); p != "" {
				return p
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
