package middlewarectx

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/randomlife/internal/http/response"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPLimiter хранит по token bucket на каждый адрес клиента.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

// NewIPLimiter разрешает rps запросов в секунду и burst на адрес.
// Неиспользуемые дольше idle бакеты удаляются.
func NewIPLimiter(rps float64, burst int, idle time.Duration) *IPLimiter {
	return &IPLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

// Allow забирает один токен из бакета адреса addr.
func (l *IPLimiter) Allow(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, key)
		}
	}

	v, ok := l.visitors[addr]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[addr] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware отвечает 429, когда клиент исчерпал бакет. Ставить
// после RealIP из chi, чтобы учитывать прокси.
func RateLimitMiddleware(l *IPLimiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !l.Allow(ip) {
				log.Warn("too many requests", slog.String("ip", ip))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
