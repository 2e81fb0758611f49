package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/charlesng35/agencydesk/pkg/errors"
	"github.com/charlesng35/agencydesk/pkg/response"
)

// ErrTooManyRequests is returned when a client exceeds its request budget.
var ErrTooManyRequests = errors.New("RATE_LIMITED", "Too many requests", http.StatusTooManyRequests)

const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit returns a middleware that allows maxRequests per (clientIP,path) within window,
// refilling continuously. Limiters are process-local; idle ones are evicted lazily.
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	if maxRequests <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	interval := window / time.Duration(maxRequests)
	every := rate.Every(interval)

	var (
		mu        sync.Mutex
		clients   = make(map[string]*clientLimiter)
		lastSweep = time.Now()
	)

	limiterFor := func(key string, now time.Time) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		if now.Sub(lastSweep) > limiterIdleTTL {
			for k, v := range clients {
				if now.Sub(v.lastSeen) > limiterIdleTTL {
					delete(clients, k)
				}
			}
			lastSweep = now
		}

		entry, ok := clients[key]
		if !ok {
			entry = &clientLimiter{limiter: rate.NewLimiter(every, maxRequests)}
			clients[key] = entry
		}
		entry.lastSeen = now
		return entry.limiter
	}

	return func(c *gin.Context) {
		now := time.Now()
		limiter := limiterFor(c.ClientIP()+"|"+c.FullPath(), now)

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		if !limiter.AllowN(now, 1) {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(interval.Seconds())+1))
			response.Error(c, ErrTooManyRequests)
			c.Abort()
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.TokensAt(now))))

		c.Next()
	}
}
