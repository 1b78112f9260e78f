package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"papeleria/internal/apierror"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterIdle is how long an IP's bucket is kept after its last request.
const limiterIdle = 10 * time.Minute

// IPRateLimiter hands out one token bucket per client IP. Buckets of idle
// IPs expire from the registry.
type IPRateLimiter struct {
	limiters *gocache.Cache
	rps      rate.Limit
	burst    int
}

func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		limiters: gocache.New(limiterIdle, limiterIdle/2),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Get returns the bucket for ip, creating it on first use.
func (l *IPRateLimiter) Get(ip string) *rate.Limiter {
	if v, ok := l.limiters.Get(ip); ok {
		lim := v.(*rate.Limiter)
		l.limiters.SetDefault(ip, lim)
		return lim
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	// Add fails when another request created the bucket first.
	if err := l.limiters.Add(ip, lim, gocache.DefaultExpiration); err != nil {
		if v, ok := l.limiters.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return lim
}

// RateLimiter rejects requests above the per-IP rate with 429.
func RateLimiter(l *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		lim := l.Get(c.ClientIP())
		if !lim.Allow() {
			retry := 1
			if l.rps > 0 {
				retry = int(math.Ceil(1 / float64(l.rps)))
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}
