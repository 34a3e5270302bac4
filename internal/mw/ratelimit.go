package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ClientRateLimiter stores a rate limiter per client address.
type ClientRateLimiter struct {
	clients map[string]*rate.Limiter
	mu      sync.Mutex
	r       rate.Limit
	b       int
}

// NewClientRateLimiter creates a new ClientRateLimiter.
func NewClientRateLimiter(r rate.Limit, b int) *ClientRateLimiter {
	return &ClientRateLimiter{
		clients: make(map[string]*rate.Limiter),
		r:       r,
		b:       b,
	}
}

// Limiter returns the rate limiter for a client, creating it on first use.
func (l *ClientRateLimiter) Limiter(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.clients[client]
	if !exists {
		limiter = rate.NewLimiter(l.r, l.b)
		l.clients[client] = limiter
	}
	return limiter
}

// RateLimiter is a middleware for per-client rate limiting. When ipHeader is
// set, the client identity is taken from that header (the reverse proxy is
// trusted to fill it); otherwise gin's ClientIP is used.
func RateLimiter(r rate.Limit, b int, ipHeader string) gin.HandlerFunc {
	limiter := NewClientRateLimiter(r, b)
	return func(c *gin.Context) {
		client := ""
		if ipHeader != "" {
			client = c.GetHeader(ipHeader)
		}
		if client == "" {
			client = c.ClientIP()
		}

		if !limiter.Limiter(client).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
