package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RouteLimit overrides the default buckets for one route.
type RouteLimit struct {
	SoftRate, SoftBurst int
	HardRate, HardBurst int
}

// clientLimiter stores rate limiters for a specific client and route.
type clientLimiter struct {
	softLimiter *rate.Limiter
	hardLimiter *rate.Limiter
	lastSeen    time.Time
}

// RateLimiterMiddleware manages rate limiting for API endpoints.
type RateLimiterMiddleware struct {
	clients map[string]*clientLimiter
	mu      sync.Mutex
	cfg     *config.Config
	routes  map[string]RouteLimit // keyed by "METHOD /full/path"
}

// NewRateLimiterMiddleware creates a new RateLimiterMiddleware. routes may be nil.
func NewRateLimiterMiddleware(cfg *config.Config, routes map[string]RouteLimit) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		clients: make(map[string]*clientLimiter),
		cfg:     cfg,
		routes:  routes,
	}
	go rm.cleanupClients()
	return rm
}

// getClientIdentifier creates a unique key based on IP, Fingerprint, and SPA Session ID.
func getClientIdentifier(c *gin.Context) string {
	return fmt.Sprintf("%s|%s|%s", c.ClientIP(), c.GetHeader("X-BFP"), c.GetHeader("X-SPA"))
}

func (rm *RateLimiterMiddleware) limitsFor(route string) RouteLimit {
	if l, ok := rm.routes[route]; ok {
		return l
	}
	return RouteLimit{
		SoftRate:  rm.cfg.RateLimitSoftRefillRate,
		SoftBurst: rm.cfg.RateLimitSoftBucketSize,
		HardRate:  rm.cfg.RateLimitHardRefillRate,
		HardBurst: rm.cfg.RateLimitHardBucketSize,
	}
}

// getClientLimiter retrieves or creates the rate limiters for a given client identifier.
func (rm *RateLimiterMiddleware) getClientLimiter(identifier string, l RouteLimit) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	limiter, exists := rm.clients[identifier]
	if !exists {
		limiter = &clientLimiter{
			softLimiter: rate.NewLimiter(rate.Limit(l.SoftRate), l.SoftBurst),
			hardLimiter: rate.NewLimiter(rate.Limit(l.HardRate), l.HardBurst),
		}
		rm.clients[identifier] = limiter
	}
	limiter.lastSeen = time.Now()
	return limiter
}

// cleanupClients periodically removes old client entries from the map.
func (rm *RateLimiterMiddleware) cleanupClients() {
	for {
		time.Sleep(10 * time.Minute)
		if removed := rm.evictIdle(30 * time.Minute); removed > 0 {
			zap.L().Debug("Rate limiter cleanup", zap.Int("removed", removed))
		}
	}
}

func (rm *RateLimiterMiddleware) evictIdle(idle time.Duration) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	count := 0
	for id, client := range rm.clients {
		if time.Since(client.lastSeen) > idle {
			delete(rm.clients, id)
			count++
		}
	}
	return count
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.Request.Method + " " + c.FullPath()
		clientKey := getClientIdentifier(c)
		limiter := rm.getClientLimiter(clientKey+"|"+route, rm.limitsFor(route))

		if !limiter.hardLimiter.Allow() {
			zap.L().Info("Hard rate limit exceeded", zap.String("client", clientKey), zap.String("route", route))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Rate limit exceeded", "error": "rate_limited"})
			return
		}

		// Soft limit only applies to clients CaptchaMiddleware has not verified as human.
		if !c.GetBool(ContextKeyIsHumanVerified) && !limiter.softLimiter.Allow() {
			zap.L().Info("Soft rate limit exceeded, captcha required", zap.String("client", clientKey), zap.String("route", route))
			c.AbortWithStatusJSON(http.StatusTeapot, gin.H{"success": false, "message": "Captcha validation required", "error": "captcha_required"})
			return
		}

		c.Next()
	}
}
