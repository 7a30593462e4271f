package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Session attaches the visitor's page composer. With create set, a visitor
// without a live session gets a new one. Otherwise the request is rejected,
// so cookieless API calls never spin up a composer.
func (h *Handler) Session(create bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(h.cookieName)

		if !create {
			composer, err := h.store.Get(id)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No active session"})
				return
			}
			c.Set(composerKey, composer)
			c.Next()
			return
		}

		newID, composer := h.store.GetOrCreate(id)
		if newID != id {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(h.cookieName, newID, 0, "/", "", false, true)
		}
		c.Set(composerKey, composer)
		c.Next()
	}
}

// ipLimiter hands out one token bucket per client IP. A bucket left alone
// for idleTTL has refilled completely, so it is dropped by Sweep.
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perMinute int) *ipLimiter {
	l := &ipLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Inf,
		idleTTL:  time.Minute,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	if perMinute > 0 {
		l.limit = rate.Every(time.Minute / time.Duration(perMinute))
		l.burst = perMinute
	}
	return l
}

func (l *ipLimiter) Allow(ip string) bool {
	if l.limit == rate.Inf {
		return true
	}

	l.mu.Lock()
	entry, ok := l.limiters[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = l.now()
	l.mu.Unlock()

	return entry.limiter.Allow()
}

// Len is the number of tracked client IPs
func (l *ipLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Sweep drops the buckets of clients idle for longer than idleTTL
func (l *ipLimiter) Sweep() int {
	cutoff := l.now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	var removed int
	for ip, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
			removed++
		}
	}
	return removed
}

// Start runs the sweeper every interval until Stop
func (l *ipLimiter) Start(interval time.Duration) {
	if interval <= 0 || l.limit == rate.Inf {
		return
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-l.stopChan:
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}

func (l *ipLimiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
	})
	l.wg.Wait()
}
