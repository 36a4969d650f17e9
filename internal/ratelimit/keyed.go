package ratelimit

import (
	"sync"
	"time"

	"github.com/garyellow/komida-linebot-go/internal/metrics"
)

// KeyedConfig configures a KeyedLimiter instance.
type KeyedConfig struct {
	// Name identifies this limiter for metrics (e.g., "chat")
	Name string

	Burst      float64 // Maximum tokens per key
	RefillRate float64 // Tokens refilled per second

	// CleanupPeriod is how often idle keys are dropped.
	CleanupPeriod time.Duration

	// Optional metrics reporter
	Metrics *metrics.Metrics
}

// KeyedLimiter keeps a separate token bucket per key (a chat ID) and
// periodically drops buckets that have refilled completely.
type KeyedLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	config   KeyedConfig
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewKeyedLimiter creates a new per-key rate limiter. Call Stop when done.
//
//	limiter := NewKeyedLimiter(KeyedConfig{
//	    Name:          "chat",
//	    Burst:         10,
//	    RefillRate:    0.2, // 1 token per 5 seconds
//	    CleanupPeriod: 5 * time.Minute,
//	})
//	defer limiter.Stop()
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 5 * time.Minute
	}
	kl := &KeyedLimiter{
		limiters: make(map[string]*Limiter),
		config:   cfg,
		stopCh:   make(chan struct{}),
	}

	go kl.cleanupLoop()

	return kl
}

// Allow consumes a token for key. An empty key is never limited.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	if kl.getOrCreate(key).Allow() {
		return true
	}
	if kl.config.Metrics != nil {
		kl.config.Metrics.RecordRateLimiterDrop(kl.config.Name)
	}
	return false
}

func (kl *KeyedLimiter) getOrCreate(key string) *Limiter {
	kl.mu.RLock()
	limiter, exists := kl.limiters[key]
	kl.mu.RUnlock()

	if exists {
		return limiter
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = kl.limiters[key]; exists {
		return limiter
	}
	limiter = New(kl.config.Burst, kl.config.RefillRate)
	kl.limiters[key] = limiter
	return limiter
}

// GetAvailable returns the tokens left for key; Burst for unknown keys.
func (kl *KeyedLimiter) GetAvailable(key string) float64 {
	kl.mu.RLock()
	limiter, exists := kl.limiters[key]
	kl.mu.RUnlock()

	if !exists {
		return kl.config.Burst
	}
	return limiter.Available()
}

// GetActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) GetActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.limiters)
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.cleanup()
		}
	}
}

func (kl *KeyedLimiter) cleanup() {
	kl.mu.Lock()
	for key, limiter := range kl.limiters {
		if limiter.IsFull() {
			delete(kl.limiters, key)
		}
	}
	active := len(kl.limiters)
	kl.mu.Unlock()

	if kl.config.Metrics != nil {
		kl.config.Metrics.SetRateLimiterActive(kl.config.Name, active)
	}
}

// Stop terminates the cleanup goroutine. Safe to call multiple times.
func (kl *KeyedLimiter) Stop() {
	kl.stopOnce.Do(func() { close(kl.stopCh) })
}
