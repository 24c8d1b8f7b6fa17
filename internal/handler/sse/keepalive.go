package sse

import (
	"log/slog"
	"sync"
	"time"
)

// Config holds per-stream settings
type Config struct {
	// KeepAliveInterval is how often a comment frame is sent while the model
	// has produced nothing, so proxies keep the stream open.
	KeepAliveInterval time.Duration
}

// DefaultConfig returns a 10s keep-alive
func DefaultConfig() *Config {
	return &Config{KeepAliveInterval: 10 * time.Second}
}

// KeepAliveWriter writes one keep-alive frame
type KeepAliveWriter interface {
	WriteKeepAlive() error
}

// TickerKeepAlive pings at a fixed interval until stopped or a write fails
type TickerKeepAlive struct {
	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

// NewTickerKeepAlive creates a keep-alive pinging every interval
func NewTickerKeepAlive(interval time.Duration) *TickerKeepAlive {
	return &TickerKeepAlive{
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start pings writer in the background. The returned channel closes when
// pinging ends, either through Stop or a failed write.
func (k *TickerKeepAlive) Start(writer KeepAliveWriter, logger *slog.Logger) <-chan struct{} {
	k.ticker = time.NewTicker(k.interval)
	stopChan := make(chan struct{})

	go func() {
		defer close(stopChan)
		defer k.ticker.Stop()

		for {
			select {
			case <-k.ticker.C:
				if err := writer.WriteKeepAlive(); err != nil {
					logger.Warn("keep-alive write failed, stopping", "error", err)
					return
				}

			case <-k.done:
				return
			}
		}
	}()

	return stopChan
}

// Stop ends pinging. Safe to call more than once.
func (k *TickerKeepAlive) Stop() {
	k.stopOnce.Do(func() { close(k.done) })
}
