package infra

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	checkExecInterval = 5 * time.Second
)

// MonitorExecutable signals once when the running binary is replaced on disk.
func MonitorExecutable(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		entry := log.WithField("method", "MonitorExecutable")

		exeFilename, err := os.Executable()
		if err != nil {
			entry.WithField("error", err.Error()).Warn("cant resolve executable path")
			return
		}
		stat, err := os.Stat(exeFilename)
		if err != nil {
			entry.WithField("error", err.Error()).Warn("cant stat executable")
			return
		}
		originalTime := stat.ModTime()

		ticker := time.NewTicker(checkExecInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stat, err := os.Stat(exeFilename)
				if err != nil {
					entry.WithField("error", err.Error()).Warn("cant stat executable on tick")
					continue
				}
				if !originalTime.Equal(stat.ModTime()) {
					ch <- struct{}{}
					return
				}
			}
		}
	}()
	return ch
}

// Heartbeat records the last time the update loop made progress.
type Heartbeat struct {
	last atomic.Int64
	now  func() time.Time
}

func NewHeartbeat() *Heartbeat {
	return &Heartbeat{now: time.Now}
}

func (h *Heartbeat) Beat() {
	h.last.Store(h.now().UnixNano())
}

// Alive reports whether Beat was called within window.
func (h *Heartbeat) Alive(window time.Duration) bool {
	last := h.last.Load()
	if last == 0 {
		return false
	}
	return h.now().Sub(time.Unix(0, last)) <= window
}

func (h *Heartbeat) Last() time.Time {
	last := h.last.Load()
	if last == 0 {
		return time.Time{}
	}
	return time.Unix(0, last)
}
