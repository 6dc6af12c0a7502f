package store

import (
	"sync"
	"time"

	"github.com/uelogd/uelogd/internal/serverlog"
)

// RetentionCleaner periodically deletes entries older than the configured
// retention period.
type RetentionCleaner struct {
	store         *Store
	retentionDays int
	done          chan struct{}
	wg            sync.WaitGroup
	stopOnce      sync.Once
}

// NewRetentionCleaner starts a cleaner that deletes expired entries once
// an hour. Returns nil when days <= 0 (retention disabled).
func NewRetentionCleaner(store *Store, days int) *RetentionCleaner {
	if days <= 0 {
		return nil
	}

	rc := &RetentionCleaner{
		store:         store,
		retentionDays: days,
		done:          make(chan struct{}),
	}

	// Startup cleanup to catch up after downtime.
	rc.cleanup()

	rc.wg.Add(1)
	go rc.tickLoop()

	return rc
}

func (rc *RetentionCleaner) tickLoop() {
	defer rc.wg.Done()
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.cleanup()
		case <-rc.done:
			return
		}
	}
}

func (rc *RetentionCleaner) cleanup() {
	cutoff := nowUnixSeconds() - float64(rc.retentionDays)*24*3600

	rows, err := rc.store.Clear("", &cutoff)
	if err != nil {
		serverlog.Errorf("retention", "cleanup error: %v", err)
		return
	}
	if rows > 0 {
		serverlog.Logf("retention", "deleted %d expired entries (older than %d days)", rows, rc.retentionDays)
	}
}

// Stop signals the cleaner to stop and waits for it to finish.
func (rc *RetentionCleaner) Stop() {
	rc.stopOnce.Do(func() {
		close(rc.done)
		rc.wg.Wait()
	})
}
