// File: /jobs/status_refresh_job.go
package jobs

import (
	"log/slog"
	"time"

	"gorm.io/gorm"
	"spotrunner-api/monitoring"
	"spotrunner-api/repositories"
)

// StatusRefreshJob periodically rewrites the cached event_status column so
// that plain SQL consumers of the table see current statuses. Read paths in
// the API derive the status themselves and do not depend on it.
type StatusRefreshJob struct {
	events   *repositories.EventRepository
	location *time.Location
	ticker   *time.Ticker
	done     chan bool
	now      func() time.Time
}

func NewStatusRefreshJob(db *gorm.DB, interval time.Duration, location *time.Location) *StatusRefreshJob {
	if location == nil {
		location = time.UTC
	}
	return &StatusRefreshJob{
		events:   repositories.NewEventRepository(db),
		location: location,
		ticker:   time.NewTicker(interval),
		done:     make(chan bool),
		now:      time.Now,
	}
}

// Start runs one refresh immediately and then one per tick.
func (j *StatusRefreshJob) Start() {
	slog.Info("status refresh job started")

	go func() {
		j.refresh()

		for {
			select {
			case <-j.ticker.C:
				j.refresh()
			case <-j.done:
				slog.Info("status refresh job stopped")
				return
			}
		}
	}()
}

func (j *StatusRefreshJob) Stop() {
	j.ticker.Stop()
	j.done <- true
}

func (j *StatusRefreshJob) refresh() {
	updated, err := j.events.RefreshStatuses(j.now().In(j.location))
	if err != nil {
		slog.Error("event status refresh failed", "error", err)
		return
	}
	monitoring.TrackStatusRefresh(updated)
	if updated > 0 {
		slog.Info("event statuses refreshed", "updated", updated)
	}
}
