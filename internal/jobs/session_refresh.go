package jobs

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// SessionRefresher re-acquires the upstream session
type SessionRefresher interface {
	Refresh(ctx context.Context) error
}

// SessionRefreshJob replaces the upstream session on a fixed interval. It
// is registered as critical: a failed refresh stops the process rather than
// leaving it serving with a stale credential.
type SessionRefreshJob struct {
	sessions SessionRefresher
	interval time.Duration
}

// NewSessionRefreshJob creates a new session refresh job
func NewSessionRefreshJob(sessions SessionRefresher, interval time.Duration) *SessionRefreshJob {
	return &SessionRefreshJob{
		sessions: sessions,
		interval: interval,
	}
}

// Run acquires a fresh session. No retry.
func (j *SessionRefreshJob) Run(ctx context.Context) error {
	return j.sessions.Refresh(ctx)
}

// Schedule runs the job every interval
func (j *SessionRefreshJob) Schedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}
