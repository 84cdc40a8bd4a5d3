package jobs

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// CacheClearer drops every cached summary
type CacheClearer interface {
	ClearAll() int
}

// CacheClearJob empties the summary cache on a schedule so summaries are
// regenerated at least once per period
type CacheClearJob struct {
	cache    CacheClearer
	interval time.Duration
	cronExpr string
}

// NewCacheClearJob creates a job running every interval, or on cronExpr
// (standard five-field syntax, UTC) when it is not empty
func NewCacheClearJob(cache CacheClearer, interval time.Duration, cronExpr string) *CacheClearJob {
	return &CacheClearJob{
		cache:    cache,
		interval: interval,
		cronExpr: cronExpr,
	}
}

// Run clears the cache
func (j *CacheClearJob) Run(ctx context.Context) error {
	removed := j.cache.ClearAll()
	log.Printf("[CACHE-CLEAR] Removed %d cached summaries", removed)
	return nil
}

// Schedule returns the cron definition when configured, else the interval
func (j *CacheClearJob) Schedule() gocron.JobDefinition {
	if j.cronExpr != "" {
		return gocron.CronJob(j.cronExpr, false)
	}
	return gocron.DurationJob(j.interval)
}
