package jobs

import (
	"bytes"
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"sumup/internal/logging"
)

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context) error {
	f.calls++
	return f.err
}

type fakeCache struct {
	entries int
	clears  int
}

func (f *fakeCache) ClearAll() int {
	f.clears++
	n := f.entries
	f.entries = 0
	return n
}

func newTestScheduler(t *testing.T) (*JobScheduler, *[]string) {
	t.Helper()

	scheduler, err := NewJobScheduler()
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}
	t.Cleanup(scheduler.Stop)

	var fatalJobs []string
	scheduler.SetFatalHandler(func(name string, err error) {
		fatalJobs = append(fatalJobs, name)
	})
	return scheduler, &fatalJobs
}

func TestSessionRefreshFailureIsFatal(t *testing.T) {
	scheduler, fatalJobs := newTestScheduler(t)

	refresher := &fakeRefresher{err: errors.New("upstream down")}
	if err := scheduler.RegisterCritical("session_refresh", NewSessionRefreshJob(refresher, time.Hour)); err != nil {
		t.Fatalf("Failed to register job: %v", err)
	}

	if err := scheduler.RunNow("session_refresh"); err == nil {
		t.Fatal("Expected refresh error")
	}

	if refresher.calls != 1 {
		t.Errorf("Expected exactly one acquisition attempt, got %d", refresher.calls)
	}
	if len(*fatalJobs) != 1 || (*fatalJobs)[0] != "session_refresh" {
		t.Errorf("Expected fatal handler for session_refresh, got %v", *fatalJobs)
	}
}

func TestJobFailureIsLoggedWithJobName(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(logging.New(&buf, "production"))
	t.Cleanup(func() {
		slog.SetDefault(previous)
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	})

	scheduler, _ := newTestScheduler(t)
	refresher := &fakeRefresher{err: errors.New("upstream down")}
	if err := scheduler.RegisterCritical("session_refresh", NewSessionRefreshJob(refresher, time.Hour)); err != nil {
		t.Fatalf("Failed to register job: %v", err)
	}
	_ = scheduler.RunNow("session_refresh")

	out := buf.String()
	if !strings.Contains(out, `"msg":"job_failed"`) || !strings.Contains(out, `"job":"session_refresh"`) {
		t.Errorf("Expected job_failed record scoped to session_refresh, got %q", out)
	}
	if !strings.Contains(out, "upstream down") {
		t.Errorf("Expected error in log record, got %q", out)
	}
}

func TestSessionRefreshSuccessIsNotFatal(t *testing.T) {
	scheduler, fatalJobs := newTestScheduler(t)

	refresher := &fakeRefresher{}
	if err := scheduler.RegisterCritical("session_refresh", NewSessionRefreshJob(refresher, time.Hour)); err != nil {
		t.Fatalf("Failed to register job: %v", err)
	}

	if err := scheduler.RunNow("session_refresh"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(*fatalJobs) != 0 {
		t.Errorf("Expected no fatal calls, got %v", *fatalJobs)
	}
}

func TestNonCriticalFailureIsNotFatal(t *testing.T) {
	scheduler, fatalJobs := newTestScheduler(t)

	refresher := &fakeRefresher{err: errors.New("boom")}
	if err := scheduler.Register("optional", NewSessionRefreshJob(refresher, time.Hour)); err != nil {
		t.Fatalf("Failed to register job: %v", err)
	}

	if err := scheduler.RunNow("optional"); err == nil {
		t.Fatal("Expected job error")
	}
	if len(*fatalJobs) != 0 {
		t.Errorf("Expected no fatal calls for non-critical job, got %v", *fatalJobs)
	}
}

func TestCacheClearJob(t *testing.T) {
	scheduler, _ := newTestScheduler(t)

	cache := &fakeCache{entries: 3}
	if err := scheduler.Register("cache_clear", NewCacheClearJob(cache, 24*time.Hour, "")); err != nil {
		t.Fatalf("Failed to register job: %v", err)
	}

	if err := scheduler.RunNow("cache_clear"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cache.clears != 1 || cache.entries != 0 {
		t.Errorf("Expected cache cleared once, got clears=%d entries=%d", cache.clears, cache.entries)
	}
}

func TestRegister_DuplicateAndInvalidCron(t *testing.T) {
	scheduler, _ := newTestScheduler(t)

	cache := &fakeCache{}
	if err := scheduler.Register("cache_clear", NewCacheClearJob(cache, time.Hour, "")); err != nil {
		t.Fatalf("Failed to register job: %v", err)
	}
	if err := scheduler.Register("cache_clear", NewCacheClearJob(cache, time.Hour, "")); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
	if err := scheduler.Register("bad_cron", NewCacheClearJob(cache, time.Hour, "not a cron")); err == nil {
		t.Error("Expected invalid cron expression to fail")
	}
}

func TestRunNow_UnknownJob(t *testing.T) {
	scheduler, _ := newTestScheduler(t)

	if err := scheduler.RunNow("missing"); err == nil {
		t.Error("Expected error for unknown job")
	}
}

func TestGetStatus(t *testing.T) {
	scheduler, _ := newTestScheduler(t)

	if err := scheduler.RegisterCritical("session_refresh", NewSessionRefreshJob(&fakeRefresher{}, time.Hour)); err != nil {
		t.Fatalf("Failed to register job: %v", err)
	}
	if err := scheduler.Register("cache_clear", NewCacheClearJob(&fakeCache{}, 24*time.Hour, "0 3 * * *")); err != nil {
		t.Fatalf("Failed to register job: %v", err)
	}
	scheduler.Start()

	status := scheduler.GetStatus()
	if len(status) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(status))
	}
	if !status["session_refresh"].Critical {
		t.Error("Expected session_refresh to be critical")
	}
	if status["cache_clear"].Critical {
		t.Error("Expected cache_clear to be non-critical")
	}

	deadline := time.Now().Add(time.Second)
	for scheduler.GetStatus()["cache_clear"].NextRunTime.IsZero() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if scheduler.GetStatus()["cache_clear"].NextRunTime.IsZero() {
		t.Error("Expected next run time for started cron job")
	}
}
