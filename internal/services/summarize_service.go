package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"sumup/internal/models"
)

// ErrAccountNotFound is returned when the feed cannot be read or holds no
// original posts
var ErrAccountNotFound = errors.New("account not found")

const summaryLabel = "Summary:"

// SummarizeService answers summarization requests from the cache or by
// fetching the feed and generating a new summary.
type SummarizeService struct {
	feeds     AccountFetcher
	generator SummaryWriter
	cache     *SummaryCache
	inflight  singleflight.Group
	timeout   time.Duration
}

// NewSummarizeService creates the orchestrator. timeout bounds one shared
// fetch-and-generate run; zero means no bound.
func NewSummarizeService(feeds AccountFetcher, generator SummaryWriter, cache *SummaryCache, timeout time.Duration) *SummarizeService {
	return &SummarizeService{
		feeds:     feeds,
		generator: generator,
		cache:     cache,
		timeout:   timeout,
	}
}

// ParseSummaryType maps a raw query value to a summary type; empty means
// the default type.
func ParseSummaryType(raw string) models.SummaryType {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return models.DefaultSummaryType
	}
	return models.SummaryType(raw)
}

// Summarize returns the summary for handle. Errors are ErrUnknownSummaryType,
// ErrAccountNotFound or ErrGenerationFailed (possibly wrapped).
func (s *SummarizeService) Summarize(ctx context.Context, handle string, summaryType models.SummaryType, style string) (models.CacheEntry, error) {
	if !s.generator.Supports(summaryType) {
		s.record("unknown_type")
		return models.CacheEntry{}, fmt.Errorf("%w %q", ErrUnknownSummaryType, summaryType)
	}

	normalized := NormalizeHandle(handle)
	if !ValidHandle(normalized) {
		s.record("not_found")
		return models.CacheEntry{}, ErrAccountNotFound
	}

	key := models.NewCacheKey(normalized, summaryType, style)
	if entry, ok := s.cache.Get(key); ok {
		GetMetrics().RecordCacheLookup(true)
		s.record("cache_hit")
		return entry, nil
	}
	GetMetrics().RecordCacheLookup(false)

	// Concurrent misses for one key share a single computation. It runs
	// detached from any one caller, and each caller waits on its own context.
	results := s.inflight.DoChan(key.String(), func() (interface{}, error) {
		if entry, ok := s.cache.Get(key); ok {
			return entry, nil
		}
		computeCtx, cancel := s.detach(ctx)
		defer cancel()
		return s.compute(computeCtx, key)
	})

	select {
	case <-ctx.Done():
		s.record("cancelled")
		return models.CacheEntry{}, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return models.CacheEntry{}, res.Err
		}
		return res.Val.(models.CacheEntry), nil
	}
}

func (s *SummarizeService) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

func (s *SummarizeService) compute(ctx context.Context, key models.CacheKey) (models.CacheEntry, error) {
	account := s.feeds.FetchAccountSummary(ctx, key.Handle)
	if account == nil {
		s.record("not_found")
		return models.CacheEntry{}, ErrAccountNotFound
	}

	generated, err := s.generator.GenerateSummary(ctx, account.Text, account.DisplayName, key.Type, key.Style)
	if err != nil {
		s.record("generation_error")
		return models.CacheEntry{}, err
	}

	entry := models.CacheEntry{
		AccountSummary: *account,
		GptSummary:     FormatSummary(generated),
	}
	s.cache.Put(key, entry)
	s.record("generated")

	slog.Info("summary_created",
		"handle", key.Handle,
		"type", key.Type,
		"style", key.Style,
		"post_chars", len(account.Text))

	return entry, nil
}

// Clear invalidates cached summaries of handle. With an empty summaryType
// every entry of the handle goes; otherwise only the exact key.
func (s *SummarizeService) Clear(handle string, summaryType models.SummaryType, style string) int {
	normalized := NormalizeHandle(handle)
	if summaryType == "" {
		return s.cache.InvalidateHandle(normalized)
	}

	key := models.NewCacheKey(normalized, summaryType, style)
	if _, ok := s.cache.Get(key); !ok {
		return 0
	}
	s.cache.Invalidate(key)
	return 1
}

// FormatSummary prepares generated text for display: a leading "Summary:"
// label is dropped, the text is trimmed and HTML-escaped, and newlines
// become <br>.
func FormatSummary(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, summaryLabel)
	text = strings.TrimSpace(text)
	text = html.EscapeString(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\n", "<br>")
}

func (s *SummarizeService) record(outcome string) {
	GetMetrics().RecordSummary(outcome)
}
