package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"sumup/internal/models"
)

const (
	authorFeedPath = "/xrpc/app.bsky.feed.getAuthorFeed"

	// DefaultHandleDomain is appended to bare handles
	DefaultHandleDomain = ".bsky.social"

	// PostDelimiter separates post texts in an AccountSummary
	PostDelimiter = " | "
)

// AccountFetcher produces an AccountSummary for a handle, or nil when the
// account cannot be read or has no original posts.
type AccountFetcher interface {
	FetchAccountSummary(ctx context.Context, handle string) *models.AccountSummary
}

// FeedService reads an account's recent posts from the upstream feed API
type FeedService struct {
	client   *UpstreamClient
	sessions SessionSource
	limit    int
	limiter  *rate.Limiter
}

// NewFeedService creates a feed service. requestsPerSecond caps outbound
// feed calls across all requests; zero or less disables the cap.
func NewFeedService(client *UpstreamClient, sessions SessionSource, limit int, requestsPerSecond float64) *FeedService {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond*2)+1)
	}

	return &FeedService{
		client:   client,
		sessions: sessions,
		limit:    limit,
		limiter:  limiter,
	}
}

// NormalizeHandle strips leading "@", lower-cases the handle and appends the
// default domain to bare names.
func NormalizeHandle(handle string) string {
	handle = strings.ToLower(strings.TrimLeft(strings.TrimSpace(handle), "@"))
	if handle == "" {
		return ""
	}
	if !strings.Contains(handle, ".") {
		handle += DefaultHandleDomain
	}
	return handle
}

// ValidHandle reports whether a normalized handle can be sent upstream
func ValidHandle(handle string) bool {
	if handle == "" {
		return false
	}
	return !strings.ContainsFunc(handle, func(r rune) bool {
		return r <= ' ' || r == '/' || r == '?' || r == '#'
	})
}

type authorFeedResponse struct {
	Feed   []feedViewPost `json:"feed"`
	Cursor string         `json:"cursor,omitempty"`
}

type feedViewPost struct {
	Post struct {
		Author struct {
			Handle      string `json:"handle"`
			DisplayName string `json:"displayName"`
			Avatar      string `json:"avatar"`
		} `json:"author"`
		Record struct {
			Text string `json:"text"`
		} `json:"record"`
	} `json:"post"`
	Reason *struct {
		Type string `json:"$type"`
	} `json:"reason,omitempty"`
}

func (f feedViewPost) toPost() models.Post {
	post := models.Post{
		AuthorHandle:      f.Post.Author.Handle,
		AuthorDisplayName: f.Post.Author.DisplayName,
		AuthorAvatar:      f.Post.Author.Avatar,
		Text:              f.Post.Record.Text,
	}
	if f.Reason != nil {
		post.Reason = f.Reason.Type
		if post.Reason == "" {
			post.Reason = "unknown"
		}
	}
	return post
}

// FetchPosts returns the normalized handle's most recent feed entries
func (s *FeedService) FetchPosts(ctx context.Context, handle string) ([]models.Post, error) {
	session := s.sessions.Current()
	if session == nil {
		return nil, errors.New("no upstream session")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("actor", handle)
	query.Set("limit", strconv.Itoa(s.limit))

	var resp authorFeedResponse
	if err := s.client.GetJSON(ctx, authorFeedPath, query, session.AccessJwt, &resp); err != nil {
		return nil, err
	}

	posts := make([]models.Post, 0, len(resp.Feed))
	for _, item := range resp.Feed {
		posts = append(posts, item.toPost())
	}
	return posts, nil
}

// FetchAccountSummary fetches and summarizes the handle's original posts.
// Every failure is logged and reported as nil.
func (s *FeedService) FetchAccountSummary(ctx context.Context, handle string) *models.AccountSummary {
	handle = NormalizeHandle(handle)
	if !ValidHandle(handle) {
		return nil
	}

	posts, err := s.FetchPosts(ctx, handle)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			slog.Info("feed_unavailable", "handle", handle, "status", statusErr.StatusCode)
		} else {
			slog.Error("feed_fetch_failed", "handle", handle, "error", err)
			GetMetrics().RecordUpstreamError("feed")
		}
		return nil
	}

	summary, ok := BuildAccountSummary(FilterOriginalPosts(posts, handle))
	if !ok {
		slog.Info("feed_has_no_original_posts", "handle", handle, "fetched", len(posts))
		return nil
	}
	return summary
}

// FilterOriginalPosts keeps posts authored by handle that are not reposts,
// preserving feed order.
func FilterOriginalPosts(posts []models.Post, handle string) []models.Post {
	kept := make([]models.Post, 0, len(posts))
	for _, post := range posts {
		if post.AuthorHandle != handle || post.IsRepost() {
			continue
		}
		kept = append(kept, post)
	}
	return kept
}

// BuildAccountSummary joins post texts and takes profile data from the first
// post. It reports false for an empty slice.
func BuildAccountSummary(posts []models.Post) (*models.AccountSummary, bool) {
	if len(posts) == 0 {
		return nil, false
	}

	texts := make([]string, len(posts))
	for i, post := range posts {
		texts[i] = post.Text
	}

	first := posts[0]
	displayName := first.AuthorDisplayName
	if displayName == "" {
		displayName = first.AuthorHandle
	}

	return &models.AccountSummary{
		Text:        strings.Join(texts, PostDelimiter),
		DisplayName: displayName,
		Avatar:      first.AuthorAvatar,
	}, true
}
