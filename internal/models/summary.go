package models

import (
	"strings"
	"time"
)

// Session is an authenticated upstream session. A new value is built on
// every acquisition; fields are never modified after construction.
type Session struct {
	DID        string    `json:"did"`
	Handle     string    `json:"handle"`
	AccessJwt  string    `json:"accessJwt"`
	RefreshJwt string    `json:"refreshJwt"`
	AcquiredAt time.Time `json:"-"`
}

// Post is a single feed entry reduced to the fields the summarizer needs
type Post struct {
	AuthorHandle      string
	AuthorDisplayName string
	AuthorAvatar      string
	Text              string
	// Reason is non-empty for reposts (the upstream "reason" marker)
	Reason string
}

// IsRepost reports whether the post is a share of someone else's content
func (p Post) IsRepost() bool {
	return p.Reason != ""
}

// AccountSummary is the normalized view of an account's recent posts
type AccountSummary struct {
	Text        string `json:"text"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

// CacheEntry is a finished summarization, stored and served as a unit
type CacheEntry struct {
	AccountSummary AccountSummary `json:"accountSummary"`
	GptSummary     string         `json:"gptSummary"`
}

// SummaryType selects the tone template used for generation
type SummaryType string

const (
	SummaryTypeFunny   SummaryType = "funny"
	SummaryTypeSerious SummaryType = "serious"
)

// DefaultSummaryType is used when a request carries no type
const DefaultSummaryType = SummaryTypeFunny

// CacheKey identifies a cached summary
type CacheKey struct {
	Handle string
	Type   SummaryType
	Style  string
}

// NewCacheKey builds a key with the style trimmed; an empty style means none
func NewCacheKey(handle string, summaryType SummaryType, style string) CacheKey {
	return CacheKey{
		Handle: handle,
		Type:   summaryType,
		Style:  strings.TrimSpace(style),
	}
}

// String renders the key for the underlying string-keyed store. The handle
// and type never contain a newline, so the style is the only free-form part.
func (k CacheKey) String() string {
	return k.Handle + "\n" + string(k.Type) + "\n" + k.Style
}

// HandlePrefix is the String() prefix shared by every key of one handle
func HandlePrefix(handle string) string {
	return handle + "\n"
}

// ErrorResponse is the body of every 400 reply
type ErrorResponse struct {
	Error string `json:"error"`
}
