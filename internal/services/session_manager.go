package services

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"sumup/internal/models"
)

const createSessionPath = "/xrpc/com.atproto.server.createSession"

// SessionSource hands out the current upstream session
type SessionSource interface {
	Current() *models.Session
}

// SessionManager owns the process-wide upstream session. Readers call
// Current on every use; Refresh swaps in a complete new session atomically.
type SessionManager struct {
	client     *UpstreamClient
	identifier string
	password   string
	current    atomic.Pointer[models.Session]
}

// NewSessionManager creates a session manager for the given account
func NewSessionManager(client *UpstreamClient, identifier, password string) *SessionManager {
	return &SessionManager{
		client:     client,
		identifier: identifier,
		password:   password,
	}
}

type createSessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// AcquireSession performs one session-creation call. It does not retry.
func (m *SessionManager) AcquireSession(ctx context.Context, identifier, password string) (*models.Session, error) {
	var session models.Session
	err := m.client.PostJSON(ctx, createSessionPath, createSessionRequest{
		Identifier: identifier,
		Password:   password,
	}, &session)
	if err != nil {
		GetMetrics().RecordSessionAcquisition(false)
		GetMetrics().RecordUpstreamError("session")
		return nil, fmt.Errorf("failed to create session for %s: %w", identifier, err)
	}
	if session.AccessJwt == "" {
		GetMetrics().RecordSessionAcquisition(false)
		return nil, fmt.Errorf("session for %s has no access credential", identifier)
	}

	session.AcquiredAt = time.Now()
	GetMetrics().RecordSessionAcquisition(true)
	return &session, nil
}

// Refresh acquires a new session with the configured account and makes it
// current. On failure the previous session stays in place and the error is
// returned to the caller, which decides whether it is fatal.
func (m *SessionManager) Refresh(ctx context.Context) error {
	session, err := m.AcquireSession(ctx, m.identifier, m.password)
	if err != nil {
		return err
	}

	m.current.Store(session)
	log.Printf("🔑 [SESSION] Acquired session for %s (did: %s)", session.Handle, session.DID)
	return nil
}

// Current returns the active session, or nil before the first Refresh
func (m *SessionManager) Current() *models.Session {
	return m.current.Load()
}
