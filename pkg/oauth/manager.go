package oauth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/papercomputeco/patchbay/pkg/credentials"
)

// Manager owns the credential lifecycle for the managed upstream: it runs
// the authorization exchange, persists records, and hands out a live
// access token, refreshing lazily once the stored one has expired.
type Manager struct {
	client *Client
	store  *credentials.Store
	logger *zap.Logger

	refreshGroup singleflight.Group
}

func NewManager(client *Client, store *credentials.Store, logger *zap.Logger) *Manager {
	return &Manager{
		client: client,
		store:  store,
		logger: logger,
	}
}

// BeginAuthorization starts a fresh PKCE session.
func (m *Manager) BeginAuthorization() (*Session, error) {
	return m.client.BeginAuthorization()
}

// Exchange redeems the pasted authorization code and persists the
// resulting record. Nothing is written when the provider rejects the
// exchange.
func (m *Manager) Exchange(ctx context.Context, code, verifier string) (*credentials.Record, error) {
	token, err := m.client.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	rec := recordFromToken(token, nil)
	if err := m.store.Save(rec); err != nil {
		return nil, fmt.Errorf("saving credentials: %w", err)
	}

	m.logger.Info("authorization complete", zap.Time("expires_at", rec.ExpiresAt()))

	return rec, nil
}

// AccessToken returns a bearer token that is valid right now. A missing
// record yields ErrNoCredential; an expired one triggers a single refresh
// no matter how many requests arrive at once.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	rec, err := m.store.Load()
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}
	if rec == nil {
		return "", ErrNoCredential
	}
	if !rec.Expired(time.Now()) {
		return rec.AccessToken, nil
	}

	refreshed, err := m.Refresh(ctx)
	if err != nil {
		return "", err
	}

	return refreshed.AccessToken, nil
}

// Refresh exchanges the stored refresh token for a new access token and
// persists the result. Concurrent callers collapse into one provider
// call. A refused refresh leaves the stored record untouched.
func (m *Manager) Refresh(ctx context.Context) (*credentials.Record, error) {
	v, err, _ := m.refreshGroup.Do(m.store.GetTarget(), func() (any, error) {
		return m.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}

	return v.(*credentials.Record), nil
}

func (m *Manager) refresh(ctx context.Context) (*credentials.Record, error) {
	// Re-read inside the flight: the race loser arrives after the winner
	// already persisted a fresh record.
	rec, err := m.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	if rec == nil {
		return nil, ErrNoCredential
	}
	if !rec.Expired(time.Now()) {
		return rec, nil
	}
	if rec.RefreshToken == "" {
		return nil, ErrNoCredential
	}

	token, err := m.client.Refresh(ctx, rec.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refreshing access token: %w", err)
	}

	updated := recordFromToken(token, rec)
	if err := m.store.Save(updated); err != nil {
		return nil, fmt.Errorf("saving refreshed credentials: %w", err)
	}

	m.logger.Debug("access token refreshed", zap.Time("expires_at", updated.ExpiresAt()))

	return updated, nil
}

// recordFromToken converts a provider token response into a stored record.
// Providers may rotate the refresh token on refresh; when the response
// omits one, the previous token is retained.
func recordFromToken(token *TokenResponse, prev *credentials.Record) *credentials.Record {
	now := time.Now()

	rec := &credentials.Record{
		RefreshToken:     token.RefreshToken,
		AccessToken:      token.AccessToken,
		ExpiresAtEpochMs: now.UnixMilli() + token.ExpiresIn*1000,
		UpdatedAt:        now,
	}
	if rec.RefreshToken == "" && prev != nil {
		rec.RefreshToken = prev.RefreshToken
	}

	return rec
}
