package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/store"
)

// Upload is one screenshot as received from the multipart parser, before
// validation.
type Upload struct {
	Data        []byte
	ContentType string
}

var allowedContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/webp": {},
}

// AllowedContentType reports whether ct is on the screenshot allow-list.
func AllowedContentType(ct string) bool {
	_, ok := allowedContentTypes[strings.ToLower(strings.TrimSpace(ct))]
	return ok
}

// Manager stages upload sessions in the ephemeral store. Metadata and all
// screenshots are written with an identical TTL so no screenshot can
// outlive its session record.
type Manager struct {
	store          store.Store
	ttl            time.Duration
	maxScreenshots int
	maxBytes       int64
	logger         infra.Logger
}

// Config bounds what a session may stage.
type Config struct {
	TTL            time.Duration
	MaxScreenshots int
	MaxBytes       int64
}

func NewManager(s store.Store, cfg Config, logger infra.Logger) *Manager {
	return &Manager{
		store:          s,
		ttl:            cfg.TTL,
		maxScreenshots: cfg.MaxScreenshots,
		maxBytes:       cfg.MaxBytes,
		logger:         logger,
	}
}

// TTL returns the session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// MaxScreenshots returns the per-session screenshot cap.
func (m *Manager) MaxScreenshots() int {
	return m.maxScreenshots
}

// MaxBytes returns the per-screenshot byte ceiling.
func (m *Manager) MaxBytes() int64 {
	return m.maxBytes
}

func metadataKey(sessionID string) string {
	return "session:" + sessionID
}

func screenshotKey(sessionID string, index int) string {
	return fmt.Sprintf("session:%s:shot:%d", sessionID, index)
}

// Create validates the category and uploads, stages the survivors in the
// store and returns the new session. Uploads with a content type off the
// allow-list or an oversized body are discarded without failing the
// request; anything past the screenshot cap is silently truncated. Zero
// survivors fails with domain.ErrNoValidScreenshots.
func (m *Manager) Create(ctx context.Context, category domain.Category, uploads []Upload) (*domain.Session, error) {
	if !domain.ValidCategory(category) {
		return nil, domain.ErrInvalidCategory
	}

	var accepted []Upload
	for _, u := range uploads {
		if !AllowedContentType(u.ContentType) {
			continue
		}
		if len(u.Data) == 0 || int64(len(u.Data)) > m.maxBytes {
			continue
		}
		accepted = append(accepted, u)
		if len(accepted) == m.maxScreenshots {
			break
		}
	}
	if len(accepted) == 0 {
		return nil, domain.ErrNoValidScreenshots
	}

	now := time.Now().UTC()
	sess := &domain.Session{
		ID:              uuid.NewString(),
		Category:        category,
		ScreenshotCount: len(accepted),
		CreatedAt:       now,
		ExpiresAt:       now.Add(m.ttl),
	}

	for i, u := range accepted {
		if err := m.store.PutWithContentType(ctx, screenshotKey(sess.ID, i), u.Data, u.ContentType, m.ttl); err != nil {
			return nil, fmt.Errorf("stage screenshot %d: %w", i, err)
		}
	}

	meta, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	if err := m.store.Put(ctx, metadataKey(sess.ID), meta, m.ttl); err != nil {
		return nil, fmt.Errorf("stage session metadata: %w", err)
	}
	return sess, nil
}

// Get loads session metadata. A missing key means the session expired or
// never existed; callers treat both the same, so only
// domain.ErrSessionExpired comes back for absence.
func (m *Manager) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	data, err := m.store.Get(ctx, metadataKey(sessionID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrSessionExpired
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Delete removes the metadata and every screenshot key. Best-effort: the
// TTL is the backstop, so failures are logged and swallowed.
func (m *Manager) Delete(ctx context.Context, sessionID string, screenshotCount int) {
	if err := m.store.Delete(ctx, metadataKey(sessionID)); err != nil {
		m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("session: delete metadata failed")
	}
	for i := 0; i < screenshotCount; i++ {
		if err := m.store.Delete(ctx, screenshotKey(sessionID, i)); err != nil {
			m.logger.Warn().Err(err).Str("session_id", sessionID).Int("index", i).Msg("session: delete screenshot failed")
		}
	}
}

// FetchScreenshots reclaims the staged screenshots. Individual missing
// keys are skipped rather than fatal: a session that partially expired
// during a slow payment step is still usable while at least one
// screenshot remains.
func (m *Manager) FetchScreenshots(ctx context.Context, sessionID string, screenshotCount int) ([]domain.Screenshot, error) {
	var shots []domain.Screenshot
	for i := 0; i < screenshotCount; i++ {
		data, ct, err := m.store.GetWithContentType(ctx, screenshotKey(sessionID, i))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				m.logger.Debug().Str("session_id", sessionID).Int("index", i).Msg("session: screenshot expired, skipping")
				continue
			}
			return nil, fmt.Errorf("fetch screenshot %d: %w", i, err)
		}
		if ct == "" {
			ct = "image/jpeg"
		}
		shots = append(shots, domain.Screenshot{Data: data, ContentType: ct})
	}
	return shots, nil
}
