package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/conserje/pkg/domain"
	"github.com/aretw0/conserje/pkg/ports"
)

// ErrUnsealedSession is returned when an encrypting store reads a session
// that was written without an envelope.
var ErrUnsealedSession = errors.New("session is not sealed")

// ErrSessionKey is returned when no configured key opens a sealed session.
var ErrSessionKey = errors.New("no key opens the sealed session")

// EncryptionConfig holds the AES-256 keys sessions are sealed with.
type EncryptionConfig struct {
	// ActiveKey seals every session written from now on. Must be 32 bytes.
	ActiveKey []byte

	// FallbackKeys still open sessions sealed before a key rotation.
	FallbackKeys [][]byte
}

// sessionKeys seals with the active key and opens with any key of the ring,
// active key first.
type sessionKeys struct {
	active cipher.AEAD
	ring   []cipher.AEAD
}

func newSessionKeys(cfg EncryptionConfig) (*sessionKeys, error) {
	if len(cfg.ActiveKey) != 32 {
		return nil, fmt.Errorf("active key is %d bytes, want 32", len(cfg.ActiveKey))
	}
	k := &sessionKeys{}
	for i, key := range append([][]byte{cfg.ActiveKey}, cfg.FallbackKeys...) {
		aead, err := gcmFor(key)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		k.ring = append(k.ring, aead)
	}
	k.active = k.ring[0]
	return k, nil
}

func gcmFor(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal encrypts plain under the active key. The session id is bound as
// additional data, so an envelope moved to another id no longer opens.
func (k *sessionKeys) seal(sessionID string, plain []byte) (string, error) {
	nonce := make([]byte, k.active.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to draw nonce: %w", err)
	}
	out := k.active.Seal(nonce, nonce, plain, []byte(sessionID))
	return base64.StdEncoding.EncodeToString(out), nil
}

func (k *sessionKeys) open(sessionID, sealed string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	for _, aead := range k.ring {
		n := aead.NonceSize()
		if len(raw) < n {
			break
		}
		if plain, err := aead.Open(nil, raw[:n], raw[n:], []byte(sessionID)); err == nil {
			return plain, nil
		}
	}
	return nil, ErrSessionKey
}

type sealingStore struct {
	next ports.SessionStore
	keys *sessionKeys
}

// NewEncryptionMiddleware creates a middleware that seals sessions with AES-GCM.
// The wrapped store only sees the id, the update time and the envelope.
// It panics when a key is not a valid AES-256 key.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	keys, err := newSessionKeys(config)
	if err != nil {
		panic(err)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &sealingStore{next: next, keys: keys}
	}
}

func (s *sealingStore) Save(ctx context.Context, session *domain.Session) error {
	plain, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	sealed, err := s.keys.seal(session.ID, plain)
	if err != nil {
		return fmt.Errorf("failed to seal session %s: %w", session.ID, err)
	}
	return s.next.Save(ctx, &domain.Session{
		ID:        session.ID,
		UpdatedAt: session.UpdatedAt,
		Sealed:    sealed,
	})
}

func (s *sealingStore) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	envelope, err := s.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if envelope.Sealed == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsealedSession, sessionID)
	}

	plain, err := s.keys.open(sessionID, envelope.Sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to open session %s: %w", sessionID, err)
	}
	var session domain.Session
	if err := json.Unmarshal(plain, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	if session.History == nil {
		session.History = []domain.Message{}
	}
	return &session, nil
}

func (s *sealingStore) Delete(ctx context.Context, sessionID string) error {
	return s.next.Delete(ctx, sessionID)
}

func (s *sealingStore) List(ctx context.Context) ([]string, error) {
	return s.next.List(ctx)
}
