package service

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/cloo-solutions/corpora/internal/domain"
)

const gcmNonceSize = 12

// KeyStore provides per-project key material. Implementations must create
// keys with an atomic insert-if-absent so concurrent first use cannot
// materialize two different keys for one project.
type KeyStore interface {
	GetOrCreate(ctx context.Context, projectID string) (*domain.ProjectEncryptionKey, error)
}

// ProtectedContent is the output of the tier-driven protection transform
type ProtectedContent struct {
	Content string
	State   domain.EncryptionState
}

// EncryptionEngine applies the protective transform mandated by a
// sensitivity tier:
//
//	standard     → identity (no cryptographic primitive is invoked)
//	confidential → AES-256-GCM, fresh nonce per call, nonce‖authTag‖ciphertext
//	restricted   → keyed HMAC-SHA-256 seal; one-way, models external custody
type EncryptionEngine struct {
	keys KeyStore
}

// NewEncryptionEngine creates an EncryptionEngine backed by the given keystore
func NewEncryptionEngine(keys KeyStore) *EncryptionEngine {
	return &EncryptionEngine{keys: keys}
}

// Protect transforms content per the resolved tier. The standard tier
// returns the content untouched and never touches the keystore.
func (e *EncryptionEngine) Protect(ctx context.Context, projectID string, tier domain.SensitivityTier, content string) (*ProtectedContent, error) {
	switch tier {
	case domain.TierStandard:
		return &ProtectedContent{Content: content, State: domain.EncryptionStateUnencrypted}, nil
	case domain.TierConfidential:
		return e.encryptConfidential(ctx, projectID, content)
	case domain.TierRestricted:
		return e.sealRestricted(ctx, projectID, content)
	default:
		return nil, domain.ErrInvalidSensitivity
	}
}

// Unprotect reverses the confidential transform. Restricted content is
// sealed one-way and cannot be recovered by this engine.
func (e *EncryptionEngine) Unprotect(ctx context.Context, projectID string, protected string) (string, error) {
	key, err := e.projectKey(ctx, projectID)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(protected)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeEncryption, "malformed protected content", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	tagSize := gcm.Overhead()
	if len(raw) < gcmNonceSize+tagSize {
		return "", domain.NewDomainError(domain.ErrCodeEncryption, "protected content too short")
	}

	nonce := raw[:gcmNonceSize]
	tag := raw[gcmNonceSize : gcmNonceSize+tagSize]
	ciphertext := raw[gcmNonceSize+tagSize:]

	// Seal appends the tag; reassemble ciphertext‖tag for Open
	plaintext, err := gcm.Open(nil, nonce, append(append([]byte{}, ciphertext...), tag...), nil)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeEncryption, "authentication failed", err)
	}

	return string(plaintext), nil
}

func (e *EncryptionEngine) encryptConfidential(ctx context.Context, projectID, content string) (*ProtectedContent, error) {
	key, err := e.projectKey(ctx, projectID)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEncryption, "failed to generate nonce", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(content), nil)
	tagSize := gcm.Overhead()
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	out := make([]byte, 0, len(nonce)+len(tag)+len(ciphertext))
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ciphertext...)

	return &ProtectedContent{
		Content: base64.StdEncoding.EncodeToString(out),
		State:   domain.EncryptionStateEncrypted,
	}, nil
}

func (e *EncryptionEngine) sealRestricted(ctx context.Context, projectID, content string) (*ProtectedContent, error) {
	key, err := e.projectKey(ctx, projectID)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(content))

	return &ProtectedContent{
		Content: hex.EncodeToString(mac.Sum(nil)),
		State:   domain.EncryptionStateHSMEncrypted,
	}, nil
}

func (e *EncryptionEngine) projectKey(ctx context.Context, projectID string) ([]byte, error) {
	record, err := e.keys.GetOrCreate(ctx, projectID)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEncryption, "project encryption key unavailable", err)
	}
	return NormalizeKeyMaterial(record.KeyMaterial), nil
}

// NormalizeKeyMaterial derives a fixed-length key from arbitrary input.
// A 64-character hex string decodes to raw key bytes; anything else is
// treated as a passphrase and hashed one-way to key length.
func NormalizeKeyMaterial(material string) []byte {
	if len(material) == 2*domain.ProjectKeyLength {
		if raw, err := hex.DecodeString(material); err == nil {
			return raw
		}
	}
	sum := sha256.Sum256([]byte(material))
	return sum[:]
}

// GenerateKeyMaterial returns fresh cryptographically strong key material
// encoded as hex.
func GenerateKeyMaterial() (string, error) {
	raw := make([]byte, domain.ProjectKeyLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate key material: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEncryption, "failed to initialize cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEncryption, "failed to initialize GCM", err)
	}
	return gcm, nil
}
