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
	"io"
	"strings"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
)

// sealedPrefix marks values encrypted by this middleware. The format is
// versioned so a future scheme can coexist with records already on disk.
const sealedPrefix = "enc:v1:"

// sealedOutputField carries a step output sealed as one blob.
const sealedOutputField = "sealed"

// EncryptionConfig holds the keys for sealing and opening archived records.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new records.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.RunStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals the free-text
// fields of a record (query, answer, error, step outputs) with AES-GCM.
// Structural fields stay readable so listings keep working. Records saved
// before encryption was enabled carry no sealed marker and pass through
// reads unchanged.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.RunStore) ports.RunStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, record domain.RunRecord) error {
	sealed, err := m.sealRecord(record)
	if err != nil {
		return fmt.Errorf("failed to seal run record: %w", err)
	}
	return m.next.Save(ctx, sealed)
}

func (m *encryptionMiddleware) Load(ctx context.Context, id string) (domain.RunRecord, error) {
	record, err := m.next.Load(ctx, id)
	if err != nil {
		return domain.RunRecord{}, err
	}
	opened, err := m.openRecord(record)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("failed to open run record %s: %w", id, err)
	}
	return opened, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]domain.RunRecord, error) {
	records, err := m.next.List(ctx)
	if err != nil {
		return nil, err
	}
	for i, record := range records {
		opened, err := m.openRecord(record)
		if err != nil {
			return nil, fmt.Errorf("failed to open run record %s: %w", record.ID, err)
		}
		records[i] = opened
	}
	return records, nil
}

// sealRecord returns a copy of the record with its free text encrypted.
// The caller's record is never mutated.
func (m *encryptionMiddleware) sealRecord(record domain.RunRecord) (domain.RunRecord, error) {
	sealed := record
	var err error
	if sealed.Query, err = m.seal(record.Query); err != nil {
		return domain.RunRecord{}, err
	}
	if sealed.Answer, err = m.seal(record.Answer); err != nil {
		return domain.RunRecord{}, err
	}
	if sealed.Error, err = m.seal(record.Error); err != nil {
		return domain.RunRecord{}, err
	}

	sealed.Steps = make([]domain.StepReport, len(record.Steps))
	for i, step := range record.Steps {
		sealedStep := step
		if len(step.Output) > 0 {
			// Outputs duplicate the query and answer text; seal them as
			// one blob rather than field by field.
			blob, err := json.Marshal(step.Output)
			if err != nil {
				return domain.RunRecord{}, fmt.Errorf("failed to marshal step %s output: %w", step.StepID, err)
			}
			ciphertext, err := m.seal(string(blob))
			if err != nil {
				return domain.RunRecord{}, err
			}
			sealedStep.Output = domain.Values{sealedOutputField: ciphertext}
		}
		sealed.Steps[i] = sealedStep
	}
	return sealed, nil
}

func (m *encryptionMiddleware) openRecord(record domain.RunRecord) (domain.RunRecord, error) {
	opened := record
	var err error
	if opened.Query, err = m.open(record.Query); err != nil {
		return domain.RunRecord{}, err
	}
	if opened.Answer, err = m.open(record.Answer); err != nil {
		return domain.RunRecord{}, err
	}
	if opened.Error, err = m.open(record.Error); err != nil {
		return domain.RunRecord{}, err
	}

	opened.Steps = make([]domain.StepReport, len(record.Steps))
	for i, step := range record.Steps {
		openedStep := step
		if blob, ok := sealedOutput(step.Output); ok {
			plain, err := m.open(blob)
			if err != nil {
				return domain.RunRecord{}, err
			}
			var output domain.Values
			if err := json.Unmarshal([]byte(plain), &output); err != nil {
				return domain.RunRecord{}, fmt.Errorf("failed to unmarshal step %s output: %w", step.StepID, err)
			}
			openedStep.Output = output
		}
		opened.Steps[i] = openedStep
	}
	return opened, nil
}

// sealedOutput reports whether the output is a sealed blob envelope.
func sealedOutput(output domain.Values) (string, bool) {
	if len(output) != 1 {
		return "", false
	}
	blob, ok := output[sealedOutputField].(string)
	if !ok || !strings.HasPrefix(blob, sealedPrefix) {
		return "", false
	}
	return blob, true
}

func (m *encryptionMiddleware) seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	ciphertext, err := encrypt([]byte(plaintext), m.config.ActiveKey)
	if err != nil {
		return "", err
	}
	return sealedPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (m *encryptionMiddleware) open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		// Plaintext from before encryption was enabled.
		return value, nil
	}
	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed value: %w", err)
	}
	plaintext, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	// Try active key first
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	// Try fallbacks in order
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
