package crypto

import (
	"context"
	"strings"
)

// MockEncryptor implements Encryptor for local development and tests
// (no KMS required). It prefixes values so tests can tell encrypted
// strings from plaintext.
type MockEncryptor struct{}

func NewMockEncryptor() *MockEncryptor {
	return &MockEncryptor{}
}

func (m *MockEncryptor) Encrypt(ctx context.Context, plaintext string) (string, error) {
	return "mock:" + plaintext, nil
}

func (m *MockEncryptor) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	return strings.TrimPrefix(ciphertext, "mock:"), nil
}
