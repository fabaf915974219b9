// Package securemem keeps credentials sealed in a memguard enclave. The
// plaintext only exists in a locked buffer for the duration of a callback.
package securemem

import (
	"crypto/subtle"
	"fmt"

	"github.com/awnumar/memguard"
)

const redacted = "[REDACTED]"

// String is an encrypted secret. The zero value and nil are empty secrets.
// Formatting a String never prints the plaintext.
type String struct {
	enclave *memguard.Enclave
	size    int
}

// NewString seals plaintext. The Go string itself cannot be wiped, so callers
// should drop their reference to it afterwards.
func NewString(plaintext string) *String {
	return NewStringFromBytes([]byte(plaintext))
}

// NewStringFromBytes seals data and wipes the input slice.
func NewStringFromBytes(data []byte) *String {
	s := &String{size: len(data)}
	if len(data) > 0 {
		s.enclave = memguard.NewEnclave(data)
	}
	return s
}

// IsEmpty reports whether the secret holds no bytes.
func (s *String) IsEmpty() bool {
	return s == nil || s.enclave == nil
}

// Len returns the plaintext length.
func (s *String) Len() int {
	if s.IsEmpty() {
		return 0
	}
	return s.size
}

// WithBytes decrypts the secret into a locked buffer and passes it to fn. The
// buffer is destroyed when fn returns, so fn must not retain the slice. An
// empty secret calls fn with nil.
func (s *String) WithBytes(fn func([]byte) error) error {
	if s.IsEmpty() {
		return fn(nil)
	}
	buf, err := s.enclave.Open()
	if err != nil {
		return fmt.Errorf("failed to open secret: %w", err)
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}

// Equal compares the secret with other in constant time.
func (s *String) Equal(other string) bool {
	equal := false
	_ = s.WithBytes(func(b []byte) error {
		equal = subtle.ConstantTimeCompare(b, []byte(other)) == 1
		return nil
	})
	return equal
}

// String implements fmt.Stringer without revealing the secret.
func (s *String) String() string {
	if s.IsEmpty() {
		return ""
	}
	return redacted
}

// GoString keeps %#v redacted as well.
func (s *String) GoString() string { return s.String() }

// Purge wipes every locked buffer and the enclave key. Secrets cannot be
// opened afterwards; call it once on shutdown.
func Purge() {
	memguard.Purge()
}
