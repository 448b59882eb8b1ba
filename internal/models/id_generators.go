package models

import (
	"crypto/rand"
	"encoding/base64"
	"io"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator implements models.IDGenerator and generates sortable IDs used to correlate
// log lines, for example all requests that waited on the same credential refresh.
type ULIDGenerator struct{}

func (ULIDGenerator) ID() (string, error) {
	// ulid.Make uses a process wide monotonic entropy source that is safe for concurrent use
	return ulid.Make().String(), nil
}

// RandomGenerator implements models.IDGenerator and generates random IDs used for session IDs
type RandomGenerator struct {
	Length int
}

func (r RandomGenerator) ID() (string, error) {
	b := make([]byte, r.Length)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func NewRandomGenerator(length int) RandomGenerator {
	return RandomGenerator{length}
}
