package hasher

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/satriahrh/voice-assistant/domain"
)

// Fingerprint hashes utterances so logs can correlate them without storing
// the text. Size truncates the hex digest; zero keeps all 64 characters.
type Fingerprint struct {
	Size int
}

var _ domain.Hasher = Fingerprint{}

// New returns a full-length SHA-256 fingerprint.
func New() domain.Hasher { return Fingerprint{} }

func (f Fingerprint) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	if f.Size > 0 && f.Size < len(digest) {
		return digest[:f.Size]
	}
	return digest
}
