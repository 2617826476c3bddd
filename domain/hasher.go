package domain

// Hasher fingerprints payloads, such as utterances, for log correlation.
// The same input must always produce the same digest.
type Hasher interface {
	Hash(data []byte) string
}
