package service

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns the SHA-256 hex digest of canonical content bytes.
// The hash is always computed over canonical plaintext, never over protected
// output: the confidential transform uses a random nonce, so hashing
// ciphertext would make every ingestion look unique and defeat dedup.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
