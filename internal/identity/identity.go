// Package identity derives stable, content-addressed chunk identifiers so
// that re-ingesting an unchanged file overwrites rather than duplicates.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// IDLength is the hex-character length of a chunk ID. At 16 characters (64
// bits) collisions are possible in principle but negligible for document
// corpora of realistic size.
const IDLength = 16

// ChunkID returns the deterministic identifier for chunk chunkIndex of the
// file at filePath.
func ChunkID(filePath string, chunkIndex int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%d", filePath, chunkIndex)))
	return hex.EncodeToString(sum[:])[:IDLength]
}
