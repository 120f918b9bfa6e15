package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// generateChunkID derives a content-addressable passage ID from a file path
// and its content. The ID is stable across re-ingests of unchanged text and
// changes whenever the text does, which lets a reseed skip re-embedding
// passages that haven't moved.
func generateChunkID(filePath string, content string) string {
	contentHash := sha256.Sum256([]byte(content))
	contentHashStr := hex.EncodeToString(contentHash[:])[:16]

	input := fmt.Sprintf("%s:%s", filePath, contentHashStr)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}

// estimateTokens approximates the token count of content without invoking a
// tokenizer.
func estimateTokens(content string) int {
	return len(content) / TokensPerChar
}
