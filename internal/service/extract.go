package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/corpora/internal/domain"
)

// FileInput is the raw material for a document ingestion. Either inline
// bytes/text or an object storage key must be provided.
type FileInput struct {
	Name        string
	ContentType string
	Data        []byte
	Text        string
	ObjectKey   string
	Size        int64
}

// ExtractFileContent decodes a file into canonical text
func ExtractFileContent(file FileInput) (string, error) {
	var raw string
	switch {
	case len(file.Data) > 0:
		if !utf8.Valid(file.Data) {
			return "", domain.NewDomainError(domain.ErrCodeValidation, "file content is not valid UTF-8 text")
		}
		raw = string(file.Data)
	case file.Text != "":
		raw = file.Text
	default:
		return "", domain.ErrEmptyContent
	}

	canonical := CanonicalizeText(raw)
	if canonical == "" {
		return "", domain.ErrEmptyCanonicalContent
	}
	return canonical, nil
}

// ExtractConversationContent flattens a transcript into "role: content"
// lines, one per message.
func ExtractConversationContent(messages []*domain.ConversationMessage) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	return CanonicalizeText(strings.Join(lines, "\n"))
}

// CanonicalizeText normalizes line endings and trims surrounding whitespace
// so dedup hashes are stable across submission paths.
func CanonicalizeText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.TrimSpace(normalized)
}

// InferCategory maps a MIME type onto a coarse content category
func InferCategory(contentType string) string {
	switch {
	case contentType == "":
		return "unknown"
	case strings.Contains(contentType, "image"):
		return "image"
	case strings.Contains(contentType, "video"):
		return "video"
	case strings.Contains(contentType, "audio"):
		return "audio"
	case strings.Contains(contentType, "pdf"):
		return "document"
	case strings.Contains(contentType, "text"):
		return "text"
	default:
		return "unknown"
	}
}
