package prompt

import (
	"embed"
	"fmt"
	"strings"

	"server/internal/domain"
)

//go:embed templates/*.txt
var templateFS embed.FS

// fallbackName is the universal template used when no category-specific
// template exists.
const fallbackName = "general"

// Library serves the system prompt for a listing category. Templates are
// compiled into the binary; a miss on the category falls back to the
// universal template, and only a miss on that too is an error.
type Library struct{}

func NewLibrary() *Library {
	return &Library{}
}

// ForCategory returns the prompt text for the category, falling back to
// the universal template on a miss.
func (l *Library) ForCategory(category domain.Category) (string, error) {
	if text, err := l.read(string(category)); err == nil {
		return text, nil
	}
	text, err := l.read(fallbackName)
	if err != nil {
		return "", fmt.Errorf("prompt: no template for %q and no fallback: %w", category, err)
	}
	return text, nil
}

func (l *Library) read(name string) (string, error) {
	data, err := templateFS.ReadFile("templates/" + name + ".txt")
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("prompt: template %q is empty", name)
	}
	return text, nil
}
