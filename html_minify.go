package htmlizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
)

var (
	minifier *minify.M
	once     sync.Once
)

// getMinifier returns a configured HTML minifier (singleton)
func getMinifier() *minify.M {
	once.Do(func() {
		minifier = minify.New()
		minifier.Add("text/html", &html.Minifier{
			KeepEndTags: true,
			KeepQuotes:  true,
		})
	})
	return minifier
}

// minifyHTML removes unnecessary whitespace and comments from rendered
// markup. Text-only content just has its whitespace collapsed.
func minifyHTML(content string) (string, error) {
	if !strings.Contains(content, "<") {
		return strings.Join(strings.Fields(content), " "), nil
	}
	out, err := getMinifier().String("text/html", content)
	if err != nil {
		return "", fmt.Errorf("failed to minify: %w", err)
	}
	return out, nil
}

// MinifiedString serializes the View like String and minifies the result.
func (v *View) MinifiedString() (string, error) {
	return minifyHTML(v.String())
}
