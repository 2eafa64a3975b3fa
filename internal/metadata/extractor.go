package metadata

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
	"golang.org/x/net/html"
)

// WordsPerMinute is the reading speed used for ReadingTime
const WordsPerMinute = 200

var whitespace = regexp.MustCompile(`\s+`)

// ArticleMetadata represents derived data for an article body
type ArticleMetadata struct {
	HTMLContent string
	TextContent string
	WordCount   int64
	ReadingTime int64
}

// Extract renders a markdown body and derives its text metrics
func Extract(body string) (*ArticleMetadata, error) {
	rendered := RenderMarkdown(body)

	doc, err := html.Parse(strings.NewReader(rendered))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	metadata := &ArticleMetadata{
		HTMLContent: rendered,
	}
	extractTextContent(doc, metadata)

	// Calculate reading time (average 200 words per minute)
	if metadata.WordCount > 0 {
		metadata.ReadingTime = int64((float64(metadata.WordCount) / WordsPerMinute) + 0.5)
		if metadata.ReadingTime < 1 {
			metadata.ReadingTime = 1
		}
	}

	return metadata, nil
}

// RenderMarkdown converts a markdown body to HTML
func RenderMarkdown(body string) string {
	return string(blackfriday.Run([]byte(body)))
}

// Excerpt returns at most n runes of plain text from a markdown body, cut on a word boundary
func Excerpt(body string, n int) string {
	m, err := Extract(body)
	if err != nil {
		return ""
	}
	runes := []rune(m.TextContent)
	if len(runes) <= n {
		return m.TextContent
	}

	cut := string(runes[:n])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

func extractTextContent(doc *html.Node, metadata *ArticleMetadata) {
	var extractText func(*html.Node) string
	extractText = func(n *html.Node) string {
		// Skip script and style elements
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return ""
		}

		var text strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				text.WriteString(c.Data)
			} else if c.Type == html.ElementNode {
				childText := extractText(c)
				if childText != "" {
					if text.Len() > 0 {
						text.WriteString(" ")
					}
					text.WriteString(childText)
				}
			}
		}
		return text.String()
	}

	cleanText := whitespace.ReplaceAllString(strings.TrimSpace(extractText(doc)), " ")
	metadata.TextContent = cleanText

	if cleanText != "" {
		metadata.WordCount = int64(len(strings.Fields(cleanText)))
	}
}
