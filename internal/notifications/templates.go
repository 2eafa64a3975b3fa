package notifications

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Template keys in messages.yaml
const (
	MsgArticlePublished           = "article_published"
	MsgCommentPublishedFavoriters = "comment_published_favoriters"
	MsgCommentPublishedAuthor     = "comment_published_author"
	MsgCommentLiked               = "comment_liked"
	MsgFollowCreated              = "follow_created"
)

//go:embed messages.yaml
var defaultMessages []byte

type messageSource struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

type message struct {
	title *template.Template
	body  *template.Template
}

// Templates renders notification titles and bodies by key
type Templates struct {
	messages map[string]message
}

// DefaultTemplates parses the embedded message file
func DefaultTemplates() (*Templates, error) {
	return ParseTemplates(defaultMessages)
}

// ParseTemplates parses a YAML document mapping keys to title/body templates
func ParseTemplates(data []byte) (*Templates, error) {
	var sources map[string]messageSource
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse notification templates: %w", err)
	}

	t := &Templates{messages: make(map[string]message, len(sources))}
	for key, src := range sources {
		if src.Title == "" {
			return nil, fmt.Errorf("notification template %q has no title", key)
		}
		title, err := template.New(key + ".title").Option("missingkey=error").Parse(src.Title)
		if err != nil {
			return nil, fmt.Errorf("failed to parse title of %q: %w", key, err)
		}
		body, err := template.New(key + ".body").Option("missingkey=error").Parse(src.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse body of %q: %w", key, err)
		}
		t.messages[key] = message{title: title, body: body}
	}
	return t, nil
}

// Render executes the title and body templates stored under key
func (t *Templates) Render(key string, data any) (title, body string, err error) {
	m, ok := t.messages[key]
	if !ok {
		return "", "", fmt.Errorf("unknown notification template %q", key)
	}

	var sb strings.Builder
	if err := m.title.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("failed to render title of %q: %w", key, err)
	}
	title = strings.TrimSpace(sb.String())

	sb.Reset()
	if err := m.body.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("failed to render body of %q: %w", key, err)
	}
	body = strings.TrimSpace(sb.String())

	// Title column is bounded
	if len(title) > 200 {
		title = title[:200]
	}
	return title, body, nil
}
