package notifications

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplates(t *testing.T) {
	templates, err := DefaultTemplates()
	require.NoError(t, err)

	tests := []struct {
		key       string
		data      map[string]string
		wantTitle string
		wantBody  string
	}{
		{MsgArticlePublished, map[string]string{"Author": "ann", "Title": "Go", "URL": "http://x/a"}, "New Article for You", `ann just published "Go".`},
		{MsgCommentPublishedFavoriters, map[string]string{"Article": "Go", "Commenter": "bob", "Comment": "hi", "URL": "u"}, "New Comment on Go", "an article you favorited"},
		{MsgCommentPublishedAuthor, map[string]string{"Article": "Go", "Commenter": "bob", "Comment": "hi", "URL": "u"}, "New Comment on your Go", "commented on your article"},
		{MsgCommentLiked, map[string]string{"User": "cat", "Comment": "hi"}, "Comment Liked", "cat liked your comment"},
		{MsgFollowCreated, map[string]string{"Follower": "dan", "URL": "http://x/p/dan"}, "Someone followed you", "http://x/p/dan"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			title, body, err := templates.Render(tt.key, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, title)
			assert.Contains(t, body, tt.wantBody)
			assert.False(t, strings.HasSuffix(body, "\n"))
		})
	}
}

func TestTemplates_Errors(t *testing.T) {
	templates, err := DefaultTemplates()
	require.NoError(t, err)

	_, _, err = templates.Render("no_such_key", nil)
	assert.Error(t, err)

	_, _, err = templates.Render(MsgCommentLiked, map[string]string{"User": "cat"})
	assert.Error(t, err, "missing keys are an error")

	_, err = ParseTemplates([]byte("broken:\n  body: only a body\n"))
	assert.Error(t, err)

	_, err = ParseTemplates([]byte("broken:\n  title: '{{.Unclosed'\n"))
	assert.Error(t, err)

	_, err = ParseTemplates([]byte("- not\n- a map\n"))
	assert.Error(t, err)
}

func TestTemplates_TitleIsBounded(t *testing.T) {
	templates, err := ParseTemplates([]byte("long:\n  title: '{{.T}}'\n  body: b\n"))
	require.NoError(t, err)

	title, _, err := templates.Render("long", map[string]string{"T": strings.Repeat("x", 300)})
	require.NoError(t, err)
	assert.Len(t, title, 200)
}
