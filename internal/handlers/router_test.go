package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"authors-haven/internal/auth"
	"authors-haven/internal/events"
	"authors-haven/internal/feeds"
	"authors-haven/internal/models"
	"authors-haven/internal/notifications"
	"authors-haven/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	tokens *auth.TokenManager
	queue  *services.RecordingQueue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := services.SetupTestDB(t)
	bus := events.NewBus()
	queue := &services.RecordingQueue{}
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	templates, err := notifications.DefaultTemplates()
	require.NoError(t, err)
	hub := notifications.NewHub()
	settings := notifications.NewSettingsStore(db)
	notes := notifications.NewService(db, notifications.NewGormDirectory(db), settings, queue, hub, templates, "http://haven.test")
	notes.Register(bus)

	articles := services.NewArticleService(db, bus)
	docsRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docsRoot, "README.md"), []byte("# Author's Haven\n\nA place for writers."), 0o644))

	router := NewRouter(Deps{
		DB:            db,
		Tokens:        tokens,
		Users:         services.NewUserService(db, tokens, queue, "http://haven.test"),
		Profiles:      services.NewProfileService(db),
		Follows:       services.NewFollowService(db, bus),
		Articles:      articles,
		Interactions:  services.NewInteractionService(db, bus, queue, "admin@haven.test"),
		Comments:      services.NewCommentService(db, bus),
		Feeds:         feeds.NewFeedService(db, articles),
		Notifications: notes,
		Settings:      settings,
		Hub:           hub,
		AdminPassword: "secret",
		DocsRoot:      docsRoot,
	})

	return &testEnv{db: db, router: router, tokens: tokens, queue: queue}
}

func (e *testEnv) user(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	u := services.CreateTestUser(t, e.db, username)
	token, err := e.tokens.IssueAccess(u.ID)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	w = env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestUserRegistrationFlow(t *testing.T) {
	env := newTestEnv(t)

	reg := map[string]string{"email": "Writer@Example.com", "username": "writer", "password": "s3cretpass"}
	w := env.do(t, http.MethodPost, "/api/users", "", reg)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/users/login", "", map[string]string{"email": "writer@example.com", "password": "s3cretpass"})
	assert.Equal(t, http.StatusForbidden, w.Code, "inactive accounts cannot log in")

	sent := env.queue.Sent()
	require.Len(t, sent, 1)
	_, link, found := strings.Cut(sent[0].Body, "/api/users/activate/")
	require.True(t, found)
	activation := strings.TrimSpace(link)

	w = env.do(t, http.MethodGet, "/api/users/activate/"+activation, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/users/activate/"+activation, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/users/login", "", map[string]string{"email": "writer@example.com", "password": "s3cretpass"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["user"].(map[string]any)["token"].(string)
	assert.NotEmpty(t, token)

	tests := []struct {
		name       string
		path       string
		body       map[string]string
		wantStatus int
		wantField  string
	}{
		{"duplicate email", "/api/users", reg, http.StatusUnprocessableEntity, ""},
		{"weak password", "/api/users", map[string]string{"email": "b@example.com", "username": "b", "password": "abcdefgh"}, http.StatusBadRequest, "password"},
		{"bad email", "/api/users", map[string]string{"email": "nope", "username": "c", "password": "abc12345"}, http.StatusBadRequest, "email"},
		{"wrong password", "/api/users/login", map[string]string{"email": "writer@example.com", "password": "wrong"}, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, decode(t, w)["field"])
			}
		})
	}
}

func TestArticleRoutes(t *testing.T) {
	env := newTestEnv(t)
	_, authorToken := env.user(t, "ann")
	_, readerToken := env.user(t, "ben")

	w := env.do(t, http.MethodPost, "/api/articles", "", map[string]any{"title": "Anon", "body": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/articles", authorToken, map[string]any{
		"title": "Writing Go", "description": "notes", "body": "Go is a small language.", "tag_list": []string{"go", "Craft"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	slug := decode(t, w)["article"].(map[string]any)["slug"].(string)
	base := "/api/articles/" + slug

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       any
		wantStatus int
	}{
		{"anonymous read", http.MethodGet, base, "", nil, http.StatusOK},
		{"missing article", http.MethodGet, "/api/articles/nope", "", nil, http.StatusNotFound},
		{"edit by stranger", http.MethodPatch, base, readerToken, map[string]string{"title": "Mine"}, http.StatusForbidden},
		{"like", http.MethodPost, base + "/like", readerToken, nil, http.StatusOK},
		{"like again", http.MethodPost, base + "/like", readerToken, nil, http.StatusBadRequest},
		{"switch to dislike", http.MethodPost, base + "/dislike", readerToken, nil, http.StatusOK},
		{"author reacts", http.MethodPost, base + "/like", authorToken, nil, http.StatusBadRequest},
		{"unknown reaction", http.MethodPost, base + "/love", readerToken, nil, http.StatusNotFound},
		{"favorite", http.MethodPost, base + "/favorite", readerToken, nil, http.StatusOK},
		{"favorite again", http.MethodPost, base + "/favorite", readerToken, nil, http.StatusBadRequest},
		{"rate out of range", http.MethodPost, base + "/rate", readerToken, map[string]int{"rate_score": 6}, http.StatusBadRequest},
		{"rate missing score", http.MethodPost, base + "/rate", readerToken, map[string]int{}, http.StatusBadRequest},
		{"rate", http.MethodPost, base + "/rate", readerToken, map[string]int{"rate_score": 4}, http.StatusCreated},
		{"rate again", http.MethodPost, base + "/rate", readerToken, map[string]int{"rate_score": 2}, http.StatusUnprocessableEntity},
		{"author rates", http.MethodPost, base + "/rate", authorToken, map[string]int{"rate_score": 5}, http.StatusForbidden},
		{"bookmark", http.MethodPost, base + "/bookmark", readerToken, nil, http.StatusCreated},
		{"bookmark again", http.MethodPost, base + "/bookmark", readerToken, nil, http.StatusBadRequest},
		{"report without reason", http.MethodPost, base + "/report", readerToken, map[string]string{}, http.StatusBadRequest},
		{"report", http.MethodPost, base + "/report", readerToken, map[string]string{"reason": "plagiarism"}, http.StatusCreated},
		{"report own article", http.MethodPost, base + "/report", authorToken, map[string]string{"reason": "oops"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}

	w = env.do(t, http.MethodGet, base+"/dislike/status", readerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["reacted"])

	w = env.do(t, http.MethodGet, "/api/bookmarks", readerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = env.do(t, http.MethodGet, "/api/reports", readerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = env.do(t, http.MethodGet, "/api/tags", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []any{"go", "craft"}, decode(t, w)["tags"])

	w = env.do(t, http.MethodGet, "/api/articles?author=ann", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["articlesCount"])

	w = env.do(t, http.MethodDelete, base, authorToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, base, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFollowRoutesAndFeed(t *testing.T) {
	env := newTestEnv(t)
	ann, annToken := env.user(t, "ann")
	_, benToken := env.user(t, "ben")
	services.CreateTestArticle(t, env.db, ann, "Followed Work", "body")

	w := env.do(t, http.MethodGet, "/api/profiles/me/followers", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	empty := decode(t, w)
	assert.Equal(t, []any{}, empty["followers"])
	assert.Equal(t, "You have no followers.", empty["message"])

	w = env.do(t, http.MethodPost, "/api/profiles/ann/follow", benToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["profile"].(map[string]any)["following"])

	w = env.do(t, http.MethodPost, "/api/profiles/ann/follow", benToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, http.MethodGet, "/api/profiles/me/following", benToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"ann"}, decode(t, w)["following"])

	w = env.do(t, http.MethodGet, "/api/articles/feed", benToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	feed := decode(t, w)
	assert.Len(t, feed["items"], 1)

	w = env.do(t, http.MethodGet, "/api/notifications", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"], "follow raises a notification")

	w = env.do(t, http.MethodPatch, "/api/profiles/ann", benToken, map[string]string{"bio": "hacked"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, http.MethodPatch, "/api/profiles/ann", annToken, map[string]string{"bio": "I write."})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "I write.", decode(t, w)["profile"].(map[string]any)["bio"])

	w = env.do(t, http.MethodDelete, "/api/profiles/ann/follow", benToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/articles/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCurrentUserRoutes(t *testing.T) {
	env := newTestEnv(t)
	_, annToken := env.user(t, "ann")
	env.user(t, "ben")

	w := env.do(t, http.MethodGet, "/api/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/user", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "ann@example.com", user["email"])
	assert.NotContains(t, user, "password_hash")

	w = env.do(t, http.MethodPatch, "/api/user", annToken, map[string]string{"username": "annie"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	user = decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "annie", user["username"])
	assert.Equal(t, "ann@example.com", user["email"])

	w = env.do(t, http.MethodGet, "/api/profiles/annie", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPatch, "/api/user", annToken, map[string]string{"email": "ben@example.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = env.do(t, http.MethodPatch, "/api/user", annToken, map[string]string{"password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "password", decode(t, w)["field"])
}

func TestPasswordResetRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "ann")

	w := env.do(t, http.MethodPost, "/api/users/password-reset", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/users/password-reset", "", map[string]string{"email": "ann@example.com"})
	require.Equal(t, http.StatusOK, w.Code)

	sent := env.queue.Sent()
	require.Len(t, sent, 1)
	_, link, found := strings.Cut(sent[0].Body, "/api/users/password-reset/")
	require.True(t, found)
	token, _, _ := strings.Cut(link, "\n")

	w = env.do(t, http.MethodGet, "/api/users/password-reset/"+token, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/users/password-reset/"+token+"wrong", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/api/users/password-reset/"+token, "", map[string]string{"password": "ab2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodPut, "/api/users/password-reset/"+token, "", map[string]string{"password": "xml123XML"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/users/login", "", map[string]string{"email": "ann@example.com", "password": "xml123XML"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCommentRoutesAndNotifications(t *testing.T) {
	env := newTestEnv(t)
	ann, annToken := env.user(t, "ann")
	_, benToken := env.user(t, "ben")
	article := services.CreateTestArticle(t, env.db, ann, "Commentable", "The quick brown fox.")

	w := env.do(t, http.MethodPost, "/api/articles/"+article.Slug+"/comments", benToken, map[string]any{
		"body": "Nice fox", "commenting_on": "brown fox",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	commentID := decode(t, w)["comment"].(map[string]any)["id"].(string)

	w = env.do(t, http.MethodPost, "/api/articles/"+article.Slug+"/comments", benToken, map[string]any{
		"body": "Nice cat", "commenting_on": "lazy cat",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "not_found_in_article", decode(t, w)["code"])

	w = env.do(t, http.MethodPatch, "/api/comments/"+commentID, annToken, map[string]string{"body": "mine now"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, http.MethodPatch, "/api/comments/"+commentID, benToken, map[string]string{"body": "Very nice fox"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "brown fox", decode(t, w)["comment"].(map[string]any)["commenting_on"], "body-only edits keep the highlight")

	w = env.do(t, http.MethodGet, "/api/comments/"+commentID+"/history", benToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["history"], 2)

	w = env.do(t, http.MethodPost, "/api/comments/"+commentID+"/like", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/comments/"+commentID+"/replies", annToken, map[string]string{"body": "Thanks!"})
	require.Equal(t, http.StatusCreated, w.Code)
	replyID := decode(t, w)["reply"].(map[string]any)["id"].(string)

	w = env.do(t, http.MethodGet, "/api/comments/"+commentID+"/replies", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["repliesCount"])

	w = env.do(t, http.MethodPatch, "/api/replies/"+replyID, annToken, map[string]string{"body": "Thanks a lot!"})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/replies/"+replyID+"/history", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["history"], 2)

	w = env.do(t, http.MethodGet, "/api/comments/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// ann: comment on her article. ben: his comment was liked.
	for _, tc := range []struct {
		token string
		want  int
	}{{annToken, 1}, {benToken, 1}} {
		w = env.do(t, http.MethodGet, "/api/notifications", tc.token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, tc.want, decode(t, w)["count"])
	}

	w = env.do(t, http.MethodPost, "/api/notifications", benToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["marked"])
	w = env.do(t, http.MethodGet, "/api/notifications", benToken, nil)
	assert.EqualValues(t, 0, decode(t, w)["count"])

	w = env.do(t, http.MethodPatch, "/api/notifications/settings", benToken, map[string]bool{"allow_email_notifications": false})
	require.Equal(t, http.StatusOK, w.Code)
	settings := decode(t, w)["settings"].(map[string]any)
	assert.Equal(t, false, settings["allow_email_notifications"])
	assert.Equal(t, true, settings["allow_in_app_notifications"])

	w = env.do(t, http.MethodDelete, "/api/comments/"+commentID, benToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/replies/"+replyID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t)
	ann, _ := env.user(t, "ann")
	_, benToken := env.user(t, "ben")
	article := services.CreateTestArticle(t, env.db, ann, "Reported <b>Title</b>", "body")
	env.do(t, http.MethodPost, "/api/articles/"+article.Slug+"/report", benToken, map[string]string{"reason": "spam"})

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tests := []struct {
		path     string
		contains string
	}{
		{"/admin/stats", `"reports":1`},
		{"/admin/reports", "Reported &lt;b&gt;Title&lt;/b&gt;"},
		{"/admin", "Active users"},
		{"/admin/worker", "worker_status"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.SetBasicAuth("admin", "secret")
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}

func TestDocs(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/doc/README", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "A place for writers.")
	assert.Contains(t, w.Body.String(), "Project Overview")

	w = env.do(t, http.MethodGet, "/doc/API", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "allowed but absent from the docs root")

	w = env.do(t, http.MethodGet, "/doc/DESIGN", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "not an allowed document")

	w = env.do(t, http.MethodGet, "/doc/..%2Fgo.mod", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
