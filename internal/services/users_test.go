package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"authors-haven/internal/auth"
	"authors-haven/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUserService(t *testing.T) (*UserService, *RecordingQueue, *auth.TokenManager) {
	db := SetupTestDB(t)
	queue := &RecordingQueue{}
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewUserService(db, tokens, queue, "http://haven.test/"), queue, tokens
}

func TestUserService_Register(t *testing.T) {
	svc, queue, _ := newTestUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, Registration{Email: "Ann@Example.com", Username: "ann", Password: "password1"})
	require.NoError(t, err)

	assert.False(t, user.IsActive)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.NotEqual(t, "password1", user.PasswordHash)
	require.NotNil(t, user.Profile)
	assert.Equal(t, "ann", user.Profile.Username)

	var settings models.NotificationSettings
	require.NoError(t, svc.db.First(&settings, "profile_id = ?", user.Profile.ID).Error)
	assert.True(t, settings.AllowEmailNotifications)
	assert.True(t, settings.AllowInAppNotifications)

	sent := queue.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"ann@example.com"}, sent[0].To)
	assert.Contains(t, sent[0].Body, "http://haven.test/api/users/activate/")
	assert.False(t, sent[0].IsNotification())
}

func TestUserService_RegisterValidation(t *testing.T) {
	svc, _, _ := newTestUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, Registration{Email: "taken@example.com", Username: "taken", Password: "password1"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		in       Registration
		wantKind Kind
		field    string
	}{
		{"missing email", Registration{Username: "x", Password: "password1"}, KindValidation, "email"},
		{"bad email", Registration{Email: "nope", Username: "x", Password: "password1"}, KindValidation, "email"},
		{"short password", Registration{Email: "a@b.co", Username: "x", Password: "pw1"}, KindValidation, "password"},
		{"no digit", Registration{Email: "a@b.co", Username: "x", Password: "passwordonly"}, KindValidation, "password"},
		{"space in username", Registration{Email: "a@b.co", Username: "x y", Password: "password1"}, KindValidation, "username"},
		{"duplicate email", Registration{Email: "TAKEN@example.com", Username: "other", Password: "password1"}, KindConflict, ""},
		{"duplicate username", Registration{Email: "new@example.com", Username: "taken", Password: "password1"}, KindConflict, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
			if tt.field != "" {
				assert.Equal(t, tt.field, err.(*Error).Field)
			}
		})
	}
}

func TestUserService_ActivateAndLogin(t *testing.T) {
	svc, queue, tokens := newTestUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, Registration{Email: "bo@example.com", Username: "bo", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "bo@example.com", "password1")
	assert.Equal(t, KindForbidden, KindOf(err), "inactive users cannot log in")

	body := queue.Sent()[0].Body
	token := strings.TrimSpace(body[strings.LastIndex(body, "/")+1:])

	activated, err := svc.Activate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, activated.ID)

	_, err = svc.Activate(ctx, token)
	assert.Equal(t, KindState, KindOf(err), "activation is single use")

	access, err := tokens.IssueAccess(user.ID)
	require.NoError(t, err)
	_, err = svc.Activate(ctx, access)
	assert.Equal(t, KindValidation, KindOf(err), "access tokens cannot activate")

	res, err := svc.Login(ctx, "BO@example.com", "password1")
	require.NoError(t, err)
	got, err := tokens.Parse(res.Token, auth.PurposeAccess)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got)

	_, err = svc.Login(ctx, "bo@example.com", "wrong-password1")
	assert.Equal(t, KindUnauthorized, KindOf(err))
	_, err = svc.Login(ctx, "ghost@example.com", "password1")
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func resetTokenFrom(t *testing.T, body string) string {
	t.Helper()
	const marker = "/api/users/password-reset/"
	i := strings.Index(body, marker)
	require.GreaterOrEqual(t, i, 0, "reset link missing from %q", body)
	rest := body[i+len(marker):]
	if j := strings.IndexByte(rest, '\n'); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

func TestUserService_PasswordReset(t *testing.T) {
	svc, queue, tokens := newTestUserService(t)
	ctx := context.Background()
	user := CreateTestUser(t, svc.db, "ann")

	err := svc.RequestPasswordReset(ctx, "ghost@example.com")
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Empty(t, queue.Sent())

	require.NoError(t, svc.RequestPasswordReset(ctx, " ANN@example.com "))
	sent := queue.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"ann@example.com"}, sent[0].To)
	assert.Contains(t, sent[0].Body, "http://haven.test/api/users/password-reset/")
	token := resetTokenFrom(t, sent[0].Body)

	checked, err := svc.CheckResetToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, checked.ID)

	_, err = svc.CheckResetToken(ctx, token+"tampered")
	assert.Equal(t, KindValidation, KindOf(err))

	activation, err := tokens.IssueActivation(user.ID)
	require.NoError(t, err)
	assert.Equal(t, KindValidation, KindOf(svc.ResetPassword(ctx, activation, "newpassword9")),
		"activation tokens cannot reset passwords")

	assert.Equal(t, KindValidation, KindOf(svc.ResetPassword(ctx, token, "ab2")))

	require.NoError(t, svc.ResetPassword(ctx, token, "newpassword9"))
	_, err = svc.Login(ctx, "ann@example.com", "password123")
	assert.Equal(t, KindUnauthorized, KindOf(err))
	_, err = svc.Login(ctx, "ann@example.com", "newpassword9")
	assert.NoError(t, err)
}

func TestUserService_Update(t *testing.T) {
	svc, _, _ := newTestUserService(t)
	ctx := context.Background()
	ann := CreateTestUser(t, svc.db, "ann")
	CreateTestUser(t, svc.db, "bob")

	// Empty update leaves the account untouched
	got, err := svc.Update(ctx, ann.ID, UserUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", got.Email)

	got, err = svc.Update(ctx, ann.ID, UserUpdate{Email: strPtr(" Annie@Example.com ")})
	require.NoError(t, err)
	assert.Equal(t, "annie@example.com", got.Email)
	assert.Equal(t, "ann", got.Username)

	got, err = svc.Update(ctx, ann.ID, UserUpdate{Username: strPtr("annie")})
	require.NoError(t, err)
	assert.Equal(t, "annie", got.Username)
	require.NotNil(t, got.Profile)
	assert.Equal(t, "annie", got.Profile.Username)

	_, err = svc.Update(ctx, ann.ID, UserUpdate{Password: strPtr("another1pass")})
	require.NoError(t, err)
	_, err = svc.Login(ctx, "annie@example.com", "another1pass")
	assert.NoError(t, err)

	tests := []struct {
		name     string
		in       UserUpdate
		wantKind Kind
	}{
		{"bad email", UserUpdate{Email: strPtr("nope")}, KindValidation},
		{"blank username", UserUpdate{Username: strPtr("  ")}, KindValidation},
		{"space in username", UserUpdate{Username: strPtr("a b")}, KindValidation},
		{"weak password", UserUpdate{Password: strPtr("short")}, KindValidation},
		{"email taken", UserUpdate{Email: strPtr("bob@example.com")}, KindConflict},
		{"username taken", UserUpdate{Username: strPtr("bob")}, KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, ann.ID, tt.in)
			assert.Equal(t, tt.wantKind, KindOf(err))
		})
	}

	got, err = svc.Get(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "annie@example.com", got.Email)
	assert.Equal(t, "annie", got.Username)
}

func TestProfileService_Update(t *testing.T) {
	db := SetupTestDB(t)
	svc := NewProfileService(db)
	ctx := context.Background()
	ann := CreateTestUser(t, db, "ann")
	bob := CreateTestUser(t, db, "bob")

	view, err := svc.Update(ctx, ann.ID, "ann", map[string]any{"bio": "  writes things  ", "first_name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "writes things", view.Bio)
	assert.Equal(t, "Ann", view.FirstName)

	_, err = svc.Update(ctx, ann.ID, "ann", map[string]any{"favourite_colour": "red"})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, "unknown_field", err.(*Error).Code)

	_, err = svc.Update(ctx, bob.ID, "ann", map[string]any{"bio": "hijacked"})
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = svc.Update(ctx, ann.ID, "ann", map[string]any{"username": "bob"})
	assert.Equal(t, KindConflict, KindOf(err))

	view, err = svc.Update(ctx, ann.ID, "ann", map[string]any{"username": "annie"})
	require.NoError(t, err)
	assert.Equal(t, "annie", view.Username)

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", ann.ID).Error)
	assert.Equal(t, "annie", user.Username)

	_, err = svc.GetByUsername(ctx, ann.ID, "ann")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Crème brûlée: a recipe!  ", "creme-brulee-a-recipe"},
		{"Go 1.23 -- what's new?", "go-1-23-what-s-new"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}

	assert.Regexp(t, `^[a-z0-9-]+-[a-z0-9]{7}$`, newSlug("Any Title"))
	assert.Regexp(t, `^article-[a-z0-9]{7}$`, newSlug("???"))
}
