package services

import (
	"context"
	"testing"

	"authors-haven/internal/events"
	"authors-haven/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func inBoth(t *testing.T, db *gorm.DB, target models.Reactable, userID uuid.UUID) bool {
	t.Helper()
	return hasMember(db, target, target.ReactionField(models.Like), userID) &&
		hasMember(db, target, target.ReactionField(models.Dislike), userID)
}

func TestReactions_Article(t *testing.T) {
	db := SetupTestDB(t)
	svc := NewInteractionService(db, nil, nil, "")
	ctx := context.Background()

	ann := CreateTestUser(t, db, "ann")
	bob := CreateTestUser(t, db, "bob")
	article := CreateTestArticle(t, db, ann, "Reactions", "body")

	steps := []struct {
		name        string
		do          func() (*ReactionResult, error)
		wantKind    Kind
		wantOutcome ReactionOutcome
		likes       int64
		dislikes    int64
	}{
		{"like", func() (*ReactionResult, error) { return svc.React(ctx, bob.ID, article, models.Like) }, "", OutcomeAdded, 1, 0},
		{"like again", func() (*ReactionResult, error) { return svc.React(ctx, bob.ID, article, models.Like) }, KindState, "", 0, 0},
		{"switch to dislike", func() (*ReactionResult, error) { return svc.React(ctx, bob.ID, article, models.Dislike) }, "", OutcomeChanged, 0, 1},
		{"undo like not active", func() (*ReactionResult, error) { return svc.Unreact(ctx, bob.ID, article, models.Like) }, KindState, "", 0, 0},
		{"undo dislike", func() (*ReactionResult, error) { return svc.Unreact(ctx, bob.ID, article, models.Dislike) }, "", OutcomeReversed, 0, 0},
		{"author cannot react", func() (*ReactionResult, error) { return svc.React(ctx, ann.ID, article, models.Like) }, KindState, "", 0, 0},
		{"anonymous", func() (*ReactionResult, error) { return svc.React(ctx, uuid.Nil, article, models.Like) }, KindUnauthorized, "", 0, 0},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			res, err := step.do()
			if step.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, step.wantKind, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, step.wantOutcome, res.Outcome)
			assert.Equal(t, step.likes, res.LikeCount)
			assert.Equal(t, step.dislikes, res.DislikeCount)
			assert.False(t, inBoth(t, db, article, bob.ID))
		})
	}

	assert.False(t, svc.IsReacted(ctx, bob.ID, article, models.Like))
	assert.False(t, svc.IsReacted(ctx, uuid.Nil, article, models.Like))
}

func TestReactions_CommentLikeRaisesEvent(t *testing.T) {
	db := SetupTestDB(t)
	bus := events.NewBus()
	raised := captureEvents(bus, events.NameCommentLiked)
	svc := NewInteractionService(db, bus, nil, "")
	comments := NewCommentService(db, nil)
	ctx := context.Background()

	ann := CreateTestUser(t, db, "ann")
	bob := CreateTestUser(t, db, "bob")
	article := CreateTestArticle(t, db, ann, "Comment likes", "body")

	view, err := comments.Create(ctx, ann.ID, article.Slug, CommentInput{Body: "first!"})
	require.NoError(t, err)
	comment, err := svc.Comment(ctx, view.ID)
	require.NoError(t, err)

	_, err = svc.React(ctx, ann.ID, comment, models.Like)
	assert.Equal(t, KindState, KindOf(err), "comment author cannot like own comment")

	_, err = svc.React(ctx, bob.ID, comment, models.Dislike)
	require.NoError(t, err)
	assert.Empty(t, *raised, "dislikes raise nothing")

	res, err := svc.React(ctx, bob.ID, comment, models.Like)
	require.NoError(t, err)
	assert.Equal(t, OutcomeChanged, res.Outcome)
	assert.False(t, inBoth(t, db, comment, bob.ID))

	require.Len(t, *raised, 1)
	ev := (*raised)[0].(events.CommentLiked)
	assert.Equal(t, comment.ID, ev.CommentID)
	assert.Equal(t, bob.ID, ev.UserID)
}

func TestFavorites_CountMatchesSet(t *testing.T) {
	db := SetupTestDB(t)
	svc := NewInteractionService(db, nil, nil, "")
	ctx := context.Background()

	ann := CreateTestUser(t, db, "ann")
	bob := CreateTestUser(t, db, "bob")
	cat := CreateTestUser(t, db, "cat")
	article := CreateTestArticle(t, db, ann, "Favorites", "body")

	check := func() {
		t.Helper()
		var stored models.Article
		require.NoError(t, db.First(&stored, "id = ?", article.ID).Error)
		size := db.Model(&stored).Association("FavoritedBy").Count()
		assert.Equal(t, int64(stored.FavoritesCount), size)
	}

	res, err := svc.Favorite(ctx, bob.ID, article.Slug)
	require.NoError(t, err)
	assert.True(t, res.Favorited)
	assert.Equal(t, 1, res.Article.FavoritesCount)
	check()

	_, err = svc.Favorite(ctx, bob.ID, article.Slug)
	assert.Equal(t, KindState, KindOf(err))
	check()

	res, err = svc.ToggleFavorite(ctx, cat.ID, article.Slug)
	require.NoError(t, err)
	assert.True(t, res.Favorited)
	assert.Equal(t, 2, res.Article.FavoritesCount)
	check()

	res, err = svc.ToggleFavorite(ctx, cat.ID, article.Slug)
	require.NoError(t, err)
	assert.False(t, res.Favorited)
	check()

	res, err = svc.Unfavorite(ctx, bob.ID, article.Slug)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Article.FavoritesCount)
	check()

	_, err = svc.Unfavorite(ctx, bob.ID, article.Slug)
	assert.Equal(t, KindState, KindOf(err))

	// Authors may favorite their own work
	_, err = svc.Favorite(ctx, ann.ID, article.Slug)
	assert.NoError(t, err)
	check()
}

func TestRatings(t *testing.T) {
	db := SetupTestDB(t)
	svc := NewInteractionService(db, nil, nil, "")
	ctx := context.Background()

	ann := CreateTestUser(t, db, "ann")
	bob := CreateTestUser(t, db, "bob")
	cat := CreateTestUser(t, db, "cat")
	article := CreateTestArticle(t, db, ann, "Rate me", "body")

	tests := []struct {
		name     string
		userID   uuid.UUID
		score    int
		wantKind Kind
		wantAvg  int
	}{
		{"score too high", bob.ID, 6, KindValidation, 0},
		{"score too low", bob.ID, 0, KindValidation, 0},
		{"author with valid score", ann.ID, 3, KindForbidden, 0},
		{"author with invalid score", ann.ID, 9, KindValidation, 0},
		{"non-author", bob.ID, 3, "", 3},
		{"repeat", bob.ID, 4, KindConflict, 0},
		{"second rater floors mean", cat.ID, 4, "", 3},
		{"second rating by same user", cat.ID, 5, KindConflict, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Rate(ctx, tt.userID, article.Slug, tt.score)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.score, res.Rating.Score)
			assert.Equal(t, tt.wantAvg, res.AverageRating)
		})
	}

	_, err := svc.Rate(ctx, bob.ID, "no-such-article", 3)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestBookmarks(t *testing.T) {
	db := SetupTestDB(t)
	svc := NewInteractionService(db, nil, nil, "")
	ctx := context.Background()

	ann := CreateTestUser(t, db, "ann")
	bob := CreateTestUser(t, db, "bob")
	article := CreateTestArticle(t, db, ann, "Keep this", "body")

	_, err := svc.AddBookmark(ctx, bob.ID, article.Slug)
	require.NoError(t, err)
	_, err = svc.AddBookmark(ctx, bob.ID, article.Slug)
	assert.Equal(t, KindState, KindOf(err))

	list, err := svc.Bookmarks(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ann", list[0].Article.Author.Username)

	require.NoError(t, svc.RemoveBookmark(ctx, bob.ID, article.Slug))
	assert.Equal(t, KindNotFound, KindOf(svc.RemoveBookmark(ctx, bob.ID, article.Slug)))
}

func TestReports(t *testing.T) {
	db := SetupTestDB(t)
	queue := &RecordingQueue{}
	svc := NewInteractionService(db, nil, queue, "admin@haven.test")
	ctx := context.Background()

	ann := CreateTestUser(t, db, "ann")
	bob := CreateTestUser(t, db, "bob")
	cat := CreateTestUser(t, db, "cat")
	root := CreateTestUser(t, db, "root")
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", root.ID).Update("is_superuser", true).Error)
	article := CreateTestArticle(t, db, ann, "Questionable", "body")

	_, err := svc.Report(ctx, ann.ID, article.Slug, "spam")
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = svc.Report(ctx, bob.ID, article.Slug, "   ")
	assert.Equal(t, KindValidation, KindOf(err))

	report, err := svc.Report(ctx, bob.ID, article.Slug, "plagiarism")
	require.NoError(t, err)

	_, err = svc.Report(ctx, bob.ID, article.Slug, "again")
	assert.Equal(t, KindConflict, KindOf(err))

	sent := queue.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"admin@haven.test"}, sent[0].To)
	assert.Contains(t, sent[0].Body, "plagiarism")

	mine, err := svc.Reports(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := svc.Reports(ctx, cat.ID)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	all, err := svc.Reports(ctx, root.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = svc.GetReport(ctx, cat.ID, report.ID)
	assert.Equal(t, KindForbidden, KindOf(err))
	got, err := svc.GetReport(ctx, root.ID, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "plagiarism", got.Reason)
}

func TestIsAuthor(t *testing.T) {
	owner := uuid.New()
	article := &models.Article{AuthorID: owner}

	assert.True(t, IsAuthor(owner, article))
	assert.False(t, IsAuthor(uuid.New(), article))
	assert.False(t, IsAuthor(uuid.Nil, &models.Article{}))
}
