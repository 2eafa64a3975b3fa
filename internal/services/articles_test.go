package services

import (
	"context"
	"strings"
	"testing"

	"authors-haven/internal/events"
	"authors-haven/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleService_CreateAndGet(t *testing.T) {
	db := SetupTestDB(t)
	bus := events.NewBus()
	raised := captureEvents(bus, events.NameArticlePublished)
	svc := NewArticleService(db, bus)
	ctx := context.Background()

	ann := CreateTestUser(t, db, "ann")
	bob := CreateTestUser(t, db, "bob")

	view, err := svc.Create(ctx, ann.ID, ArticleInput{
		Title:       "How to Train Your Dragon",
		Description: "Ever wonder how?",
		Body:        "You have to **believe**.",
		TagList:     []string{"Dragons", "training", "dragons", " "},
	})
	require.NoError(t, err)

	assert.Regexp(t, `^how-to-train-your-dragon-[a-z0-9]{7}$`, view.Slug)
	assert.Equal(t, []string{"dragons", "training"}, view.TagList)
	assert.Equal(t, "ann", view.Author.Username)
	assert.Contains(t, view.BodyHTML, "<strong>believe</strong>")
	assert.Equal(t, int64(1), view.ReadingTime)
	assert.Equal(t, 0, view.AverageRating)

	require.Len(t, *raised, 1)
	assert.Equal(t, ann.Profile.ID, (*raised)[0].(events.ArticlePublished).AuthorID)

	_, err = svc.Create(ctx, ann.ID, ArticleInput{Title: " ", Body: "x"})
	assert.Equal(t, KindValidation, KindOf(err))

	// Author reads do not count
	_, err = svc.Get(ctx, ann.ID, view.Slug)
	require.NoError(t, err)
	// Anonymous reads do not count
	_, err = svc.Get(ctx, uuid.Nil, view.Slug)
	require.NoError(t, err)
	// Repeat reads count once
	for i := 0; i < 2; i++ {
		_, err = svc.Get(ctx, bob.ID, view.Slug)
		require.NoError(t, err)
	}

	var reads int64
	db.Model(&models.ReadStat{}).Count(&reads)
	assert.Equal(t, int64(1), reads)

	stats, err := svc.ReadStats(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	require.Len(t, stats.Recent, 1)
	assert.Equal(t, view.Slug, stats.Recent[0].Slug)

	_, err = svc.Get(ctx, bob.ID, "missing-slug")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestArticleService_DescriptionFallback(t *testing.T) {
	db := SetupTestDB(t)
	svc := NewArticleService(db, nil)
	ctx := context.Background()
	ann := CreateTestUser(t, db, "ann")

	view, err := svc.Create(ctx, ann.ID, ArticleInput{Title: "Untitled Thoughts", Body: "Short *body* here."})
	require.NoError(t, err)
	assert.Equal(t, "Short body here.", view.Description)

	var stored models.Article
	require.NoError(t, db.First(&stored, "slug = ?", view.Slug).Error)
	assert.Empty(t, stored.Description, "the fallback is not persisted")

	long := strings.Repeat("word ", 100)
	view, err = svc.Create(ctx, ann.ID, ArticleInput{Title: "Long One", Body: long})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(view.Description, "..."))
	assert.LessOrEqual(t, len([]rune(view.Description)), descriptionExcerptLen+len("..."))
	assert.True(t, strings.HasPrefix(long, strings.TrimSuffix(view.Description, "...")))
}

func TestArticleService_UpdateDelete(t *testing.T) {
	db := SetupTestDB(t)
	svc := NewArticleService(db, nil)
	ctx := context.Background()

	ann := CreateTestUser(t, db, "ann")
	bob := CreateTestUser(t, db, "bob")

	view, err := svc.Create(ctx, ann.ID, ArticleInput{Title: "First title", Body: "body"})
	require.NoError(t, err)

	newTitle := "Second title"
	_, err = svc.Update(ctx, bob.ID, view.Slug, ArticleUpdate{Title: &newTitle})
	assert.Equal(t, KindForbidden, KindOf(err))

	updated, err := svc.Update(ctx, ann.ID, view.Slug, ArticleUpdate{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "Second title", updated.Title)
	assert.Equal(t, view.Slug, updated.Slug, "slug is immutable")

	assert.Equal(t, KindForbidden, KindOf(svc.Delete(ctx, bob.ID, view.Slug)))
	require.NoError(t, svc.Delete(ctx, ann.ID, view.Slug))

	_, err = svc.Get(ctx, ann.ID, view.Slug)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestArticleService_ListFilters(t *testing.T) {
	db := SetupTestDB(t)
	svc := NewArticleService(db, nil)
	interactions := NewInteractionService(db, nil, nil, "")
	ctx := context.Background()

	ann := CreateTestUser(t, db, "ann")
	bob := CreateTestUser(t, db, "bob")

	golang, err := svc.Create(ctx, ann.ID, ArticleInput{Title: "Learning Go", Body: "b", TagList: []string{"go", "programming"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob.ID, ArticleInput{Title: "Baking bread", Body: "b", TagList: []string{"food"}})
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob.ID, ArticleInput{Title: "Go hiking", Body: "b"})
	require.NoError(t, err)

	_, err = interactions.Favorite(ctx, bob.ID, golang.Slug)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter ArticleFilter
		want   []string
	}{
		{"all newest first", ArticleFilter{}, []string{"Go hiking", "Baking bread", "Learning Go"}},
		{"title contains", ArticleFilter{Title: "go"}, []string{"Go hiking", "Learning Go"}},
		{"author", ArticleFilter{Author: "BOB"}, []string{"Go hiking", "Baking bread"}},
		{"tag", ArticleFilter{Tag: "food"}, []string{"Baking bread"}},
		{"favorited by", ArticleFilter{FavoritedBy: "bob"}, []string{"Learning Go"}},
		{"paged", ArticleFilter{Limit: 1, Offset: 1}, []string{"Baking bread"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, total, err := svc.List(ctx, uuid.Nil, tt.filter)
			require.NoError(t, err)

			titles := make([]string, 0, len(views))
			for _, v := range views {
				titles = append(titles, v.Title)
			}
			assert.Equal(t, tt.want, titles)
			if tt.filter.Limit == 0 {
				assert.Equal(t, int64(len(tt.want)), total)
			} else {
				assert.Equal(t, int64(3), total)
			}
		})
	}

	tags, err := svc.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"food", "go", "programming"}, tags)

	views, _, err := svc.List(ctx, bob.ID, ArticleFilter{Title: "learning"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Favorited)
	assert.Equal(t, 1, views[0].FavoritesCount)
	assert.True(t, strings.HasPrefix(views[0].Slug, "learning-go-"))
}
