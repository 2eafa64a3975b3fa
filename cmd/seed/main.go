package main

import (
	"context"
	"flag"

	"authors-haven/internal/auth"
	"authors-haven/internal/config"
	"authors-haven/internal/database"
	"authors-haven/internal/logging"
	"authors-haven/internal/mailer"
	"authors-haven/internal/models"
	"authors-haven/internal/services"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type seedArticle struct {
	title, description, body string
	tags                     []string
}

var seedUsers = []struct {
	username string
	article  seedArticle
}{
	{"ann", seedArticle{
		"Finding Your Voice",
		"Notes on writing every day",
		"Write badly first. The voice arrives while revising, never before the first draft.",
		[]string{"writing", "craft"},
	}},
	{"ben", seedArticle{
		"Reading Like a Writer",
		"What close reading teaches",
		"Every sentence you admire is a lesson in rhythm. Copy one by hand and notice what changes.",
		[]string{"reading", "craft"},
	}},
	{"cara", seedArticle{
		"The Editing Pass",
		"Cutting without fear",
		"Delete the first paragraph. Most drafts start one paragraph too early.",
		[]string{"editing"},
	}},
}

// follower -> followed
var seedFollows = [][2]string{
	{"ben", "ann"},
	{"cara", "ann"},
	{"ann", "cara"},
}

func main() {
	password := flag.String("password", "password123", "Password for every seeded user")
	flag.Parse()

	log := logging.WithComponent("seed")
	log.Info("🌱 Author's Haven Database Seeder")

	if !config.LoadDotEnv() {
		log.Info("No .env file found, using environment variables")
	}
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	dbConfig, err := database.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load database configuration")
	}
	if err := database.Connect(dbConfig); err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	ctx := context.Background()
	db := database.DB

	// Activation emails are discarded; seeded accounts are activated directly
	discard := mailer.NewMemoryQueue(len(seedUsers))
	defer discard.Close()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	users := services.NewUserService(db, tokens, discard, cfg.AppURL)
	articles := services.NewArticleService(db, nil)
	follows := services.NewFollowService(db, nil)
	comments := services.NewCommentService(db, nil)

	ids := make(map[string]*models.User, len(seedUsers))
	for _, su := range seedUsers {
		u, err := seedUser(ctx, db, users, su.username, *password)
		if err != nil {
			log.WithError(err).WithField("username", su.username).Fatal("Failed to seed user")
		}
		ids[su.username] = u

		var count int64
		db.Model(&models.Article{}).Where("author_id = ?", u.Profile.ID).Count(&count)
		if count > 0 {
			continue
		}
		a, err := articles.Create(ctx, u.ID, services.ArticleInput{
			Title:       su.article.title,
			Description: su.article.description,
			Body:        su.article.body,
			TagList:     su.article.tags,
		})
		if err != nil {
			log.WithError(err).Fatal("Failed to seed article")
		}
		log.WithField("slug", a.Slug).Info("📝 Seeded article")
	}

	for _, f := range seedFollows {
		_, err := follows.Follow(ctx, ids[f[0]].ID, f[1])
		if err != nil && services.KindOf(err) != services.KindConflict {
			log.WithError(err).Fatal("Failed to seed follow")
		}
	}

	var first models.Article
	if err := db.Where("author_id = ?", ids["ann"].Profile.ID).First(&first).Error; err == nil {
		var count int64
		db.Model(&models.Comment{}).Where("article_id = ?", first.ID).Count(&count)
		if count == 0 {
			if _, err := comments.Create(ctx, ids["ben"].ID, first.Slug, services.CommentInput{Body: "This changed how I draft."}); err != nil {
				log.WithError(err).Fatal("Failed to seed comment")
			}
		}
	}

	log.WithFields(logrus.Fields{
		"users":    len(seedUsers),
		"follows":  len(seedFollows),
		"password": *password,
	}).Info("✅ Database seeding completed")
}

// seedUser registers username, or loads it when it already exists, and activates it
func seedUser(ctx context.Context, db *gorm.DB, users *services.UserService, username, password string) (*models.User, error) {
	_, err := users.Register(ctx, services.Registration{
		Email:    username + "@authorshaven.local",
		Username: username,
		Password: password,
	})
	if err != nil && services.KindOf(err) != services.KindConflict {
		return nil, err
	}

	var u models.User
	if err := db.Preload("Profile").First(&u, "username = ?", username).Error; err != nil {
		return nil, err
	}
	if !u.IsActive {
		if err := db.Model(&u).Update("is_active", true).Error; err != nil {
			return nil, err
		}
	}
	return &u, nil
}
