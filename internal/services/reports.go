package services

import (
	"context"
	"fmt"
	"strings"

	"authors-haven/internal/logging"
	"authors-haven/internal/mailer"
	"authors-haven/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Report flags an article. Authors cannot report their own work and each
// profile reports a given article at most once. The site admin is emailed.
func (s *InteractionService) Report(ctx context.Context, userID uuid.UUID, slug, reason string) (*models.Report, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, Validation("reason", "required", "a reason is required")
	}

	var report models.Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		a, err := loadActor(tx, userID)
		if err != nil {
			return err
		}
		article, err := loadArticle(tx, slug)
		if err != nil {
			return err
		}
		if IsAuthor(a.Profile.ID, article) {
			return Forbidden("you cannot report your own article")
		}

		var count int64
		if err := tx.Model(&models.Report{}).Where("reporter_id = ? AND article_id = ?", a.Profile.ID, article.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return Conflict("you already reported this article")
		}

		report = models.Report{ReporterID: a.Profile.ID, ArticleID: article.ID, Reason: reason}
		if err := tx.Create(&report).Error; err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		report.Reporter = a.Profile
		report.Article = *article
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyAdmin(ctx, &report)
	return &report, nil
}

func (s *InteractionService) notifyAdmin(ctx context.Context, report *models.Report) {
	if s.adminEmail == "" || s.mail == nil {
		return
	}

	msg := mailer.Message{
		To:      []string{s.adminEmail},
		Subject: fmt.Sprintf("Article reported: %s", report.Article.Title),
		Body: fmt.Sprintf("%s reported the article %q (%s).\n\nReason:\n%s\n",
			report.Reporter.Username, report.Article.Title, report.Article.Slug, report.Reason),
	}
	if err := s.mail.Enqueue(ctx, msg); err != nil {
		logging.WithComponent("reports").WithFields(logrus.Fields{
			"report_id": report.ID,
			"error":     err,
		}).Error("Failed to enqueue admin report email")
	}
}

// Reports lists reports: all of them for superusers, the viewer's own otherwise
func (s *InteractionService) Reports(ctx context.Context, userID uuid.UUID) ([]models.Report, error) {
	db := s.db.WithContext(ctx)
	a, err := loadActor(db, userID)
	if err != nil {
		return nil, err
	}

	query := db.Preload("Reporter").Preload("Article").Order("created_at DESC")
	if !a.User.IsSuperuser {
		query = query.Where("reporter_id = ?", a.Profile.ID)
	}

	reports := make([]models.Report, 0)
	if err := query.Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// AllReports lists every report for the admin console
func (s *InteractionService) AllReports(ctx context.Context) ([]models.Report, error) {
	reports := make([]models.Report, 0)
	err := s.db.WithContext(ctx).Preload("Reporter").Preload("Article").Order("created_at DESC").Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// GetReport returns one report to its reporter or a superuser
func (s *InteractionService) GetReport(ctx context.Context, userID, reportID uuid.UUID) (*models.Report, error) {
	db := s.db.WithContext(ctx)
	a, err := loadActor(db, userID)
	if err != nil {
		return nil, err
	}

	var report models.Report
	if err := db.Preload("Reporter").Preload("Article").First(&report, "id = ?", reportID).Error; err != nil {
		return nil, notFoundOr(err, "report")
	}
	if !a.User.IsSuperuser && report.ReporterID != a.Profile.ID {
		return nil, Forbidden("you can only view your own reports")
	}
	return &report, nil
}
