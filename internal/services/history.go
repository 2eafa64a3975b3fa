package services

import (
	"context"
	"fmt"
	"time"

	"authors-haven/internal/models"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const historyDateLayout = "2006-01-02 15:04:05"

// HistoryEntry is one edit history snapshot as returned to clients
type HistoryEntry struct {
	Date        string            `json:"date"`
	HistoryDate string            `json:"history_date"`
	ChangeType  models.ChangeType `json:"history_change_type"`
	Body        string            `json:"body"`
}

// recordHistory appends a snapshot. Entries are never updated or deleted
// while their subject exists.
func recordHistory(tx *gorm.DB, subject models.EditSubject, subjectID uuid.UUID, change models.ChangeType, body string) error {
	entry := models.EditHistory{
		Subject:    subject,
		SubjectID:  subjectID,
		ChangeType: change,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record %s history: %w", subject, err)
	}
	return nil
}

// editCount is the number of snapshots after the original
func editCount(db *gorm.DB, subject models.EditSubject, subjectID uuid.UUID) (int, error) {
	var n int64
	err := db.Model(&models.EditHistory{}).Where("subject = ? AND subject_id = ?", subject, subjectID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count %s history: %w", subject, err)
	}
	if n == 0 {
		return 0, nil
	}
	return int(n) - 1, nil
}

func deleteHistory(tx *gorm.DB, subject models.EditSubject, subjectID uuid.UUID) error {
	return tx.Where("subject = ? AND subject_id = ?", subject, subjectID).Delete(&models.EditHistory{}).Error
}

// loadHistory returns snapshots newest first
func loadHistory(db *gorm.DB, subject models.EditSubject, subjectID uuid.UUID) ([]HistoryEntry, error) {
	var rows []models.EditHistory
	err := db.Where("subject = ? AND subject_id = ?", subject, subjectID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, HistoryEntry{
			Date:        r.CreatedAt.Format(historyDateLayout),
			HistoryDate: humanize.Time(r.CreatedAt),
			ChangeType:  r.ChangeType,
			Body:        r.Body,
		})
	}
	return entries, nil
}

// CommentHistory returns the edit history of a comment, newest first
func (s *CommentService) CommentHistory(ctx context.Context, commentID uuid.UUID) ([]HistoryEntry, error) {
	db := s.db.WithContext(ctx)
	if _, err := loadComment(db, commentID); err != nil {
		return nil, err
	}
	return loadHistory(db, models.EditSubjectComment, commentID)
}

// ReplyHistory returns the edit history of a reply, newest first
func (s *CommentService) ReplyHistory(ctx context.Context, replyID uuid.UUID) ([]HistoryEntry, error) {
	db := s.db.WithContext(ctx)
	if _, err := loadReply(db, replyID); err != nil {
		return nil, err
	}
	return loadHistory(db, models.EditSubjectReply, replyID)
}
