package repository

import (
	"context"
	"errors"

	"schoolmates/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MemoryRepository defines persistence operations for memories.
type MemoryRepository interface {
	Create(ctx context.Context, memory *models.Memory, taggedIDs []uint, events []models.TimelineEvent) error
	GetByID(ctx context.Context, id uint) (*models.Memory, error)
	GetWithTags(ctx context.Context, id uint) (*models.Memory, error)
	AddPhoto(ctx context.Context, photo *models.MemoryPhoto) error
	AddTimelineEvent(ctx context.Context, event *models.TimelineEvent) error
	AddComment(ctx context.Context, comment *models.MemoryComment) error
	ToggleLike(ctx context.Context, memoryID, userID uint) (bool, int64, error)
	ListInvolving(ctx context.Context, userIDs []uint, limit int) ([]models.Memory, error)
	ListRecent(ctx context.Context, limit int) ([]models.Memory, error)
	CountByAuthor(ctx context.Context, userID uint) (int64, error)
	CountTagged(ctx context.Context, userID uint) (int64, error)
}

type memoryRepository struct {
	db *gorm.DB
}

// NewMemoryRepository returns a new MemoryRepository implementation.
func NewMemoryRepository(db *gorm.DB) MemoryRepository {
	return &memoryRepository{db: db}
}

func withMemoryDetails(db *gorm.DB) *gorm.DB {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }
	return db.
		Preload("Author").
		Preload("TaggedFriends", func(db *gorm.DB) *gorm.DB { return db.Order("users.id ASC") }).
		Preload("Photos", byID).
		Preload("TimelineEvents", byID).
		Preload("Likes", func(db *gorm.DB) *gorm.DB { return db.Order("users.id ASC") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Comments.Author")
}

// Create stores memory with its tags and initial timeline in one transaction.
func (r *memoryRepository) Create(ctx context.Context, memory *models.Memory, taggedIDs []uint, events []models.TimelineEvent) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(memory).Error; err != nil {
			return err
		}
		if len(taggedIDs) > 0 {
			tags := make([]models.MemoryTag, 0, len(taggedIDs))
			for _, id := range taggedIDs {
				tags = append(tags, models.MemoryTag{MemoryID: memory.ID, UserID: id})
			}
			if err := tx.Create(&tags).Error; err != nil {
				return err
			}
		}
		if len(events) > 0 {
			for i := range events {
				events[i].MemoryID = memory.ID
			}
			if err := tx.Create(&events).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id uint) (*models.Memory, error) {
	return r.first(withMemoryDetails(r.db.WithContext(ctx)), id)
}

// GetWithTags loads only what an edit permission check needs.
func (r *memoryRepository) GetWithTags(ctx context.Context, id uint) (*models.Memory, error) {
	return r.first(r.db.WithContext(ctx).Preload("TaggedFriends"), id)
}

func (r *memoryRepository) first(q *gorm.DB, id uint) (*models.Memory, error) {
	var memory models.Memory
	if err := q.First(&memory, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Memory", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &memory, nil
}

func (r *memoryRepository) AddPhoto(ctx context.Context, photo *models.MemoryPhoto) error {
	if err := r.db.WithContext(ctx).Create(photo).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *memoryRepository) AddTimelineEvent(ctx context.Context, event *models.TimelineEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *memoryRepository) AddComment(ctx context.Context, comment *models.MemoryComment) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ToggleLike flips userID's like on memoryID and returns the new state and
// the resulting like count.
func (r *memoryRepository) ToggleLike(ctx context.Context, memoryID, userID uint) (bool, int64, error) {
	var (
		liked bool
		count int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Memory{}).Where("id = ?", memoryID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return models.NewNotFoundError("Memory", memoryID)
		}

		res := tx.Where("memory_id = ? AND user_id = ?", memoryID, userID).Delete(&models.MemoryLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Create(&models.MemoryLike{MemoryID: memoryID, UserID: userID}).Error; err != nil {
				return err
			}
			liked = true
		}

		return tx.Model(&models.MemoryLike{}).Where("memory_id = ?", memoryID).Count(&count).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return false, 0, err
		}
		return false, 0, models.NewInternalError(err)
	}
	return liked, count, nil
}

// ListInvolving returns memories authored by or tagged with any of userIDs,
// newest first. A non-positive limit returns every match.
func (r *memoryRepository) ListInvolving(ctx context.Context, userIDs []uint, limit int) ([]models.Memory, error) {
	memories := []models.Memory{}
	userIDs = uniqueIDs(userIDs)
	if len(userIDs) == 0 {
		return memories, nil
	}

	tagged := r.db.WithContext(ctx).Model(&models.MemoryTag{}).Select("memory_id").Where("user_id IN ?", userIDs)
	q := withMemoryDetails(r.db.WithContext(ctx)).
		Where("author_id IN ? OR id IN (?)", userIDs, tagged).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&memories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return memories, nil
}

// ListRecent returns the newest memories regardless of author.
func (r *memoryRepository) ListRecent(ctx context.Context, limit int) ([]models.Memory, error) {
	memories := []models.Memory{}
	if err := withMemoryDetails(r.db.WithContext(ctx)).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&memories).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return memories, nil
}

func (r *memoryRepository) CountByAuthor(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Memory{}).Where("author_id = ?", userID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *memoryRepository) CountTagged(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.MemoryTag{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
