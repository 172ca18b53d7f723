package repository

import (
	"context"
	"errors"

	"schoolmates/internal/models"

	"gorm.io/gorm"
)

// FriendRepository defines the interface for friend data operations
type FriendRepository interface {
	Create(ctx context.Context, friendship *models.Friendship) error
	GetEdge(ctx context.Context, requesterID, addresseeID uint) (*models.Friendship, error)
	AreFriends(ctx context.Context, userID1, userID2 uint) (bool, error)
	GetFriends(ctx context.Context, userID uint) ([]models.User, error)
	GetFriendIDs(ctx context.Context, userID uint) ([]uint, error)
	GetOnlineFriends(ctx context.Context, userID uint) ([]models.User, error)
	GetPendingRequests(ctx context.Context, userID uint) ([]models.Friendship, error)
	Accept(ctx context.Context, requesterID, addresseeID uint) error
	DeletePending(ctx context.Context, requesterID, addresseeID uint) error
}

// friendRepository implements FriendRepository
type friendRepository struct {
	db *gorm.DB
}

// NewFriendRepository creates a new friend repository
func NewFriendRepository(db *gorm.DB) FriendRepository {
	return &friendRepository{db: db}
}

func (r *friendRepository) Create(ctx context.Context, friendship *models.Friendship) error {
	if err := r.db.WithContext(ctx).Omit("Requester", "Addressee").Create(friendship).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Friend request already sent")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// GetEdge returns the directional edge requester→addressee, or nil, nil.
func (r *friendRepository) GetEdge(ctx context.Context, requesterID, addresseeID uint) (*models.Friendship, error) {
	var friendship models.Friendship
	if err := r.db.WithContext(ctx).
		Where("requester_id = ? AND addressee_id = ?", requesterID, addresseeID).
		First(&friendship).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &friendship, nil
}

func (r *friendRepository) AreFriends(ctx context.Context, userID1, userID2 uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("status = ? AND ((requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?))",
			models.FriendshipStatusAccepted, userID1, userID2, userID2, userID1).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *friendRepository) friendsQuery(ctx context.Context, userID uint) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Joins("JOIN friendships f ON (users.id = f.requester_id OR users.id = f.addressee_id)").
		Where("f.status = ? AND (f.requester_id = ? OR f.addressee_id = ?) AND users.id <> ?",
			models.FriendshipStatusAccepted, userID, userID, userID)
}

func (r *friendRepository) GetFriends(ctx context.Context, userID uint) ([]models.User, error) {
	users := []models.User{}
	if err := r.friendsQuery(ctx, userID).Order("users.id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *friendRepository) GetFriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	if err := r.friendsQuery(ctx, userID).Order("users.id ASC").Pluck("users.id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *friendRepository) GetOnlineFriends(ctx context.Context, userID uint) ([]models.User, error) {
	users := []models.User{}
	if err := r.friendsQuery(ctx, userID).
		Where("users.online = ?", true).
		Order("users.id ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// GetPendingRequests returns inbound requests for userID with requesters loaded.
func (r *friendRepository) GetPendingRequests(ctx context.Context, userID uint) ([]models.Friendship, error) {
	friendships := []models.Friendship{}
	if err := r.db.WithContext(ctx).
		Where("addressee_id = ? AND status = ?", userID, models.FriendshipStatusPending).
		Preload("Requester").
		Order("created_at ASC, id ASC").
		Find(&friendships).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return friendships, nil
}

// Accept turns the pending edge requester→addressee into a friendship and
// drops any crossing request addressee→requester in the same transaction.
func (r *friendRepository) Accept(ctx context.Context, requesterID, addresseeID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Friendship{}).
			Where("requester_id = ? AND addressee_id = ? AND status = ?",
				requesterID, addresseeID, models.FriendshipStatusPending).
			Update("status", models.FriendshipStatusAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Friend request", requesterID)
		}

		return tx.Where("requester_id = ? AND addressee_id = ? AND status = ?",
			addresseeID, requesterID, models.FriendshipStatusPending).
			Delete(&models.Friendship{}).Error
	})
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}

// DeletePending removes the pending edge requester→addressee.
func (r *friendRepository) DeletePending(ctx context.Context, requesterID, addresseeID uint) error {
	res := r.db.WithContext(ctx).
		Where("requester_id = ? AND addressee_id = ? AND status = ?",
			requesterID, addresseeID, models.FriendshipStatusPending).
		Delete(&models.Friendship{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Friend request", requesterID)
	}
	return nil
}
