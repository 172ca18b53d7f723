package service

import (
	"context"

	"schoolmates/internal/cache"
	"schoolmates/internal/models"
	"schoolmates/internal/observability"
	"schoolmates/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FriendService provides friend-request and friendship business logic.
type FriendService struct {
	friendRepo repository.FriendRepository
	userRepo   repository.UserRepository
}

// NewFriendService returns a new FriendService.
func NewFriendService(friendRepo repository.FriendRepository, userRepo repository.UserRepository) *FriendService {
	return &FriendService{
		friendRepo: friendRepo,
		userRepo:   userRepo,
	}
}

// SendFriendRequest records a pending request from userID to targetUserID.
// A pending request in the opposite direction does not block it.
func (s *FriendService) SendFriendRequest(ctx context.Context, userID, targetUserID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "FriendService.SendFriendRequest",
		attribute.Int64("user.id", int64(userID)), attribute.Int64("target.id", int64(targetUserID)))
	defer func() { observability.EndSpan(span, err) }()

	if userID == targetUserID {
		return models.NewValidationError("Cannot send friend request to yourself")
	}

	if _, err := s.userRepo.GetByID(ctx, targetUserID); err != nil {
		return err
	}

	friends, err := s.friendRepo.AreFriends(ctx, userID, targetUserID)
	if err != nil {
		return err
	}
	if friends {
		return models.NewValidationError("You are already friends")
	}

	existing, err := s.friendRepo.GetEdge(ctx, userID, targetUserID)
	if err != nil {
		return err
	}
	if existing != nil {
		return models.NewValidationError("Friend request already sent")
	}

	if err := s.friendRepo.Create(ctx, &models.Friendship{
		RequesterID: userID,
		AddresseeID: targetUserID,
		Status:      models.FriendshipStatusPending,
	}); err != nil {
		return err
	}

	observability.FriendRequestTransitions.WithLabelValues("sent").Inc()
	return nil
}

// AcceptFriendRequest accepts the pending request requesterID sent to userID.
func (s *FriendService) AcceptFriendRequest(ctx context.Context, userID, requesterID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "FriendService.AcceptFriendRequest",
		attribute.Int64("user.id", int64(userID)), attribute.Int64("requester.id", int64(requesterID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := s.friendRepo.Accept(ctx, requesterID, userID); err != nil {
		return err
	}

	cache.InvalidateFriends(ctx, userID, requesterID)
	observability.FriendRequestTransitions.WithLabelValues("accepted").Inc()
	return nil
}

// RejectFriendRequest deletes the pending request requesterID sent to userID.
func (s *FriendService) RejectFriendRequest(ctx context.Context, userID, requesterID uint) error {
	if err := s.friendRepo.DeletePending(ctx, requesterID, userID); err != nil {
		return err
	}
	observability.FriendRequestTransitions.WithLabelValues("rejected").Inc()
	return nil
}

// GetFriends returns the list of friends for the user.
func (s *FriendService) GetFriends(ctx context.Context, userID uint) ([]models.User, error) {
	return s.friendRepo.GetFriends(ctx, userID)
}

// GetFriendRequests returns the users with a pending request to userID.
func (s *FriendService) GetFriendRequests(ctx context.Context, userID uint) ([]models.User, error) {
	pending, err := s.friendRepo.GetPendingRequests(ctx, userID)
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(pending))
	for _, f := range pending {
		users = append(users, f.Requester)
	}
	return users, nil
}

// GetOnlineFriends returns friends whose online flag is set.
func (s *FriendService) GetOnlineFriends(ctx context.Context, userID uint) ([]models.User, error) {
	return s.friendRepo.GetOnlineFriends(ctx, userID)
}

// FriendIDs returns userID's friend ids through the friends cache.
func (s *FriendService) FriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	return cache.Aside(ctx, cache.FriendsKey(userID), cache.FriendsTTL, func() ([]uint, error) {
		return s.friendRepo.GetFriendIDs(ctx, userID)
	})
}
