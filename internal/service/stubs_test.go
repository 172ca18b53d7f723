package service

import (
	"context"

	"schoolmates/internal/models"
	"schoolmates/internal/repository"
)

type userRepoStub struct {
	getByIDFn           func(context.Context, uint) (*models.User, error)
	getByIDsFn          func(context.Context, []uint) ([]models.User, error)
	getByEmailFn        func(context.Context, string) (*models.User, error)
	existingIDsFn       func(context.Context, []uint) ([]uint, error)
	createFn            func(context.Context, *models.User) error
	updateFieldsFn      func(context.Context, uint, map[string]any) error
	setOnlineFn         func(context.Context, uint, bool) error
	searchFn            func(context.Context, repository.UserSearchFilter) ([]models.User, error)
	findByClassFn       func(context.Context, string, uint) ([]models.User, error)
	findBySchoolFn      func(context.Context, string, uint) ([]models.User, error)
	findByAnyInterestFn func(context.Context, []string, uint) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) ExistingIDs(ctx context.Context, ids []uint) ([]uint, error) {
	return s.existingIDsFn(ctx, ids)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	return s.updateFieldsFn(ctx, id, fields)
}
func (s *userRepoStub) SetOnline(ctx context.Context, id uint, online bool) error {
	return s.setOnlineFn(ctx, id, online)
}
func (s *userRepoStub) OnlineIDs(context.Context) ([]uint, error) {
	return nil, nil
}
func (s *userRepoStub) Search(ctx context.Context, filter repository.UserSearchFilter) ([]models.User, error) {
	return s.searchFn(ctx, filter)
}
func (s *userRepoStub) FindByClass(ctx context.Context, class string, excludeID uint) ([]models.User, error) {
	return s.findByClassFn(ctx, class, excludeID)
}
func (s *userRepoStub) FindBySchool(ctx context.Context, school string, excludeID uint) ([]models.User, error) {
	return s.findBySchoolFn(ctx, school, excludeID)
}
func (s *userRepoStub) FindByAnyInterest(ctx context.Context, interests []string, excludeID uint) ([]models.User, error) {
	return s.findByAnyInterestFn(ctx, interests, excludeID)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:           func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByIDsFn:          func(context.Context, []uint) ([]models.User, error) { return nil, nil },
		getByEmailFn:        func(context.Context, string) (*models.User, error) { return nil, nil },
		existingIDsFn:       func(_ context.Context, ids []uint) ([]uint, error) { return ids, nil },
		createFn:            func(context.Context, *models.User) error { return nil },
		updateFieldsFn:      func(context.Context, uint, map[string]any) error { return nil },
		setOnlineFn:         func(context.Context, uint, bool) error { return nil },
		searchFn:            func(context.Context, repository.UserSearchFilter) ([]models.User, error) { return nil, nil },
		findByClassFn:       func(context.Context, string, uint) ([]models.User, error) { return nil, nil },
		findBySchoolFn:      func(context.Context, string, uint) ([]models.User, error) { return nil, nil },
		findByAnyInterestFn: func(context.Context, []string, uint) ([]models.User, error) { return nil, nil },
	}
}

type friendRepoStub struct {
	createFn             func(context.Context, *models.Friendship) error
	getEdgeFn            func(context.Context, uint, uint) (*models.Friendship, error)
	areFriendsFn         func(context.Context, uint, uint) (bool, error)
	getFriendsFn         func(context.Context, uint) ([]models.User, error)
	getFriendIDsFn       func(context.Context, uint) ([]uint, error)
	getOnlineFriendsFn   func(context.Context, uint) ([]models.User, error)
	getPendingRequestsFn func(context.Context, uint) ([]models.Friendship, error)
	acceptFn             func(context.Context, uint, uint) error
	deletePendingFn      func(context.Context, uint, uint) error
}

func (s *friendRepoStub) Create(ctx context.Context, friendship *models.Friendship) error {
	return s.createFn(ctx, friendship)
}
func (s *friendRepoStub) GetEdge(ctx context.Context, requesterID, addresseeID uint) (*models.Friendship, error) {
	return s.getEdgeFn(ctx, requesterID, addresseeID)
}
func (s *friendRepoStub) AreFriends(ctx context.Context, userID1, userID2 uint) (bool, error) {
	return s.areFriendsFn(ctx, userID1, userID2)
}
func (s *friendRepoStub) GetFriends(ctx context.Context, userID uint) ([]models.User, error) {
	return s.getFriendsFn(ctx, userID)
}
func (s *friendRepoStub) GetFriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.getFriendIDsFn(ctx, userID)
}
func (s *friendRepoStub) GetOnlineFriends(ctx context.Context, userID uint) ([]models.User, error) {
	return s.getOnlineFriendsFn(ctx, userID)
}
func (s *friendRepoStub) GetPendingRequests(ctx context.Context, userID uint) ([]models.Friendship, error) {
	return s.getPendingRequestsFn(ctx, userID)
}
func (s *friendRepoStub) Accept(ctx context.Context, requesterID, addresseeID uint) error {
	return s.acceptFn(ctx, requesterID, addresseeID)
}
func (s *friendRepoStub) DeletePending(ctx context.Context, requesterID, addresseeID uint) error {
	return s.deletePendingFn(ctx, requesterID, addresseeID)
}

func noopFriendRepo() *friendRepoStub {
	return &friendRepoStub{
		createFn:             func(context.Context, *models.Friendship) error { return nil },
		getEdgeFn:            func(context.Context, uint, uint) (*models.Friendship, error) { return nil, nil },
		areFriendsFn:         func(context.Context, uint, uint) (bool, error) { return false, nil },
		getFriendsFn:         func(context.Context, uint) ([]models.User, error) { return nil, nil },
		getFriendIDsFn:       func(context.Context, uint) ([]uint, error) { return nil, nil },
		getOnlineFriendsFn:   func(context.Context, uint) ([]models.User, error) { return nil, nil },
		getPendingRequestsFn: func(context.Context, uint) ([]models.Friendship, error) { return nil, nil },
		acceptFn:             func(context.Context, uint, uint) error { return nil },
		deletePendingFn:      func(context.Context, uint, uint) error { return nil },
	}
}

type chatRepoStub struct {
	createConversationFn   func(context.Context, *models.Conversation, []uint) error
	getConversationFn      func(context.Context, uint) (*models.Conversation, error)
	getUserConversationsFn func(context.Context, uint) ([]models.Conversation, error)
	isParticipantFn        func(context.Context, uint, uint) (bool, error)
	createMessageFn        func(context.Context, *models.Message) error
	getMessageFn           func(context.Context, uint) (*models.Message, error)
	getMessagesByIDsFn     func(context.Context, []uint) ([]models.Message, error)
	getMessagesFn          func(context.Context, uint, int, int) ([]models.Message, error)
	addDeliveryFn          func(context.Context, uint, uint) (bool, error)
	addReadFn              func(context.Context, uint, uint) (bool, error)
}

func (s *chatRepoStub) CreateConversation(ctx context.Context, conv *models.Conversation, participantIDs []uint) error {
	return s.createConversationFn(ctx, conv, participantIDs)
}
func (s *chatRepoStub) GetConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	return s.getConversationFn(ctx, id)
}
func (s *chatRepoStub) GetUserConversations(ctx context.Context, userID uint) ([]models.Conversation, error) {
	return s.getUserConversationsFn(ctx, userID)
}
func (s *chatRepoStub) IsParticipant(ctx context.Context, convID, userID uint) (bool, error) {
	return s.isParticipantFn(ctx, convID, userID)
}
func (s *chatRepoStub) CreateMessage(ctx context.Context, msg *models.Message) error {
	return s.createMessageFn(ctx, msg)
}
func (s *chatRepoStub) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	return s.getMessageFn(ctx, id)
}
func (s *chatRepoStub) GetMessagesByIDs(ctx context.Context, ids []uint) ([]models.Message, error) {
	return s.getMessagesByIDsFn(ctx, ids)
}
func (s *chatRepoStub) GetMessages(ctx context.Context, convID uint, limit, offset int) ([]models.Message, error) {
	return s.getMessagesFn(ctx, convID, limit, offset)
}
func (s *chatRepoStub) AddDelivery(ctx context.Context, msgID, userID uint) (bool, error) {
	return s.addDeliveryFn(ctx, msgID, userID)
}
func (s *chatRepoStub) AddRead(ctx context.Context, msgID, userID uint) (bool, error) {
	return s.addReadFn(ctx, msgID, userID)
}

func noopChatRepo() *chatRepoStub {
	stub := &chatRepoStub{
		createConversationFn:   func(context.Context, *models.Conversation, []uint) error { return nil },
		getUserConversationsFn: func(context.Context, uint) ([]models.Conversation, error) { return nil, nil },
		isParticipantFn:        func(context.Context, uint, uint) (bool, error) { return true, nil },
		createMessageFn:        func(context.Context, *models.Message) error { return nil },
		getMessagesByIDsFn:     func(context.Context, []uint) ([]models.Message, error) { return nil, nil },
		getMessagesFn:          func(context.Context, uint, int, int) ([]models.Message, error) { return nil, nil },
		addDeliveryFn:          func(context.Context, uint, uint) (bool, error) { return true, nil },
		addReadFn:              func(context.Context, uint, uint) (bool, error) { return true, nil },
	}
	stub.getConversationFn = func(_ context.Context, id uint) (*models.Conversation, error) {
		return &models.Conversation{ID: id}, nil
	}
	stub.getMessageFn = func(_ context.Context, id uint) (*models.Message, error) {
		return &models.Message{ID: id}, nil
	}
	return stub
}

type memoryRepoStub struct {
	createFn           func(context.Context, *models.Memory, []uint, []models.TimelineEvent) error
	getByIDFn          func(context.Context, uint) (*models.Memory, error)
	getWithTagsFn      func(context.Context, uint) (*models.Memory, error)
	addPhotoFn         func(context.Context, *models.MemoryPhoto) error
	addTimelineEventFn func(context.Context, *models.TimelineEvent) error
	addCommentFn       func(context.Context, *models.MemoryComment) error
	toggleLikeFn       func(context.Context, uint, uint) (bool, int64, error)
	listInvolvingFn    func(context.Context, []uint, int) ([]models.Memory, error)
	listRecentFn       func(context.Context, int) ([]models.Memory, error)
	countByAuthorFn    func(context.Context, uint) (int64, error)
	countTaggedFn      func(context.Context, uint) (int64, error)
}

func (s *memoryRepoStub) Create(ctx context.Context, memory *models.Memory, taggedIDs []uint, events []models.TimelineEvent) error {
	return s.createFn(ctx, memory, taggedIDs, events)
}
func (s *memoryRepoStub) GetByID(ctx context.Context, id uint) (*models.Memory, error) {
	return s.getByIDFn(ctx, id)
}
func (s *memoryRepoStub) GetWithTags(ctx context.Context, id uint) (*models.Memory, error) {
	return s.getWithTagsFn(ctx, id)
}
func (s *memoryRepoStub) AddPhoto(ctx context.Context, photo *models.MemoryPhoto) error {
	return s.addPhotoFn(ctx, photo)
}
func (s *memoryRepoStub) AddTimelineEvent(ctx context.Context, event *models.TimelineEvent) error {
	return s.addTimelineEventFn(ctx, event)
}
func (s *memoryRepoStub) AddComment(ctx context.Context, comment *models.MemoryComment) error {
	return s.addCommentFn(ctx, comment)
}
func (s *memoryRepoStub) ToggleLike(ctx context.Context, memoryID, userID uint) (bool, int64, error) {
	return s.toggleLikeFn(ctx, memoryID, userID)
}
func (s *memoryRepoStub) ListInvolving(ctx context.Context, userIDs []uint, limit int) ([]models.Memory, error) {
	return s.listInvolvingFn(ctx, userIDs, limit)
}
func (s *memoryRepoStub) ListRecent(ctx context.Context, limit int) ([]models.Memory, error) {
	return s.listRecentFn(ctx, limit)
}
func (s *memoryRepoStub) CountByAuthor(ctx context.Context, userID uint) (int64, error) {
	return s.countByAuthorFn(ctx, userID)
}
func (s *memoryRepoStub) CountTagged(ctx context.Context, userID uint) (int64, error) {
	return s.countTaggedFn(ctx, userID)
}

func noopMemoryRepo() *memoryRepoStub {
	return &memoryRepoStub{
		createFn: func(_ context.Context, m *models.Memory, _ []uint, _ []models.TimelineEvent) error {
			m.ID = 1
			return nil
		},
		getByIDFn:          func(_ context.Context, id uint) (*models.Memory, error) { return &models.Memory{ID: id}, nil },
		getWithTagsFn:      func(_ context.Context, id uint) (*models.Memory, error) { return &models.Memory{ID: id}, nil },
		addPhotoFn:         func(context.Context, *models.MemoryPhoto) error { return nil },
		addTimelineEventFn: func(context.Context, *models.TimelineEvent) error { return nil },
		addCommentFn:       func(context.Context, *models.MemoryComment) error { return nil },
		toggleLikeFn:       func(context.Context, uint, uint) (bool, int64, error) { return true, 1, nil },
		listInvolvingFn:    func(context.Context, []uint, int) ([]models.Memory, error) { return nil, nil },
		listRecentFn:       func(context.Context, int) ([]models.Memory, error) { return nil, nil },
		countByAuthorFn:    func(context.Context, uint) (int64, error) { return 0, nil },
		countTaggedFn:      func(context.Context, uint) (int64, error) { return 0, nil },
	}
}

type friendListerFunc func(context.Context, uint) ([]uint, error)

func (f friendListerFunc) FriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	return f(ctx, userID)
}

func appErrCode(err error) string {
	return models.ErrorCode(err)
}
