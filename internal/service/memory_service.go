package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"schoolmates/internal/models"
	"schoolmates/internal/repository"
)

// FeedPageSize is the number of memories in one feed window.
const FeedPageSize = 10

// FriendLister resolves a user's friend ids.
type FriendLister interface {
	FriendIDs(ctx context.Context, userID uint) ([]uint, error)
}

// MemoryService provides memory board business logic.
type MemoryService struct {
	memoryRepo repository.MemoryRepository
	userRepo   repository.UserRepository
	friends    FriendLister
}

// NewMemoryService returns a new MemoryService.
func NewMemoryService(memoryRepo repository.MemoryRepository, userRepo repository.UserRepository, friends FriendLister) *MemoryService {
	return &MemoryService{memoryRepo: memoryRepo, userRepo: userRepo, friends: friends}
}

// TimelineEventInput describes one timeline entry.
type TimelineEventInput struct {
	Date string
	Time string
	Text string
}

// UploadMemoryInput is the input for creating a memory.
type UploadMemoryInput struct {
	AuthorID        uint
	Title           string
	TaggedFriendIDs []uint
	TimelineEvents  []TimelineEventInput
}

// LikeResult is the like state after a toggle.
type LikeResult struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"likes_count"`
}

var timelineDateLayouts = []string{"2006-01-02", time.RFC3339}

func parseTimelineDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timelineDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, models.NewValidationError("Invalid date, expected YYYY-MM-DD")
}

func buildTimelineEvent(in TimelineEventInput, addedBy uint) (models.TimelineEvent, error) {
	if strings.TrimSpace(in.Date) == "" || strings.TrimSpace(in.Time) == "" || strings.TrimSpace(in.Text) == "" {
		return models.TimelineEvent{}, models.NewValidationError("Date, time and event text are required")
	}
	date, err := parseTimelineDate(in.Date)
	if err != nil {
		return models.TimelineEvent{}, err
	}
	return models.TimelineEvent{
		Date:      date,
		Time:      strings.TrimSpace(in.Time),
		EventText: strings.TrimSpace(in.Text),
		AddedBy:   addedBy,
	}, nil
}

// UploadMemory creates a memory. Tagged ids that are not existing users, or
// that name the author, are dropped.
func (s *MemoryService) UploadMemory(ctx context.Context, in UploadMemoryInput) (*models.Memory, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}

	candidates := make([]uint, 0, len(in.TaggedFriendIDs))
	for _, id := range in.TaggedFriendIDs {
		if id != in.AuthorID {
			candidates = append(candidates, id)
		}
	}
	tagged, err := s.userRepo.ExistingIDs(ctx, candidates)
	if err != nil {
		return nil, err
	}

	events := make([]models.TimelineEvent, 0, len(in.TimelineEvents))
	for _, ev := range in.TimelineEvents {
		event, err := buildTimelineEvent(ev, in.AuthorID)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	memory := &models.Memory{Title: title, AuthorID: in.AuthorID}
	if err := s.memoryRepo.Create(ctx, memory, tagged, events); err != nil {
		return nil, err
	}
	return s.memoryRepo.GetByID(ctx, memory.ID)
}

// editable loads memoryID and checks that userID is its author or tagged.
func (s *MemoryService) editable(ctx context.Context, memoryID, userID uint) error {
	memory, err := s.memoryRepo.GetWithTags(ctx, memoryID)
	if err != nil {
		return err
	}
	if !memory.CanEdit(userID) {
		return models.NewForbiddenError("Only the author or tagged friends can edit this memory")
	}
	return nil
}

// AddPhoto appends a photo URL to the memory.
func (s *MemoryService) AddPhoto(ctx context.Context, memoryID, userID uint, url string) (*models.Memory, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, models.NewValidationError("Photo URL is required")
	}
	if err := s.editable(ctx, memoryID, userID); err != nil {
		return nil, err
	}
	if err := s.memoryRepo.AddPhoto(ctx, &models.MemoryPhoto{MemoryID: memoryID, URL: url, AddedBy: userID}); err != nil {
		return nil, err
	}
	return s.memoryRepo.GetByID(ctx, memoryID)
}

// AddTimelineEvent appends a timeline entry to the memory.
func (s *MemoryService) AddTimelineEvent(ctx context.Context, memoryID, userID uint, in TimelineEventInput) (*models.Memory, error) {
	event, err := buildTimelineEvent(in, userID)
	if err != nil {
		return nil, err
	}
	if err := s.editable(ctx, memoryID, userID); err != nil {
		return nil, err
	}
	event.MemoryID = memoryID
	if err := s.memoryRepo.AddTimelineEvent(ctx, &event); err != nil {
		return nil, err
	}
	return s.memoryRepo.GetByID(ctx, memoryID)
}

// ToggleLike likes the memory, or removes an existing like.
func (s *MemoryService) ToggleLike(ctx context.Context, memoryID, userID uint) (*LikeResult, error) {
	liked, count, err := s.memoryRepo.ToggleLike(ctx, memoryID, userID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{Liked: liked, Count: count}, nil
}

// AddComment appends a comment and returns the memory's comments.
func (s *MemoryService) AddComment(ctx context.Context, memoryID, userID uint, content string) ([]models.MemoryComment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("Comment content is required")
	}
	if _, err := s.memoryRepo.GetWithTags(ctx, memoryID); err != nil {
		return nil, err
	}
	if err := s.memoryRepo.AddComment(ctx, &models.MemoryComment{MemoryID: memoryID, AuthorID: userID, Content: content}); err != nil {
		return nil, err
	}
	memory, err := s.memoryRepo.GetByID(ctx, memoryID)
	if err != nil {
		return nil, err
	}
	return memory.Comments, nil
}

// GetMemory returns a fully populated memory.
func (s *MemoryService) GetMemory(ctx context.Context, memoryID uint) (*models.Memory, error) {
	return s.memoryRepo.GetByID(ctx, memoryID)
}

// UserMemories returns memories authored by or tagged with userID.
func (s *MemoryService) UserMemories(ctx context.Context, userID uint) ([]models.Memory, error) {
	return s.memoryRepo.ListInvolving(ctx, []uint{userID}, 0)
}

// FriendsMemories returns memories authored by or tagged with any friend of userID.
func (s *MemoryService) FriendsMemories(ctx context.Context, userID uint) ([]models.Memory, error) {
	ids, err := s.friends.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.memoryRepo.ListInvolving(ctx, ids, 0)
}

// Feed returns the window [offset, offset+FeedPageSize) of the caller's own
// memories, then friends' memories, then everything else, merged and ordered
// by recency. Each bucket only needs its newest offset+FeedPageSize rows for
// the window to be exact.
func (s *MemoryService) Feed(ctx context.Context, userID uint, offset int) ([]models.Memory, error) {
	if offset < 0 {
		return nil, models.NewValidationError("Offset must not be negative")
	}
	bound := offset + FeedPageSize

	own, err := s.memoryRepo.ListInvolving(ctx, []uint{userID}, bound)
	if err != nil {
		return nil, err
	}
	friendIDs, err := s.friends.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	ofFriends, err := s.memoryRepo.ListInvolving(ctx, friendIDs, bound)
	if err != nil {
		return nil, err
	}
	others, err := s.memoryRepo.ListRecent(ctx, bound)
	if err != nil {
		return nil, err
	}

	merged := make([]models.Memory, 0, len(own)+len(ofFriends)+len(others))
	seen := map[uint]struct{}{}
	for _, bucket := range [][]models.Memory{own, ofFriends, others} {
		for _, m := range bucket {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			merged = append(merged, m)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.After(merged[j].CreatedAt)
		}
		return merged[i].ID > merged[j].ID
	})

	if offset >= len(merged) {
		return []models.Memory{}, nil
	}
	end := bound
	if end > len(merged) {
		end = len(merged)
	}
	return merged[offset:end], nil
}
