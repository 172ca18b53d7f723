package service

import (
	"context"
	"sort"
	"strings"

	"schoolmates/internal/models"
	"schoolmates/internal/repository"
)

// Recommendation weights: a shared class outranks a shared school, which
// outranks a shared interest.
const (
	WeightSameClass    = 3
	WeightSameSchool   = 2
	WeightSameInterest = 1
)

// UserService provides profile, search and discovery logic.
type UserService struct {
	userRepo   repository.UserRepository
	friendRepo repository.FriendRepository
	memoryRepo repository.MemoryRepository
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository, friendRepo repository.FriendRepository, memoryRepo repository.MemoryRepository) *UserService {
	return &UserService{userRepo: userRepo, friendRepo: friendRepo, memoryRepo: memoryRepo}
}

// Profile is the caller's own profile with memory statistics.
type Profile struct {
	User            *models.User `json:"user"`
	MemoryCount     int64        `json:"memory_count"`
	CreatedMemories int64        `json:"created_memories"`
	TaggedMemories  int64        `json:"tagged_memories"`
}

// OtherProfile is another user's public profile and friend list.
type OtherProfile struct {
	User    *models.User         `json:"user"`
	Friends []models.UserSummary `json:"friends"`
}

// UpdateProfileInput carries a partial profile update; nil fields are left unchanged.
type UpdateProfileInput struct {
	UserID             uint
	Name               *string
	School             *string
	Class              *string
	Section            *string
	Interests          *[]string
	Bio                *string
	InstagramUsername  *string
	RelationshipStatus *string
	CoverPhoto         *string
	ProfilePic         *string
}

// SetupProfileInput replaces the optional profile attributes after signup.
type SetupProfileInput struct {
	UserID             uint
	ProfilePic         string
	CoverPhoto         string
	Class              string
	Section            string
	Interests          []string
	InstagramUsername  string
	Bio                string
	RelationshipStatus string
}

// SearchInput narrows a user search.
type SearchInput struct {
	SearcherID uint
	Query      string
	School     string
	Class      string
	Section    string
	Interests  []string
}

// Recommendation is a suggested user and the weight of the strongest match.
type Recommendation struct {
	models.UserSummary
	Weight int `json:"weight"`
}

// GetUser returns a user by id.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetProfile returns userID's profile with authored and tagged memory counts.
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	created, err := s.memoryRepo.CountByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	tagged, err := s.memoryRepo.CountTagged(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		User:            user,
		MemoryCount:     created,
		CreatedMemories: created,
		TaggedMemories:  tagged,
	}, nil
}

// UpdateProfile applies the provided fields and returns the updated user.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	const maxBioLen = 500

	fields := map[string]any{}
	setTrimmed := func(col string, v *string) {
		if v != nil {
			fields[col] = strings.TrimSpace(*v)
		}
	}

	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, models.NewValidationError("Name cannot be empty")
	}
	if in.School != nil && strings.TrimSpace(*in.School) == "" {
		return nil, models.NewValidationError("School cannot be empty")
	}
	if in.Bio != nil && len(*in.Bio) > maxBioLen {
		return nil, models.NewValidationError("Bio too long (max 500 characters)")
	}
	if in.RelationshipStatus != nil && !models.IsValidRelationshipStatus(*in.RelationshipStatus) {
		return nil, models.NewValidationError("Invalid relationship status")
	}

	setTrimmed("name", in.Name)
	setTrimmed("school", in.School)
	setTrimmed("class_name", in.Class)
	setTrimmed("section", in.Section)
	setTrimmed("instagram_username", in.InstagramUsername)
	setTrimmed("cover_photo", in.CoverPhoto)
	setTrimmed("profile_pic", in.ProfilePic)
	if in.Bio != nil {
		fields["bio"] = *in.Bio
	}
	if in.RelationshipStatus != nil {
		fields["relationship_status"] = *in.RelationshipStatus
	}
	if in.Interests != nil {
		fields["interests"] = models.StringList(*in.Interests).Normalize()
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(ctx, in.UserID, fields); err != nil {
			return nil, err
		}
	}
	return s.userRepo.GetByID(ctx, in.UserID)
}

// SetupProfile overwrites the optional profile attributes in one step.
func (s *UserService) SetupProfile(ctx context.Context, in SetupProfileInput) (*models.User, error) {
	return s.UpdateProfile(ctx, UpdateProfileInput{
		UserID:             in.UserID,
		ProfilePic:         &in.ProfilePic,
		CoverPhoto:         &in.CoverPhoto,
		Class:              &in.Class,
		Section:            &in.Section,
		Interests:          &in.Interests,
		InstagramUsername:  &in.InstagramUsername,
		Bio:                &in.Bio,
		RelationshipStatus: &in.RelationshipStatus,
	})
}

// GetOtherProfile returns userID's profile and friends.
func (s *UserService) GetOtherProfile(ctx context.Context, userID uint) (*OtherProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	friends, err := s.friendRepo.GetFriends(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &OtherProfile{User: user, Friends: models.Summaries(friends)}, nil
}

// SearchUsers matches query against name, school, class and section and
// applies the exact filters. The searcher is never returned.
func (s *UserService) SearchUsers(ctx context.Context, in SearchInput) ([]models.UserSummary, error) {
	users, err := s.userRepo.Search(ctx, repository.UserSearchFilter{
		Query:     in.Query,
		School:    strings.TrimSpace(in.School),
		Class:     strings.TrimSpace(in.Class),
		Section:   strings.TrimSpace(in.Section),
		Interests: in.Interests,
		ExcludeID: in.SearcherID,
	})
	if err != nil {
		return nil, err
	}
	return models.Summaries(users), nil
}

// RecommendUsers unions classmates, schoolmates and users sharing an
// interest. Each user keeps the weight of its strongest bucket; a bucket is
// skipped when the caller's own attribute is empty.
func (s *UserService) RecommendUsers(ctx context.Context, userID uint) ([]Recommendation, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	byID := map[uint]*Recommendation{}
	add := func(users []models.User, weight int) {
		for i := range users {
			u := &users[i]
			if u.ID == userID {
				continue
			}
			if rec, ok := byID[u.ID]; ok {
				if weight > rec.Weight {
					rec.Weight = weight
				}
				continue
			}
			byID[u.ID] = &Recommendation{UserSummary: u.Summary(), Weight: weight}
		}
	}

	if user.Class != "" {
		sameClass, err := s.userRepo.FindByClass(ctx, user.Class, userID)
		if err != nil {
			return nil, err
		}
		add(sameClass, WeightSameClass)
	}
	if user.School != "" {
		sameSchool, err := s.userRepo.FindBySchool(ctx, user.School, userID)
		if err != nil {
			return nil, err
		}
		add(sameSchool, WeightSameSchool)
	}
	if len(user.Interests) > 0 {
		sameInterest, err := s.userRepo.FindByAnyInterest(ctx, user.Interests, userID)
		if err != nil {
			return nil, err
		}
		add(sameInterest, WeightSameInterest)
	}

	out := make([]Recommendation, 0, len(byID))
	for _, rec := range byID {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
