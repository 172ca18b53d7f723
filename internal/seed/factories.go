// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"schoolmates/internal/models"
	"schoolmates/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the plaintext password every seeded account gets.
const DefaultPassword = "password123"

// SeedOptions tunes how the Factory builds entities.
type SeedOptions struct {
	// SkipBcrypt hashes the shared password at bcrypt.MinCost.
	SkipBcrypt bool
	// MaxDays bounds how far back created_at timestamps are spread.
	MaxDays int
	// RandSeed makes generated content reproducible when non-zero.
	RandSeed int64
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db       *gorm.DB
	opts     SeedOptions
	rnd      *rand.Rand
	faker    *gofakeit.Faker
	hash     string
	memories repository.MemoryRepository
	chats    repository.ChatRepository
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts SeedOptions) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:       db,
		opts:     opts,
		rnd:      rand.New(rand.NewSource(seed)),
		faker:    gofakeit.New(seed),
		memories: repository.NewMemoryRepository(db),
		chats:    repository.NewChatRepository(db),
	}
}

func (f *Factory) passwordHash() (string, error) {
	if f.hash != "" {
		return f.hash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return "", err
	}
	f.hash = string(hashed)
	return f.hash, nil
}

// pastTime returns a timestamp spread over the last MaxDays days.
func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rnd.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rnd.Intn(24))*time.Hour +
		time.Duration(f.rnd.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

func (f *Factory) pick(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[f.rnd.Intn(len(values))]
}

// BuildUser constructs a student placed in one of the given schools, classes
// and sections. It does not persist the user.
func (f *Factory) BuildUser(index int, school School, interests []string) (*models.User, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, err
	}

	first := f.faker.FirstName()
	last := f.faker.LastName()
	handle := strings.ToLower(first + "." + last)

	picked := make([]string, 0, 3)
	seen := make(map[string]bool)
	for i := 0; i < 1+f.rnd.Intn(3) && len(interests) > 0; i++ {
		v := f.pick(interests)
		if !seen[v] {
			seen[v] = true
			picked = append(picked, v)
		}
	}

	statuses := []string{
		"",
		models.RelationshipSingle,
		models.RelationshipInRelationship,
		models.RelationshipComplicated,
	}
	created := f.pastTime()

	return &models.User{
		Name:               first + " " + last,
		Email:              fmt.Sprintf("%s%d@example.com", handle, index),
		Password:           hash,
		School:             school.Name,
		Class:              f.pick(school.Classes),
		Section:            f.pick(school.Sections),
		Interests:          models.StringList(picked),
		Bio:                f.faker.Sentence(8),
		InstagramUsername:  strings.ReplaceAll(handle, ".", "_"),
		RelationshipStatus: f.pick(statuses),
		ProfilePic:         fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		CoverPhoto:         fmt.Sprintf("https://picsum.photos/seed/%s/1200/400", f.faker.UUID()),
		CreatedAt:          created,
		UpdatedAt:          created,
	}, nil
}

// CreateUsersBatch persists users in a single insert.
func (f *Factory) CreateUsersBatch(users []*models.User) error {
	if len(users) == 0 {
		return nil
	}
	return f.db.CreateInBatches(users, 200).Error
}

// CreateFriendship stores an edge between a and b with the given status.
func (f *Factory) CreateFriendship(a, b uint, status models.FriendshipStatus) error {
	return f.db.Create(&models.Friendship{
		RequesterID: a,
		AddresseeID: b,
		Status:      status,
	}).Error
}

// CreateConversation stores a conversation between participants with
// messageCount messages from random participants.
func (f *Factory) CreateConversation(ctx context.Context, participants []uint, messageCount int) (*models.Conversation, error) {
	if len(participants) < 2 {
		return nil, fmt.Errorf("conversation needs at least 2 participants, got %d", len(participants))
	}

	conv := &models.Conversation{CreatedBy: participants[0]}
	if err := f.chats.CreateConversation(ctx, conv, participants); err != nil {
		return nil, err
	}

	start := f.pastTime()
	for i := 0; i < messageCount; i++ {
		msg := &models.Message{
			ConversationID: conv.ID,
			SenderID:       participants[f.rnd.Intn(len(participants))],
			Content:        f.faker.Sentence(4 + f.rnd.Intn(10)),
			CreatedAt:      start.Add(time.Duration(i) * time.Minute),
		}
		if err := f.db.WithContext(ctx).Create(msg).Error; err != nil {
			return nil, err
		}
	}
	return conv, nil
}

// CreateMemory stores a memory by author tagging the given friends, with a
// few photos, timeline events, likes and comments from the tagged circle.
func (f *Factory) CreateMemory(ctx context.Context, author uint, tagged []uint) (*models.Memory, error) {
	created := f.pastTime()
	memory := &models.Memory{
		Title:     f.faker.Sentence(3 + f.rnd.Intn(3)),
		AuthorID:  author,
		CreatedAt: created,
		UpdatedAt: created,
	}

	events := make([]models.TimelineEvent, 0, 3)
	for i := 0; i < 1+f.rnd.Intn(3); i++ {
		events = append(events, models.TimelineEvent{
			Date:      created.AddDate(0, 0, -i).Truncate(24 * time.Hour),
			Time:      fmt.Sprintf("%02d:%02d", 8+f.rnd.Intn(12), f.rnd.Intn(60)),
			EventText: f.faker.Sentence(6),
			AddedBy:   author,
		})
	}

	if err := f.memories.Create(ctx, memory, tagged, events); err != nil {
		return nil, err
	}

	circle := append([]uint{author}, tagged...)
	for i := 0; i < 1+f.rnd.Intn(4); i++ {
		photo := &models.MemoryPhoto{
			MemoryID: memory.ID,
			URL:      fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID()),
			AddedBy:  circle[f.rnd.Intn(len(circle))],
		}
		if err := f.db.WithContext(ctx).Create(photo).Error; err != nil {
			return nil, err
		}
	}

	for _, uid := range circle {
		if uid == author || f.rnd.Intn(2) == 0 {
			continue
		}
		if err := f.db.WithContext(ctx).Create(&models.MemoryLike{MemoryID: memory.ID, UserID: uid}).Error; err != nil {
			return nil, err
		}
	}

	for i := 0; i < f.rnd.Intn(3); i++ {
		comment := &models.MemoryComment{
			MemoryID: memory.ID,
			AuthorID: circle[f.rnd.Intn(len(circle))],
			Content:  f.faker.Sentence(5),
		}
		if err := f.db.WithContext(ctx).Create(comment).Error; err != nil {
			return nil, err
		}
	}

	return memory, nil
}
