package seed

import (
	"context"
	"fmt"
	"log"

	"schoolmates/internal/database"
	"schoolmates/internal/models"

	"gorm.io/gorm"
)

// Result counts what a Seed run created.
type Result struct {
	Users           int
	Friendships     int
	PendingRequests int
	Conversations   int
	Messages        int
	Memories        int
}

// Seeder populates a database from a Preset.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a seeder over db.
func NewSeeder(db *gorm.DB, opts SeedOptions) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts)}
}

// ClearAll removes every row the application owns.
func (s *Seeder) ClearAll() error {
	log.Println("🧹 Clearing existing data...")
	if s.db.Dialector.Name() == "postgres" {
		return s.db.Exec(`TRUNCATE TABLE memory_comments, timeline_events, memory_photos, memory_likes, memory_tags, memories,
			message_reads, message_deliveries, messages, conversation_participants, conversations,
			friendships, users RESTART IDENTITY CASCADE`).Error
	}

	all := database.PersistentModels()
	tx := s.db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for i := len(all) - 1; i >= 0; i-- {
		if err := tx.Delete(all[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", all[i], err)
		}
	}
	return nil
}

// Seed creates users, friendships, conversations and memories per p.
func (s *Seeder) Seed(ctx context.Context, p Preset) (Result, error) {
	var res Result
	if err := p.Validate(); err != nil {
		return res, err
	}
	f := s.factory

	log.Printf("👥 Creating %d users...", p.Users)
	users := make([]*models.User, 0, p.Users)
	for i := 0; i < p.Users; i++ {
		school := p.Schools[i%len(p.Schools)]
		u, err := f.BuildUser(i, school, p.Interests)
		if err != nil {
			return res, err
		}
		users = append(users, u)
	}
	if err := f.CreateUsersBatch(users); err != nil {
		return res, fmt.Errorf("create users: %w", err)
	}
	res.Users = len(users)
	if len(users) < 2 {
		return res, nil
	}

	log.Println("🤝 Connecting friends...")
	friends := make(map[uint][]uint, len(users))
	linked := make(map[[2]uint]bool)
	edge := func(a, b uint) [2]uint {
		if a > b {
			a, b = b, a
		}
		return [2]uint{a, b}
	}
	for i, u := range users {
		for k := 1; k <= p.FriendsPerUser && k < len(users); k++ {
			other := users[(i+k)%len(users)]
			key := edge(u.ID, other.ID)
			if linked[key] {
				continue
			}
			if err := f.CreateFriendship(u.ID, other.ID, models.FriendshipStatusAccepted); err != nil {
				return res, fmt.Errorf("create friendship: %w", err)
			}
			linked[key] = true
			friends[u.ID] = append(friends[u.ID], other.ID)
			friends[other.ID] = append(friends[other.ID], u.ID)
			res.Friendships++
		}
	}

	for attempts := 0; res.PendingRequests < p.PendingRequests && attempts < p.PendingRequests*10; attempts++ {
		a := users[f.rnd.Intn(len(users))]
		b := users[f.rnd.Intn(len(users))]
		key := edge(a.ID, b.ID)
		if a.ID == b.ID || linked[key] {
			continue
		}
		if err := f.CreateFriendship(a.ID, b.ID, models.FriendshipStatusPending); err != nil {
			return res, fmt.Errorf("create friend request: %w", err)
		}
		linked[key] = true
		res.PendingRequests++
	}

	log.Printf("💬 Creating %d conversations...", p.Conversations)
	for i := 0; i < p.Conversations; i++ {
		owner := users[i%len(users)]
		circle := friends[owner.ID]
		if len(circle) == 0 {
			continue
		}
		participants := []uint{owner.ID, circle[f.rnd.Intn(len(circle))]}
		if len(circle) > 2 && f.rnd.Intn(3) == 0 {
			for _, id := range circle {
				if id != participants[1] {
					participants = append(participants, id)
					break
				}
			}
		}
		if _, err := f.CreateConversation(ctx, participants, p.MessagesPerConversation); err != nil {
			return res, fmt.Errorf("create conversation: %w", err)
		}
		res.Conversations++
		res.Messages += p.MessagesPerConversation
	}

	log.Printf("📸 Creating %d memories...", p.Memories)
	for i := 0; i < p.Memories; i++ {
		author := users[f.rnd.Intn(len(users))]
		circle := friends[author.ID]
		var tagged []uint
		for _, id := range circle {
			if len(tagged) < 3 && f.rnd.Intn(2) == 0 {
				tagged = append(tagged, id)
			}
		}
		if _, err := f.CreateMemory(ctx, author.ID, tagged); err != nil {
			return res, fmt.Errorf("create memory: %w", err)
		}
		res.Memories++
	}

	log.Printf("✅ Seeded %d users, %d friendships, %d conversations, %d memories",
		res.Users, res.Friendships, res.Conversations, res.Memories)
	return res, nil
}
