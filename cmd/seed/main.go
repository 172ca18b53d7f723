// Command main runs the database seeder for Schoolmates.
package main

import (
	"context"
	"flag"
	"log"

	"schoolmates/internal/config"
	"schoolmates/internal/database"
	"schoolmates/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 30, "Number of users to create")
	numMemories := flag.Int("memories", 20, "Number of memories to create")
	numConversations := flag.Int("conversations", 10, "Number of conversations to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	presetPath := flag.String("preset", "", "Path to a YAML seed preset (overrides count flags)")
	fast := flag.Bool("fast", false, "Hash passwords at minimum bcrypt cost")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	preset := seed.DefaultPreset()
	if *presetPath != "" {
		p, err := seed.LoadPreset(*presetPath)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		preset = p
		log.Printf("Applying preset: %s (ignoring count flags)\n", *presetPath)
	} else {
		preset.Users = *numUsers
		preset.Memories = *numMemories
		preset.Conversations = *numConversations
		log.Printf("Target: %d users, %d memories, %d conversations, clean=%v\n",
			preset.Users, preset.Memories, preset.Conversations, *shouldClean)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, seed.SeedOptions{SkipBcrypt: *fast, RandSeed: preset.RandSeed})

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	if _, err := s.Seed(context.Background(), preset); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s", seed.DefaultPassword)
}
