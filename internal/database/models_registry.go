package database

import (
	"schoolmates/internal/models"

	"gorm.io/gorm"
)

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Friendship{},
		&models.Conversation{},
		&models.ConversationParticipant{},
		&models.Message{},
		&models.MessageDelivery{},
		&models.MessageRead{},
		&models.Memory{},
		&models.MemoryTag{},
		&models.MemoryLike{},
		&models.MemoryPhoto{},
		&models.TimelineEvent{},
		&models.MemoryComment{},
	}
}

// Migrate registers the custom join tables and auto-migrates every persistent model.
func Migrate(db *gorm.DB) error {
	joins := []struct {
		model any
		field string
		join  any
	}{
		{&models.Conversation{}, "Participants", &models.ConversationParticipant{}},
		{&models.Memory{}, "TaggedFriends", &models.MemoryTag{}},
		{&models.Memory{}, "Likes", &models.MemoryLike{}},
	}
	for _, j := range joins {
		if err := db.SetupJoinTable(j.model, j.field, j.join); err != nil {
			return err
		}
	}
	return db.AutoMigrate(PersistentModels()...)
}
