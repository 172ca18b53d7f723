package seed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// School describes one school in a preset.
type School struct {
	Name     string   `yaml:"name"`
	Classes  []string `yaml:"classes"`
	Sections []string `yaml:"sections"`
}

// Preset is the YAML shape accepted by cmd/seed -preset.
//
//	users: 40
//	friends_per_user: 5
//	pending_requests: 10
//	conversations: 15
//	messages_per_conversation: 20
//	memories: 30
//	schools:
//	  - name: Springfield High
//	    classes: ["10", "11", "12"]
//	    sections: [A, B]
//	interests: [chess, football, music]
type Preset struct {
	Users                   int      `yaml:"users"`
	FriendsPerUser          int      `yaml:"friends_per_user"`
	PendingRequests         int      `yaml:"pending_requests"`
	Conversations           int      `yaml:"conversations"`
	MessagesPerConversation int      `yaml:"messages_per_conversation"`
	Memories                int      `yaml:"memories"`
	Schools                 []School `yaml:"schools"`
	Interests               []string `yaml:"interests"`
	RandSeed                int64    `yaml:"rand_seed"`
}

// DefaultPreset is used when neither flags nor a preset file say otherwise.
func DefaultPreset() Preset {
	return Preset{
		Users:                   30,
		FriendsPerUser:          4,
		PendingRequests:         8,
		Conversations:           10,
		MessagesPerConversation: 15,
		Memories:                20,
		Schools: []School{
			{Name: "Springfield High", Classes: []string{"10", "11", "12"}, Sections: []string{"A", "B"}},
			{Name: "Riverside Academy", Classes: []string{"9", "10", "11"}, Sections: []string{"A", "B", "C"}},
		},
		Interests: []string{
			"chess", "football", "music", "coding", "art",
			"photography", "basketball", "reading", "debate", "robotics",
		},
	}
}

// ParsePreset decodes a YAML preset, filling unset fields from DefaultPreset.
func ParsePreset(data []byte) (Preset, error) {
	p := DefaultPreset()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("parse preset: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Preset{}, err
	}
	return p, nil
}

// LoadPreset reads and parses the preset file at path.
func LoadPreset(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, fmt.Errorf("read preset %s: %w", path, err)
	}
	return ParsePreset(data)
}

// Validate rejects presets the seeder cannot satisfy.
func (p Preset) Validate() error {
	switch {
	case p.Users < 0, p.FriendsPerUser < 0, p.PendingRequests < 0,
		p.Conversations < 0, p.MessagesPerConversation < 0, p.Memories < 0:
		return fmt.Errorf("preset counts must not be negative")
	case p.Users > 0 && len(p.Schools) == 0:
		return fmt.Errorf("preset needs at least one school")
	}
	for _, s := range p.Schools {
		if s.Name == "" {
			return fmt.Errorf("preset school without a name")
		}
	}
	return nil
}
