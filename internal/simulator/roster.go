package simulator

import "github.com/vovakirdan/hashchat-engine/internal/core"

const avatarBase = "https://api.dicebear.com/7.x/avataaars/svg?seed="

// Roster is the static set of simulated participants.
var Roster = []core.PresenceEntry{
	{UserID: "1", DisplayName: "Abhimanyu", AvatarRef: avatarBase + "Abhimanyu", Status: core.StatusOnline},
	{UserID: "2", DisplayName: "Harsh", AvatarRef: avatarBase + "Harsh", Status: core.StatusOnline},
	{UserID: "3", DisplayName: "Riya", AvatarRef: avatarBase + "Riya", Status: core.StatusOnline},
	{UserID: "4", DisplayName: "Priya", AvatarRef: avatarBase + "Priya", Status: core.StatusOffline},
	{UserID: "5", DisplayName: "Rahul", AvatarRef: avatarBase + "Rahul", Status: core.StatusOnline},
}

// Phrases are the lines simulated participants say.
var Phrases = []string{
	"Hey everyone!",
	"How is everyone doing?",
	"Anyone working on something cool?",
	"This is awesome!",
	"Let me know what you think",
	"Great discussion!",
}
