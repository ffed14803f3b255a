package core

// Room is a named chat channel. ID and JoinCode are immutable once created.
type Room struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinCode string `json:"code"`
}

// PresenceStatus is the displayed availability of a roster member.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// PresenceEntry is one member of the simulated roster.
type PresenceEntry struct {
	UserID      string         `json:"user_id"`
	DisplayName string         `json:"display_name"`
	AvatarRef   string         `json:"avatar_ref,omitempty"`
	Status      PresenceStatus `json:"status"`
}
