package core

// Identity is the authenticated user of the local session.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	AvatarRef   string `json:"avatar,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

// ProfileUpdate carries the fields a profile edit may change. Nil fields are
// left untouched.
type ProfileUpdate struct {
	DisplayName *string `json:"name,omitempty"`
	AvatarRef   *string `json:"avatar,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

// Theme is the stored UI theme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Toggled returns the opposite theme. Unknown values toggle to dark.
func (t Theme) Toggled() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}
