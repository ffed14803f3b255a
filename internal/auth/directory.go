package auth

import "fmt"

// Credential is an entry of the fixed login directory.
type Credential struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
}

// DefaultCredentials is the built-in directory of accounts that can log in.
var DefaultCredentials = []Credential{
	{ID: "1", Email: "abhimanyu@hashchat.com", Password: "password123", DisplayName: "Abhimanyu"},
	{ID: "2", Email: "harsh@hashchat.com", Password: "password123", DisplayName: "Harsh"},
	{ID: "3", Email: "demo@hashchat.com", Password: "demo123", DisplayName: "Demo User"},
}

type directoryEntry struct {
	id           string
	email        string
	displayName  string
	passwordHash string
}

// Directory is an immutable, in-memory credential lookup. Passwords are kept
// only as bcrypt hashes.
type Directory struct {
	entries []directoryEntry
}

// NewDirectory hashes the given credentials with bcrypt at cost.
func NewDirectory(cost int, creds ...Credential) (*Directory, error) {
	d := &Directory{entries: make([]directoryEntry, 0, len(creds))}
	for _, c := range creds {
		hash, err := HashPassword(c.Password, cost)
		if err != nil {
			return nil, fmt.Errorf("directory entry %s: %w", c.Email, err)
		}
		d.entries = append(d.entries, directoryEntry{
			id:           c.ID,
			email:        c.Email,
			displayName:  c.DisplayName,
			passwordHash: hash,
		})
	}
	return d, nil
}

// Authenticate returns the credential matching email and password exactly.
// The returned Credential never carries the password.
func (d *Directory) Authenticate(email, password string) (Credential, bool) {
	for _, e := range d.entries {
		if e.email != email {
			continue
		}
		if ComparePassword(e.passwordHash, password) != nil {
			return Credential{}, false
		}
		return Credential{ID: e.id, Email: e.email, DisplayName: e.displayName}, true
	}
	return Credential{}, false
}

// Has reports whether email belongs to a directory entry.
func (d *Directory) Has(email string) bool {
	for _, e := range d.entries {
		if e.email == email {
			return true
		}
	}
	return false
}
