// Package domain contains core domain types for the eventdash front-end.
package domain

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Role is the coarse authorization level the backend assigns to a user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// IsAdmin reports whether r names the admin role, ignoring case.
func (r Role) IsAdmin() bool {
	return strings.EqualFold(strings.TrimSpace(string(r)), string(RoleAdmin))
}

// UserProfile is the backend's view of a user, cached in the session between refreshes.
type UserProfile struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      Role      `json:"role"`
	Image     string    `json:"image,omitempty"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// UnmarshalJSON accepts both "_id" and "id" for the identifier.
func (u *UserProfile) UnmarshalJSON(data []byte) error {
	type plain UserProfile
	var aux struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*u = UserProfile(aux.plain)
	if u.ID == "" {
		u.ID = aux.AltID
	}
	return nil
}

// FullName joins the first and last name.
func (u *UserProfile) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Initials returns up to two letters for avatar placeholders.
func (u *UserProfile) Initials() string {
	first := initial(u.FirstName)
	if first == "" {
		first = "U"
	}
	return first + initial(u.LastName)
}

func initial(name string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

// UserStats summarizes a user listing for the admin dashboard.
type UserStats struct {
	Total   int
	Admins  int
	Regular int
	Recent  []UserProfile
}

const recentUsersLimit = 5

// ComputeUserStats counts admins and regular users and keeps the first few as recent.
func ComputeUserStats(users []UserProfile) UserStats {
	stats := UserStats{Total: len(users)}
	for _, u := range users {
		if u.Role.IsAdmin() {
			stats.Admins++
		}
	}
	stats.Regular = stats.Total - stats.Admins

	n := len(users)
	if n > recentUsersLimit {
		n = recentUsersLimit
	}
	stats.Recent = append([]UserProfile(nil), users[:n]...)
	return stats
}
