package models

import "time"

// UserRole represents the permission tier of a user
type UserRole string

const (
	UserRoleAdmin     UserRole = "admin"
	UserRoleBartender UserRole = "bartender"
)

// User represents a Telegram user registered in the system.
// The first user ever registered becomes the admin (senior bartender);
// everyone after that defaults to bartender.
type User struct {
	ID         string    `json:"id" db:"id"`
	TelegramID int64     `json:"telegram_id" db:"telegram_id"`
	Username   string    `json:"username" db:"username"`
	FirstName  string    `json:"first_name" db:"first_name"`
	LastName   string    `json:"last_name" db:"last_name"`
	PhotoURL   string    `json:"photo_url" db:"photo_url"`
	Role       UserRole  `json:"role" db:"role"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin returns true if the user holds the elevated role tier
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// FullName returns the user's full name
func (u *User) FullName() string {
	if u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.FirstName
}

// DisplayName returns the best display name for the user
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FullName()
}
