package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered identity. Password holds the bcrypt hash and never leaves the server.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"-"`
	FullName string    `json:"fullName"`

	ProfilePic       string `json:"profilePic"`
	Bio              string `json:"bio"`
	Location         string `json:"location"`
	NativeLanguage   string `json:"nativeLanguage"`
	LearningLanguage string `json:"learningLanguage"`
	IsOnboarded      bool   `json:"isOnboarded"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PublicUser is the projection of a user shown to other users.
type PublicUser struct {
	ID               uuid.UUID `json:"id"`
	FullName         string    `json:"fullName"`
	ProfilePic       string    `json:"profilePic"`
	NativeLanguage   string    `json:"nativeLanguage"`
	LearningLanguage string    `json:"learningLanguage"`
}

// Profile is a PublicUser plus the free-text fields used for discovery.
type Profile struct {
	PublicUser
	Bio      string `json:"bio"`
	Location string `json:"location"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:               u.ID,
		FullName:         u.FullName,
		ProfilePic:       u.ProfilePic,
		NativeLanguage:   u.NativeLanguage,
		LearningLanguage: u.LearningLanguage,
	}
}

func (u *User) Profile() Profile {
	return Profile{PublicUser: u.Public(), Bio: u.Bio, Location: u.Location}
}
