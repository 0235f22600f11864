package profile

import (
	"errors"
	"time"
)

var ErrProfileNotFound = errors.New("profile not found")

// Profile is the per-user document in the users collection.
type Profile struct {
	UserID          string    `bson:"_id" json:"userId"`
	FullName        string    `bson:"fullName" json:"fullName"`
	Username        string    `bson:"username" json:"username"`
	Email           string    `bson:"email" json:"email"`
	PhoneNumber     string    `bson:"phoneNumber" json:"phoneNumber"`
	DateOfBirth     string    `bson:"dateOfBirth" json:"dateOfBirth"` // MM/DD/YYYY
	ProfileImageURL string    `bson:"profileImageURL,omitempty" json:"profileImageURL,omitempty"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
}

// Update is a partial profile edit; nil fields are left untouched.
type Update struct {
	FullName        *string `json:"fullName,omitempty"`
	Username        *string `json:"username,omitempty"`
	Email           *string `json:"email,omitempty"`
	PhoneNumber     *string `json:"phoneNumber,omitempty"`
	DateOfBirth     *string `json:"dateOfBirth,omitempty"`
	ProfileImageURL *string `json:"profileImageURL,omitempty"`
}

// Fields maps the non-nil values to document field names.
func (u Update) Fields() map[string]any {
	out := make(map[string]any)
	set := func(key string, v *string) {
		if v != nil {
			out[key] = *v
		}
	}
	set("fullName", u.FullName)
	set("username", u.Username)
	set("email", u.Email)
	set("phoneNumber", u.PhoneNumber)
	set("dateOfBirth", u.DateOfBirth)
	set("profileImageURL", u.ProfileImageURL)
	return out
}
