package models

import "time"

type User struct {
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	IsAdmin      bool       `json:"isAdmin"`
	ReadPoems    []string   `json:"readPoems"`
	PinnedTitle  *string    `json:"pinnedTitle,omitempty"`
	UserData     string     `json:"userData,omitempty"`
	ShowAllTab   bool       `json:"showAllTab"`
	AccessKey    string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// Identity is a resolved caller: either a persisted user or a virtual
// admin snapshot. Virtual identities are never backed by a user row.
type Identity struct {
	Username    string   `json:"username"`
	IsAdmin     bool     `json:"isAdmin"`
	Virtual     bool     `json:"virtual"`
	ReadPoems   []string `json:"readPoems"`
	PinnedTitle *string  `json:"pinnedTitle,omitempty"`
	UserData    string   `json:"userData,omitempty"`
	ShowAllTab  bool     `json:"showAllTab"`
	AccessKey   string   `json:"-"`
}

func IdentityFromUser(u *User) *Identity {
	readPoems := u.ReadPoems
	if readPoems == nil {
		readPoems = []string{}
	}
	return &Identity{
		Username:    u.Username,
		IsAdmin:     u.IsAdmin,
		ReadPoems:   readPoems,
		PinnedTitle: u.PinnedTitle,
		UserData:    u.UserData,
		ShowAllTab:  u.ShowAllTab,
		AccessKey:   u.AccessKey,
	}
}
