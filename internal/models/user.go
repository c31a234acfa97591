package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// User represents a registered account on the board. Only identity, profile
// and presence fields matter to the chat subsystem; the presence fields are
// mutated exclusively by the hub's presence tracker on connect/disconnect.
type User struct {
	ID       string         `gorm:"primaryKey" json:"id"`
	Name     string         `gorm:"not null" json:"name"`
	Email    string         `gorm:"uniqueIndex;not null" json:"email"`
	PhotoURL string         `json:"photoURL"`
	Skills   pq.StringArray `gorm:"type:text[]" json:"skills,omitempty"`

	// IsOnline and LastSeen are derived from the live connection count.
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

// BeforeCreate generates a UUID for the user if the ID is not set yet.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
