package models

import (
	"time"

	"github.com/google/uuid"
)

// User rows are upserted from verified token claims by the auth middleware.
// Partner linking happens outside this service; PartnerID is only read here.
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	AuthID    string     `gorm:"unique;not null" json:"-"`
	Email     string     `gorm:"unique;not null" json:"email"`
	Name      string     `json:"name"`
	Nickname  string     `json:"nickname"`
	PartnerID *uuid.UUID `gorm:"type:uuid" json:"partner_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
