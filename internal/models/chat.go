package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SessionTypeSoloMediation = "solo_mediation"
	SessionTypeJoint         = "joint"

	SessionStatusActive   = "active"
	SessionStatusArchived = "archived"
	SessionStatusEnded    = "ended"

	RoleUser    = "user"
	RoleAI      = "ai"
	RolePartner = "partner"
	RoleSystem  = "system"

	MessageTypeText = "text"

	ChunkTypeMessage = "message"
	ChunkTypeSummary = "summary"
	ChunkTypeInsight = "insight"

	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
	InvitationStatusDeclined = "declined"
	InvitationStatusExpired  = "expired"
)

// ChatSession is one mediated conversation. PartnerUserID is set only through
// an accepted invitation, at which point SessionType flips to joint.
type ChatSession struct {
	ID            uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID        uuid.UUID         `gorm:"type:uuid;index;not null" json:"user_id"`
	PartnerUserID *uuid.UUID        `gorm:"type:uuid;index" json:"partner_user_id"`
	Title         string            `gorm:"default:'New Conversation'" json:"title"`
	SessionType   string            `gorm:"default:'solo_mediation'" json:"session_type"`
	Status        string            `gorm:"default:'active'" json:"status"`
	Topic         string            `json:"topic"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	LastActivity  time.Time         `json:"last_activity"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Messages      []ChatMessage     `gorm:"foreignKey:SessionID" json:"-"`
}

// ChatMessage is append-only apart from the edit/delete flags. Seq is a
// database-assigned monotone counter; reads order by it, never by timestamp.
// UserID is null for machine-authored rows (role ai or system).
type ChatMessage struct {
	ID              uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Seq             int64             `gorm:"autoIncrement;uniqueIndex" json:"-"`
	SessionID       uuid.UUID         `gorm:"type:uuid;index;not null" json:"session_id"`
	UserID          *uuid.UUID        `gorm:"type:uuid;index" json:"user_id"`
	Role            string            `gorm:"not null" json:"role"`
	Content         string            `gorm:"type:text;not null" json:"content"`
	MessageType     string            `gorm:"default:'text'" json:"message_type"`
	ParentMessageID *uuid.UUID        `gorm:"type:uuid" json:"parent_message_id"`
	IsEdited        bool              `gorm:"default:false" json:"is_edited"`
	IsDeleted       bool              `gorm:"default:false" json:"is_deleted"`
	TokensUsed      int               `gorm:"default:0" json:"tokens_used"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt       time.Time         `json:"created_at"`
}

// ContextChunk is one embedded piece of prior conversation, retrievable by
// cosine similarity. Embedding holds the JSON-encoded vector.
type ContextChunk struct {
	ID              uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SessionID       uuid.UUID         `gorm:"type:uuid;index;not null" json:"session_id"`
	Content         string            `gorm:"type:text;not null" json:"content"`
	Embedding       datatypes.JSON    `gorm:"type:jsonb" json:"-"`
	ContentType     string            `gorm:"default:'message'" json:"content_type"`
	SourceMessageID *uuid.UUID        `gorm:"type:uuid" json:"source_message_id"`
	RelevanceScore  int               `gorm:"default:100" json:"relevance_score"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt       time.Time         `json:"created_at"`
}

// ChatInvitation invites the inviter's linked partner into a session.
// ExpiresAt is fixed at creation; expiry is applied lazily on the next
// accept/decline attempt rather than by a background sweep.
type ChatInvitation struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SessionID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"session_id"`
	InviterID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"inviter_id"`
	InviteeID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"invitee_id"`
	Status      string     `gorm:"default:'pending'" json:"status"`
	Message     string     `json:"message"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RespondedAt *time.Time `json:"responded_at"`
	CreatedAt   time.Time  `json:"created_at"`
}
