package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the directory's identity record. Users start out unactivated and
// carry a single-use activation link until they confirm their address.
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash,notnull" json:"-"`
	ActivationLink string     `bun:"activation_link,notnull" json:"-"`
	Activated      bool       `bun:"is_activated" json:"is_activated,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Summary projects the user attributes that travel inside tokens and
// operation results. Everything else stays behind the Directory.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:    u.ID.String(),
		Email: u.Email,
	}
}

// UserSummary is the public projection of a User: the token payload.
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the single live refresh credential for a user. The unique
// constraint on user_id backs the one-session-per-user invariant; the
// application-level upsert rotates refresh_token in place.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	RefreshToken  string     `bun:"refresh_token,notnull" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// ResetTicket is a single-use password-reset credential. Tickets are
// deleted when consumed by ResetPassword and abandoned (deleted) when the
// reset notification cannot be delivered.
type ResetTicket struct {
	bun.BaseModel `bun:"table:reset_tickets,alias:rst"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Ticket        string     `bun:"ticket,notnull,unique" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// TokenPair is the transient result of a successful authentication event.
// It is never persisted as such: only the refresh half lands in a Session.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResult is what login, registration, and refresh hand back to the
// transport layer.
type AuthResult struct {
	TokenPair
	User UserSummary `json:"user"`
}
