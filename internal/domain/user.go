package domain

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Chat bubble color themes selectable per user and per conversation.
var ValidChatThemes = []string{"purple", "blue", "green", "pink", "orange", "cyan"}

const (
	DefaultChatTheme   = "purple"
	DefaultAvatarStyle = "avataaars"

	AvatarTypeDiceBear = "dicebear"
	AvatarTypeCustom   = "custom"
)

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Bio          string
	// Avatar fields: tokens are either a DiceBear seed/style pair or a
	// custom URL stored in AvatarSeed when AvatarType is "custom".
	AvatarType        string
	AvatarStyle       string
	AvatarSeed        string
	ChatTheme         string
	EmailVerified     bool
	VerificationToken string
	ResetToken        string
	ResetTokenExpiry  time.Time
	CreatedAt         time.Time
}

// AvatarURL resolves the avatar image URL for a user. Custom avatars store
// the full URL in AvatarSeed; otherwise a DiceBear URL is derived from the
// style and seed (falling back to the username as seed).
func (u *User) AvatarURL() string {
	if u.AvatarType == AvatarTypeCustom && u.AvatarSeed != "" {
		return u.AvatarSeed
	}
	seed := u.AvatarSeed
	if seed == "" {
		seed = u.Username
	}
	style := u.AvatarStyle
	if style == "" {
		style = DefaultAvatarStyle
	}
	return fmt.Sprintf("https://api.dicebear.com/7.x/%s/svg?seed=%s", url.PathEscape(style), url.QueryEscape(seed))
}

// IsValidChatTheme reports whether theme is one of the allowed chat themes.
func IsValidChatTheme(theme string) bool {
	for _, t := range ValidChatThemes {
		if t == theme {
			return true
		}
	}
	return false
}

type UserRepository interface {
	Create(ctx context.Context, username, email, passwordHash, verificationToken string, emailVerified bool) (*User, error)
	GetByID(ctx context.Context, userID int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByVerificationToken(ctx context.Context, token string) (*User, error)
	GetByResetToken(ctx context.Context, token string) (*User, error)
	MarkVerified(ctx context.Context, userID int64) error
	SetVerificationToken(ctx context.Context, userID int64, token string) error
	SetResetToken(ctx context.Context, userID int64, token string, expiry time.Time) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	UpdateProfile(ctx context.Context, userID int64, username, bio string) error
	UpdateAvatar(ctx context.Context, userID int64, avatarType, avatarStyle, avatarSeed string) error
	UpdateChatTheme(ctx context.Context, userID int64, theme string) error
	SearchByUsername(ctx context.Context, query string, excludeUserID int64, limit int) ([]*User, error)
}
