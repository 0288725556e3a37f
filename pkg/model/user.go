package model

import "time"

type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleStudent   Role = "student"
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleOwner || r == RoleAdmin
}

type TwoFactor struct {
	Enabled          bool       `json:"enabled" bson:"enabled"`
	Secret           string     `json:"-" bson:"secret,omitempty"`
	PendingSecret    string     `json:"-" bson:"pending_secret,omitempty"`
	BackupCodeHashes []string   `json:"-" bson:"backup_code_hashes,omitempty"`
	EnabledAt        *time.Time `json:"enabled_at,omitempty" bson:"enabled_at,omitempty"`
}

type User struct {
	ID              string     `json:"id,omitempty" bson:"_id,omitempty"`
	Email           string     `json:"email" bson:"email"`
	Name            string     `json:"name" bson:"name"`
	Phone           string     `json:"phone,omitempty" bson:"phone,omitempty"`
	Role            Role       `json:"role" bson:"role"`
	Verified        bool       `json:"verified" bson:"verified"`
	Blacklisted     bool       `json:"blacklisted" bson:"blacklisted"`
	BlacklistReason string     `json:"blacklist_reason,omitempty" bson:"blacklist_reason,omitempty"`
	AvatarURL       string     `json:"avatar_url,omitempty" bson:"avatar_url,omitempty"`
	TwoFactor       TwoFactor  `json:"two_factor" bson:"two_factor"`
	CreatedAt       time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" bson:"updated_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty" bson:"last_login_at,omitempty"`
}

type ProfileUpdate struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=20"`
}

type UserFilter struct {
	Role        Role
	Verified    *bool
	Blacklisted *bool
	Email       string
}

type BlacklistRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type RoleChange struct {
	Role Role `json:"role" validate:"required,oneof=student owner admin"`
}

type TwoFactorSetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
}

type TwoFactorCode struct {
	Code string `json:"code" validate:"required,min=6,max=32"`
}

type TwoFactorEnabled struct {
	BackupCodes []string `json:"backup_codes"`
}
