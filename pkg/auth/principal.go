package auth

import (
	"context"

	"unistay/pkg/model"
)

type principalKey struct{}

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	UserID      string
	Email       string
	Name        string
	Role        model.Role
	Verified    bool
	Blacklisted bool
	IP          string
	UserAgent   string
}

func (p *Principal) Is(role model.Role) bool {
	return p != nil && p.Role == role
}

func (p *Principal) IsAdmin() bool {
	return p.Is(model.RoleAdmin)
}

func PrincipalFromUser(u *model.User) *Principal {
	return &Principal{
		UserID:      u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Verified:    u.Verified,
		Blacklisted: u.Blacklisted,
	}
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the caller, or nil for anonymous requests.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// Subject is the casbin subject for the caller.
func Subject(p *Principal) string {
	if p == nil || p.Role == "" {
		return string(model.RoleAnonymous)
	}
	return string(p.Role)
}
