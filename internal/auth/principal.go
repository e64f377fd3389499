// Package auth carries the authenticated caller into core operations. Session
// and credential handling live upstream; this package only transports the
// result.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/dwikikusuma/codshop/pkg/apperr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const (
	HeaderUserID = "X-User-ID"
	HeaderRole   = "X-User-Role"

	mdUserID = "x-user-id"
	mdRole   = "x-user-role"
)

type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) Authenticated() bool { return strings.TrimSpace(p.UserID) != "" }

func (p Principal) IsAdmin() bool { return p.Authenticated() && p.Role == RoleAdmin }

// CanView reports whether p may read a resource owned by ownerID.
func (p Principal) CanView(ownerID string) bool {
	return p.IsAdmin() || (p.Authenticated() && p.UserID == ownerID)
}

// RequireUser fails with NotAuthorized when p carries no identity.
func RequireUser(p Principal) error {
	if !p.Authenticated() {
		return fmt.Errorf("%w: authentication required", apperr.ErrNotAuthorized)
	}
	return nil
}

// RequireAdmin fails with NotAuthorized unless p is an administrator.
func RequireAdmin(p Principal) error {
	if !p.IsAdmin() {
		return fmt.Errorf("%w: admin only", apperr.ErrNotAuthorized)
	}
	return nil
}

func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok && p.Authenticated()
}

// FromIncomingGRPC reads the principal forwarded in gRPC metadata.
func FromIncomingGRPC(ctx context.Context) Principal {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return Principal{}
	}
	p := Principal{}
	if v := md.Get(mdUserID); len(v) > 0 {
		p.UserID = strings.TrimSpace(v[0])
	}
	if v := md.Get(mdRole); len(v) > 0 {
		p.Role = ParseRole(v[0])
	} else {
		p.Role = RoleUser
	}
	return p
}

// RequireIncomingGRPC is FromIncomingGRPC for handlers that need a caller. A
// missing principal is reported as codes.Unauthenticated.
func RequireIncomingGRPC(ctx context.Context) (Principal, error) {
	p := FromIncomingGRPC(ctx)
	if !p.Authenticated() {
		return Principal{}, status.Error(codes.Unauthenticated, "missing principal")
	}
	return p, nil
}

// OutgoingGRPC attaches p to an outgoing gRPC call.
func OutgoingGRPC(ctx context.Context, p Principal) context.Context {
	return metadata.AppendToOutgoingContext(ctx, mdUserID, p.UserID, mdRole, string(p.Role))
}
