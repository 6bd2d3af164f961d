// Package identity resolves requester contact details from the users table.
package identity

import (
	"context"
	"strings"

	"oap/internal/provision"
	"oap/internal/store"
)

// Contact is what intake needs to reach a requester.
type Contact struct {
	UserID      string
	WWID        string
	Email       string
	DisplayName string
}

// Resolver looks users up by id.
type Resolver struct {
	users store.Users
}

func NewResolver(users store.Users) *Resolver {
	return &Resolver{users: users}
}

// Resolve returns provision.ErrNotFound (kind not_found) for unknown ids.
func (r *Resolver) Resolve(ctx context.Context, userID string) (Contact, error) {
	const op = "identity.resolve"
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Contact{}, provision.Errorf(op, provision.KindInvalidInput, "%w: user id is required", provision.ErrInvalidInput)
	}
	user, err := r.users.GetUser(ctx, userID)
	if err != nil {
		if provision.KindOf(err) == provision.KindNotFound {
			return Contact{}, provision.Wrap(op, provision.KindNotFound, err)
		}
		return Contact{}, provision.Wrap(op, provision.KindStoreUnavailable, err)
	}
	return Contact{
		UserID:      user.UserID,
		WWID:        user.WWID,
		Email:       user.Email,
		DisplayName: user.DisplayName(),
	}, nil
}
