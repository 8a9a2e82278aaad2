// Package middleware gates commands on the persisted session and carries the
// authenticated identity through the command context.
package middleware

import (
	"context"

	"github.com/atinyakov/glbkeeper/internal/models"
	"github.com/atinyakov/glbkeeper/internal/service"
	"github.com/spf13/cobra"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Authorizer resolves the current identity and checks its role.
type Authorizer interface {
	Authorize(required models.Role) (service.Identity, error)
}

// Authorize checks the session against role and returns a context carrying
// the identity.
func Authorize(ctx context.Context, auth Authorizer, role models.Role) (context.Context, error) {
	ident, err := auth.Authorize(role)
	if err != nil {
		return ctx, err
	}
	return context.WithValue(ctx, identityKey, ident), nil
}

// RequireRole is a cobra PreRunE that rejects the command unless the session
// holds role. On success the identity is stored in the command's context
// for IdentityFromContext.
func RequireRole(auth Authorizer, role models.Role) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, err := Authorize(cmd.Context(), auth, role)
		if err != nil {
			return err
		}
		cmd.SetContext(ctx)
		return nil
	}
}

// IdentityFromContext extracts the identity stored by RequireRole or Authorize.
func IdentityFromContext(ctx context.Context) (service.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(service.Identity)
	return ident, ok
}
