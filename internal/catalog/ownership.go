package catalog

import (
	"github.com/dojoflow/backend/internal/domain"
	"github.com/dojoflow/backend/internal/models"
)

// Owned is any resource with exactly one owning user.
type Owned interface {
	OwnerRef() string
}

// RequireOwnership fails with a forbidden error unless the actor owns the
// resource. Pure predicate: no side effects, no I/O.
func RequireOwnership(actor *models.User, resource Owned) error {
	if actor == nil || resource.OwnerRef() != actor.ID {
		return domain.Forbidden("you do not own this resource")
	}
	return nil
}
