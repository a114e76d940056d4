package shared

import (
	"context"

	"github.com/google/uuid"
)

// OrganizationResolver answers whether an organization exists. Organizations are
// provisioned by the tenant collaborator; this service only reads them.
type OrganizationResolver interface {
	Exists(ctx context.Context, organizationID uuid.UUID) (bool, error)
}

// ResolveOrganization returns INVALID_SCOPE when the id is empty or unknown
func ResolveOrganization(ctx context.Context, resolver OrganizationResolver, organizationID uuid.UUID) error {
	if organizationID == uuid.Nil {
		return NewDomainError(CodeInvalidScope, "organization_id is required")
	}
	ok, err := resolver.Exists(ctx, organizationID)
	if err != nil {
		return err
	}
	if !ok {
		return NewDomainError(CodeInvalidScope, "organization "+organizationID.String()+" cannot be resolved")
	}
	return nil
}
