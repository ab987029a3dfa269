// internal/services/policy_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ecobazar/marketplace-backend/internal/config"
	"github.com/ecobazar/marketplace-backend/internal/errs"
	"github.com/ecobazar/marketplace-backend/internal/models"
)

func TestPolicyOperatorRolesComeFromConfig(t *testing.T) {
	// Warehouse deployments may grant fulfillment to sellers; a stricter
	// setup grants it to admins only.
	strict := NewPolicy(config.PolicyConfig{
		OrderOperatorRoles: []string{"admin"},
		ModeratorRoles:     []string{"admin"},
	})

	seller := Actor{ID: uuid.New(), Role: models.UserRoleSeller}
	err := strict.Authorize(seller, ActionOrderAdvance, nil)
	assert.True(t, errs.IsKind(err, errs.KindForbidden))

	lenient := NewPolicy(config.PolicyConfig{
		OrderOperatorRoles: []string{"admin", "seller"},
		ModeratorRoles:     []string{"admin"},
	})
	assert.NoError(t, lenient.Authorize(seller, ActionOrderAdvance, nil))
}

func TestPolicyCancelAllowsOwner(t *testing.T) {
	p := testPolicy()
	owner := Actor{ID: uuid.New(), Role: models.UserRoleBuyer}
	order := &models.Order{UserID: owner.ID}

	assert.NoError(t, p.Authorize(owner, ActionOrderCancel, order))

	stranger := Actor{ID: uuid.New(), Role: models.UserRoleBuyer}
	err := p.Authorize(stranger, ActionOrderCancel, order)
	assert.True(t, errs.IsKind(err, errs.KindForbidden))
}

func TestPolicyViewAllowsOwnerAndOperators(t *testing.T) {
	p := testPolicy()
	owner := Actor{ID: uuid.New(), Role: models.UserRoleBuyer}
	order := &models.Order{UserID: owner.ID}

	assert.NoError(t, p.Authorize(owner, ActionOrderView, order))
	assert.NoError(t, p.Authorize(Actor{ID: uuid.New(), Role: models.UserRoleAdmin}, ActionOrderView, order))

	err := p.Authorize(Actor{ID: uuid.New(), Role: models.UserRoleBuyer}, ActionOrderView, order)
	assert.True(t, errs.IsKind(err, errs.KindForbidden))
}

func TestPolicyModeration(t *testing.T) {
	p := testPolicy()

	assert.NoError(t, p.Authorize(Actor{ID: uuid.New(), Role: models.UserRoleAdmin}, ActionReviewModerate, nil))

	err := p.Authorize(Actor{ID: uuid.New(), Role: models.UserRoleSeller}, ActionReviewModerate, nil)
	assert.True(t, errs.IsKind(err, errs.KindForbidden))
}

func TestPolicyUnknownActionIsDenied(t *testing.T) {
	p := testPolicy()
	err := p.Authorize(Actor{ID: uuid.New(), Role: models.UserRoleAdmin}, Action("order.refund"), nil)
	assert.True(t, errs.IsKind(err, errs.KindForbidden))
}
