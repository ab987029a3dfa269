// internal/services/policy.go
package services

import (
	"github.com/google/uuid"

	"github.com/ecobazar/marketplace-backend/internal/config"
	"github.com/ecobazar/marketplace-backend/internal/errs"
	"github.com/ecobazar/marketplace-backend/internal/models"
)

type Action string

const (
	ActionOrderAdvance   Action = "order.advance"
	ActionOrderCancel    Action = "order.cancel"
	ActionOrderView      Action = "order.view"
	ActionReviewModerate Action = "review.moderate"
	ActionCategoryManage Action = "category.manage"
	ActionUserAdminister Action = "user.administer"
)

// Actor is the authenticated principal an operation runs as.
type Actor struct {
	ID   uuid.UUID
	Role models.UserRole
}

// Policy is the single authorization step every domain entry point
// calls. The role sets come from configuration, not per-request
// inference.
type Policy struct {
	operatorRoles  map[models.UserRole]bool
	moderatorRoles map[models.UserRole]bool
}

func NewPolicy(cfg config.PolicyConfig) *Policy {
	p := &Policy{
		operatorRoles:  make(map[models.UserRole]bool),
		moderatorRoles: make(map[models.UserRole]bool),
	}
	for _, r := range cfg.OrderOperatorRoles {
		p.operatorRoles[models.UserRole(r)] = true
	}
	for _, r := range cfg.ModeratorRoles {
		p.moderatorRoles[models.UserRole(r)] = true
	}
	return p
}

// Authorize evaluates (actor, action, resource) and returns a Forbidden
// error when the actor lacks authority. resource is the entity the
// action targets; order actions expect *models.Order.
func (p *Policy) Authorize(actor Actor, action Action, resource interface{}) error {
	switch action {
	case ActionOrderAdvance:
		if p.operatorRoles[actor.Role] {
			return nil
		}
		return errs.Forbidden("only fulfillment operators may advance order status")

	case ActionOrderCancel:
		if p.operatorRoles[actor.Role] {
			return nil
		}
		if order, ok := resource.(*models.Order); ok && order.UserID == actor.ID {
			return nil
		}
		return errs.Forbidden("order does not belong to user")

	case ActionOrderView:
		if p.operatorRoles[actor.Role] {
			return nil
		}
		if order, ok := resource.(*models.Order); ok && order.UserID == actor.ID {
			return nil
		}
		return errs.Forbidden("order does not belong to user")

	case ActionReviewModerate:
		if p.moderatorRoles[actor.Role] {
			return nil
		}
		return errs.Forbidden("moderator role required")

	case ActionCategoryManage, ActionUserAdminister:
		if actor.Role == models.UserRoleAdmin {
			return nil
		}
		return errs.Forbidden("administrator role required")
	}

	return errs.Forbidden("action %q is not permitted", action)
}

func (p *Policy) IsOperator(role models.UserRole) bool {
	return p.operatorRoles[role]
}
