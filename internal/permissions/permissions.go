// Package permissions decides which role may perform which action on an
// order in a given status. Ownership and salesperson scope are checked by
// the caller before consulting the matrix.
package permissions

import (
	"fmt"

	"github.com/safar/b2b-ordering/internal/models"
)

type Action int

const (
	ActionModify Action = iota + 1
	ActionDelete
	ActionValidate
	ActionSend
)

// Actions lists every action known to the matrix.
var Actions = []Action{ActionModify, ActionDelete, ActionValidate, ActionSend}

func (a Action) String() string {
	switch a {
	case ActionModify:
		return "modify"
	case ActionDelete:
		return "delete"
	case ActionValidate:
		return "validate"
	case ActionSend:
		return "send"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// CanPerform reports whether role may apply action to an order in status.
// Unknown roles, statuses or actions are denied.
func CanPerform(role models.Role, status models.OrderStatus, action Action) bool {
	switch role {
	case models.RoleClient:
		switch action {
		case ActionModify, ActionDelete:
			return status == models.OrderStatusPending
		case ActionValidate, ActionSend:
			return false
		}
	case models.RoleSalesperson:
		switch action {
		case ActionModify, ActionDelete:
			return status == models.OrderStatusPending || status == models.OrderStatusValidated
		case ActionValidate:
			return status == models.OrderStatusPending
		case ActionSend:
			return false
		}
	case models.RoleLogistics:
		switch action {
		case ActionSend:
			return status == models.OrderStatusValidated
		case ActionModify, ActionDelete, ActionValidate:
			return false
		}
	}
	return false
}

// CanCreate reports whether role may place orders. Salespeople place them on
// behalf of a client in their scope.
func CanCreate(role models.Role) bool {
	switch role {
	case models.RoleClient, models.RoleSalesperson:
		return true
	case models.RoleLogistics:
		return false
	}
	return false
}
