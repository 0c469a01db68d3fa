package permissions

import (
	"testing"

	"github.com/safar/b2b-ordering/internal/models"
	"github.com/stretchr/testify/assert"
)

var (
	roles    = []models.Role{models.RoleClient, models.RoleSalesperson, models.RoleLogistics}
	statuses = []models.OrderStatus{models.OrderStatusPending, models.OrderStatusValidated, models.OrderStatusShipped}
)

type cell struct {
	role   models.Role
	status models.OrderStatus
	action Action
}

func allowedCells() map[cell]bool {
	p, v := models.OrderStatusPending, models.OrderStatusValidated
	return map[cell]bool{
		{models.RoleClient, p, ActionModify}: true,
		{models.RoleClient, p, ActionDelete}: true,

		{models.RoleSalesperson, p, ActionModify}:   true,
		{models.RoleSalesperson, v, ActionModify}:   true,
		{models.RoleSalesperson, p, ActionDelete}:   true,
		{models.RoleSalesperson, v, ActionDelete}:   true,
		{models.RoleSalesperson, p, ActionValidate}: true,

		{models.RoleLogistics, v, ActionSend}: true,
	}
}

func TestCanPerformFullGrid(t *testing.T) {
	allowed := allowedCells()
	checked := 0

	for _, role := range roles {
		for _, status := range statuses {
			for _, action := range Actions {
				c := cell{role, status, action}
				got := CanPerform(role, status, action)
				assert.Equal(t, allowed[c], got, "%s / %s / %s", role, status, action)
				checked++
			}
		}
	}

	assert.Equal(t, 36, checked)
}

func TestCanPerformUnknownInputsDeny(t *testing.T) {
	assert.False(t, CanPerform(models.Role(0), models.OrderStatusPending, ActionModify))
	assert.False(t, CanPerform(models.Role(7), models.OrderStatusValidated, ActionSend))
	assert.False(t, CanPerform(models.RoleSalesperson, models.OrderStatusPending, Action(0)))
	assert.False(t, CanPerform(models.RoleSalesperson, models.OrderStatusPending, Action(99)))
	assert.False(t, CanPerform(models.RoleLogistics, models.OrderStatus(0), ActionSend))
}

func TestShippedIsTerminalForEveryone(t *testing.T) {
	for _, role := range roles {
		for _, action := range Actions {
			assert.False(t, CanPerform(role, models.OrderStatusShipped, action), "%s / %s", role, action)
		}
	}
}

func TestCanCreate(t *testing.T) {
	assert.True(t, CanCreate(models.RoleClient))
	assert.True(t, CanCreate(models.RoleSalesperson))
	assert.False(t, CanCreate(models.RoleLogistics))
	assert.False(t, CanCreate(models.Role(0)))
}
