package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusNext(t *testing.T) {
	next, ok := OrderStatusPending.Next()
	require.True(t, ok)
	assert.Equal(t, OrderStatusValidated, next)

	next, ok = OrderStatusValidated.Next()
	require.True(t, ok)
	assert.Equal(t, OrderStatusShipped, next)

	_, ok = OrderStatusShipped.Next()
	assert.False(t, ok, "shipped is final")
}

func TestParseOrderStatus(t *testing.T) {
	for code, want := range map[int]OrderStatus{
		1: OrderStatusValidated,
		2: OrderStatusShipped,
		3: OrderStatusPending,
	} {
		got, err := ParseOrderStatus(code)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseOrderStatus(0)
	assert.Error(t, err)
	_, err = ParseOrderStatus(4)
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		code    int
		want    Role
		wantErr bool
	}{
		{1, RoleSalesperson, false},
		{2, RoleClient, false},
		{3, RoleLogistics, false},
		{0, 0, true},
		{9, 0, true},
	}

	for _, tt := range tests {
		got, err := ParseRole(tt.code)
		if tt.wantErr {
			assert.Error(t, err, "code %d", tt.code)
			assert.False(t, Role(tt.code).Valid())
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.True(t, got.Valid())
	}
}

func TestOrderTotals(t *testing.T) {
	order := &Order{
		Lines: []OrderLine{
			{ProductID: 1, ProductName: "P1", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2},
			{ProductID: 2, ProductName: "P2", UnitPrice: decimal.RequireFromString("5.50"), Quantity: 1},
		},
	}

	totals := order.Totals()
	assert.True(t, totals.Subtotal.Equal(decimal.RequireFromString("25.50")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.VAT.Equal(decimal.RequireFromString("5.10")), "vat %s", totals.VAT)
	assert.True(t, totals.Total.Equal(decimal.RequireFromString("30.60")), "total %s", totals.Total)
	assert.Equal(t, 3, order.UnitCount())
}

func TestOrderStatusJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Status OrderStatus `json:"status"`
	}{OrderStatusPending})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"pending"}`, string(data))
}
