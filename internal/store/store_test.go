package store

import (
	"math"
	"testing"

	"github.com/safar/b2b-ordering/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	addr, err := NormalizeAddress(AddressInput{
		Street:     "  12 rue de la Paix ",
		City:       "Paris ",
		PostalCode: " 75002",
	})
	require.NoError(t, err)
	assert.Equal(t, "12 rue de la Paix", addr.Street)
	assert.Equal(t, "Paris", addr.City)
	assert.Equal(t, "75002", addr.PostalCode)
	assert.Equal(t, DefaultCountry, addr.Country)
	assert.Nil(t, addr.AdditionalInfo, "blank additional info is absent")

	addr, err = NormalizeAddress(AddressInput{
		Street:         "1 Main St",
		City:           "Lyon",
		PostalCode:     "69001",
		Country:        " Belgique ",
		AdditionalInfo: " Bât. B ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Belgique", addr.Country)
	require.NotNil(t, addr.AdditionalInfo)
	assert.Equal(t, "Bât. B", *addr.AdditionalInfo)
}

func TestNormalizeAddressRequiresStreetCityPostalCode(t *testing.T) {
	tests := []AddressInput{
		{Street: " ", City: "Paris", PostalCode: "75001"},
		{Street: "1 rue", City: "", PostalCode: "75001"},
		{Street: "1 rue", City: "Paris", PostalCode: "\t"},
	}

	for _, in := range tests {
		_, err := NormalizeAddress(in)
		assert.ErrorIs(t, err, database.ErrAddressIncomplete, "%+v", in)
	}
}

func TestAddressInputIsBlank(t *testing.T) {
	assert.True(t, AddressInput{}.IsBlank())
	assert.True(t, AddressInput{Street: "  ", Country: " "}.IsBlank())
	assert.False(t, AddressInput{City: "Nantes"}.IsBlank())
}

func TestMergeItems(t *testing.T) {
	merged, err := MergeItems([]OrderItemRequest{
		{ProductID: 9, Quantity: 1},
		{ProductID: 2, Quantity: 2},
		{ProductID: 9, Quantity: 3},
		{ProductID: 4, Quantity: 0},
		{ProductID: 5, Quantity: -2},
	})

	require.NoError(t, err)
	assert.Equal(t, []OrderItemRequest{
		{ProductID: 2, Quantity: 2},
		{ProductID: 9, Quantity: 4},
	}, merged)

	merged, err = MergeItems([]OrderItemRequest{{ProductID: 1, Quantity: 0}})
	require.NoError(t, err)
	assert.Empty(t, merged)

	merged, err = MergeItems(nil)
	require.NoError(t, err)
	assert.Empty(t, merged)
}

func TestMergeItemsRejectsOversizedLines(t *testing.T) {
	tests := []struct {
		name  string
		items []OrderItemRequest
	}{
		{"sum wraps around", []OrderItemRequest{{ProductID: 1, Quantity: math.MaxInt}, {ProductID: 1, Quantity: math.MaxInt}}},
		{"single line above cap", []OrderItemRequest{{ProductID: 1, Quantity: MaxLineUnits + 1}}},
		{"merged lines above cap", []OrderItemRequest{{ProductID: 1, Quantity: MaxLineUnits}, {ProductID: 1, Quantity: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, err := MergeItems(tt.items)
			assert.ErrorIs(t, err, database.ErrQuantityTooLarge)
			assert.Nil(t, merged)
		})
	}

	merged, err := MergeItems([]OrderItemRequest{{ProductID: 1, Quantity: MaxLineUnits - 1}, {ProductID: 1, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, []OrderItemRequest{{ProductID: 1, Quantity: MaxLineUnits}}, merged)
}

func TestNewOffsetPage(t *testing.T) {
	page := NewOffsetPage([]int{1, 2}, 41, 3, 20)
	assert.Equal(t, 3, page.TotalPages)

	page = NewOffsetPage(nil, 40, 1, 20)
	assert.Equal(t, 2, page.TotalPages)

	page = NewOffsetPage(nil, 0, 1, 20)
	assert.Equal(t, 0, page.TotalPages)
}

func TestClampPage(t *testing.T) {
	page, size := ClampPage(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)

	page, size = ClampPage(4, 500)
	assert.Equal(t, 4, page)
	assert.Equal(t, 20, size)

	page, size = ClampPage(2, 50)
	assert.Equal(t, 2, page)
	assert.Equal(t, 50, size)
}
