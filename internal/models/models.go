package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Role is the closed set of user roles. The numeric values are the codes
// persisted in users.role and carried in auth tokens.
type Role int

const (
	RoleSalesperson Role = 1
	RoleClient      Role = 2
	RoleLogistics   Role = 3
)

func ParseRole(code int) (Role, error) {
	switch r := Role(code); r {
	case RoleSalesperson, RoleClient, RoleLogistics:
		return r, nil
	}
	return 0, fmt.Errorf("unknown role code %d", code)
}

func (r Role) Valid() bool {
	_, err := ParseRole(int(r))
	return err == nil
}

func (r Role) String() string {
	switch r {
	case RoleSalesperson:
		return "salesperson"
	case RoleClient:
		return "client"
	case RoleLogistics:
		return "logistics"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// OrderStatus values keep their historical storage codes. Pending (3) is the
// initial state even though it sorts last; use Next, never numeric order.
type OrderStatus int

const (
	OrderStatusValidated OrderStatus = 1
	OrderStatusShipped   OrderStatus = 2
	OrderStatusPending   OrderStatus = 3
)

func ParseOrderStatus(code int) (OrderStatus, error) {
	switch s := OrderStatus(code); s {
	case OrderStatusPending, OrderStatusValidated, OrderStatusShipped:
		return s, nil
	}
	return 0, fmt.Errorf("unknown order status code %d", code)
}

// Next returns the status that follows s, or false when s is final.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case OrderStatusPending:
		return OrderStatusValidated, true
	case OrderStatusValidated:
		return OrderStatusShipped, true
	}
	return 0, false
}

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "pending"
	case OrderStatusValidated:
		return "validated"
	case OrderStatusShipped:
		return "shipped"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CurrentUser is the authenticated caller handed to every core operation.
type CurrentUser struct {
	ID        int64
	Role      Role
	CompanyID *int64
}

type Company struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	SalespersonID *int64    `json:"salesperson_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CompanyID *int64    `json:"company_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) AsCurrentUser() CurrentUser {
	return CurrentUser{ID: u.ID, Role: u.Role, CompanyID: u.CompanyID}
}

type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type DeliveryAddress struct {
	ID             int64   `json:"id"`
	Street         string  `json:"street"`
	City           string  `json:"city"`
	PostalCode     string  `json:"postal_code"`
	Country        string  `json:"country"`
	AdditionalInfo *string `json:"additional_info,omitempty"`
}

type Order struct {
	ID           int64            `json:"id"`
	UserID       int64            `json:"user_id"`
	Status       OrderStatus      `json:"status"`
	DeliveryDate string           `json:"delivery_date"`
	CreatedAt    time.Time        `json:"created_at"`
	AddressID    *int64           `json:"address_id,omitempty"`
	Address      *DeliveryAddress `json:"address,omitempty"`
	Lines        []OrderLine      `json:"lines,omitempty"`
}

// OrderLine is the read-side aggregate of the unit rows sharing a product.
type OrderLine struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
