package orders

import (
	"context"
	"database/sql"

	"github.com/safar/b2b-ordering/internal/database"
	"github.com/safar/b2b-ordering/internal/models"
	"github.com/safar/b2b-ordering/internal/store"
)

// visibility returns the filter for orders user may read, or false when the
// role sees nothing.
func visibility(user models.CurrentUser) (store.OrderFilter, bool) {
	switch user.Role {
	case models.RoleClient:
		if user.CompanyID != nil {
			companyID := *user.CompanyID
			return store.OrderFilter{CompanyID: &companyID}, true
		}
		userID := user.ID
		return store.OrderFilter{UserID: &userID}, true
	case models.RoleSalesperson:
		salespersonID := user.ID
		return store.OrderFilter{SalespersonID: &salespersonID}, true
	case models.RoleLogistics:
		validated := models.OrderStatusValidated
		return store.OrderFilter{Status: &validated}, true
	}
	return store.OrderFilter{}, false
}

// ListOrders returns the orders visible to user with lines and address
// attached. Clients see their whole company's orders.
func (s *Service) ListOrders(ctx context.Context, user models.CurrentUser) ([]models.Order, error) {
	filter, ok := visibility(user)
	if !ok {
		return []models.Order{}, nil
	}

	return s.readOrders(ctx, filter)
}

// GetOrder returns one order if user may see it; otherwise NotFound.
func (s *Service) GetOrder(ctx context.Context, user models.CurrentUser, orderID int64) (*models.Order, error) {
	filter, ok := visibility(user)
	if !ok {
		return nil, notFound("order not found", nil)
	}
	filter.OrderID = &orderID

	orders, err := s.readOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, notFound("order not found", nil)
	}
	return &orders[0], nil
}

// readOrders loads headers and lines from one snapshot so a concurrent
// modification cannot pair old headers with new lines.
func (s *Service) readOrders(ctx context.Context, filter store.OrderFilter) ([]models.Order, error) {
	var orders []models.Order
	err := database.WithTransaction(ctx, s.db, database.ReadOnlyTxOptions(), func(tx *sql.Tx) error {
		var err error
		orders, err = store.ListOrders(ctx, tx, filter)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return orders, nil
}

func (s *Service) ListProducts(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	page, pageSize = store.ClampPage(page, pageSize)
	result, err := store.ListProducts(ctx, s.db, page, pageSize)
	if err != nil {
		return nil, translate(err)
	}
	return result, nil
}

func (s *Service) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	product, err := store.GetProduct(ctx, s.db, productID)
	if err != nil {
		return nil, translate(err)
	}
	return product, nil
}

// Ping reports whether the backing store answers.
func (s *Service) Ping(ctx context.Context) error {
	if err := database.Ping(ctx, s.db); err != nil {
		return unavailable("order store unavailable", err)
	}
	return nil
}
