// Package orders owns the order lifecycle: creation, modification, deletion,
// validation and shipment, plus role-scoped reads. Every mutation runs in a
// single transaction and reports failures as *Error.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/b2b-ordering/internal/database"
	"github.com/safar/b2b-ordering/internal/ledger"
	"github.com/safar/b2b-ordering/internal/logging"
	"github.com/safar/b2b-ordering/internal/models"
	"github.com/safar/b2b-ordering/internal/permissions"
	"github.com/safar/b2b-ordering/internal/store"
)

type CreateOrderRequest struct {
	// OwnerID is the client the order is placed for. Clients may leave it
	// zero; salespeople must name a client in their scope.
	OwnerID      int64
	DeliveryDate string
	Address      *store.AddressInput
	Items        []store.OrderItemRequest
}

type ModifyOrderRequest struct {
	DeliveryDate string
	Address      *store.AddressInput
	Items        []store.OrderItemRequest
}

type Service struct {
	db     *sql.DB
	txOpts database.TxOptions
}

func NewService(db *sql.DB, txOpts database.TxOptions) *Service {
	return &Service{db: db, txOpts: txOpts}
}

func (s *Service) CreateOrder(ctx context.Context, user models.CurrentUser, req CreateOrderRequest) (int64, error) {
	if !permissions.CanCreate(user.Role) {
		return 0, denied("%s may not place orders", user.Role)
	}

	deliveryDate, items, err := validateDetails(req.DeliveryDate, req.Items)
	if err != nil {
		return 0, err
	}

	var orderID int64
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		ownerID, err := resolveOwner(ctx, tx, user, req.OwnerID)
		if err != nil {
			return err
		}

		if err := checkProducts(ctx, tx, items); err != nil {
			return err
		}

		addressID, err := resolveAddress(ctx, tx, req.Address)
		if err != nil {
			return err
		}

		order, err := store.InsertOrder(ctx, tx, ownerID, deliveryDate, addressID)
		if err != nil {
			return err
		}

		if err := store.InsertOrderUnits(ctx, tx, order.ID, addressID, items); err != nil {
			return err
		}

		orderID = order.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	logging.Info("order.created", map[string]interface{}{
		"order_id": orderID,
		"user_id":  user.ID,
		"role":     user.Role.String(),
		"units":    unitCount(items),
	})

	return orderID, nil
}

// ModifyOrder replaces delivery date, address and lines. The order keeps its
// status; lines are deleted and reinserted rather than diffed.
func (s *Service) ModifyOrder(ctx context.Context, user models.CurrentUser, orderID int64, req ModifyOrderRequest) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		order, err := s.authorize(ctx, tx, user, orderID, permissions.ActionModify)
		if err != nil {
			return err
		}

		deliveryDate, items, err := validateDetails(req.DeliveryDate, req.Items)
		if err != nil {
			return err
		}

		if err := checkProducts(ctx, tx, items); err != nil {
			return err
		}

		addressID, err := resolveAddress(ctx, tx, req.Address)
		if err != nil {
			return err
		}

		if err := store.UpdateOrderDetails(ctx, tx, order.ID, order.Status, deliveryDate, addressID); err != nil {
			return err
		}

		if err := store.DeleteOrderLines(ctx, tx, order.ID); err != nil {
			return err
		}

		return store.InsertOrderUnits(ctx, tx, order.ID, addressID, items)
	})
	if err != nil {
		return err
	}

	logging.Info("order.modified", map[string]interface{}{"order_id": orderID, "user_id": user.ID})
	return nil
}

func (s *Service) DeleteOrder(ctx context.Context, user models.CurrentUser, orderID int64) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		order, err := s.authorize(ctx, tx, user, orderID, permissions.ActionDelete)
		if err != nil {
			return err
		}
		return store.DeleteOrder(ctx, tx, order.ID, order.Status)
	})
	if err != nil {
		return err
	}

	logging.Info("order.deleted", map[string]interface{}{"order_id": orderID, "user_id": user.ID})
	return nil
}

func (s *Service) ValidateOrder(ctx context.Context, user models.CurrentUser, orderID int64) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		order, err := s.authorize(ctx, tx, user, orderID, permissions.ActionValidate)
		if err != nil {
			return err
		}
		return advance(ctx, tx, order)
	})
	if err != nil {
		return err
	}

	logging.Info("order.validated", map[string]interface{}{"order_id": orderID, "user_id": user.ID})
	return nil
}

// SendOrder ships a validated order. Stock is decremented in the same
// transaction as the status change; on shortfall nothing is written.
func (s *Service) SendOrder(ctx context.Context, user models.CurrentUser, orderID int64) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		order, err := s.authorize(ctx, tx, user, orderID, permissions.ActionSend)
		if err != nil {
			return err
		}

		result, err := ledger.ApplyShipmentDecrementTx(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if len(result.Shortfalls) > 0 {
			return insufficientStock(result.Shortfalls)
		}
		if !result.OK {
			return conflict("stock changed while the order was being shipped", nil)
		}

		return advance(ctx, tx, order)
	})
	if err != nil {
		return err
	}

	logging.Info("order.shipped", map[string]interface{}{"order_id": orderID, "user_id": user.ID})
	return nil
}

// authorize locks the order, then checks caller scope and the permission
// matrix against its current status.
func (s *Service) authorize(ctx context.Context, tx *sql.Tx, user models.CurrentUser, orderID int64, action permissions.Action) (*models.Order, error) {
	if !user.Role.Valid() {
		return nil, denied("unknown role")
	}

	order, err := store.LockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if err := checkScope(ctx, tx, user, order.UserID); err != nil {
		return nil, err
	}

	if !permissions.CanPerform(user.Role, order.Status, action) {
		return nil, denied("%s may not %s a %s order", user.Role, action, order.Status)
	}

	return order, nil
}

// checkScope: clients act on their own orders, salespeople on orders of
// clients whose company is assigned to them, logistics on any order.
func checkScope(ctx context.Context, q database.Querier, user models.CurrentUser, ownerID int64) error {
	switch user.Role {
	case models.RoleClient:
		if ownerID != user.ID {
			return denied("order belongs to another user")
		}
		return nil
	case models.RoleSalesperson:
		salesperson, err := store.SalespersonForUser(ctx, q, ownerID)
		if err != nil {
			return err
		}
		if salesperson == nil || *salesperson != user.ID {
			return denied("order is outside the salesperson's companies")
		}
		return nil
	case models.RoleLogistics:
		return nil
	}
	return denied("unknown role")
}

func resolveOwner(ctx context.Context, q database.Querier, user models.CurrentUser, requested int64) (int64, error) {
	switch user.Role {
	case models.RoleClient:
		if requested != 0 && requested != user.ID {
			return 0, denied("clients may only order for themselves")
		}
		return user.ID, nil
	case models.RoleSalesperson:
		if requested == 0 {
			return 0, invalid("owner is required when a salesperson places an order", nil)
		}
		owner, err := store.GetUser(ctx, q, requested)
		if err != nil {
			return 0, err
		}
		if owner.Role != models.RoleClient {
			return 0, invalid("orders can only be placed for clients", nil)
		}
		if err := checkScope(ctx, q, user, owner.ID); err != nil {
			return 0, err
		}
		return owner.ID, nil
	case models.RoleLogistics:
		return 0, denied("logistics may not place orders")
	}
	return 0, denied("unknown role")
}

func advance(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	next, ok := order.Status.Next()
	if !ok {
		return denied("order is already %s", order.Status)
	}
	return store.TransitionOrderStatus(ctx, tx, order.ID, order.Status, next)
}

// validateDetails trims the delivery date and merges items; it fails when
// either is missing.
func validateDetails(deliveryDate string, items []store.OrderItemRequest) (string, []store.OrderItemRequest, error) {
	deliveryDate = strings.TrimSpace(deliveryDate)
	if deliveryDate == "" {
		return "", nil, invalid("delivery date is required", nil)
	}

	merged, err := store.MergeItems(items)
	if err != nil {
		return "", nil, invalid(fmt.Sprintf("a line may hold at most %d units", store.MaxLineUnits), err)
	}
	if len(merged) == 0 {
		return "", nil, invalid("at least one line with a positive quantity is required", nil)
	}

	units := 0
	for _, item := range merged {
		if item.Quantity <= 0 {
			return "", nil, invalid("line quantities must be positive", nil)
		}
		units += item.Quantity
	}
	if units > store.MaxOrderUnits {
		return "", nil, invalid(fmt.Sprintf("an order may hold at most %d units", store.MaxOrderUnits), database.ErrQuantityTooLarge)
	}

	return deliveryDate, merged, nil
}

func checkProducts(ctx context.Context, q database.Querier, items []store.OrderItemRequest) error {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	missing, err := store.MissingProducts(ctx, q, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return notFound(fmt.Sprintf("unknown product %d", missing[0]), database.ErrProductNotFound)
	}
	return nil
}

// resolveAddress returns nil for an absent or entirely blank address.
func resolveAddress(ctx context.Context, q database.Querier, in *store.AddressInput) (*int64, error) {
	if in == nil || in.IsBlank() {
		return nil, nil
	}

	id, err := store.FindOrCreateAddress(ctx, q, *in)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func unitCount(items []store.OrderItemRequest) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

func (s *Service) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return translate(database.WithRetry(ctx, s.db, s.txOpts, fn))
}

// translate maps store and infrastructure failures onto the error kinds.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	switch {
	case errors.Is(err, database.ErrOrderNotFound):
		return notFound("order not found", err)
	case errors.Is(err, database.ErrProductNotFound):
		return notFound("product not found", err)
	case errors.Is(err, database.ErrUserNotFound):
		return notFound("user not found", err)
	case errors.Is(err, database.ErrCompanyNotFound):
		return notFound("company not found", err)
	case errors.Is(err, database.ErrAddressIncomplete):
		return invalid("delivery address requires street, city and postal code", err)
	case errors.Is(err, database.ErrConcurrentUpdate):
		return conflict("order changed concurrently", err)
	case errors.Is(err, database.ErrQuantityTooLarge):
		return invalid("quantity too large", err)
	case database.IsDataException(err):
		return invalid("value out of range", err)
	}

	switch database.ClassifyError(err) {
	case database.ErrorClassDeadlock, database.ErrorClassSerialization, database.ErrorClassTransient:
		return conflict("transaction could not be serialized", err)
	case database.ErrorClassUnavailable:
		logging.Error("order.store_unavailable", map[string]interface{}{"error": err.Error()})
		return unavailable("order store unavailable", err)
	}

	logging.Error("order.internal_failure", map[string]interface{}{"error": err.Error()})
	return internal("internal failure", err)
}
