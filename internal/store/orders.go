package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
	"github.com/safar/b2b-ordering/internal/database"
	"github.com/safar/b2b-ordering/internal/models"
)

type OrderItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Unit caps. Each unit is one order_lines row.
const (
	MaxLineUnits  = 10000
	MaxOrderUnits = 100000
)

// MergeItems sums quantities per product, drops non-positive quantities and
// returns the result ordered by product id. A product whose summed quantity
// exceeds MaxLineUnits yields ErrQuantityTooLarge.
func MergeItems(items []OrderItemRequest) ([]OrderItemRequest, error) {
	totals := make(map[int64]int)
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if item.Quantity > MaxLineUnits-totals[item.ProductID] {
			return nil, database.ErrQuantityTooLarge
		}
		totals[item.ProductID] += item.Quantity
	}

	merged := make([]OrderItemRequest, 0, len(totals))
	for productID, quantity := range totals {
		merged = append(merged, OrderItemRequest{ProductID: productID, Quantity: quantity})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })

	return merged, nil
}

func InsertOrder(ctx context.Context, q database.Querier, userID int64, deliveryDate string, addressID *int64) (*models.Order, error) {
	order := &models.Order{
		UserID:       userID,
		Status:       models.OrderStatusPending,
		DeliveryDate: deliveryDate,
		AddressID:    addressID,
	}

	err := q.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, status, delivery_date, created_at, address_id)
		 VALUES ($1, $2, $3, NOW(), $4)
		 RETURNING id, created_at`,
		userID, int(models.OrderStatusPending), deliveryDate, nullInt64(addressID)).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	return order, nil
}

// InsertOrderUnits stores one order_lines row per ordered unit.
func InsertOrderUnits(ctx context.Context, q database.Querier, orderID int64, addressID *int64, items []OrderItemRequest) error {
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		_, err := q.ExecContext(ctx,
			`INSERT INTO order_lines (order_id, product_id, address_id, created_at)
			 SELECT $1, $2, $3, NOW()
			 FROM generate_series(1, $4::int)`,
			orderID, item.ProductID, nullInt64(addressID), item.Quantity)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return database.ErrProductNotFound
			}
			return fmt.Errorf("create order lines: %w", err)
		}
	}
	return nil
}

func DeleteOrderLines(ctx context.Context, q database.Querier, orderID int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete order lines: %w", err)
	}
	return nil
}

func CountOrderLines(ctx context.Context, q database.Querier, orderID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_lines WHERE order_id = $1`, orderID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count order lines: %w", err)
	}
	return n, nil
}

// LockOrder reads the order row and holds a row lock until tx ends.
func LockOrder(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	order := &models.Order{}
	var addressID sql.NullInt64

	err := tx.QueryRowContext(ctx,
		`SELECT id, user_id, status, delivery_date, created_at, address_id
		 FROM orders
		 WHERE id = $1
		 FOR UPDATE`,
		id).Scan(&order.ID, &order.UserID, &order.Status, &order.DeliveryDate, &order.CreatedAt, &addressID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	order.AddressID = int64Ptr(addressID)

	return order, nil
}

// UpdateOrderDetails replaces delivery date and address while the order is
// still in expected status. Status itself is never written here.
func UpdateOrderDetails(ctx context.Context, q database.Querier, id int64, expected models.OrderStatus, deliveryDate string, addressID *int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE orders
		 SET delivery_date = $1, address_id = $2
		 WHERE id = $3 AND status = $4`,
		deliveryDate, nullInt64(addressID), id, int(expected))
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	return expectOneRow(result)
}

// TransitionOrderStatus moves an order from one status to the next, guarded
// on the current status.
func TransitionOrderStatus(ctx context.Context, q database.Querier, id int64, from, to models.OrderStatus) error {
	result, err := q.ExecContext(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`,
		int(to), id, int(from))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return expectOneRow(result)
}

func DeleteOrder(ctx context.Context, q database.Querier, id int64, expected models.OrderStatus) error {
	if err := DeleteOrderLines(ctx, q, id); err != nil {
		return err
	}

	result, err := q.ExecContext(ctx,
		`DELETE FROM orders WHERE id = $1 AND status = $2`,
		id, int(expected))
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrConcurrentUpdate
	}
	return nil
}

// OrderRequirements aggregates an order's unit rows into per-product counts.
func OrderRequirements(ctx context.Context, q database.Querier, orderID int64) (map[int64]int, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT product_id, COUNT(*)
		 FROM order_lines
		 WHERE order_id = $1
		 GROUP BY product_id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("aggregate order lines: %w", err)
	}
	defer rows.Close()

	required := make(map[int64]int)
	for rows.Next() {
		var productID int64
		var count int
		if err := rows.Scan(&productID, &count); err != nil {
			return nil, fmt.Errorf("scan order requirement: %w", err)
		}
		required[productID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return required, nil
}

// OrderFilter selects which orders ListOrders returns. Set fields are
// combined with AND; at least one is required.
type OrderFilter struct {
	OrderID       *int64
	UserID        *int64
	CompanyID     *int64
	SalespersonID *int64
	Status        *models.OrderStatus
}

const orderSelect = `
	SELECT o.id, o.user_id, o.status, o.delivery_date, o.created_at, o.address_id,
	       a.street, a.city, a.postal_code, a.country, a.additional_info
	FROM orders o
	JOIN users u ON u.id = o.user_id
	LEFT JOIN companies c ON c.id = u.company_id
	LEFT JOIN delivery_addresses a ON a.id = o.address_id`

// ListOrders returns matching orders, newest first, with their address and
// aggregated lines.
func ListOrders(ctx context.Context, q database.Querier, filter OrderFilter) ([]models.Order, error) {
	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.OrderID != nil {
		add("o.id = $%d", *filter.OrderID)
	}
	if filter.UserID != nil {
		add("o.user_id = $%d", *filter.UserID)
	}
	if filter.CompanyID != nil {
		add("u.company_id = $%d", *filter.CompanyID)
	}
	if filter.SalespersonID != nil {
		add("c.salesperson_id = $%d", *filter.SalespersonID)
	}
	if filter.Status != nil {
		add("o.status = $%d", int(*filter.Status))
	}
	if len(conds) == 0 {
		return nil, fmt.Errorf("list orders: empty filter")
	}

	query := orderSelect + "\n\tWHERE " + strings.Join(conds, " AND ") + "\n\tORDER BY o.created_at DESC, o.id DESC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		var addressID sql.NullInt64
		var street, city, postalCode, country, info sql.NullString

		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.Status,
			&order.DeliveryDate,
			&order.CreatedAt,
			&addressID,
			&street,
			&city,
			&postalCode,
			&country,
			&info,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}

		order.AddressID = int64Ptr(addressID)
		if addressID.Valid {
			order.Address = &models.DeliveryAddress{
				ID:         addressID.Int64,
				Street:     street.String,
				City:       city.String,
				PostalCode: postalCode.String,
				Country:    country.String,
			}
			if info.Valid {
				order.Address.AdditionalInfo = &info.String
			}
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := attachLines(ctx, q, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

func GetOrder(ctx context.Context, q database.Querier, id int64) (*models.Order, error) {
	orders, err := ListOrders(ctx, q, OrderFilter{OrderID: &id})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, database.ErrOrderNotFound
	}
	return &orders[0], nil
}

func attachLines(ctx context.Context, q database.Querier, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, order := range orders {
		ids[i] = order.ID
		index[order.ID] = i
	}

	rows, err := q.QueryContext(ctx,
		`SELECT ol.order_id, p.id, p.name, p.price, COUNT(*)
		 FROM order_lines ol
		 JOIN products p ON p.id = ol.product_id
		 WHERE ol.order_id = ANY($1)
		 GROUP BY ol.order_id, p.id, p.name, p.price
		 ORDER BY ol.order_id, p.id`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("get order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID int64
		var line models.OrderLine
		if err := rows.Scan(&orderID, &line.ProductID, &line.ProductName, &line.UnitPrice, &line.Quantity); err != nil {
			return fmt.Errorf("scan order line: %w", err)
		}
		i := index[orderID]
		orders[i].Lines = append(orders[i].Lines, line)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	return nil
}
