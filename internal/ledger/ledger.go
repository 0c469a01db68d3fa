// Package ledger decrements stock for an order being shipped. Quantities are
// checked up front and every decrement is conditional on the stock still
// being there, so concurrent shipments can never take a product negative.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/safar/b2b-ordering/internal/database"
	"github.com/safar/b2b-ordering/internal/logging"
	"github.com/safar/b2b-ordering/internal/models"
	"github.com/safar/b2b-ordering/internal/store"
)

// Result of a shipment decrement. OK false with no shortfalls means a
// concurrent writer consumed stock between the check and the write.
type Result struct {
	OK         bool
	Shortfalls []string
}

func (r Result) Conflict() bool {
	return !r.OK && len(r.Shortfalls) == 0
}

// Ledger owns its transactions; see ApplyShipmentDecrementTx for the
// caller-transaction variant.
type Ledger struct {
	db   *sql.DB
	opts database.TxOptions
}

func New(db *sql.DB, opts database.TxOptions) *Ledger {
	return &Ledger{db: db, opts: opts}
}

var errRaced = errors.New("stock consumed concurrently")

// ApplyShipmentDecrement runs the pre-flight check against committed stock,
// then applies all decrements in its own transaction. Order shipping uses
// ApplyShipmentDecrementTx instead so the status change commits with it.
func (l *Ledger) ApplyShipmentDecrement(ctx context.Context, orderID int64) (Result, error) {
	required, err := store.OrderRequirements(ctx, l.db, orderID)
	if err != nil {
		return Result{}, err
	}

	shortfalls, err := checkStock(ctx, l.db, required)
	if err != nil {
		return Result{}, err
	}
	if len(shortfalls) > 0 {
		logShortfalls(orderID, shortfalls)
		return Result{Shortfalls: shortfalls}, nil
	}

	err = database.WithRetry(ctx, l.db, l.opts, func(tx *sql.Tx) error {
		return decrementAll(ctx, tx, required)
	})
	if errors.Is(err, errRaced) {
		logging.Warn("ledger.conflict", map[string]interface{}{"order_id": orderID})
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}

	return Result{OK: true}, nil
}

// ApplyShipmentDecrementTx does the same work inside tx so the caller can
// commit it together with the order's status change. When OK is false every
// decrement made here has already been undone; tx itself stays usable.
func ApplyShipmentDecrementTx(ctx context.Context, tx *sql.Tx, orderID int64) (Result, error) {
	required, err := store.OrderRequirements(ctx, tx, orderID)
	if err != nil {
		return Result{}, err
	}

	shortfalls, err := checkStock(ctx, tx, required)
	if err != nil {
		return Result{}, err
	}
	if len(shortfalls) > 0 {
		logShortfalls(orderID, shortfalls)
		return Result{Shortfalls: shortfalls}, nil
	}

	if _, err := tx.ExecContext(ctx, `SAVEPOINT stock_decrement`); err != nil {
		return Result{}, fmt.Errorf("savepoint: %w", err)
	}

	err = decrementAll(ctx, tx, required)
	if errors.Is(err, errRaced) {
		if _, rbErr := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT stock_decrement`); rbErr != nil {
			return Result{}, fmt.Errorf("rollback to savepoint: %w", rbErr)
		}
		logging.Warn("ledger.conflict", map[string]interface{}{"order_id": orderID})
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}

	if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT stock_decrement`); err != nil {
		return Result{}, fmt.Errorf("release savepoint: %w", err)
	}

	return Result{OK: true}, nil
}

func checkStock(ctx context.Context, q database.Querier, required map[int64]int) ([]string, error) {
	levels, err := store.StockLevels(ctx, q, productIDs(required))
	if err != nil {
		return nil, err
	}
	return Shortfalls(required, levels), nil
}

// Shortfalls lists, in product id order, every product whose required units
// exceed what is on hand. A product missing from levels has nothing on hand.
func Shortfalls(required map[int64]int, levels map[int64]models.Product) []string {
	var shortfalls []string
	for _, id := range productIDs(required) {
		product, ok := levels[id]
		if ok && required[id] <= product.Quantity {
			continue
		}
		name := product.Name
		if name == "" {
			name = fmt.Sprintf("product #%d", id)
		}
		shortfalls = append(shortfalls, name)
	}
	return shortfalls
}

// decrementAll walks products in id order so two shipments sharing products
// take row locks in the same sequence.
func decrementAll(ctx context.Context, q database.Querier, required map[int64]int) error {
	for _, id := range productIDs(required) {
		err := store.DecrementStock(ctx, q, id, required[id])
		if errors.Is(err, database.ErrInsufficientStock) {
			return errRaced
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func productIDs(required map[int64]int) []int64 {
	ids := make([]int64, 0, len(required))
	for id := range required {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func logShortfalls(orderID int64, shortfalls []string) {
	logging.Warn("ledger.shortfall", map[string]interface{}{
		"order_id":   orderID,
		"shortfalls": shortfalls,
	})
}
