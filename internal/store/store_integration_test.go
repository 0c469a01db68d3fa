package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/safar/b2b-ordering/internal/database"
	"github.com/safar/b2b-ordering/internal/models"
	"github.com/safar/b2b-ordering/internal/store"
	"github.com/safar/b2b-ordering/internal/testutil"
	"github.com/shopspring/decimal"
)

func TestFindOrCreateAddressIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	first, err := store.FindOrCreateAddress(ctx, db, store.AddressInput{
		Street:         "12 Rue de la Paix",
		City:           "Paris",
		PostalCode:     "75002",
		AdditionalInfo: "Porte 3",
	})
	if err != nil {
		t.Fatalf("First find-or-create: %v", err)
	}

	second, err := store.FindOrCreateAddress(ctx, db, store.AddressInput{
		Street:         "  12 RUE DE LA PAIX ",
		City:           "paris",
		PostalCode:     "75002 ",
		Country:        "france",
		AdditionalInfo: " porte 3",
	})
	if err != nil {
		t.Fatalf("Second find-or-create: %v", err)
	}

	if first != second {
		t.Errorf("Expected same address id, got %d and %d", first, second)
	}

	count, err := store.CountAddresses(ctx, db)
	if err != nil {
		t.Fatalf("Count addresses: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 stored address, got %d", count)
	}
}

func TestFindOrCreateAddressDistinguishesAdditionalInfo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	base := store.AddressInput{Street: "3 quai Rambaud", City: "Lyon", PostalCode: "69002"}

	withoutInfo, err := store.FindOrCreateAddress(ctx, db, base)
	if err != nil {
		t.Fatalf("Find-or-create without info: %v", err)
	}

	withInfo := base
	withInfo.AdditionalInfo = "Quai 2"
	infoID, err := store.FindOrCreateAddress(ctx, db, withInfo)
	if err != nil {
		t.Fatalf("Find-or-create with info: %v", err)
	}

	if withoutInfo == infoID {
		t.Error("Addresses differing by additional info must not share a row")
	}

	blankInfo := base
	blankInfo.AdditionalInfo = "   "
	blankID, err := store.FindOrCreateAddress(ctx, db, blankInfo)
	if err != nil {
		t.Fatalf("Find-or-create with blank info: %v", err)
	}
	if blankID != withoutInfo {
		t.Errorf("Blank additional info should match the address without info, got %d want %d", blankID, withoutInfo)
	}
}

func TestFindOrCreateAddressIncomplete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	_, err := store.FindOrCreateAddress(ctx, db, store.AddressInput{Street: "1 rue", City: "  "})
	if err != database.ErrAddressIncomplete {
		t.Errorf("Expected incomplete address error, got: %v", err)
	}

	count, err := store.CountAddresses(ctx, db)
	if err != nil {
		t.Fatalf("Count addresses: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no stored address, got %d", count)
	}
}

func TestDecrementStockGuard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	product, err := store.CreateProduct(ctx, db, "Guarded", decimal.NewFromInt(10), 10)
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	concurrency := 8
	var wg sync.WaitGroup
	results := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.DecrementStock(ctx, db, product.ID, 3)
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		switch err {
		case nil:
			successCount++
		case database.ErrInsufficientStock:
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}

	if successCount != 3 {
		t.Errorf("Expected 3 successful decrements, got %d", successCount)
	}

	after, err := store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if after.Quantity != 1 {
		t.Errorf("Expected remaining stock 1, got %d", after.Quantity)
	}
}

func TestOrderUnitsAggregateIntoLines(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	company, err := store.CreateCompany(ctx, db, "Acme", nil)
	if err != nil {
		t.Fatalf("Create company: %v", err)
	}
	client, err := store.CreateUser(ctx, db, "c@acme.test", "Client", models.RoleClient, &company.ID)
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	p1, err := store.CreateProduct(ctx, db, "P1", decimal.RequireFromString("10.00"), 50)
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	order, err := store.InsertOrder(ctx, db, client.ID, "2026-11-01", nil)
	if err != nil {
		t.Fatalf("Insert order: %v", err)
	}
	if err := store.InsertOrderUnits(ctx, db, order.ID, nil, []store.OrderItemRequest{{ProductID: p1.ID, Quantity: 4}}); err != nil {
		t.Fatalf("Insert units: %v", err)
	}

	units, err := store.CountOrderLines(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Count lines: %v", err)
	}
	if units != 4 {
		t.Errorf("Expected 4 unit rows, got %d", units)
	}

	loaded, err := store.GetOrder(ctx, db, order.ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if len(loaded.Lines) != 1 || loaded.Lines[0].Quantity != 4 {
		t.Errorf("Expected one aggregated line of 4 units, got %+v", loaded.Lines)
	}
	if loaded.Status != models.OrderStatusPending {
		t.Errorf("Expected pending status, got %s", loaded.Status)
	}
}
