package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/safar/b2b-ordering/internal/database"
	"github.com/safar/b2b-ordering/internal/models"
)

const DefaultCountry = "France"

type AddressInput struct {
	Street         string `json:"street"`
	City           string `json:"city"`
	PostalCode     string `json:"postal_code"`
	Country        string `json:"country"`
	AdditionalInfo string `json:"additional_info"`
}

// IsBlank reports whether no field carries any text.
func (in AddressInput) IsBlank() bool {
	return strings.TrimSpace(in.Street) == "" &&
		strings.TrimSpace(in.City) == "" &&
		strings.TrimSpace(in.PostalCode) == "" &&
		strings.TrimSpace(in.Country) == "" &&
		strings.TrimSpace(in.AdditionalInfo) == ""
}

// NormalizeAddress trims every field, defaults the country and turns a blank
// additional info into nil. Street, city and postal code are required.
func NormalizeAddress(in AddressInput) (models.DeliveryAddress, error) {
	addr := models.DeliveryAddress{
		Street:     strings.TrimSpace(in.Street),
		City:       strings.TrimSpace(in.City),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Country:    strings.TrimSpace(in.Country),
	}
	if addr.Street == "" || addr.City == "" || addr.PostalCode == "" {
		return models.DeliveryAddress{}, database.ErrAddressIncomplete
	}
	if addr.Country == "" {
		addr.Country = DefaultCountry
	}
	if info := strings.TrimSpace(in.AdditionalInfo); info != "" {
		addr.AdditionalInfo = &info
	}
	return addr, nil
}

const findAddressSQL = `SELECT id
 FROM delivery_addresses
 WHERE lower(street) = lower($1)
   AND lower(city) = lower($2)
   AND lower(postal_code) = lower($3)
   AND lower(country) = lower($4)
   AND ((additional_info IS NULL AND $5::text IS NULL)
        OR lower(additional_info) = lower($5::text))
 ORDER BY id
 LIMIT 1`

// FindOrCreateAddress returns the id of a stored address equal to in after
// normalisation (case-insensitive), inserting one when none exists. Two
// concurrent calls for the same new address can both insert. Stored fields
// are already trimmed, so the lookup compares lower() only and can use
// idx_delivery_addresses_lookup.
func FindOrCreateAddress(ctx context.Context, q database.Querier, in AddressInput) (int64, error) {
	addr, err := NormalizeAddress(in)
	if err != nil {
		return 0, err
	}

	var info sql.NullString
	if addr.AdditionalInfo != nil {
		info = sql.NullString{String: *addr.AdditionalInfo, Valid: true}
	}

	var id int64
	err = q.QueryRowContext(ctx, findAddressSQL,
		addr.Street, addr.City, addr.PostalCode, addr.Country, info).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("find address: %w", err)
	}

	err = q.QueryRowContext(ctx,
		`INSERT INTO delivery_addresses (street, city, postal_code, country, additional_info)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		addr.Street, addr.City, addr.PostalCode, addr.Country, info).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create address: %w", err)
	}

	return id, nil
}

func CountAddresses(ctx context.Context, q database.Querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM delivery_addresses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count addresses: %w", err)
	}
	return n, nil
}
