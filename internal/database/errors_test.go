package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassPermanent},
		{"serialization", &pq.Error{Code: "40001"}, ErrorClassSerialization},
		{"deadlock", &pq.Error{Code: "40P01"}, ErrorClassDeadlock},
		{"lock not available", &pq.Error{Code: "55P03"}, ErrorClassTransient},
		{"unique violation", &pq.Error{Code: "23505"}, ErrorClassPermanent},
		{"connection failure", &pq.Error{Code: "08006"}, ErrorClassUnavailable},
		{"too many connections", &pq.Error{Code: "53300"}, ErrorClassUnavailable},
		{"wrapped deadlock", fmt.Errorf("decrement: %w", &pq.Error{Code: "40P01"}), ErrorClassDeadlock},
		{"no rows", sql.ErrNoRows, ErrorClassPermanent},
		{"conn done", sql.ErrConnDone, ErrorClassUnavailable},
		{"deadline", context.DeadlineExceeded, ErrorClassUnavailable},
		{"plain", errors.New("boom"), ErrorClassPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, IsRetryable(&pq.Error{Code: "40P01"}))
	assert.False(t, IsRetryable(&pq.Error{Code: "23503"}))
	assert.False(t, IsRetryable(ErrOrderNotFound))
}

func TestIsDataException(t *testing.T) {
	assert.True(t, IsDataException(fmt.Errorf("insert: %w", &pq.Error{Code: "22003"})))
	assert.True(t, IsDataException(&pq.Error{Code: "22P02"}))
	assert.False(t, IsDataException(&pq.Error{Code: "23503"}))
	assert.False(t, IsDataException(errors.New("x")))
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23503"})))
	assert.False(t, IsForeignKeyViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsForeignKeyViolation(errors.New("x")))
}
