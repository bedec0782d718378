package database

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("failed to create user: %w", &pq.Error{Code: "23505", Constraint: "idx_users_email"})

	if !IsUniqueViolation(err, "") {
		t.Error("expected unique violation without constraint filter")
	}
	if !IsUniqueViolation(err, "idx_users_email") {
		t.Error("expected unique violation for matching constraint")
	}
	if IsUniqueViolation(err, "other_constraint") {
		t.Error("expected false for different constraint")
	}
	if IsUniqueViolation(errors.New("plain"), "") {
		t.Error("expected false for non-pq error")
	}
}

func TestIsExclusionViolation(t *testing.T) {
	err := &pq.Error{Code: "23P01", Constraint: "rentals_no_overlap"}
	if !IsExclusionViolation(err, "rentals_no_overlap") {
		t.Error("expected exclusion violation")
	}
	if IsUniqueViolation(err, "") {
		t.Error("exclusion violation must not be reported as unique violation")
	}
}

func TestIsCheckViolation(t *testing.T) {
	if !IsCheckViolation(&pq.Error{Code: "23514", Constraint: "rentals_dates_check"}, "rentals_dates_check") {
		t.Error("expected check violation")
	}
}

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", fmt.Errorf("query: %w", driver.ErrBadConn), true},
		{"net error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, true},
		{"connection exception", &pq.Error{Code: "08006"}, true},
		{"admin shutdown", &pq.Error{Code: "57P01"}, true},
		{"unique violation", &pq.Error{Code: "23505"}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnavailable(tt.err); got != tt.want {
				t.Errorf("IsUnavailable() = %v, want %v", got, tt.want)
			}
		})
	}
}
