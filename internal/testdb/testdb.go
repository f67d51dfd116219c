// Package testdb opens throwaway sqlite databases carrying the marketplace
// schema for service-level tests.
package testdb

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE bookings (
		id INTEGER PRIMARY KEY,
		customer_id INTEGER NOT NULL,
		provider_id INTEGER,
		provider_type TEXT NOT NULL DEFAULT '',
		service_type TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		payment_method TEXT NOT NULL DEFAULT '',
		payment_status TEXT NOT NULL DEFAULT 'unpaid',
		scheduled_at DATETIME NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		coupon_code TEXT NOT NULL DEFAULT '',
		total_discount INTEGER NOT NULL DEFAULT 0,
		subtotal INTEGER NOT NULL DEFAULT 0,
		total_amount INTEGER NOT NULL DEFAULT 0,
		commission_rule_id INTEGER,
		commission_rate_bp INTEGER NOT NULL DEFAULT 0,
		commission_amount INTEGER NOT NULL DEFAULT 0,
		provider_net_amount INTEGER NOT NULL DEFAULT 0,
		cancellation_state TEXT NOT NULL DEFAULT 'not_cancelled',
		cancellation_reason TEXT NOT NULL DEFAULT '',
		cancelled_by TEXT NOT NULL DEFAULT '',
		cancelled_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE booking_items (
		id INTEGER PRIMARY KEY,
		booking_id INTEGER NOT NULL,
		service_name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price INTEGER NOT NULL,
		discount INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE booking_status_history (
		id INTEGER PRIMARY KEY,
		booking_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		actor TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE commission_rules (
		id INTEGER PRIMARY KEY,
		scope TEXT NOT NULL,
		scope_value TEXT NOT NULL,
		kind TEXT NOT NULL,
		value INTEGER NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		effective_from DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE provider_earnings (
		id INTEGER PRIMARY KEY,
		provider_id INTEGER NOT NULL,
		booking_id INTEGER,
		gross_amount INTEGER NOT NULL,
		commission_rate_bp INTEGER NOT NULL DEFAULT 0,
		commission_amount INTEGER NOT NULL,
		net_amount INTEGER NOT NULL,
		status TEXT NOT NULL,
		available_after DATETIME NOT NULL,
		payment_record_id INTEGER,
		origin_earning_id INTEGER,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX ux_provider_earnings_booking ON provider_earnings (booking_id)`,
	`CREATE TABLE payment_records (
		id INTEGER PRIMARY KEY,
		provider_id INTEGER NOT NULL,
		amount INTEGER NOT NULL,
		net_amount INTEGER NOT NULL,
		method TEXT NOT NULL,
		destination TEXT NOT NULL DEFAULT '{}',
		reference TEXT NOT NULL,
		status TEXT NOT NULL,
		external_txn_id TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		allocated_count INTEGER NOT NULL DEFAULT 0,
		requested_at DATETIME NOT NULL,
		processed_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX ux_payment_records_reference ON payment_records (reference)`,
}

// Open returns an in-memory database with the full schema applied. Raw
// queries carrying FOR UPDATE have the clause stripped, since sqlite locks
// the whole database per transaction anyway.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	stripForUpdate := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			newSQL := strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
			newSQL = strings.ReplaceAll(newSQL, "FOR UPDATE", "")
			d.Statement.SQL.Reset()
			d.Statement.SQL.WriteString(newSQL)
		}
	}
	db.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", stripForUpdate)
	db.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", stripForUpdate)

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}
