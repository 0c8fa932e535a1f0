// Package dbtest opens throwaway SQLite databases carrying the application schema.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE colleges (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  state TEXT NOT NULL,
  country TEXT NOT NULL,
  is_verified INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  phone TEXT,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL,
  college_id TEXT,
  is_verified INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE stationaries (
  id TEXT PRIMARY KEY,
  college_id TEXT NOT NULL,
  owner_id TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  country_code TEXT NOT NULL DEFAULT '+91',
  phone TEXT NOT NULL UNIQUE,
  address TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  can_deliver INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE printing_rates (
  stationary_id TEXT PRIMARY KEY,
  color_rate INTEGER NOT NULL DEFAULT 0,
  bw_rate INTEGER NOT NULL DEFAULT 0,
  duplex_extra INTEGER NOT NULL DEFAULT 0,
  hardbind_rate INTEGER NOT NULL DEFAULT 0,
  spiral_rate INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
)`,
	`CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  name TEXT NOT NULL,
  file_url TEXT NOT NULL,
  file_key TEXT NOT NULL,
  file_type TEXT NOT NULL,
  coloured INTEGER NOT NULL DEFAULT 0,
  duplex INTEGER NOT NULL DEFAULT 0,
  spiral INTEGER NOT NULL DEFAULT 0,
  hardbind INTEGER NOT NULL DEFAULT 0,
  quantity INTEGER NOT NULL,
  price INTEGER NOT NULL,
  created_at DATETIME
)`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  stationary_id TEXT NOT NULL,
  college_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  order_type TEXT NOT NULL,
  total_price INTEGER NOT NULL,
  delivery_address TEXT,
  delivery_fee INTEGER,
  otp TEXT NOT NULL,
  gateway_payment_id TEXT,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  file_url TEXT NOT NULL,
  file_key TEXT NOT NULL,
  file_type TEXT NOT NULL,
  coloured INTEGER NOT NULL DEFAULT 0,
  duplex INTEGER NOT NULL DEFAULT 0,
  spiral INTEGER NOT NULL DEFAULT 0,
  hardbind INTEGER NOT NULL DEFAULT 0,
  quantity INTEGER NOT NULL,
  price INTEGER NOT NULL,
  created_at DATETIME
)`,
	`CREATE TABLE payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  gateway_order_id TEXT NOT NULL UNIQUE,
  gateway_payment_id TEXT,
  amount INTEGER NOT NULL,
  currency TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX payments_one_paid_per_order_idx ON payments (order_id) WHERE status = 'PAID'`,
	`CREATE UNIQUE INDEX payments_gateway_payment_id_idx ON payments (gateway_payment_id) WHERE gateway_payment_id IS NOT NULL`,
	`CREATE TABLE commissions (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  stationary_id TEXT NOT NULL,
  platform_fee INTEGER NOT NULL,
  commission_rate INTEGER NOT NULL,
  commission_fee INTEGER NOT NULL,
  gateway_fee INTEGER NOT NULL,
  gateway_tax INTEGER NOT NULL,
  net_earnings INTEGER NOT NULL,
  settlement_status TEXT NOT NULL DEFAULT 'PENDING',
  created_at DATETIME
)`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  next_attempt_at DATETIME,
  last_error TEXT
)`,
	`CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL UNIQUE,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json BLOB NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
)`,
}

// Open returns an in-memory database private to t with every table created.
// The pool is pinned to one connection so concurrent callers serialise.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}
