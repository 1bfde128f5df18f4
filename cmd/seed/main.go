// Command seed loads a development dataset: one user per role, a stocked
// warehouse, barcodes, variance thresholds, and a couple of open orders.
package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/warefront/api/internal/config"
	"github.com/warefront/api/internal/database"
	"github.com/warefront/api/internal/enum"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg := config.Load()
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("create connection pool", zap.Error(err))
	}
	defer pool.Close()

	q := database.New(pool)

	users := []struct {
		email string
		name  string
		role  string
	}{
		{"admin@warefront.dev", "Ada Admin", enum.RoleAdmin},
		{"supervisor@warefront.dev", "Sam Supervisor", enum.RoleSupervisor},
		{"picker@warefront.dev", "Pat Picker", enum.RolePicker},
		{"packer@warefront.dev", "Paula Packer", enum.RolePacker},
		{"qa@warefront.dev", "Quinn QA", enum.RoleQA},
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("hash password", zap.Error(err))
	}

	var adminID uuid.UUID
	for _, u := range users {
		created, err := q.CreateUser(ctx, database.CreateUserParams{
			Email:        u.email,
			PasswordHash: string(hash),
			Name:         u.name,
			BaseRole:     u.role,
		})
		if err != nil {
			log.Warn("create user (may already exist)", zap.String("email", u.email), zap.Error(err))
			continue
		}
		if u.role == enum.RoleAdmin {
			adminID = created.ID
		}
		log.Info("created user", zap.String("email", u.email), zap.String("role", u.role))
	}

	stock := []struct {
		sku string
		bin string
		qty int32
	}{
		{"SKU-1001", "A-01-01", 120},
		{"SKU-1001", "A-01-02", 40},
		{"SKU-1002", "A-02-01", 75},
		{"SKU-1003", "B-01-01", 200},
		{"SKU-1004", "B-02-01", 15},
		{"SKU-1005", "C-01-01", 8},
	}
	for _, s := range stock {
		if _, err := q.CreateInventoryUnit(ctx, database.CreateInventoryUnitParams{
			Sku: s.sku, BinLocation: s.bin, Quantity: s.qty,
		}); err != nil {
			log.Warn("create inventory unit", zap.String("sku", s.sku), zap.Error(err))
		}
	}

	barcodes := map[string]string{
		"8901001": "SKU-1001",
		"8901002": "SKU-1002",
		"8901003": "SKU-1003",
		"8901004": "SKU-1004",
		"8901005": "SKU-1005",
	}
	for code, sku := range barcodes {
		if _, err := pool.Exec(ctx,
			`INSERT INTO barcodes (code, sku) VALUES ($1, $2) ON CONFLICT DO NOTHING`, code, sku); err != nil {
			log.Warn("create barcode", zap.String("code", code), zap.Error(err))
		}
	}

	severities := []struct {
		name string
		min  int32
	}{
		{enum.SeverityLow, 0},
		{enum.SeverityMedium, 5},
		{enum.SeverityHigh, 20},
		{enum.SeverityCritical, 50},
	}
	for _, s := range severities {
		if _, err := q.UpsertVarianceSeverity(ctx, database.UpsertVarianceSeverityParams{
			Severity: s.name, MinVariance: s.min,
		}); err != nil {
			log.Warn("upsert variance severity", zap.String("severity", s.name), zap.Error(err))
		}
	}

	orders := []struct {
		number   string
		priority int32
		items    map[string]int32
	}{
		{"ORD-001", 5, map[string]int32{"SKU-1001": 10, "SKU-1002": 4}},
		{"ORD-002", 3, map[string]int32{"SKU-1003": 25}},
		{"ORD-003", 1, map[string]int32{"SKU-1004": 2, "SKU-1005": 1}},
	}
	for _, o := range orders {
		order, err := q.CreateOrder(ctx, database.CreateOrderParams{
			OrderNumber: o.number,
			Priority:    o.priority,
			Notes:       pgtype.Text{},
			CreatedBy:   adminID,
		})
		if err != nil {
			log.Warn("create order (may already exist)", zap.String("order", o.number), zap.Error(err))
			continue
		}
		for sku, qty := range o.items {
			if _, err := q.CreateOrderItem(ctx, database.CreateOrderItemParams{
				OrderID: order.ID, Sku: sku, Quantity: qty,
			}); err != nil {
				log.Warn("create order item", zap.String("sku", sku), zap.Error(err))
			}
		}
		log.Info("created order", zap.String("order", o.number))
	}

	log.Info("seed complete")
}
