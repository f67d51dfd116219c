package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/urbanease/urbanease/internal/withdrawal/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const paymentRecordColumns = `id, provider_id, amount, net_amount, method, destination,
	reference, status, external_txn_id, note, allocated_count, requested_at,
	processed_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.PaymentRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_records (`+paymentRecordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.ProviderID,
		record.Amount,
		record.NetAmount,
		record.Method,
		record.Destination,
		record.Reference,
		record.Status,
		record.ExternalTxnID,
		record.Note,
		record.AllocatedCount,
		record.RequestedAt,
		record.ProcessedAt,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PaymentRecord, error) {
	return r.find(ctx, db, id, "")
}

func (r *repo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.PaymentRecord, error) {
	return r.find(ctx, tx, id, " FOR UPDATE")
}

func (r *repo) find(ctx context.Context, db *gorm.DB, id snowflake.ID, suffix string) (*domain.PaymentRecord, error) {
	var record domain.PaymentRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentRecordColumns+` FROM payment_records WHERE id = ?`+suffix,
		id,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) UpdateDecision(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status, externalTxnID, note string, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_records
		 SET status = ?, external_txn_id = ?, note = ?, processed_at = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		externalTxnID,
		note,
		processedAt,
		processedAt,
		id,
	).Error
}

func (r *repo) ListByProvider(ctx context.Context, db *gorm.DB, providerID snowflake.ID, limit int, beforeID snowflake.ID) ([]*domain.PaymentRecord, error) {
	stmt := `SELECT ` + paymentRecordColumns + `
		 FROM payment_records
		 WHERE provider_id = ?`
	args := []interface{}{providerID}
	if beforeID != 0 {
		stmt += ` AND id < ?`
		args = append(args, beforeID)
	}
	stmt += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	var records []*domain.PaymentRecord
	err := db.WithContext(ctx).Raw(stmt, args...).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
