package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/urbanease/urbanease/internal/earning/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const earningColumns = `id, provider_id, booking_id, gross_amount, commission_rate_bp,
	commission_amount, net_amount, status, available_after, payment_record_id,
	origin_earning_id, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.ProviderEarning) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO provider_earnings (`+earningColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (booking_id) DO NOTHING`,
		entry.ID,
		entry.ProviderID,
		entry.BookingID,
		entry.GrossAmount,
		entry.CommissionRateBP,
		entry.CommissionAmount,
		entry.NetAmount,
		entry.Status,
		entry.AvailableAfter,
		entry.PaymentRecordID,
		entry.OriginEarningID,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertRow(ctx context.Context, db *gorm.DB, entry *domain.ProviderEarning) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO provider_earnings (`+earningColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ProviderID,
		entry.BookingID,
		entry.GrossAmount,
		entry.CommissionRateBP,
		entry.CommissionAmount,
		entry.NetAmount,
		entry.Status,
		entry.AvailableAfter,
		entry.PaymentRecordID,
		entry.OriginEarningID,
		entry.CreatedAt,
		entry.UpdatedAt,
	).Error
}

func (r *repo) FindByBooking(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*domain.ProviderEarning, error) {
	var entry domain.ProviderEarning
	err := db.WithContext(ctx).Raw(
		`SELECT `+earningColumns+` FROM provider_earnings WHERE booking_id = ? LIMIT 1`,
		bookingID,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) PromoteMatured(ctx context.Context, db *gorm.DB, providerID snowflake.ID, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE provider_earnings
		 SET status = 'available', updated_at = ?
		 WHERE provider_id = ? AND status = 'pending' AND available_after <= ?`,
		now,
		providerID,
		now,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) SumAvailable(ctx context.Context, db *gorm.DB, providerID snowflake.ID, now time.Time) (int64, error) {
	var sum int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(net_amount), 0)
		 FROM provider_earnings
		 WHERE provider_id = ? AND status = 'available' AND available_after <= ?`,
		providerID,
		now,
	).Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *repo) ListAvailableForUpdate(ctx context.Context, tx *gorm.DB, providerID snowflake.ID, now time.Time) ([]*domain.ProviderEarning, error) {
	var entries []*domain.ProviderEarning
	err := tx.WithContext(ctx).Raw(
		`SELECT `+earningColumns+`
		 FROM provider_earnings
		 WHERE provider_id = ? AND status = 'available' AND available_after <= ?
		 ORDER BY available_after ASC, id ASC
		 FOR UPDATE`,
		providerID,
		now,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) Reserve(ctx context.Context, db *gorm.DB, id, paymentRecordID snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE provider_earnings
		 SET status = 'processing', payment_record_id = ?, updated_at = ?
		 WHERE id = ? AND status = 'available'`,
		paymentRecordID,
		now,
		id,
	).Error
}

func (r *repo) ReduceAmounts(ctx context.Context, db *gorm.DB, id snowflake.ID, gross, commission, net int64, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE provider_earnings
		 SET gross_amount = ?, commission_amount = ?, net_amount = ?, updated_at = ?
		 WHERE id = ?`,
		gross,
		commission,
		net,
		now,
		id,
	).Error
}

func (r *repo) ListByPaymentRecord(ctx context.Context, db *gorm.DB, paymentRecordID snowflake.ID) ([]*domain.ProviderEarning, error) {
	var entries []*domain.ProviderEarning
	err := db.WithContext(ctx).Raw(
		`SELECT `+earningColumns+`
		 FROM provider_earnings
		 WHERE payment_record_id = ?
		 ORDER BY id ASC`,
		paymentRecordID,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) FinalizeByPaymentRecord(ctx context.Context, db *gorm.DB, paymentRecordID snowflake.ID, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE provider_earnings
		 SET status = 'paid', updated_at = ?
		 WHERE payment_record_id = ? AND status = 'processing'`,
		now,
		paymentRecordID,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) ReleaseByPaymentRecord(ctx context.Context, db *gorm.DB, paymentRecordID snowflake.ID, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE provider_earnings
		 SET status = 'available', payment_record_id = NULL, updated_at = ?
		 WHERE payment_record_id = ? AND status = 'processing'`,
		now,
		paymentRecordID,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) SummaryTotals(ctx context.Context, db *gorm.DB, providerID snowflake.ID, now time.Time) (domain.Summary, error) {
	var summary domain.Summary
	err := db.WithContext(ctx).Raw(
		`SELECT
			COALESCE(SUM(CASE WHEN status = 'available' AND available_after <= ? THEN net_amount ELSE 0 END), 0) AS available,
			COALESCE(SUM(CASE WHEN status = 'pending' OR (status = 'available' AND available_after > ?) THEN net_amount ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = 'processing' THEN net_amount ELSE 0 END), 0) AS reserved,
			COALESCE(SUM(CASE WHEN status = 'paid' THEN net_amount ELSE 0 END), 0) AS withdrawn,
			COALESCE(SUM(net_amount), 0) AS lifetime
		 FROM provider_earnings
		 WHERE provider_id = ?`,
		now,
		now,
		providerID,
	).Scan(&summary).Error
	if err != nil {
		return domain.Summary{}, err
	}
	return summary, nil
}

func (r *repo) ListByProvider(ctx context.Context, db *gorm.DB, providerID snowflake.ID, limit int, beforeID snowflake.ID) ([]*domain.ProviderEarning, error) {
	stmt := `SELECT ` + earningColumns + `
		 FROM provider_earnings
		 WHERE provider_id = ?`
	args := []interface{}{providerID}
	if beforeID != 0 {
		stmt += ` AND id < ?`
		args = append(args, beforeID)
	}
	stmt += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	var entries []*domain.ProviderEarning
	err := db.WithContext(ctx).Raw(stmt, args...).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
