package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/urbanease/urbanease/internal/booking/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const bookingColumns = `id, customer_id, provider_id, provider_type, service_type, status,
	payment_method, payment_status, scheduled_at, address, coupon_code,
	total_discount, subtotal, total_amount,
	commission_rule_id, commission_rate_bp, commission_amount, provider_net_amount,
	cancellation_state, cancellation_reason, cancelled_by, cancelled_at,
	created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, booking *domain.Booking) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bookings (`+bookingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID,
		booking.CustomerID,
		booking.ProviderID,
		booking.ProviderType,
		booking.ServiceType,
		booking.Status,
		booking.PaymentMethod,
		booking.PaymentStatus,
		booking.ScheduledAt,
		booking.Address,
		booking.CouponCode,
		booking.TotalDiscount,
		booking.Subtotal,
		booking.TotalAmount,
		booking.CommissionRuleID,
		booking.CommissionRateBP,
		booking.CommissionAmount,
		booking.ProviderNetAmount,
		booking.CancellationState,
		booking.CancellationReason,
		booking.CancelledBy,
		booking.CancelledAt,
		booking.CreatedAt,
		booking.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.BookingItem) error {
	for i := range items {
		item := &items[i]
		if err := db.WithContext(ctx).Exec(
			`INSERT INTO booking_items (id, booking_id, service_name, quantity, unit_price, discount, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.BookingID,
			item.ServiceName,
			item.Quantity,
			item.UnitPrice,
			item.Discount,
			item.CreatedAt,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	return r.find(ctx, db, id, "")
}

func (r *repo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	return r.find(ctx, tx, id, " FOR UPDATE")
}

func (r *repo) find(ctx context.Context, db *gorm.DB, id snowflake.ID, suffix string) (*domain.Booking, error) {
	var booking domain.Booking
	err := db.WithContext(ctx).Raw(
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`+suffix,
		id,
	).Scan(&booking).Error
	if err != nil {
		return nil, err
	}
	if booking.ID == 0 {
		return nil, nil
	}
	return &booking, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]domain.BookingItem, error) {
	var items []domain.BookingItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, booking_id, service_name, quantity, unit_price, discount, created_at
		 FROM booking_items
		 WHERE booking_id = ?
		 ORDER BY id ASC`,
		bookingID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, booking *domain.Booking) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bookings SET
			provider_id = ?, provider_type = ?, status = ?,
			payment_method = ?, payment_status = ?,
			total_discount = ?, subtotal = ?, total_amount = ?,
			commission_rule_id = ?, commission_rate_bp = ?, commission_amount = ?, provider_net_amount = ?,
			cancellation_state = ?, cancellation_reason = ?, cancelled_by = ?, cancelled_at = ?,
			updated_at = ?
		 WHERE id = ?`,
		booking.ProviderID,
		booking.ProviderType,
		booking.Status,
		booking.PaymentMethod,
		booking.PaymentStatus,
		booking.TotalDiscount,
		booking.Subtotal,
		booking.TotalAmount,
		booking.CommissionRuleID,
		booking.CommissionRateBP,
		booking.CommissionAmount,
		booking.ProviderNetAmount,
		booking.CancellationState,
		booking.CancellationReason,
		booking.CancelledBy,
		booking.CancelledAt,
		booking.UpdatedAt,
		booking.ID,
	).Error
}

func (r *repo) AppendHistory(ctx context.Context, db *gorm.DB, entry *domain.StatusHistoryEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO booking_status_history (id, booking_id, status, actor, note, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.BookingID,
		entry.Status,
		entry.Actor,
		entry.Note,
		entry.Metadata,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListHistory(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]*domain.StatusHistoryEntry, error) {
	var entries []*domain.StatusHistoryEntry
	err := db.WithContext(ctx).Raw(
		`SELECT id, booking_id, status, actor, note, metadata, created_at
		 FROM booking_status_history
		 WHERE booking_id = ?
		 ORDER BY created_at ASC, id ASC`,
		bookingID,
	).Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
