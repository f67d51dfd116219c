package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, booking *Booking) error
	InsertItems(ctx context.Context, db *gorm.DB, items []BookingItem) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Booking, error)
	ListItems(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]BookingItem, error)
	Update(ctx context.Context, db *gorm.DB, booking *Booking) error
	AppendHistory(ctx context.Context, db *gorm.DB, entry *StatusHistoryEntry) error
	ListHistory(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) ([]*StatusHistoryEntry, error)
}
