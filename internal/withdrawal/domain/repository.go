package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *PaymentRecord) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentRecord, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*PaymentRecord, error)
	// UpdateDecision stamps the operator outcome on a record.
	UpdateDecision(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, externalTxnID, note string, processedAt time.Time) error
	ListByProvider(ctx context.Context, db *gorm.DB, providerID snowflake.ID, limit int, beforeID snowflake.ID) ([]*PaymentRecord, error)
}
