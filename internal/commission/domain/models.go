package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// RuleScope selects which booking attribute a rule matches on.
type RuleScope string

const (
	RuleScopeServiceType  RuleScope = "service_type"
	RuleScopeProviderType RuleScope = "provider_type"
)

// RuleKind determines how Value is interpreted: basis points of the booking
// total, or a fixed fee in minor units.
type RuleKind string

const (
	RuleKindPercentage RuleKind = "percentage"
	RuleKindFixed      RuleKind = "fixed"
)

// CommissionRule configures the platform's cut of a booking total. Rules are
// read-only to the ledger; a rule with an empty ScopeValue matches every
// booking within its scope.
type CommissionRule struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Scope         RuleScope    `gorm:"type:text;not null" json:"scope"`
	ScopeValue    string       `gorm:"type:text;not null" json:"scope_value"`
	Kind          RuleKind     `gorm:"type:text;not null" json:"kind"`
	Value         int64        `gorm:"not null" json:"value"`
	Priority      int          `gorm:"not null;default:0" json:"priority"`
	Active        bool         `gorm:"not null;default:true" json:"active"`
	EffectiveFrom time.Time    `gorm:"not null" json:"effective_from"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (CommissionRule) TableName() string { return "commission_rules" }
