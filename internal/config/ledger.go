package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LedgerConfig carries the payout policy knobs: how long earnings are held
// before they become withdrawable, the smallest withdrawal a provider may
// request, and the commission fallback when no rule matches. Amounts are in
// minor units, rates in basis points.
type LedgerConfig struct {
	MaturationDays      int   `mapstructure:"maturationDays"`
	MinWithdrawalAmount int64 `mapstructure:"minWithdrawalAmount"`
	DefaultCommissionBP int64 `mapstructure:"defaultCommissionBp"`
}

func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		MaturationDays:      7,
		MinWithdrawalAmount: 50_000, // ₹500
		DefaultCommissionBP: 1_000,  // 10%
	}
}

// LedgerConfigHolder hot-reloads the ledger policy from ledger.yml so
// payout policy changes do not require a restart.
type LedgerConfigHolder struct {
	current atomic.Value // holds LedgerConfig
}

func NewLedgerConfigHolder() (*LedgerConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("ledger")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/urbanease/config")
	v.AddConfigPath("/etc/urbanease")
	v.AddConfigPath(".")

	v.SetEnvPrefix("URBANEASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultLedgerConfig()
	v.SetDefault("ledger.maturationDays", defaults.MaturationDays)
	v.SetDefault("ledger.minWithdrawalAmount", defaults.MinWithdrawalAmount)
	v.SetDefault("ledger.defaultCommissionBp", defaults.DefaultCommissionBP)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg LedgerConfig
	if err := v.UnmarshalKey("ledger", &cfg); err != nil {
		return nil, err
	}
	if err := validateLedgerConfig(cfg); err != nil {
		return nil, err
	}

	holder := &LedgerConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated LedgerConfig
		if err := v.UnmarshalKey("ledger", &updated); err != nil {
			log.Printf("[ledger-config] reload failed: %v", err)
			return
		}
		if err := validateLedgerConfig(updated); err != nil {
			log.Printf("[ledger-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[ledger-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *LedgerConfigHolder) Get() LedgerConfig {
	return h.current.Load().(LedgerConfig)
}

// NewStaticLedgerConfigHolder returns a holder pinned to cfg. Test helper.
func NewStaticLedgerConfigHolder(cfg LedgerConfig) *LedgerConfigHolder {
	holder := &LedgerConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateLedgerConfig(cfg LedgerConfig) error {
	if cfg.MaturationDays < 0 {
		return errors.New("ledger.maturationDays cannot be negative")
	}
	if cfg.MinWithdrawalAmount < 0 {
		return errors.New("ledger.minWithdrawalAmount cannot be negative")
	}
	if cfg.DefaultCommissionBP < 0 || cfg.DefaultCommissionBP > 10_000 {
		return errors.New("ledger.defaultCommissionBp must be within [0, 10000]")
	}
	return nil
}
