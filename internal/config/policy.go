package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CreditPolicy tunes operational credit behavior without a redeploy.
type CreditPolicy struct {
	// LowBalanceWarning is the balance at or below which balance responses
	// carry a warning flag.
	LowBalanceWarning int64 `mapstructure:"lowBalanceWarning"`
	// MaxBulkDocumentTypes caps the id list accepted by bulk permission
	// operations.
	MaxBulkDocumentTypes int `mapstructure:"maxBulkDocumentTypes"`
	// PendingPurchaseTTLHours is how long a purchase may stay pending before
	// the scheduler cancels it.
	PendingPurchaseTTLHours int `mapstructure:"pendingPurchaseTtlHours"`
}

func DefaultCreditPolicy() CreditPolicy {
	return CreditPolicy{
		LowBalanceWarning:       5,
		MaxBulkDocumentTypes:    200,
		PendingPurchaseTTLHours: 24,
	}
}

// CreditPolicyHolder keeps the active policy and hot-reloads it when the
// backing file changes.
type CreditPolicyHolder struct {
	current atomic.Value // holds CreditPolicy
}

func NewCreditPolicyHolder() (*CreditPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("credit_policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/kertas/config")
	v.AddConfigPath("/etc/kertas")
	v.AddConfigPath(".")

	v.SetEnvPrefix("KERTAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCreditPolicy()
	v.SetDefault("credits.lowBalanceWarning", defaults.LowBalanceWarning)
	v.SetDefault("credits.maxBulkDocumentTypes", defaults.MaxBulkDocumentTypes)
	v.SetDefault("credits.pendingPurchaseTtlHours", defaults.PendingPurchaseTTLHours)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	holder := &CreditPolicyHolder{}
	if err := holder.reload(v); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		if err := holder.reload(v); err != nil {
			log.Printf("credit policy reload failed: %v", err)
		}
	})
	v.WatchConfig()

	return holder, nil
}

func (h *CreditPolicyHolder) reload(v *viper.Viper) error {
	var policy CreditPolicy
	if err := v.UnmarshalKey("credits", &policy); err != nil {
		return err
	}
	if policy.MaxBulkDocumentTypes <= 0 {
		policy.MaxBulkDocumentTypes = DefaultCreditPolicy().MaxBulkDocumentTypes
	}
	h.current.Store(policy)
	return nil
}

// Set replaces the active policy.
func (h *CreditPolicyHolder) Set(policy CreditPolicy) {
	h.current.Store(policy)
}

// Current returns the active policy.
func (h *CreditPolicyHolder) Current() CreditPolicy {
	if h == nil {
		return DefaultCreditPolicy()
	}
	if policy, ok := h.current.Load().(CreditPolicy); ok {
		return policy
	}
	return DefaultCreditPolicy()
}
