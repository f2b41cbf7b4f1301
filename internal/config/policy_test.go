package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreditPolicyHolderDefaults(t *testing.T) {
	var nilHolder *CreditPolicyHolder
	assert.Equal(t, DefaultCreditPolicy(), nilHolder.Current())

	empty := &CreditPolicyHolder{}
	assert.Equal(t, DefaultCreditPolicy(), empty.Current())
}

func TestCreditPolicyHolderSet(t *testing.T) {
	holder := &CreditPolicyHolder{}

	policy := DefaultCreditPolicy()
	policy.LowBalanceWarning = 42
	holder.Set(policy)

	assert.Equal(t, int64(42), holder.Current().LowBalanceWarning)
}

func TestDefaultCreditPolicy(t *testing.T) {
	policy := DefaultCreditPolicy()
	assert.Equal(t, int64(5), policy.LowBalanceWarning)
	assert.Equal(t, 200, policy.MaxBulkDocumentTypes)
	assert.Equal(t, 24, policy.PendingPurchaseTTLHours)
}
