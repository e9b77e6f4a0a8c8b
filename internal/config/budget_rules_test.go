package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBudgetRulesHolderDefaultsWhenFileMissing(t *testing.T) {
	holder, err := NewBudgetRulesHolder(Config{
		DefaultCurrency: "USD",
		BudgetRulesPath: filepath.Join(t.TempDir(), "missing", "budget_rules.yml"),
	})
	require.NoError(t, err)

	rules := holder.Get()
	assert.Equal(t, "USD", rules.DefaultCurrency)
	assert.Equal(t, 200, rules.MaxItemsPerBudget)
}

func TestNewBudgetRulesHolderReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget_rules.yml")
	content := []byte(`budget:
  default_currency: usd
  allowed_currencies: [usd, brl]
  max_items_per_budget: 10
  default_valid_days: 15
  list_page_size: 20
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	holder, err := NewBudgetRulesHolder(Config{BudgetRulesPath: path})
	require.NoError(t, err)

	rules := holder.Get()
	assert.Equal(t, "USD", rules.DefaultCurrency)
	assert.Equal(t, []string{"USD", "BRL"}, rules.AllowedCurrencies)
	assert.Equal(t, 10, rules.MaxItemsPerBudget)
	assert.Equal(t, 20, rules.ListPageSize)
}

func TestNewBudgetRulesHolderRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget_rules.yml")
	content := []byte(`budget:
  default_currency: usd
  allowed_currencies: [brl]
  max_items_per_budget: 10
  list_page_size: 20
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	_, err := NewBudgetRulesHolder(Config{BudgetRulesPath: path})
	assert.Error(t, err)
}

func TestCurrencyAllowed(t *testing.T) {
	rules := DefaultBudgetRules()
	assert.True(t, rules.CurrencyAllowed("brl"))
	assert.False(t, rules.CurrencyAllowed("JPY"))

	rules.AllowedCurrencies = nil
	assert.True(t, rules.CurrencyAllowed("JPY"))
}
