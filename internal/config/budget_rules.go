package config

import (
	"errors"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BudgetRules are operator-tunable limits applied by the budget service.
type BudgetRules struct {
	DefaultCurrency   string
	AllowedCurrencies []string
	MaxItemsPerBudget int
	DefaultValidDays  int
	ListPageSize      int
}

func DefaultBudgetRules() BudgetRules {
	return BudgetRules{
		DefaultCurrency:   "BRL",
		AllowedCurrencies: []string{"BRL", "USD", "EUR"},
		MaxItemsPerBudget: 200,
		DefaultValidDays:  30,
		ListPageSize:      50,
	}
}

// CurrencyAllowed reports whether code is accepted. An empty allow-list accepts any code.
func (r BudgetRules) CurrencyAllowed(code string) bool {
	if len(r.AllowedCurrencies) == 0 {
		return true
	}
	for _, allowed := range r.AllowedCurrencies {
		if strings.EqualFold(strings.TrimSpace(allowed), code) {
			return true
		}
	}
	return false
}

type BudgetRulesHolder struct {
	current atomic.Value // holds BudgetRules
}

// NewStaticBudgetRules returns a holder that never reloads.
func NewStaticBudgetRules(rules BudgetRules) *BudgetRulesHolder {
	holder := &BudgetRulesHolder{}
	holder.current.Store(rules)
	return holder
}

func NewBudgetRulesHolder(cfg Config) (*BudgetRulesHolder, error) {
	v := viper.New()

	if cfg.BudgetRulesPath != "" {
		v.SetConfigFile(filepath.Clean(cfg.BudgetRulesPath))
	} else {
		v.SetConfigName("budget_rules")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/quoteflow")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("QUOTEFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBudgetRules()
	if cfg.DefaultCurrency != "" {
		defaults.DefaultCurrency = cfg.DefaultCurrency
	}
	v.SetDefault("budget.default_currency", defaults.DefaultCurrency)
	v.SetDefault("budget.allowed_currencies", defaults.AllowedCurrencies)
	v.SetDefault("budget.max_items_per_budget", defaults.MaxItemsPerBudget)
	v.SetDefault("budget.default_valid_days", defaults.DefaultValidDays)
	v.SetDefault("budget.list_page_size", defaults.ListPageSize)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		watch = false
	}

	rules, err := decodeBudgetRules(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticBudgetRules(rules)

	if watch {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeBudgetRules(v)
			if err != nil {
				log.Printf("[budget-rules] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[budget-rules] reloaded from %s", e.Name)
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *BudgetRulesHolder) Get() BudgetRules {
	return h.current.Load().(BudgetRules)
}

func decodeBudgetRules(v *viper.Viper) (BudgetRules, error) {
	rules := BudgetRules{
		DefaultCurrency:   strings.ToUpper(strings.TrimSpace(v.GetString("budget.default_currency"))),
		MaxItemsPerBudget: v.GetInt("budget.max_items_per_budget"),
		DefaultValidDays:  v.GetInt("budget.default_valid_days"),
		ListPageSize:      v.GetInt("budget.list_page_size"),
	}
	for _, code := range v.GetStringSlice("budget.allowed_currencies") {
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			rules.AllowedCurrencies = append(rules.AllowedCurrencies, code)
		}
	}
	if err := validateBudgetRules(rules); err != nil {
		return BudgetRules{}, err
	}
	return rules, nil
}

func validateBudgetRules(rules BudgetRules) error {
	if len(rules.DefaultCurrency) != 3 {
		return errors.New("budget.default_currency must be a 3-letter code")
	}
	if !rules.CurrencyAllowed(rules.DefaultCurrency) {
		return errors.New("budget.default_currency must be listed in budget.allowed_currencies")
	}
	if rules.MaxItemsPerBudget <= 0 {
		return errors.New("budget.max_items_per_budget must be positive")
	}
	if rules.ListPageSize <= 0 || rules.ListPageSize > 250 {
		return errors.New("budget.list_page_size must be between 1 and 250")
	}
	return nil
}
