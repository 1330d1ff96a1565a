package models

// DefaultUserID is the identity used when no user id is supplied.
const DefaultUserID = "default_user"

// Preferences is the canonical per-user display configuration stored by the
// backend. Timestamps are assigned server-side and never mutated here.
type Preferences struct {
	UserID        string `json:"user_id"`
	ChartType     string `json:"chart_type"`
	FinanceMetric string `json:"finance_metric"`
	TimeRange     string `json:"time_range"`
	Currency      string `json:"currency"`
	Granularity   string `json:"granularity"`
	Theme         string `json:"theme"`
	ShowNews      bool   `json:"show_news"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

// Option lists for each enumerated field, in display order.
var (
	ChartTypeOptions     = []string{"bar", "line", "pie"}
	FinanceMetricOptions = []string{"revenue", "expenses", "growth"}
	TimeRangeOptions     = []string{"1M", "3M", "6M", "1Y", "5Y"}
	CurrencyOptions      = []string{"USD", "EUR", "GBP", "INR"}
	GranularityOptions   = []string{"daily", "weekly", "monthly"}
	ThemeOptions         = []string{"light", "dark"}
)

// DefaultPreferences returns the preference record used before any server load.
func DefaultPreferences() Preferences {
	return Preferences{
		UserID:        DefaultUserID,
		ChartType:     "bar",
		FinanceMetric: "revenue",
		TimeRange:     "3M",
		Currency:      "USD",
		Granularity:   "monthly",
		Theme:         "light",
		ShowNews:      false,
	}
}

// Merge fills missing or out-of-enum fields of a server record with defaults.
// After Merge every enumerated field is one of its declared options and the
// user id is non-empty. Server timestamps pass through untouched.
func Merge(partial Preferences) Preferences {
	defaults := DefaultPreferences()
	merged := partial

	if merged.UserID == "" {
		merged.UserID = defaults.UserID
	}
	merged.ChartType = pick(merged.ChartType, ChartTypeOptions, defaults.ChartType)
	merged.FinanceMetric = pick(merged.FinanceMetric, FinanceMetricOptions, defaults.FinanceMetric)
	merged.TimeRange = pick(merged.TimeRange, TimeRangeOptions, defaults.TimeRange)
	merged.Currency = pick(merged.Currency, CurrencyOptions, defaults.Currency)
	merged.Granularity = pick(merged.Granularity, GranularityOptions, defaults.Granularity)
	merged.Theme = pick(merged.Theme, ThemeOptions, defaults.Theme)

	return merged
}

// IsDirty reports whether the edited record differs from the last loaded one.
// Only the enumerated fields participate in the comparison.
func IsDirty(current, loaded Preferences) bool {
	return current.ChartType != loaded.ChartType ||
		current.FinanceMetric != loaded.FinanceMetric ||
		current.TimeRange != loaded.TimeRange ||
		current.Currency != loaded.Currency ||
		current.Granularity != loaded.Granularity ||
		current.Theme != loaded.Theme
}

func pick(value string, options []string, fallback string) string {
	for _, opt := range options {
		if value == opt {
			return value
		}
	}
	return fallback
}
