package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Keys under which settings are persisted.
const (
	KeyAPIKey          = "finnhub-api-key"
	KeyInitialCapital  = "initial-capital"
	KeyDisplayCurrency = "display-currency"
	KeyUpdateFrequency = "update-frequency"
)

const (
	MinUpdateFrequency = 1
	MaxUpdateFrequency = 60
)

// Settings are the user-editable options.
type Settings struct {
	APIKey          string  `json:"api_key"`
	InitialCapital  float64 `json:"initial_capital"`
	DisplayCurrency string  `json:"display_currency"`
	UpdateFrequency int     `json:"update_frequency"` // minutes
}

// Validate checks ranges. supported lists the accepted display currencies.
func (s Settings) Validate(supported []string) error {
	if s.UpdateFrequency < MinUpdateFrequency || s.UpdateFrequency > MaxUpdateFrequency {
		return fmt.Errorf("please enter a frequency between %d and %d minutes", MinUpdateFrequency, MaxUpdateFrequency)
	}
	if s.InitialCapital < 0 {
		return fmt.Errorf("initial capital must not be negative")
	}
	for _, c := range supported {
		if c == s.DisplayCurrency {
			return nil
		}
	}
	return fmt.Errorf("unsupported currency %q", s.DisplayCurrency)
}

// Masked returns a copy safe to send to clients.
func (s Settings) Masked() Settings {
	if n := len(s.APIKey); n > 4 {
		s.APIKey = strings.Repeat("*", n-4) + s.APIKey[n-4:]
	} else if n > 0 {
		s.APIKey = strings.Repeat("*", n)
	}
	return s
}

// ToKV flattens settings for storage.
func (s Settings) ToKV() map[string]string {
	return map[string]string{
		KeyAPIKey:          s.APIKey,
		KeyInitialCapital:  strconv.FormatFloat(s.InitialCapital, 'f', -1, 64),
		KeyDisplayCurrency: s.DisplayCurrency,
		KeyUpdateFrequency: strconv.Itoa(s.UpdateFrequency),
	}
}

// SettingsFromKV overlays stored values on defaults. Unparseable values are
// ignored.
func SettingsFromKV(kv map[string]string, defaults Settings) Settings {
	s := defaults
	if v, ok := kv[KeyAPIKey]; ok && v != "" {
		s.APIKey = v
	}
	if v, err := strconv.ParseFloat(kv[KeyInitialCapital], 64); err == nil && v >= 0 {
		s.InitialCapital = v
	}
	if v := kv[KeyDisplayCurrency]; v != "" {
		s.DisplayCurrency = v
	}
	if v, err := strconv.Atoi(kv[KeyUpdateFrequency]); err == nil {
		s.UpdateFrequency = v
	}
	return s
}
