package commands

import (
	"encoding/json"
	"fmt"
	"marketwatch/internal/components/telemetry"
	"marketwatch/internal/condition"
	"marketwatch/internal/scanner"
	"marketwatch/internal/stepn"
	"strconv"
	"time"
)

type ApiConfig struct {
	BaseURL string `json:"base_url"`
	// MinDelayMs of 0 means the default, a negative value disables the limiter.
	MinDelayMs         int  `json:"min_delay_ms"`
	TimeoutSeconds     int  `json:"timeout_seconds"`
	DetailCacheSeconds int  `json:"detail_cache_seconds"`
	CloudflareBypass   bool `json:"cloudflare_bypass"`
}

type SessionConfig struct {
	File string `json:"file"`
	// Database keeps the session in the database instead of File.
	Database bool `json:"database"`
}

type JournalConfig struct {
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

type DatabaseConfig struct {
	File string `json:"file"`
}

type ParamsConfig struct {
	Order   stepn.Order    `json:"order"`
	Chain   stepn.Chain    `json:"chain"`
	Refresh flexBool       `json:"refresh"`
	Page    flexInt        `json:"page"`
	Type    stepn.ItemType `json:"type"`
	GType   flexString     `json:"gType"`
	Quality stepn.Quality  `json:"quality"`
	Level   flexString     `json:"level"`
	Bread   flexString     `json:"bread"`
}

type RuleConfig struct {
	Title             string       `json:"title"`
	Conditions        string       `json:"conditions"`
	ConditionsOnStats string       `json:"conditions_on_stats"`
	Params            ParamsConfig `json:"params"`
	PageEnd           *int         `json:"page_end"`
	Limit             int          `json:"limit"`
	Price             float64      `json:"price"`
	Threshold         float64      `json:"threshold"`
	ThresholdFile     string       `json:"threshold_file"`
	ImageEnabled      bool         `json:"image_enabled"`
	StopOnPriceUpdate bool         `json:"stop_on_price_update"`
}

type Config struct {
	Account    string         `json:"account"`
	Password   string         `json:"password"`
	TotpSecret string         `json:"totp_secret"`
	Api        ApiConfig      `json:"api"`
	Session    SessionConfig  `json:"session"`
	Journal    JournalConfig  `json:"journal"`
	Database   DatabaseConfig `json:"database"`
	// Mention is put in front of every notified batch.
	Mention          string               `json:"mention"`
	HaltOnFirstMatch bool                 `json:"halt_on_first_match"`
	Rules            []RuleConfig         `json:"rules"`
	Telemetry        telemetry.OtelConfig `json:"telemetry"`
}

func (c Config) Validate() error {
	if c.Account == "" {
		return fmt.Errorf("account is required")
	}
	if c.Password == "" {
		return fmt.Errorf("password is required")
	}
	if c.Session.Database && c.Database.File == "" {
		return fmt.Errorf("session.database requires database.file")
	}
	for i, r := range c.Rules {
		if r.Title == "" {
			return fmt.Errorf("rules[%d]: title is required", i)
		}
		if r.Limit < 0 {
			return fmt.Errorf("rule %q: limit must not be negative", r.Title)
		}
		if r.Threshold < 0 {
			return fmt.Errorf("rule %q: threshold must not be negative", r.Title)
		}
		if r.PageEnd != nil && *r.PageEnd < int(r.Params.Page) {
			return fmt.Errorf("rule %q: page_end %d is before page %d", r.Title, *r.PageEnd, r.Params.Page)
		}
		if err := condition.Check(r.Conditions); err != nil {
			return fmt.Errorf("rule %q: conditions: %w", r.Title, err)
		}
		if err := condition.Check(r.ConditionsOnStats); err != nil {
			return fmt.Errorf("rule %q: conditions_on_stats: %w", r.Title, err)
		}
	}
	return nil
}

func (c ApiConfig) Options() stepn.Options {
	minDelay := time.Duration(c.MinDelayMs) * time.Millisecond
	if c.MinDelayMs == 0 {
		minDelay = stepn.DefaultMinDelay
	}
	return stepn.Options{
		BaseURL:          c.BaseURL,
		MinDelay:         minDelay,
		Timeout:          time.Duration(c.TimeoutSeconds) * time.Second,
		DetailCacheTTL:   time.Duration(c.DetailCacheSeconds) * time.Second,
		CloudflareBypass: c.CloudflareBypass,
	}
}

func (r RuleConfig) Rule() scanner.Rule {
	paging := stepn.Paging{
		Order:   r.Params.Order,
		Chain:   r.Params.Chain,
		Refresh: bool(r.Params.Refresh),
		Page:    int(r.Params.Page),
		Type:    r.Params.Type,
		GType:   string(r.Params.GType),
		Quality: r.Params.Quality,
		Level:   string(r.Params.Level),
		Bread:   string(r.Params.Bread),
	}
	pageEnd := paging.Page
	if r.PageEnd != nil {
		pageEnd = *r.PageEnd
	}
	return scanner.Rule{
		Title:             r.Title,
		Condition:         r.Conditions,
		DetailCondition:   r.ConditionsOnStats,
		Paging:            paging,
		PageEnd:           pageEnd,
		Limit:             r.Limit,
		Price:             r.Price,
		Threshold:         r.Threshold,
		ThresholdFile:     r.ThresholdFile,
		ImageEnabled:      r.ImageEnabled,
		StopOnPriceUpdate: r.StopOnPriceUpdate,
	}
}

func (c Config) ScannerRules() []scanner.Rule {
	rules := make([]scanner.Rule, len(c.Rules))
	for i, r := range c.Rules {
		rules[i] = r.Rule()
	}
	return rules
}

// flexBool accepts true, false, "true", "false", "1" and "0".
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected a boolean, got %s", data)
	}
	if s == "" {
		*b = false
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("expected a boolean, got %q", s)
	}
	*b = flexBool(v)
	return nil
}

// flexInt accepts a number or a numeric string.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	var v int
	if err := json.Unmarshal(data, &v); err == nil {
		*n = flexInt(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected an integer, got %s", data)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("expected an integer, got %q", s)
	}
	*n = flexInt(v)
	return nil
}

// flexString accepts a string or a number, numbers are kept as written.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err == nil {
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected a string or a number, got %s", data)
	}
	*s = flexString(n.String())
	return nil
}
