package fieldtype

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AdrianSkaw/dynamic/internal/money"
)

// DateLayout — формат даты на входе и выходе.
const DateLayout = "2006-01-02 15:04:05"

// IsNowSentinel: "now" (и CURRENT_TIMESTAMP) означает текущее время.
func IsNowSentinel(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	s = strings.TrimSpace(s)
	return strings.EqualFold(s, "now") || strings.EqualFold(s, "current_timestamp")
}

// ---- int ----

type intType struct{}

func (intType) sealed()                     {}
func (intType) Name() string                { return Int }
func (intType) Options() []Option           { return nil }
func (intType) ValidateConfig(Config) error { return nil }

func (intType) Encode(_ context.Context, v any, _ Config) (any, error) {
	if n, ok := toInt(v); ok {
		return n, nil
	}
	return v, nil
}

func (t intType) Decode(ctx context.Context, v any, cfg Config) (any, error) {
	return t.Encode(ctx, v, cfg)
}

func (intType) ValidateValue(_ context.Context, v any, _ Config) error {
	switch v.(type) {
	case int, int32, int64:
		return nil
	}
	return invalid("Value %v must be an integer", v)
}

func (intType) Column(context.Context, Config) (Column, error) {
	return Column{SQLType: "bigint"}, nil
}

// ---- string ----

type stringType struct{}

func (stringType) sealed()      {}
func (stringType) Name() string { return String }

func (stringType) Options() []Option {
	return []Option{{Name: "length", Kind: OptionInt, Default: int64(255)}}
}

func (stringType) ValidateConfig(cfg Config) error {
	if cfg.Int("length") <= 0 {
		return invalid("String length must be positive")
	}
	return nil
}

func (stringType) Encode(_ context.Context, v any, _ Config) (any, error) { return v, nil }
func (stringType) Decode(_ context.Context, v any, _ Config) (any, error) {
	if b, ok := v.([]byte); ok {
		return string(b), nil
	}
	return v, nil
}

func (stringType) ValidateValue(_ context.Context, v any, cfg Config) error {
	s, ok := v.(string)
	if !ok {
		return invalid("Value %v must be a string", v)
	}
	if n := cfg.Int("length"); n > 0 && int64(utf8.RuneCountInString(s)) > n {
		return invalid("Value is longer than %d characters", n)
	}
	return nil
}

func (stringType) Column(_ context.Context, cfg Config) (Column, error) {
	n := cfg.Int("length")
	if n < 4096 {
		return Column{SQLType: fmt.Sprintf("varchar(%d)", n)}, nil
	}
	return Column{SQLType: "text"}, nil
}

// ---- date ----

type dateType struct {
	now func() time.Time
}

func newDateType() dateType { return dateType{now: time.Now} }

func (dateType) sealed()                     {}
func (dateType) Name() string                { return Date }
func (dateType) Options() []Option           { return nil }
func (dateType) ValidateConfig(Config) error { return nil }

func (t dateType) Encode(_ context.Context, v any, _ Config) (any, error) {
	switch d := v.(type) {
	case time.Time:
		return d.Format(DateLayout), nil
	case string:
		if IsNowSentinel(d) {
			return t.now().Format(DateLayout), nil
		}
		return d, nil
	}
	return v, nil
}

func (dateType) Decode(_ context.Context, v any, _ Config) (any, error) {
	switch d := v.(type) {
	case time.Time:
		return d.Format(DateLayout), nil
	case []byte:
		return string(d), nil
	}
	return v, nil
}

func (dateType) ValidateValue(_ context.Context, v any, _ Config) error {
	s, ok := v.(string)
	if !ok {
		return invalid("Value %v must be a date string", v)
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return invalid("Value %q does not match format YYYY-MM-DD HH:MM:SS", s)
	}
	return nil
}

func (dateType) Column(context.Context, Config) (Column, error) {
	return Column{SQLType: "timestamp"}, nil
}

// ---- float ----

type floatType struct{}

func (floatType) sealed()                     {}
func (floatType) Name() string                { return Float }
func (floatType) Options() []Option           { return nil }
func (floatType) ValidateConfig(Config) error { return nil }

func (floatType) Encode(_ context.Context, v any, _ Config) (any, error) {
	if f, ok := toFloat(v); ok {
		return f, nil
	}
	return v, nil
}

func (t floatType) Decode(ctx context.Context, v any, cfg Config) (any, error) {
	return t.Encode(ctx, v, cfg)
}

func (floatType) ValidateValue(_ context.Context, v any, _ Config) error {
	switch v.(type) {
	case float64, float32:
		return nil
	}
	return invalid("Value %v must be a float", v)
}

func (floatType) Column(context.Context, Config) (Column, error) {
	return Column{SQLType: "double precision"}, nil
}

// ---- money ----

type moneyType struct{}

func (moneyType) sealed()      {}
func (moneyType) Name() string { return Money }

func (moneyType) Options() []Option {
	return []Option{
		{Name: "min", Kind: OptionInt, Default: int64(-2147483648)},
		{Name: "max", Kind: OptionInt, Default: int64(2147483648)},
	}
}

func (moneyType) ValidateConfig(cfg Config) error {
	if cfg.Int("min") > cfg.Int("max") {
		return invalid("Money min must not exceed max")
	}
	return nil
}

func (moneyType) Encode(_ context.Context, v any, _ Config) (any, error) {
	return money.ParseValue(v, true)
}

func (moneyType) Decode(_ context.Context, v any, _ Config) (any, error) {
	if n, ok := toInt(v); ok {
		return n, nil
	}
	return v, nil
}

func (moneyType) ValidateValue(_ context.Context, v any, cfg Config) error {
	var n int64
	switch t := v.(type) {
	case int64:
		n = t
	case int:
		n = int64(t)
	default:
		return invalid("Value %v must be an amount in minor units", v)
	}
	if n < cfg.Int("min") || n > cfg.Int("max") {
		return invalid("Amount %d is out of range [%d, %d]", n, cfg.Int("min"), cfg.Int("max"))
	}
	return nil
}

func (moneyType) Column(context.Context, Config) (Column, error) {
	return Column{SQLType: "bigint"}, nil
}
