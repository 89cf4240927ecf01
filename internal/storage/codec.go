package storage

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"budgeting/internal/core"
	"budgeting/internal/docstore"
)

// record decodes loosely typed document fields with explicit fallbacks.
// Missing or malformed values never fail a read; they take the default.
type record docstore.Fields

func (r record) str(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func (r record) strOr(key, def string) string {
	if s := strings.TrimSpace(r.str(key)); s != "" {
		return s
	}
	return def
}

func (r record) decimal(key string) decimal.Decimal {
	d, _ := r.nullDecimal(key)
	return d
}

// nullDecimal reports false when the field is absent or null. Malformed
// values read as zero but still count as present.
func (r record) nullDecimal(key string) (decimal.Decimal, bool) {
	switch v := r[key].(type) {
	case nil:
		return decimal.Zero, false
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, true
		}
		return d, true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, true
		}
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	}
	return decimal.Zero, true
}

func (r record) int(key string, def int) int {
	switch v := r[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func (r record) bool(key string, def bool) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	case float64:
		return v != 0
	}
	return def
}

// date reads the YYYY-MM-DD prefix of the field; anything else is the zero date.
func (r record) date(key string) core.Date {
	d, err := core.ParseDate(r.str(key))
	if err != nil {
		return core.Date{}
	}
	return d
}

func (r record) time(key string) time.Time {
	s := r.str(key)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func amount(d decimal.Decimal) string {
	return core.FormatAmount(d)
}

func nullAmount(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return core.FormatAmount(d.Decimal)
}

func dateValue(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func timeValue(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// optional stores empty references as null, the way absent references are kept.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
