package dataprocessing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"msecli/pkg/contracts/domain"
)

// Normalized is the outcome of normalizing one field. Parsed reports whether
// Value is in canonical form; otherwise Value is the fallback text.
type Normalized struct {
	Value  string
	Parsed bool
}

// Parsed wraps a canonical value
func Parsed(value string) Normalized {
	return Normalized{Value: value, Parsed: true}
}

// Unparsed wraps fallback text
func Unparsed(text string) Normalized {
	return Normalized{Value: text}
}

// String returns the text to persist
func (n Normalized) String() string {
	return n.Value
}

// NormalizeDate converts a DD.MM.YYYY date to YYYY-MM-DD.
func NormalizeDate(raw string) Normalized {
	t, err := time.Parse(domain.SourceDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return Unparsed(raw)
	}
	return Parsed(t.Format(domain.StoreDateLayout))
}

// NormalizePrice converts a locale formatted price to #,##0.00.
// Unparseable input is returned with spaces and commas removed.
func NormalizePrice(raw string) Normalized {
	compact := stripSpaces(raw)

	value, err := decimal.NewFromString(canonicalNumber(compact))
	if err != nil {
		return Unparsed(strings.ReplaceAll(compact, ",", ""))
	}
	return Parsed(FormatPrice(value))
}

// FormatPrice renders d with two decimals and comma grouped thousands
func FormatPrice(d decimal.Decimal) string {
	fixed := d.StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}

	intPart, frac, _ := strings.Cut(fixed, ".")
	return sign + groupThousands(intPart) + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// canonicalNumber rewrites s so that '.' is the only decimal mark and no
// grouping separators remain. When both ',' and '.' appear the rightmost is
// the decimal mark. A single ',' is a decimal mark unless exactly three
// digits follow it.
func canonicalNumber(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	default:
		return s
	}
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\u00a0', '\u202f':
			return -1
		}
		return r
	}, s)
}
