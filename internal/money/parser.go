// Package money распознаёт денежные строки в свободном формате и переводит их в копейки (центы).
package money

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
)

var (
	// 23,345.57
	usFormat = regexp.MustCompile(`^\d+(,\d{3})+\.\d{2}$`)
	// 123 456.789,12
	germanFormat = regexp.MustCompile(`^\d{1,3}( \d{3})*\.\d{3},\d{2}$`)
	// 39,99 / 39.99
	pennyFormat = regexp.MustCompile(`^\d+[.,]\d{2}$`)
	// 123 456 789.123
	groupedFormat = regexp.MustCompile(`^\d{1,3}( \d{3})*\.\d{3}$`)

	decimalAhead   = regexp.MustCompile(`^\d+\.\d+`)
	thousandsTail  = regexp.MustCompile(`[.,]\d{3}$`)
	singleFraction = regexp.MustCompile(`^\d*[.,]\d$`)
	groupSeps      = regexp.MustCompile(`[., ]`)
	decimalSeps    = regexp.MustCompile(`[.,]`)
)

func notSupported(s string) error {
	return apperr.New(apperr.FormatNotSupported, "Money format not supported: %q", s)
}

// Parse переводит строку в минимальные единицы. appendPenny означает,
// что целые значения выражены в основных единицах и к ним дописываются "00".
func Parse(s string, appendPenny bool) (int64, error) {
	if usFormat.MatchString(s) || germanFormat.MatchString(s) || pennyFormat.MatchString(s) {
		return atoi(s, groupSeps.ReplaceAllString(s, ""), 1)
	}

	if groupedFormat.MatchString(s) {
		cut := s[:len(s)-3]
		if appendPenny {
			cut = s[:len(s)-1]
		}
		return atoi(s, groupSeps.ReplaceAllString(cut, ""), 1)
	}

	data := stripThousands(s)
	if thousandsTail.MatchString(data) {
		data = decimalSeps.ReplaceAllString(data, "")
	}

	switch {
	case isDigits(data):
		if appendPenny {
			data += "00"
		}
		return atoi(s, data, 1)
	case singleFraction.MatchString(data):
		return atoi(s, decimalSeps.ReplaceAllString(data, ""), 10)
	case strings.HasSuffix(data, ".") || strings.HasSuffix(data, ","):
		return atoi(s, decimalSeps.ReplaceAllString(data, ""), 100)
	}
	return 0, notSupported(s)
}

// ParseValue принимает сырое значение из запроса.
func ParseValue(v any, appendPenny bool) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, notSupported("")
	case string:
		return Parse(strings.TrimSpace(t), appendPenny)
	case float64:
		return Parse(strconv.FormatFloat(t, 'f', -1, 64), appendPenny)
	case int:
		return Parse(strconv.Itoa(t), appendPenny)
	case int64:
		return Parse(strconv.FormatInt(t, 10), appendPenny)
	default:
		return 0, notSupported(fmt.Sprint(v))
	}
}

// stripThousands убирает всё, кроме цифр и разделителей, и разделители,
// за которыми идёт ещё одна десятичная часть или конец строки.
func stripThousands(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '.' || c == ',':
			rest := s[i+1:]
			if rest == "" || decimalAhead.MatchString(rest) {
				continue
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func atoi(orig, digits string, mul int64) (int64, error) {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, notSupported(orig)
	}
	if n > (1<<63-1)/mul {
		return 0, notSupported(orig)
	}
	return n * mul, nil
}
