package models

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var null = []byte("null")

// NullString is a string the model may omit, null, or send as a scalar of
// another type. Numbers and booleans are kept as their literal text; objects
// and arrays decode as null.
type NullString struct {
	String string
	Valid  bool
}

func NewNullString(s string) NullString {
	return NullString{String: s, Valid: true}
}

func (n NullString) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return null, nil
	}
	return json.Marshal(n.String)
}

func (n *NullString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*n = NullString{}
	if len(data) == 0 || bytes.Equal(data, null) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NullString{String: s, Valid: true}
	case '{', '[':
		return nil
	default:
		*n = NullString{String: string(data), Valid: true}
	}
	return nil
}

// Amount is a monetary value decoded leniently: a JSON number, a numeric
// string with currency symbols or separators, or null. Anything else decodes
// as null.
type Amount struct {
	Value float64
	Valid bool
}

func NewAmount(v float64) Amount {
	return Amount{Value: v, Valid: true}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return null, nil
	}
	return json.Marshal(a.Value)
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*a = Amount{}
	if len(data) == 0 || bytes.Equal(data, null) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if v, ok := ParseAmount(s); ok {
			*a = Amount{Value: v, Valid: true}
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*a = Amount{Value: v, Valid: true}
	}
	return nil
}

var amountJunk = regexp.MustCompile(`[^0-9.,\-]`)

// ParseAmount extracts a number from free text such as "€1.234,56" or
// "$ 1,234.56". The last comma is a decimal separator when it follows the
// last dot and one or two digits come after it, or when a dot precedes it.
func ParseAmount(s string) (float64, bool) {
	s = amountJunk.ReplaceAllString(strings.TrimSpace(s), "")
	if s == "" {
		return 0, false
	}
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	decimals := len(s) - lastComma - 1
	if lastComma > lastDot && (decimals == 1 || decimals == 2 || (lastDot >= 0 && decimals != 0)) {
		whole := strings.NewReplacer(".", "", ",", "").Replace(s[:lastComma])
		s = whole + "." + s[lastComma+1:]
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
