package currency

import (
	"math"
	"strconv"
	"strings"

	"brokerage-portal/internal/textnorm"
)

// Unit is the currency a user-entered price bound is expressed in.
type Unit string

const (
	UF  Unit = "UF"
	CLP Unit = "CLP"
)

// ParseUnit defaults to UF for anything that is not CLP.
func ParseUnit(s string) Unit {
	switch textnorm.Normalize(s) {
	case "clp", "pesos", "$":
		return CLP
	default:
		return UF
	}
}

// ValidRate reports whether rate can be used for conversion.
func ValidRate(rate float64) bool {
	return rate > 0 && !math.IsInf(rate, 0) && !math.IsNaN(rate)
}

// ComparableUF expresses a listing price in UF. An explicit positive UF price
// wins; otherwise a positive CLP price is divided by the rate. ok is false
// when neither rule applies.
func ComparableUF(precioUF, precioCLP *float64, rate float64) (float64, bool) {
	if precioUF != nil && *precioUF > 0 {
		return *precioUF, true
	}
	if precioCLP != nil && *precioCLP > 0 && ValidRate(rate) {
		return *precioCLP / rate, true
	}
	return 0, false
}

// ParseAmount reads a user-entered integer amount such as "100.000",
// "$ 1,500,000" or "26000". Malformed input returns nil, which callers treat
// as "no bound" rather than zero.
func ParseAmount(text string) *int64 {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', ' ', '\u00a0', '$', '_':
			return -1
		}
		return r
	}, strings.TrimSpace(text))

	cleaned = strings.TrimSuffix(strings.TrimPrefix(strings.ToUpper(cleaned), "UF"), "UF")
	cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "CLP"), "CLP")
	if cleaned == "" {
		return nil
	}

	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// Bound is a price bound normalized to UF. Set bounds take part in price
// filtering even when Value is infinite.
type Bound struct {
	Set   bool
	Value float64
}

// Unbounded minimum and maximum
var (
	NoMin = Bound{Value: math.Inf(-1)}
	NoMax = Bound{Value: math.Inf(1)}
)

// BoundToUF converts a parsed amount into a UF bound. CLP amounts are divided
// by the rate and rounded to the nearest integer. Without a usable rate a CLP
// bound stays set but opens up to -Inf (min) or +Inf (max).
func BoundToUF(amount *int64, unit Unit, rate float64, isMin bool) Bound {
	open := NoMax
	if isMin {
		open = NoMin
	}
	if amount == nil {
		return open
	}

	if unit != CLP {
		return Bound{Set: true, Value: float64(*amount)}
	}
	if !ValidRate(rate) {
		return Bound{Set: true, Value: open.Value}
	}
	return Bound{Set: true, Value: math.Round(float64(*amount) / rate)}
}

// ToCLP converts a UF amount to pesos, rounded to the peso.
func ToCLP(uf, rate float64) (float64, bool) {
	if !ValidRate(rate) {
		return 0, false
	}
	return math.Round(uf * rate), true
}
