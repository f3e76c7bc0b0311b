package cost

import (
	"fmt"
	"math/big"
	"strings"

	"permadeploy/internal/pd"
)

// Decimals is the number of decimal places between winston and AR.
const Decimals = 12

var winstonPerAR = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// FormatAR renders a winston amount as an AR decimal string with trailing
// zeros trimmed.
func FormatAR(winston *big.Int) string {
	if winston == nil {
		return "0"
	}
	sign := ""
	w := new(big.Int).Set(winston)
	if w.Sign() < 0 {
		sign = "-"
		w.Neg(w)
	}
	whole, frac := new(big.Int).QuoRem(w, winstonPerAR, new(big.Int))
	if frac.Sign() == 0 {
		return sign + whole.String()
	}
	fs := frac.String()
	fs = strings.Repeat("0", Decimals-len(fs)) + fs
	return sign + whole.String() + "." + strings.TrimRight(fs, "0")
}

// ParseAR parses an AR decimal string into winston. More than twelve
// fractional digits is an error rather than a silent rounding.
func ParseAR(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty amount", pd.ErrValidation)
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q is not a decimal amount", pd.ErrValidation, s)
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > Decimals {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", pd.ErrValidation, s, Decimals)
	}
	if !digits(whole) || (frac != "" && !digits(frac)) {
		return nil, fmt.Errorf("%w: %q is not a decimal amount", pd.ErrValidation, s)
	}

	w, _ := new(big.Int).SetString(whole+frac+strings.Repeat("0", Decimals-len(frac)), 10)
	if neg {
		w.Neg(w)
	}
	return w, nil
}

// WinstonToAR converts the integer string the gateway reports to AR.
func WinstonToAR(winston string) (string, error) {
	w, ok := new(big.Int).SetString(strings.TrimSpace(winston), 10)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a winston amount", pd.ErrValidation, winston)
	}
	return FormatAR(w), nil
}

// SumAR adds AR decimal strings exactly. Unparseable values are skipped and
// counted.
func SumAR(values []string) (string, int) {
	total := new(big.Int)
	skipped := 0
	for _, v := range values {
		if v == "" {
			continue
		}
		w, err := ParseAR(v)
		if err != nil {
			skipped++
			continue
		}
		total.Add(total, w)
	}
	return FormatAR(total), skipped
}

// CompareAR compares two AR decimal strings like big.Int.Cmp.
func CompareAR(a, b string) (int, error) {
	wa, err := ParseAR(a)
	if err != nil {
		return 0, err
	}
	wb, err := ParseAR(b)
	if err != nil {
		return 0, err
	}
	return wa.Cmp(wb), nil
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
