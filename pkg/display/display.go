// Package display formats computed formula values for people.
package display

import (
	"time"

	"github.com/leapstack-labs/cardformula/pkg/formula"
	"github.com/ncruces/go-strftime"
	"github.com/shopspring/decimal"
)

// Defaults applied by New for zero settings.
const (
	DefaultDateFormat       = "%d %b %Y"
	DefaultPrecision  int32 = 2
)

// Formatter renders numbers rounded to Precision places without insignificant
// zeros, and dates with a strftime pattern. It satisfies formula.DisplayFormatter.
type Formatter struct {
	DateFormat string
	Precision  int32
}

var _ formula.DisplayFormatter = (*Formatter)(nil)

// New returns a Formatter. An empty dateFormat or negative precision falls back to
// the defaults.
func New(dateFormat string, precision int32) *Formatter {
	if dateFormat == "" {
		dateFormat = DefaultDateFormat
	}
	if precision < 0 {
		precision = DefaultPrecision
	}
	return &Formatter{DateFormat: dateFormat, Precision: precision}
}

// FormatNumber rounds half away from zero and trims trailing zeros.
func (f *Formatter) FormatNumber(d decimal.Decimal) string {
	return d.Round(f.Precision).String()
}

// FormatDate formats t with the strftime pattern.
func (f *Formatter) FormatDate(t time.Time) string {
	return strftime.Format(f.DateFormat, t)
}

// Format renders v by its own type. Null renders as "".
func (f *Formatter) Format(v formula.Primitive) string {
	if v == nil {
		return ""
	}
	return v.OutputType().ToOutputFormat(v, f)
}
