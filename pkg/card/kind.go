package card

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind is the storage kind of a property.
type Kind int

// Property kinds.
const (
	KindNumber Kind = iota
	KindDate
	KindText
	KindFormula
	KindAggregate
)

var kindNames = map[Kind]string{
	KindNumber:    "number",
	KindDate:      "date",
	KindText:      "text",
	KindFormula:   "formula",
	KindAggregate: "aggregate",
}

var titleCaser = cases.Title(language.English)

// String returns the lower-case name used in project files.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Title returns the display name, e.g. "Aggregate".
func (k Kind) Title() string {
	return titleCaser.String(k.String())
}

// ParseKind parses a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown property kind %q", s)
}
