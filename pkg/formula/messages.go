package formula

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// article prefixes a type name with its indefinite article.
func article(t Type) string {
	return "a " + t.Name()
}

// sentence capitalizes s and terminates it with a period.
func sentence(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	s = string(unicode.ToUpper(r)) + s[size:]
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}

// binaryMessage appends the operations the operand types do support.
func binaryMessage(reason string, left, right Expr) string {
	ops := left.OutputType().ValidOperationsAgainst(right.OutputType())
	if len(ops) == 0 {
		return sentence(reason)
	}
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.String()
	}
	return sentence(reason) + " Supported operations are " + strings.Join(names, ", ") + "."
}
