package field

import (
	"regexp"
	"strconv"
	"strings"
)

// shorthandRe matches `TYPE`, `TYPE(arg)` or `TYPE(a,b)`.
var shorthandRe = regexp.MustCompile(`^\s*([A-Za-z]+)\s*(?:\(\s*([^()]*)\s*\))?\s*$`)

// ParseShorthand parses a field-type shorthand string into a Field.
// Grammar: `TYPE` | `TYPE(arg)` | `TYPE(precision,scale)` (decimal only).
// Parsing fails with an InvalidField error when the shorthand does not
// match this grammar.
func ParseShorthand(shorthand string) (Field, error) {
	m := shorthandRe.FindStringSubmatch(shorthand)
	if m == nil {
		return Field{}, NewInvalidFieldError("malformed field shorthand: " + shorthand)
	}
	name := strings.ToLower(m[1])
	kind, ok := knownKinds[name]
	if !ok {
		return Field{}, NewInvalidFieldError("unknown field type: " + m[1])
	}

	var args []string
	if m[2] != "" {
		for _, a := range strings.Split(m[2], ",") {
			args = append(args, strings.TrimSpace(a))
		}
	}

	f := Field{Type: kind}
	switch kind {
	case KindDecimal:
		switch len(args) {
		case 0:
			// bare "decimal" with no precision/scale is allowed.
		case 2:
			p, err := strconv.Atoi(args[0])
			if err != nil {
				return Field{}, NewInvalidFieldError("decimal precision must be an integer: " + args[0])
			}
			s, err := strconv.Atoi(args[1])
			if err != nil {
				return Field{}, NewInvalidFieldError("decimal scale must be an integer: " + args[1])
			}
			f.Precision, f.Scale = p, s
		default:
			return Field{}, NewInvalidFieldError("decimal shorthand takes 0 or 2 arguments: " + shorthand)
		}
	case KindChar, KindString, KindBinary:
		switch len(args) {
		case 0:
		case 1:
			l, err := strconv.Atoi(args[0])
			if err != nil {
				return Field{}, NewInvalidFieldError(name + " length must be an integer: " + args[0])
			}
			f.Length = l
		default:
			return Field{}, NewInvalidFieldError(name + " shorthand takes at most 1 argument: " + shorthand)
		}
	default:
		if len(args) != 0 {
			return Field{}, NewInvalidFieldError(name + " shorthand takes no arguments: " + shorthand)
		}
	}
	if err := f.Validate(); err != nil {
		return Field{}, err
	}
	return f, nil
}
