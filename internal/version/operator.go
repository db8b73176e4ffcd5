package version

// Op is a set of comparison flags parsed from an operator string.
type Op uint8

// Comparison flags. Two-character operators combine two flags:
// ">=" is OpGT|OpEQ, "<=" is OpLT|OpEQ and "!=" is OpNE|OpEQ.
const (
	OpEQ Op = 1 << iota
	OpNE
	OpGT
	OpLT
	OpCompat
)

// OpDefault is the operator assumed when a specifier has none: "at least".
const OpDefault = OpGT | OpEQ

// ParseOp scans op one character at a time and collects the matching flags.
// Unknown characters are ignored. An operator without any recognized
// character yields OpDefault.
func ParseOp(op string) Op {
	var flags Op
	for i := 0; i < len(op); i++ {
		switch op[i] {
		case '=':
			flags |= OpEQ
		case '!':
			flags |= OpNE
		case '>':
			flags |= OpGT
		case '<':
			flags |= OpLT
		case '~':
			flags |= OpCompat
		}
	}
	if flags == 0 {
		return OpDefault
	}
	return flags
}

// String renders the operator in its canonical spelling.
func (op Op) String() string {
	switch {
	case op&OpCompat != 0:
		return "~="
	case op&OpNE != 0:
		return "!="
	case op&OpGT != 0 && op&OpEQ != 0:
		return ">="
	case op&OpLT != 0 && op&OpEQ != 0:
		return "<="
	case op&OpGT != 0:
		return ">"
	case op&OpLT != 0:
		return "<"
	case op&OpEQ != 0:
		return "="
	default:
		return ""
	}
}

// Eval reports whether candidate satisfies "candidate <op> target".
func (op Op) Eval(candidate, target string) bool {
	if op&OpCompat != 0 {
		return compatible(candidate, target)
	}

	cmp := Encode(candidate).Compare(Encode(target))
	switch {
	case op&OpNE != 0:
		return cmp != 0
	case op&OpGT != 0 && op&OpEQ != 0:
		return cmp >= 0
	case op&OpLT != 0 && op&OpEQ != 0:
		return cmp <= 0
	case op&OpGT != 0:
		return cmp > 0
	case op&OpLT != 0:
		return cmp < 0
	case op&OpEQ != 0:
		return cmp == 0
	default:
		return false
	}
}
