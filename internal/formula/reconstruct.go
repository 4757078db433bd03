package formula

import "strings"

// Reconstruct writes n back to its canonical text form (spec.md §4.5,
// "reverse of parse"). Two parsed formulas are equal iff their reconstructed
// text is equal (and their formats match) — so Reconstruct must be stable:
// parsing its own output and reconstructing again yields the same text
// (spec.md §8 invariant: "parse(s).to_canonical() is idempotent").
func Reconstruct(n Node) (string, error) {
	var b strings.Builder
	if err := writeNode(&b, n); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeNode(b *strings.Builder, n Node) error {
	switch node := n.(type) {
	case RootNode:
		return writeNode(b, node.Child)

	case ParenNode:
		b.WriteByte('(')
		if err := writeNode(b, node.Child); err != nil {
			return err
		}
		b.WriteByte(')')
		return nil

	case BinaryNode:
		if err := writeNode(b, node.Left); err != nil {
			return err
		}
		b.WriteByte(' ')
		b.WriteString(node.Op)
		b.WriteByte(' ')
		return writeNode(b, node.Right)

	case UnaryNode:
		b.WriteString(node.Op)
		return writeNode(b, node.Operand)

	case NumberNode:
		b.WriteString(node.Text)
		return nil

	case QuotedStringNode:
		b.WriteByte('"')
		b.WriteString(escapeString(node.Value))
		b.WriteByte('"')
		return nil

	case IdentifierNode:
		b.WriteString(node.Name)
		return nil

	case FunctionLookupNode:
		b.WriteString(node.Name)
		return writeNode(b, node.Args)

	case *FunctionParenNode:
		b.WriteByte('(')
		for i, arg := range node.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := writeNode(b, arg); err != nil {
				return err
			}
		}
		b.WriteByte(')')
		return nil

	case FunctionBracketNode:
		b.WriteByte('[')
		for i, arg := range node.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := writeNode(b, arg); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil

	default:
		return errAt(InvariantViolation, n, "unhandled node kind %T in Reconstruct", n)
	}
}

func escapeString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
