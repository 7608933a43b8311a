// Package descriptor parses JVM field and method type descriptors into
// typed trees, grounded on the recursive-descent grammar in
// original_source's parse_field_type/parse_method_descriptor.
package descriptor

import (
	"strings"

	"github.com/mattstark/corevm/pkg/vmerrors"
)

// Kind discriminates the ten primitive/composite FieldType variants.
type Kind int

const (
	Boolean Kind = iota
	Byte
	Char
	Short
	Int
	Long
	Float
	Double
	ClassRef
	ArrayRef
)

// FieldType is a parsed field/return type descriptor.
type FieldType struct {
	Kind      Kind
	ClassName string     // populated for ClassRef
	Element   *FieldType // populated for ArrayRef
}

// Category returns 2 for long/double, 1 for everything else (JVM operand
// stack/local variable category, per spec.md §3).
func (t FieldType) Category() int {
	if t.Kind == Long || t.Kind == Double {
		return 2
	}
	return 1
}

// Descriptor re-renders the type as its compact descriptor string.
func (t FieldType) Descriptor() string {
	switch t.Kind {
	case Boolean:
		return "Z"
	case Byte:
		return "B"
	case Char:
		return "C"
	case Short:
		return "S"
	case Int:
		return "I"
	case Long:
		return "J"
	case Float:
		return "F"
	case Double:
		return "D"
	case ClassRef:
		return "L" + t.ClassName + ";"
	case ArrayRef:
		return "[" + t.Element.Descriptor()
	default:
		return "?"
	}
}

// MethodDescriptor is a parsed method type descriptor. Return is nil for a
// void return type.
type MethodDescriptor struct {
	Params []FieldType
	Return *FieldType
}

type scanner struct {
	s   string
	pos int
}

func (s *scanner) peek() (byte, bool) {
	if s.pos >= len(s.s) {
		return 0, false
	}
	return s.s[s.pos], true
}

func (s *scanner) next() (byte, bool) {
	c, ok := s.peek()
	if ok {
		s.pos++
	}
	return c, ok
}

// ParseField parses a single field-type descriptor, e.g. "I", "[J",
// "Ljava/lang/String;".
func ParseField(s string) (FieldType, error) {
	sc := &scanner{s: s}
	t, err := parseFieldType(sc)
	if err != nil {
		return FieldType{}, err
	}
	if sc.pos != len(sc.s) {
		return FieldType{}, vmerrors.New(vmerrors.Descriptor, "trailing characters in field descriptor %q", s)
	}
	return t, nil
}

func parseFieldType(sc *scanner) (FieldType, error) {
	c, ok := sc.next()
	if !ok {
		return FieldType{}, vmerrors.New(vmerrors.Descriptor, "empty field descriptor")
	}
	switch c {
	case 'Z':
		return FieldType{Kind: Boolean}, nil
	case 'B':
		return FieldType{Kind: Byte}, nil
	case 'C':
		return FieldType{Kind: Char}, nil
	case 'S':
		return FieldType{Kind: Short}, nil
	case 'I':
		return FieldType{Kind: Int}, nil
	case 'J':
		return FieldType{Kind: Long}, nil
	case 'F':
		return FieldType{Kind: Float}, nil
	case 'D':
		return FieldType{Kind: Double}, nil
	case 'L':
		start := sc.pos
		for {
			ch, ok := sc.next()
			if !ok {
				return FieldType{}, vmerrors.New(vmerrors.Descriptor, "unterminated class type starting at %d in %q", start, sc.s)
			}
			if ch == ';' {
				return FieldType{Kind: ClassRef, ClassName: sc.s[start : sc.pos-1]}, nil
			}
		}
	case '[':
		elem, err := parseFieldType(sc)
		if err != nil {
			return FieldType{}, err
		}
		return FieldType{Kind: ArrayRef, Element: &elem}, nil
	default:
		return FieldType{}, vmerrors.New(vmerrors.Descriptor, "unrecognized field descriptor prefix %q in %q", string(c), sc.s)
	}
}

// ParseMethod parses a full method descriptor, e.g. "(I[J)Ljava/lang/String;".
func ParseMethod(s string) (MethodDescriptor, error) {
	sc := &scanner{s: s}
	open, ok := sc.next()
	if !ok || open != '(' {
		return MethodDescriptor{}, vmerrors.New(vmerrors.Descriptor, "method descriptor %q missing leading '('", s)
	}
	var params []FieldType
	for {
		c, ok := sc.peek()
		if !ok {
			return MethodDescriptor{}, vmerrors.New(vmerrors.Descriptor, "method descriptor %q missing ')'", s)
		}
		if c == ')' {
			sc.next()
			break
		}
		t, err := parseFieldType(sc)
		if err != nil {
			return MethodDescriptor{}, err
		}
		params = append(params, t)
	}

	if sc.pos >= len(sc.s) {
		return MethodDescriptor{}, vmerrors.New(vmerrors.Descriptor, "method descriptor %q missing return type", s)
	}
	if sc.s[sc.pos] == 'V' {
		sc.pos++
		if sc.pos != len(sc.s) {
			return MethodDescriptor{}, vmerrors.New(vmerrors.Descriptor, "trailing characters in method descriptor %q", s)
		}
		return MethodDescriptor{Params: params, Return: nil}, nil
	}
	ret, err := parseFieldType(sc)
	if err != nil {
		return MethodDescriptor{}, err
	}
	if sc.pos != len(sc.s) {
		return MethodDescriptor{}, vmerrors.New(vmerrors.Descriptor, "trailing characters in method descriptor %q", s)
	}
	return MethodDescriptor{Params: params, Return: &ret}, nil
}

// ParamWidth returns the total cell width of the method's parameters, in
// declaration order (category-2 params counting for two).
func (d MethodDescriptor) ParamWidth() int {
	w := 0
	for _, p := range d.Params {
		w += p.Category()
	}
	return w
}

// ArrayElementDescriptor strips one leading '[' from an array descriptor and
// returns the element descriptor, e.g. "[[I" -> "[I", "[Ljava/lang/Object;"
// -> "Ljava/lang/Object;".
func ArrayElementDescriptor(arrayDescriptor string) (string, error) {
	if !strings.HasPrefix(arrayDescriptor, "[") {
		return "", vmerrors.New(vmerrors.Descriptor, "not an array descriptor: %q", arrayDescriptor)
	}
	return arrayDescriptor[1:], nil
}
