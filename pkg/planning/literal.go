package planning

import "fmt"

// Fact is the index of a fluent in a problem's fact vocabulary.
type Fact int32

// Literal is a fact or its negation.
// Literals are encoded as 2*fact + sign, the sign bit being set for negated
// literals, so a literal and its negation differ only in the lowest bit.
type Literal int32

// Pos returns the positive literal of f.
func Pos(f Fact) Literal {
	return Literal(f * 2)
}

// Neg returns the negative literal of f.
func Neg(f Fact) Literal {
	return Literal(f*2) + 1
}

// SignedLiteral returns the literal of f, negated if value is false.
func SignedLiteral(f Fact, value bool) Literal {
	if value {
		return Pos(f)
	}
	return Neg(f)
}

// Fact returns the fact of l.
func (l Literal) Fact() Fact {
	return Fact(l / 2)
}

// Positive reports whether l is a non-negated fact.
func (l Literal) Positive() bool {
	return l&1 == 0
}

// Negate returns the logical negation of l.
func (l Literal) Negate() Literal {
	return l ^ 1
}

// IsNegationOf reports whether l and other are negations of each other.
func (l Literal) IsNegationOf(other Literal) bool {
	return l == other.Negate()
}

// String returns a vocabulary-free representation such as "f3" or "~f3".
func (l Literal) String() string {
	if l.Positive() {
		return fmt.Sprintf("f%d", l.Fact())
	}
	return fmt.Sprintf("~f%d", l.Fact())
}
