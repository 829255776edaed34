package lang

import "github.com/aegis-policy/aegis/internal/domain/value"

// Expr is the interface for every AST expression node (spec.md §4.3).
type Expr interface {
	expr()
	Pos() Position
}

// LiteralExpr is a constant int/float/str/bool/None token (spec.md §4.2).
type LiteralExpr struct {
	Value    value.Value
	Position Position
}

func (l *LiteralExpr) expr()         {}
func (l *LiteralExpr) Pos() Position { return l.Position }

// NameExpr is a bare identifier resolved at evaluation time via LoadName
// (spec.md §4.7).
type NameExpr struct {
	Name     string
	Position Position
}

func (n *NameExpr) expr()         {}
func (n *NameExpr) Pos() Position { return n.Position }

// SetExpr is a non-empty set literal "{e, e, ...}" (spec.md §4.3 atom 15).
type SetExpr struct {
	Elements []Expr
	Position Position
}

func (s *SetExpr) expr()         {}
func (s *SetExpr) Pos() Position { return s.Position }

// UnaryExpr is one of the prefix operators "+", "-", "~", "not" (spec.md §4.3
// precedence levels 4 and 12).
type UnaryExpr struct {
	Op       TokenType
	Operand  Expr
	Position Position
}

func (u *UnaryExpr) expr()         {}
func (u *UnaryExpr) Pos() Position { return u.Position }

// BinaryExpr is a left/right infix operator: arithmetic, bitwise, "and",
// "or", or "**" (spec.md §4.3).
type BinaryExpr struct {
	Op       TokenType
	Left     Expr
	Right    Expr
	Position Position
}

func (b *BinaryExpr) expr()         {}
func (b *BinaryExpr) Pos() Position { return b.Position }

// CompareExpr is a chained comparison "a OP1 b OP2 c ..." (spec.md §4.3
// precedence level 5); Ops[i] relates Operands[i] to Operands[i+1].
type CompareExpr struct {
	Operands []Expr
	Ops      []TokenType
	Position Position
}

func (c *CompareExpr) expr()         {}
func (c *CompareExpr) Pos() Position { return c.Position }

// TernaryExpr is "a if b else c" (spec.md §4.3 precedence level 1).
type TernaryExpr struct {
	Then     Expr
	Cond     Expr
	Else     Expr
	Position Position
}

func (t *TernaryExpr) expr()         {}
func (t *TernaryExpr) Pos() Position { return t.Position }

// AttrExpr is a trailer ".name" on some target expression.
type AttrExpr struct {
	Target   Expr
	Name     string
	Position Position
}

func (a *AttrExpr) expr()         {}
func (a *AttrExpr) Pos() Position { return a.Position }

// SubscriptExpr is a trailer "[index]" on some target expression.
type SubscriptExpr struct {
	Target   Expr
	Index    Expr
	Position Position
}

func (s *SubscriptExpr) expr()         {}
func (s *SubscriptExpr) Pos() Position { return s.Position }

// CallExpr is a trailer "(args...)" on some callee expression.
type CallExpr struct {
	Callee   Expr
	Args     []Expr
	Position Position
}

func (c *CallExpr) expr()         {}
func (c *CallExpr) Pos() Position { return c.Position }

// AttrAssign is one "name=expr" entry in an attribute block.
type AttrAssign struct {
	Name     string
	Value    Expr
	Position Position
}

// RuleAST is the full parse of one rule: the verdict expression plus an
// optional, ordered attribute-assignment block (spec.md §4.3).
type RuleAST struct {
	Verdict Expr
	Attrs   []AttrAssign
}
