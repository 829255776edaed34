package lang

import (
	"github.com/aegis-policy/aegis/internal/domain/policy"
)

// Compile lexes, parses and lowers rule text into a postfix instruction
// stream (spec.md §4.4). It satisfies the policy.Compiler function type and
// is the concrete implementation injected into every Rule.
func Compile(text string) ([]policy.Instruction, error) {
	p, perr := NewParser(text)
	if perr != nil {
		return nil, perr
	}
	ast, perr := p.ParseRule()
	if perr != nil {
		return nil, perr
	}

	c := &compiler{}
	c.compileExpr(ast.Verdict)

	names := make([]string, 0, len(ast.Attrs))
	for _, a := range ast.Attrs {
		c.compileExpr(a.Value)
		names = append(names, a.Name)
	}
	c.emit(policy.Instruction{Op: policy.OpSetAuthz, AttrNames: names})
	return c.instrs, nil
}

// compiler accumulates the instruction stream for one rule and patches
// forward jump targets once their destination is known.
type compiler struct {
	instrs []policy.Instruction
}

func (c *compiler) emit(instr policy.Instruction) int {
	c.instrs = append(c.instrs, instr)
	return len(c.instrs) - 1
}

func (c *compiler) here() int { return len(c.instrs) }

func (c *compiler) patch(idx int) { c.instrs[idx].Target = c.here() }

// compileExpr lowers one expression node onto the instruction stream,
// trying constant folding first (spec.md §4.4).
func (c *compiler) compileExpr(e Expr) {
	if v, ok := foldConst(e); ok {
		c.emit(policy.Instruction{Op: policy.OpPushConst, Const: v})
		return
	}

	switch n := e.(type) {
	case *LiteralExpr:
		c.emit(policy.Instruction{Op: policy.OpPushConst, Const: n.Value})

	case *NameExpr:
		c.emit(policy.Instruction{Op: policy.OpLoadName, Name: n.Name})

	case *SetExpr:
		for _, el := range n.Elements {
			c.compileExpr(el)
		}
		c.emit(policy.Instruction{Op: policy.OpBuildSet, Argc: len(n.Elements)})

	case *UnaryExpr:
		c.compileExpr(n.Operand)
		c.emit(policy.Instruction{Op: unaryOpcode(n.Op)})

	case *BinaryExpr:
		c.compileBinary(n)

	case *CompareExpr:
		c.compileCompare(n)

	case *TernaryExpr:
		c.compileExpr(n.Cond)
		falseJump := c.emit(policy.Instruction{Op: policy.OpJumpIfFalsePop})
		c.compileExpr(n.Then)
		endJump := c.emit(policy.Instruction{Op: policy.OpJump})
		c.patch(falseJump)
		c.compileExpr(n.Else)
		c.patch(endJump)

	case *AttrExpr:
		c.compileExpr(n.Target)
		c.emit(policy.Instruction{Op: policy.OpGetAttr, Name: n.Name})

	case *SubscriptExpr:
		c.compileExpr(n.Target)
		c.compileExpr(n.Index)
		c.emit(policy.Instruction{Op: policy.OpGetItem})

	case *CallExpr:
		c.compileExpr(n.Callee)
		for _, arg := range n.Args {
			c.compileExpr(arg)
		}
		c.emit(policy.Instruction{Op: policy.OpCall, Argc: len(n.Args)})
	}
}

// compileBinary handles "and"/"or" as value-preserving short-circuit jumps
// and everything else as an eager two-operand opcode (spec.md §4.4).
func (c *compiler) compileBinary(n *BinaryExpr) {
	switch n.Op {
	case TokAnd:
		c.compileExpr(n.Left)
		skip := c.emit(policy.Instruction{Op: policy.OpJumpIfFalseElseKeep})
		c.compileExpr(n.Right)
		c.patch(skip)
	case TokOr:
		c.compileExpr(n.Left)
		skip := c.emit(policy.Instruction{Op: policy.OpJumpIfTrueElseKeep})
		c.compileExpr(n.Right)
		c.patch(skip)
	default:
		c.compileExpr(n.Left)
		c.compileExpr(n.Right)
		c.emit(policy.Instruction{Op: binaryOpcode(n.Op)})
	}
}

// compileCompare lowers a (possibly chained) comparison. A single
// comparison is a plain two-operand opcode. A chain of N>1 comparisons
// shares each middle operand across two comparisons by duplicating it on
// the stack (OpDup, OpRot3) rather than re-evaluating its expression, and
// short-circuits on the first False exactly like "and" (spec.md §4.3,
// §8 "Short-circuit correctness").
func (c *compiler) compileCompare(n *CompareExpr) {
	c.compileExpr(n.Operands[0])

	if len(n.Ops) == 1 {
		c.compileExpr(n.Operands[1])
		c.emit(policy.Instruction{Op: compareOpcode(n.Ops[0])})
		return
	}

	var endJumps []int
	for i, op := range n.Ops {
		c.compileExpr(n.Operands[i+1])
		c.emit(policy.Instruction{Op: policy.OpDup})
		c.emit(policy.Instruction{Op: policy.OpRot3})
		c.emit(policy.Instruction{Op: compareOpcode(op)})
		if i < len(n.Ops)-1 {
			endJumps = append(endJumps, c.emit(policy.Instruction{Op: policy.OpJumpIfFalseElseKeep}))
		}
	}
	for _, idx := range endJumps {
		c.patch(idx)
	}
	c.emit(policy.Instruction{Op: policy.OpPopBelow})
}

func unaryOpcode(t TokenType) policy.Opcode {
	switch t {
	case TokPlus:
		return policy.OpPos
	case TokMinus:
		return policy.OpNeg
	case TokTilde:
		return policy.OpInvert
	case TokNot:
		return policy.OpNot
	default:
		panic("lang: unreachable unary operator")
	}
}

func binaryOpcode(t TokenType) policy.Opcode {
	switch t {
	case TokPlus:
		return policy.OpAdd
	case TokMinus:
		return policy.OpSub
	case TokStar:
		return policy.OpMul
	case TokSlash:
		return policy.OpDiv
	case TokDoubleSlash:
		return policy.OpFloorDiv
	case TokPercent:
		return policy.OpMod
	case TokDoubleStar:
		return policy.OpPow
	case TokAmp:
		return policy.OpBitAnd
	case TokPipe:
		return policy.OpBitOr
	case TokCaret:
		return policy.OpBitXor
	case TokShl:
		return policy.OpShl
	case TokShr:
		return policy.OpShr
	default:
		panic("lang: unreachable binary operator")
	}
}

func compareOpcode(t TokenType) policy.Opcode {
	switch t {
	case TokEqEq:
		return policy.OpEq
	case TokNotEq:
		return policy.OpNe
	case TokLt:
		return policy.OpLt
	case TokLe:
		return policy.OpLe
	case TokGt:
		return policy.OpGt
	case TokGe:
		return policy.OpGe
	case TokIn:
		return policy.OpIn
	case notInOp:
		return policy.OpNotIn
	default:
		panic("lang: unreachable comparison operator")
	}
}
