package translate

import (
	"fmt"

	"spv2ll/report"
	"spv2ll/spirv"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/value"
)

// placeholderPrefix names the private globals that stand in for unresolved
// forward references.
const placeholderPrefix = "placeholder."

// placeholder is the machinery behind one unresolved forward reference: a
// private global whose load stands in for the real value until it translates.
type placeholder struct {
	global *ir.Global
	load   *ir.InstLoad
	block  *ir.Block
	fn     *ir.Func
}

// createPlaceholder manufactures a stand-in value for a forward reference to
// bv inside block b.  The stand-in is a load of a fresh private global; when
// the real value translates, mapValue replaces all uses of the load and
// unlinks both the load and the global.
func (t *Translator) createPlaceholder(bv *spirv.Value, f *ir.Func, b *ir.Block) value.Value {
	lt := t.transType(bv.Type)

	g := t.m.NewGlobalDef(fmt.Sprintf("%s%s.%d", placeholderPrefix, bv.Name, t.placeholderCount), constant.NewZeroInitializer(lt))
	g.Linkage = enum.LinkagePrivate
	t.placeholderCount++

	ld := b.NewLoad(lt, g)

	t.placeholders[bv] = &placeholder{global: g, load: ld, block: b, fn: f}
	return ld
}

// mapValue memoizes the translation of bv.  If bv was previously translated
// to a placeholder, the placeholder is resolved: every use is redirected to
// the real value and the stand-in load and global are unlinked.  Mapping the
// same value twice without an outstanding placeholder is a broken invariant.
func (t *Translator) mapValue(bv *spirv.Value, v value.Value) value.Value {
	if old, ok := t.valueMap[bv]; ok && old != v {
		ph := t.placeholders[bv]
		if ph == nil {
			report.RaiseICE("value id %d translated twice", bv.ID)
		}

		replaceUses(ph.fn, ph.load, v)
		removeInst(ph.block, ph.load)
		removeGlobal(t.m, ph.global)
		delete(t.placeholders, bv)
	}

	t.valueMap[bv] = v
	return v
}

// -----------------------------------------------------------------------------

// replaceUses redirects every operand use of old inside f to new and reports
// how many operand slots matched.  The target IR keeps no use lists, so uses
// are found by walking every instruction and terminator of the function.
// Calling it with old == new counts uses without changing anything.
func replaceUses(f *ir.Func, old, new value.Value) int {
	r := &replacer{old: old, new: new}
	for _, b := range f.Blocks {
		for _, inst := range b.Insts {
			r.inst(inst)
		}
		r.term(b.Term)
	}
	return r.n
}

// replacer carries one old→new operand rewrite across a function walk.
type replacer struct {
	old, new value.Value
	n        int
}

func (r *replacer) val(slot *value.Value) {
	if *slot == r.old {
		*slot = r.new
		r.n++
	}
}

// inst rewrites the operand fields of a single instruction.  Placeholders
// only ever stand in for data values, so operand slots that can only hold
// blocks or types need no handling.
func (r *replacer) inst(inst ir.Instruction) {
	switch v := inst.(type) {
	case *ir.InstAlloca:
		r.val(&v.NElems)
	case *ir.InstLoad:
		r.val(&v.Src)
	case *ir.InstStore:
		r.val(&v.Src)
		r.val(&v.Dst)
	case *ir.InstGetElementPtr:
		r.val(&v.Src)
		for i := range v.Indices {
			r.val(&v.Indices[i])
		}
	case *ir.InstExtractElement:
		r.val(&v.X)
		r.val(&v.Index)
	case *ir.InstInsertElement:
		r.val(&v.X)
		r.val(&v.Elem)
		r.val(&v.Index)
	case *ir.InstShuffleVector:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstExtractValue:
		r.val(&v.X)
	case *ir.InstInsertValue:
		r.val(&v.X)
		r.val(&v.Elem)
	case *ir.InstSelect:
		r.val(&v.Cond)
		r.val(&v.ValueTrue)
		r.val(&v.ValueFalse)
	case *ir.InstCall:
		r.val(&v.Callee)
		for i := range v.Args {
			r.val(&v.Args[i])
		}
	case *ir.InstPhi:
		for _, inc := range v.Incs {
			r.val(&inc.X)
		}
	case *ir.InstICmp:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstFCmp:
		r.val(&v.X)
		r.val(&v.Y)

	case *ir.InstAdd:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstFAdd:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstSub:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstFSub:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstMul:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstFMul:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstUDiv:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstSDiv:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstFDiv:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstURem:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstSRem:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstFRem:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstShl:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstLShr:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstAShr:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstAnd:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstOr:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstXor:
		r.val(&v.X)
		r.val(&v.Y)
	case *ir.InstFNeg:
		r.val(&v.X)

	case *ir.InstTrunc:
		r.val(&v.From)
	case *ir.InstZExt:
		r.val(&v.From)
	case *ir.InstSExt:
		r.val(&v.From)
	case *ir.InstFPTrunc:
		r.val(&v.From)
	case *ir.InstFPExt:
		r.val(&v.From)
	case *ir.InstFPToUI:
		r.val(&v.From)
	case *ir.InstFPToSI:
		r.val(&v.From)
	case *ir.InstUIToFP:
		r.val(&v.From)
	case *ir.InstSIToFP:
		r.val(&v.From)
	case *ir.InstPtrToInt:
		r.val(&v.From)
	case *ir.InstIntToPtr:
		r.val(&v.From)
	case *ir.InstBitCast:
		r.val(&v.From)
	case *ir.InstAddrSpaceCast:
		r.val(&v.From)
	}
}

// term rewrites the value operands of a terminator.
func (r *replacer) term(term ir.Terminator) {
	switch v := term.(type) {
	case *ir.TermRet:
		r.val(&v.X)
	case *ir.TermCondBr:
		r.val(&v.Cond)
	case *ir.TermSwitch:
		r.val(&v.X)
	}
}

// removeInst unlinks an instruction from its block.
func removeInst(b *ir.Block, inst ir.Instruction) {
	for i, cur := range b.Insts {
		if cur == inst {
			b.Insts = append(b.Insts[:i], b.Insts[i+1:]...)
			return
		}
	}
}

// removeGlobal unlinks a global from the module.
func removeGlobal(m *ir.Module, g *ir.Global) {
	for i, cur := range m.Globals {
		if cur == g {
			m.Globals = append(m.Globals[:i], m.Globals[i+1:]...)
			return
		}
	}
}
