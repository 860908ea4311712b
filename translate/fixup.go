package translate

import (
	"strings"

	"spv2ll/mangle"
	"spv2ll/report"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// lowerBuiltinVariables rewrites every load of a builtin variable into calls
// of the corresponding workitem builtin.  Scalar loads become one call;
// extractions from vector loads become per-dimension calls, and any other use
// of a vector load reassembles the full vector lane by lane.  The variables
// themselves are removed once no load remains.
func (t *Translator) lowerBuiltinVariables() {
	// Globals snapshot keeps iteration order stable while removing.
	globals := make([]*ir.Global, len(t.m.Globals))
	copy(globals, t.m.Globals)

	for _, g := range globals {
		kind, ok := t.builtinVars[g]
		if !ok {
			continue
		}

		name, ok := builtinVarNames[kind]
		if !ok {
			report.Raise(report.KindUnsupported, "builtin variable %d is not supported", kind)
		}

		for _, f := range t.m.Funcs {
			t.lowerBuiltinLoads(f, g, name)
		}

		removeGlobal(t.m, g)
		delete(t.builtinVars, g)
	}
}

func (t *Translator) lowerBuiltinLoads(f *ir.Func, g *ir.Global, name string) {
	var loads []*ir.InstLoad
	for _, b := range f.Blocks {
		for _, inst := range b.Insts {
			if ld, ok := inst.(*ir.InstLoad); ok && ld.Src == g {
				loads = append(loads, ld)
			}
		}
	}

	for _, ld := range loads {
		vt, isVec := ld.Type().(*types.VectorType)
		if !isVec {
			call := t.builtinCall(name, ld.Type())
			swapInst(f, ld, call)
			replaceUses(f, ld, call)
			continue
		}

		// Dimension extractions call the builtin directly with their index.
		for _, b := range f.Blocks {
			for i, inst := range b.Insts {
				ex, ok := inst.(*ir.InstExtractElement)
				if !ok || ex.X != ld {
					continue
				}

				call := t.builtinCall(name, vt.ElemType, ex.Index)
				b.Insts[i] = call
				replaceUses(f, ex, call)
			}
		}

		if replaceUses(f, ld, ld) == 0 {
			unlinkInst(f, ld)
			continue
		}

		// The vector itself is still used; rebuild it lane by lane.
		var insts []ir.Instruction
		var vec value.Value = constant.NewUndef(vt)
		for lane := 0; lane < int(vt.Len); lane++ {
			idx := constant.NewInt(types.I32, int64(lane))
			call := t.builtinCall(name, vt.ElemType, idx)
			ins := ir.NewInsertElement(vec, call, idx)
			insts = append(insts, call, ins)
			vec = ins
		}

		spliceInst(f, ld, insts...)
		replaceUses(f, ld, vec)
	}
}

// builtinCall builds an unattached call to a workitem builtin.  The builtin
// declarations are readnone: their value depends only on the workitem.
func (t *Translator) builtinCall(name string, ret types.Type, args ...value.Value) *ir.InstCall {
	argTypes := make([]types.Type, len(args))
	for i, arg := range args {
		argTypes[i] = arg.Type()
	}

	fn := t.getOrCreateFunc(mangle.Builtin(name, argTypes), types.NewFunc(ret, argTypes...))
	addFuncAttr(fn, enum.FuncAttrReadNone)

	call := ir.NewCall(fn, args...)
	call.CallingConv = fn.CallingConv
	return call
}

// -----------------------------------------------------------------------------

// fixupStructReturnBuiltins rewrites declared builtins that return a struct
// into the SPIR convention: void return with a pointer to the result struct
// as a leading parameter.  A call whose only use is a store forwards the
// store's destination; any other call gets a fresh alloca and a load.
func (t *Translator) fixupStructReturnBuiltins() {
	funcs := make([]*ir.Func, len(t.m.Funcs))
	copy(funcs, t.m.Funcs)

	for _, f := range funcs {
		if len(f.Blocks) != 0 {
			continue
		}

		st, ok := f.Sig.RetType.(*types.StructType)
		if !ok {
			continue
		}

		params := []*ir.Param{ir.NewParam("", types.NewPointer(st))}
		for _, p := range f.Params {
			params = append(params, ir.NewParam(p.LocalName, p.Typ))
		}

		name := f.Name()
		removeFunc(t.m, f)
		nf := t.m.NewFunc(name, types.Void, params...)
		nf.Linkage = f.Linkage
		nf.CallingConv = f.CallingConv
		nf.FuncAttrs = f.FuncAttrs

		for _, caller := range t.m.Funcs {
			t.rewriteStructReturnCalls(caller, f, nf, st)
		}
	}
}

func (t *Translator) rewriteStructReturnCalls(caller *ir.Func, old, new *ir.Func, st *types.StructType) {
	for _, b := range caller.Blocks {
		// Index-based walk: rewrites splice the slice being walked.
		for i := 0; i < len(b.Insts); i++ {
			call, ok := b.Insts[i].(*ir.InstCall)
			if !ok || call.Callee != old {
				continue
			}

			if dst, ok := t.soleStoreOf(caller, call); ok {
				nc := ir.NewCall(new, append([]value.Value{dst.Dst}, call.Args...)...)
				nc.CallingConv = new.CallingConv
				b.Insts[i] = nc
				unlinkInst(caller, dst)
				continue
			}

			tmp := ir.NewAlloca(st)
			nc := ir.NewCall(new, append([]value.Value{tmp}, call.Args...)...)
			nc.CallingConv = new.CallingConv
			ld := ir.NewLoad(st, tmp)

			spliceInst(caller, call, tmp, nc, ld)
			replaceUses(caller, call, ld)
			i += 2
		}
	}
}

// soleStoreOf returns the store when v's only use is as the stored value.
func (t *Translator) soleStoreOf(f *ir.Func, v value.Value) (*ir.InstStore, bool) {
	if replaceUses(f, v, v) != 1 {
		return nil, false
	}

	for _, b := range f.Blocks {
		for _, inst := range b.Insts {
			if st, ok := inst.(*ir.InstStore); ok && st.Src == v {
				return st, true
			}
		}
	}

	return nil, false
}

// -----------------------------------------------------------------------------

// fixupBlockArgBuiltins rewrites the calls that took function-valued
// arguments during resynthesis: the decorated name loses its prefix and each
// function pointer is wrapped through spir_block_bind.
func (t *Translator) fixupBlockArgBuiltins() {
	funcs := make([]*ir.Func, len(t.m.Funcs))
	copy(funcs, t.m.Funcs)

	for _, f := range funcs {
		name := f.Name()
		if !strings.HasPrefix(name, decoratedPrefix) {
			continue
		}

		stripped := strings.TrimPrefix(name, decoratedPrefix)

		params := make([]types.Type, len(f.Params))
		for i, p := range f.Params {
			params[i] = p.Typ
			if isFuncPtr(p.Typ) {
				params[i] = bytePtr(asPrivate)
			}
		}
		nf := t.getOrCreateFunc(stripped, types.NewFunc(f.Sig.RetType, params...))

		for _, caller := range t.m.Funcs {
			t.rewriteBlockArgCalls(caller, f, nf)
		}

		removeFunc(t.m, f)
	}
}

func (t *Translator) rewriteBlockArgCalls(caller *ir.Func, old, new *ir.Func) {
	for _, b := range caller.Blocks {
		for i := 0; i < len(b.Insts); i++ {
			call, ok := b.Insts[i].(*ir.InstCall)
			if !ok || call.Callee != old {
				continue
			}

			var binds []ir.Instruction
			args := make([]value.Value, len(call.Args))
			for j, arg := range call.Args {
				args[j] = arg
				if !isFuncPtr(arg.Type()) {
					continue
				}

				cast := ir.NewBitCast(arg, bytePtr(asPrivate))
				bind := t.blockBindCall(cast)
				binds = append(binds, cast, bind)
				args[j] = bind
			}

			nc := ir.NewCall(new, args...)
			nc.CallingConv = new.CallingConv

			spliceInst(caller, call, append(binds, nc)...)
			replaceUses(caller, call, nc)
			i += len(binds)
		}
	}
}

// blockBindCall builds a spir_block_bind invocation for an invoke-function
// pointer with an empty capture context.
func (t *Translator) blockBindCall(invoke value.Value) *ir.InstCall {
	i8p := bytePtr(asPrivate)
	fn := t.getOrCreateFunc("spir_block_bind", types.NewFunc(i8p, i8p, types.I32, types.I32, i8p))

	call := ir.NewCall(fn, invoke,
		constant.NewInt(types.I32, 0),
		constant.NewInt(types.I32, 0),
		constant.NewNull(i8p))
	call.CallingConv = fn.CallingConv
	return call
}

// -----------------------------------------------------------------------------

// swapInst replaces an instruction with another in its slot.
func swapInst(f *ir.Func, old, new ir.Instruction) {
	for _, b := range f.Blocks {
		for i, inst := range b.Insts {
			if inst == old {
				b.Insts[i] = new
				return
			}
		}
	}
}

// spliceInst replaces an instruction with a sequence of instructions.
func spliceInst(f *ir.Func, old ir.Instruction, insts ...ir.Instruction) {
	for _, b := range f.Blocks {
		for i, inst := range b.Insts {
			if inst == old {
				tail := append(insts, b.Insts[i+1:]...)
				b.Insts = append(b.Insts[:i], tail...)
				return
			}
		}
	}
}

// unlinkInst removes an instruction wherever it sits in the function.
func unlinkInst(f *ir.Func, inst ir.Instruction) {
	for _, b := range f.Blocks {
		removeInst(b, inst)
	}
}

// removeFunc unlinks a function from the module.
func removeFunc(m *ir.Module, f *ir.Func) {
	for i, cur := range m.Funcs {
		if cur == f {
			m.Funcs = append(m.Funcs[:i], m.Funcs[i+1:]...)
			return
		}
	}
}

func addFuncAttr(f *ir.Func, attr enum.FuncAttr) {
	for _, cur := range f.FuncAttrs {
		if cur == attr {
			return
		}
	}
	f.FuncAttrs = append(f.FuncAttrs, attr)
}
