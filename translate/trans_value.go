package translate

import (
	"math"

	"spv2ll/report"
	"spv2ll/spirv"
	"spv2ll/util"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// transValue translates a source value, creating a placeholder stand-in for
// forward references.  Results are memoized: two translations of the same
// source value return the identical target object.
func (t *Translator) transValue(bv *spirv.Value, f *ir.Func, b *ir.Block) value.Value {
	return t.transValueWith(bv, f, b, true)
}

// transValueWith is transValue with explicit placeholder control.  The
// function assembler translates instructions in program order with
// createPlaceholder unset so that a pending placeholder is resolved rather
// than returned when its defining instruction is reached.
func (t *Translator) transValueWith(bv *spirv.Value, f *ir.Func, b *ir.Block, createPlaceholder bool) value.Value {
	if v, ok := t.valueMap[bv]; ok {
		if _, pending := t.placeholders[bv]; !pending || createPlaceholder {
			return v
		}
	}

	v := t.transValueNoDecor(bv, f, b, createPlaceholder)
	if v == nil {
		return nil
	}

	t.applyDecorations(bv, v)
	return v
}

// transValues translates a list of operand values.
func (t *Translator) transValues(bvs []*spirv.Value, f *ir.Func, b *ir.Block) []value.Value {
	return util.Map(bvs, func(bv *spirv.Value) value.Value {
		return t.transValue(bv, f, b)
	})
}

// applyDecorations carries names and decorations over to the target value.
func (t *Translator) applyDecorations(bv *spirv.Value, v value.Value) {
	if bv.Name != "" {
		if named, ok := v.(interface{ SetName(string) }); ok {
			named.SetName(bv.Name)
		}
	}

	if align, ok := t.bm.Alignment(bv.ID); ok {
		switch a := v.(type) {
		case *ir.InstAlloca:
			a.Align = ir.Align(align)
		case *ir.Global:
			a.Align = ir.Align(align)
		}
	}

	// Shift-right instructions always translate as exact shifts.
	switch shift := v.(type) {
	case *ir.InstLShr:
		shift.Exact = true
	case *ir.InstAShr:
		shift.Exact = true
	}
}

// -----------------------------------------------------------------------------

// transValueNoDecor dispatches on the value opcode.  Instructions that
// produce no result return nil.
func (t *Translator) transValueNoDecor(bv *spirv.Value, f *ir.Func, b *ir.Block, createPlaceholder bool) value.Value {
	switch bv.Op {
	case spirv.OpConstant:
		return t.mapValue(bv, t.transConstant(bv))

	case spirv.OpConstantTrue:
		return t.mapValue(bv, constant.NewBool(true))

	case spirv.OpConstantFalse:
		return t.mapValue(bv, constant.NewBool(false))

	case spirv.OpConstantNull:
		lt := t.transType(bv.Type)
		if pt, ok := lt.(*types.PointerType); ok {
			return t.mapValue(bv, constant.NewNull(pt))
		}
		return t.mapValue(bv, constant.NewZeroInitializer(lt))

	case spirv.OpUndef:
		return t.mapValue(bv, constant.NewUndef(t.transType(bv.Type)))

	case spirv.OpConstantComposite:
		return t.mapValue(bv, t.transCompositeConstant(bv))

	case spirv.OpConstantSampler:
		return t.mapValue(bv, transSamplerConstant(bv))

	case spirv.OpVariable:
		if bv.Storage == spirv.StorageFunction {
			return t.mapValue(bv, t.transAlloca(bv, f, b))
		}
		return t.mapValue(bv, t.transGlobal(bv))

	case spirv.OpVariableArray:
		alloca := b.NewAlloca(t.transType(bv.Type.Elem))
		alloca.NElems = t.transValue(bv.Operands[0], f, b)
		return t.mapValue(bv, alloca)

	case spirv.OpFunctionParameter:
		lf := t.transFunction(bv.In)
		for i, bp := range bv.In.Params {
			if bp == bv {
				return t.mapValue(bv, lf.Params[i])
			}
		}
		report.RaiseICE("parameter id %d is not a parameter of its function", bv.ID)

	case spirv.OpFunction:
		return t.mapValue(bv, t.transFunction(bv.Func))

	case spirv.OpLabel:
		return t.mapValue(bv, f.NewBlock(bv.Name))
	}

	// Everything else is a function-body instruction.
	if b == nil {
		report.Raise(report.KindValidation, "value opcode %d outside a function body", bv.Op)
	}

	if createPlaceholder {
		ph := t.createPlaceholder(bv, f, b)
		t.valueMap[bv] = ph
		return ph
	}

	return t.transInstruction(bv, f, b)
}

// -----------------------------------------------------------------------------

// transConstant builds a scalar constant from its literal words.
func (t *Translator) transConstant(bv *spirv.Value) constant.Constant {
	lt := t.transType(bv.Type)
	bits := constantBits(bv)

	switch v := lt.(type) {
	case *types.IntType:
		return constant.NewInt(v, int64(bits))

	case *types.FloatType:
		switch v.Kind {
		case types.FloatKindHalf:
			return constant.NewFloat(v, halfToFloat64(uint16(bits)))
		case types.FloatKindFloat:
			return constant.NewFloat(v, float64(math.Float32frombits(uint32(bits))))
		default:
			return constant.NewFloat(v, math.Float64frombits(bits))
		}
	}

	report.Raise(report.KindValidation, "constant id %d has a non-scalar type", bv.ID)
	return nil
}

// constantBits assembles the literal words of a constant into one 64-bit
// payload.
func constantBits(bv *spirv.Value) uint64 {
	bits := uint64(bv.Words[0])
	if len(bv.Words) > 1 {
		bits |= uint64(bv.Words[1]) << 32
	}
	return bits
}

// halfToFloat64 widens an IEEE binary16 payload.
func halfToFloat64(h uint16) float64 {
	sign := float64(1)
	if h&0x8000 != 0 {
		sign = -1
	}

	exp := int(h>>10) & 0x1f
	frac := float64(h & 0x3ff)

	switch exp {
	case 0:
		return sign * frac * math.Pow(2, -24)
	case 0x1f:
		if frac != 0 {
			return math.NaN()
		}
		return sign * math.Inf(1)
	default:
		return sign * (1 + frac/1024) * math.Pow(2, float64(exp-15))
	}
}

// transCompositeConstant builds a vector, array, or struct constant.
func (t *Translator) transCompositeConstant(bv *spirv.Value) constant.Constant {
	elems := util.Map(bv.Operands, func(op *spirv.Value) constant.Constant {
		c, ok := t.transValue(op, nil, nil).(constant.Constant)
		if !ok {
			report.Raise(report.KindValidation, "composite constant %d has a non-constant element", bv.ID)
		}
		return c
	})

	switch lt := t.transType(bv.Type).(type) {
	case *types.VectorType:
		return constant.NewVector(lt, elems...)
	case *types.ArrayType:
		return constant.NewArray(lt, elems...)
	case *types.StructType:
		return constant.NewStruct(lt, elems...)
	}

	report.Raise(report.KindValidation, "composite constant %d has a non-composite type", bv.ID)
	return nil
}

// transSamplerConstant packs an OpConstantSampler into the i32 initializer
// layout of a sampler_t literal.
func transSamplerConstant(bv *spirv.Value) constant.Constant {
	addrMode, normalized, filterMode := bv.Words[0], bv.Words[1], bv.Words[2]
	lit := addrMode<<1 | normalized | (filterMode+1)<<4
	return constant.NewInt(types.I32, int64(lit))
}

// -----------------------------------------------------------------------------

// transAlloca translates a function-storage variable.
func (t *Translator) transAlloca(bv *spirv.Value, f *ir.Func, b *ir.Block) value.Value {
	alloca := b.NewAlloca(t.transType(bv.Type.Elem))

	if bv.Init != nil {
		init := t.transValue(bv.Init, f, b)
		b.NewStore(init, alloca)
	}

	return alloca
}

// transGlobal translates a module-scope variable.
func (t *Translator) transGlobal(bv *spirv.Value) value.Value {
	elem := t.transType(bv.Type.Elem)

	g := t.m.NewGlobal(bv.Name, elem)
	as, ok := addrSpaceMap.Map(bv.Storage)
	if !ok {
		// Builtin variables arrive in Input storage; they are rewritten to
		// workitem builtin calls after the functions translate, so the
		// interim address space does not matter.
		if _, isBuiltin := t.bm.BuiltinKind(bv.ID); isBuiltin && bv.Storage == spirv.StorageInput {
			as = asPrivate
		} else {
			report.Raise(report.KindUnsupported, "storage class %d has no address space", bv.Storage)
		}
	}
	g.AddrSpace = types.AddrSpace(as)
	g.Typ.AddrSpace = types.AddrSpace(as)

	linkage := t.bm.Linkage(bv.ID)
	g.Linkage = linkageMap[linkage]

	g.Immutable = bv.Storage == spirv.StorageUniformConstant ||
		t.bm.HasDecoration(bv.ID, spirv.DecorationConstant)

	if bv.Init != nil {
		init, ok := t.transValue(bv.Init, nil, nil).(constant.Constant)
		if !ok {
			report.Raise(report.KindValidation, "variable %d has a non-constant initializer", bv.ID)
		}
		g.Init = init
	} else if linkage != spirv.LinkageImport {
		g.Init = constant.NewZeroInitializer(elem)
	}

	if kind, ok := t.bm.BuiltinKind(bv.ID); ok {
		t.builtinVars[g] = kind
	}

	return g
}

// -----------------------------------------------------------------------------

// binOps relates binary arithmetic, shift, bitwise, and logical opcodes to
// instruction constructors.
var binOps = map[spirv.Op]func(b *ir.Block, x, y value.Value) value.Value{
	spirv.OpIAdd: func(b *ir.Block, x, y value.Value) value.Value { return b.NewAdd(x, y) },
	spirv.OpFAdd: func(b *ir.Block, x, y value.Value) value.Value { return b.NewFAdd(x, y) },
	spirv.OpISub: func(b *ir.Block, x, y value.Value) value.Value { return b.NewSub(x, y) },
	spirv.OpFSub: func(b *ir.Block, x, y value.Value) value.Value { return b.NewFSub(x, y) },
	spirv.OpIMul: func(b *ir.Block, x, y value.Value) value.Value { return b.NewMul(x, y) },
	spirv.OpFMul: func(b *ir.Block, x, y value.Value) value.Value { return b.NewFMul(x, y) },
	spirv.OpUDiv: func(b *ir.Block, x, y value.Value) value.Value { return b.NewUDiv(x, y) },
	spirv.OpSDiv: func(b *ir.Block, x, y value.Value) value.Value { return b.NewSDiv(x, y) },
	spirv.OpFDiv: func(b *ir.Block, x, y value.Value) value.Value { return b.NewFDiv(x, y) },
	spirv.OpUMod: func(b *ir.Block, x, y value.Value) value.Value { return b.NewURem(x, y) },
	spirv.OpSRem: func(b *ir.Block, x, y value.Value) value.Value { return b.NewSRem(x, y) },
	spirv.OpSMod: func(b *ir.Block, x, y value.Value) value.Value { return b.NewSRem(x, y) },
	spirv.OpFRem: func(b *ir.Block, x, y value.Value) value.Value { return b.NewFRem(x, y) },

	spirv.OpShiftLeftLogical:     func(b *ir.Block, x, y value.Value) value.Value { return b.NewShl(x, y) },
	spirv.OpShiftRightLogical:    func(b *ir.Block, x, y value.Value) value.Value { return b.NewLShr(x, y) },
	spirv.OpShiftRightArithmetic: func(b *ir.Block, x, y value.Value) value.Value { return b.NewAShr(x, y) },

	spirv.OpBitwiseAnd: func(b *ir.Block, x, y value.Value) value.Value { return b.NewAnd(x, y) },
	spirv.OpBitwiseOr:  func(b *ir.Block, x, y value.Value) value.Value { return b.NewOr(x, y) },
	spirv.OpBitwiseXor: func(b *ir.Block, x, y value.Value) value.Value { return b.NewXor(x, y) },
	spirv.OpLogicalAnd: func(b *ir.Block, x, y value.Value) value.Value { return b.NewAnd(x, y) },
	spirv.OpLogicalOr:  func(b *ir.Block, x, y value.Value) value.Value { return b.NewOr(x, y) },
}

// transInstruction translates a function-body instruction in place.
func (t *Translator) transInstruction(bv *spirv.Value, f *ir.Func, b *ir.Block) value.Value {
	ops := bv.Operands

	switch bv.Op {
	case spirv.OpBranch:
		b.NewBr(t.transBlock(ops[0], f))
		return nil

	case spirv.OpBranchConditional:
		cond := t.transValue(ops[0], f, b)
		b.NewCondBr(cond, t.transBlock(ops[1], f), t.transBlock(ops[2], f))
		return nil

	case spirv.OpReturn:
		b.NewRet(nil)
		return nil

	case spirv.OpReturnValue:
		b.NewRet(t.transValue(ops[0], f, b))
		return nil

	case spirv.OpUnreachable:
		b.NewUnreachable()
		return nil

	case spirv.OpSwitch:
		return t.transSwitch(bv, f, b)

	case spirv.OpPhi:
		return t.transPhi(bv, f, b)

	case spirv.OpLoad:
		src := t.transValue(ops[0], f, b)
		ld := b.NewLoad(t.transType(bv.Type), src)
		ld.Volatile = bv.Volatile
		ld.Align = ir.Align(bv.Align)
		return t.mapValue(bv, ld)

	case spirv.OpStore:
		dst := t.transValue(ops[0], f, b)
		src := t.transValue(ops[1], f, b)
		st := b.NewStore(src, dst)
		st.Volatile = bv.Volatile
		st.Align = ir.Align(bv.Align)
		return nil

	case spirv.OpCopyMemorySized:
		t.transMemCpy(bv, f, b)
		return nil

	case spirv.OpSelect:
		cond := t.transValue(ops[0], f, b)
		return t.mapValue(bv, b.NewSelect(cond, t.transValue(ops[1], f, b), t.transValue(ops[2], f, b)))

	case spirv.OpAccessChain, spirv.OpInBoundsAccessChain,
		spirv.OpPtrAccessChain, spirv.OpInBoundsPtrAccessChain:
		return t.mapValue(bv, t.transAccessChain(bv, f, b))

	case spirv.OpCompositeExtract:
		if !bv.Operands[0].Type.IsVector() {
			report.Raise(report.KindUnsupported, "composite extract from a non-vector composite")
		}
		vec := t.transValue(ops[0], f, b)
		idx := constant.NewInt(types.I32, int64(bv.Words[0]))
		return t.mapValue(bv, b.NewExtractElement(vec, idx))

	case spirv.OpCompositeInsert:
		if !bv.Type.IsVector() {
			report.Raise(report.KindUnsupported, "composite insert into a non-vector composite")
		}
		obj := t.transValue(ops[0], f, b)
		vec := t.transValue(ops[1], f, b)
		idx := constant.NewInt(types.I32, int64(bv.Words[0]))
		return t.mapValue(bv, b.NewInsertElement(vec, obj, idx))

	case spirv.OpVectorExtractDynamic:
		return t.mapValue(bv, b.NewExtractElement(t.transValue(ops[0], f, b), t.transValue(ops[1], f, b)))

	case spirv.OpVectorInsertDynamic:
		return t.mapValue(bv, b.NewInsertElement(
			t.transValue(ops[0], f, b), t.transValue(ops[1], f, b), t.transValue(ops[2], f, b)))

	case spirv.OpVectorShuffle:
		return t.mapValue(bv, t.transShuffle(bv, f, b))

	case spirv.OpCopyObject:
		// A pure SSA copy: reuse the operand's translation directly.
		return t.mapValue(bv, t.transValue(ops[0], f, b))

	case spirv.OpFunctionCall:
		return t.transCall(bv, f, b)

	case spirv.OpExtInst:
		return t.transExtInst(bv, f, b)

	case spirv.OpSampledImage:
		// Only ever consumed by the sampling instruction, which reads the
		// image and sampler operands through it.
		return nil

	case spirv.OpImageSampleExplicitLod, spirv.OpImageRead:
		return t.mapValue(bv, t.transImageRead(bv, f, b))

	case spirv.OpImageWrite:
		t.transImageWrite(bv, f, b)
		return nil

	case spirv.OpControlBarrier, spirv.OpMemoryBarrier:
		t.transBarrier(bv, f, b)
		return nil

	case spirv.OpSNegate:
		x := t.transValue(ops[0], f, b)
		neg := b.NewSub(constant.NewZeroInitializer(x.Type()), x)
		neg.OverflowFlags = []enum.OverflowFlag{enum.OverflowFlagNSW}
		return t.mapValue(bv, neg)

	case spirv.OpFNegate:
		return t.mapValue(bv, b.NewFNeg(t.transValue(ops[0], f, b)))

	case spirv.OpNot, spirv.OpLogicalNot:
		x := t.transValue(ops[0], f, b)
		return t.mapValue(bv, b.NewXor(x, allOnes(x.Type())))
	}

	return t.transResidual(bv, f, b)
}

// transResidual handles the instruction classes that have no direct target
// counterpart, in a fixed precedence: atomics, relational builtins, the
// builtin instruction table, binary arithmetic, conversions.  Anything left
// is unsupported.
func (t *Translator) transResidual(bv *spirv.Value, f *ir.Func, b *ir.Block) value.Value {
	switch {
	case isAtomicOp(bv.Op):
		return t.mapValue(bv, t.transAtomic(bv, f, b))

	case isCmpBuiltinOp(bv.Op):
		return t.mapValue(bv, t.transCmpBuiltin(bv, f, b))

	case isPredCmpOp(bv.Op):
		return t.mapValue(bv, t.transCmp(bv, f, b))

	case builtinInstNames[bv.Op] != "":
		return t.mapValue(bv, t.transBuiltinInst(bv, f, b))

	case isBinaryOp(bv.Op):
		x := t.transValue(bv.Operands[0], f, b)
		y := t.transValue(bv.Operands[1], f, b)
		return t.mapValue(bv, binOps[bv.Op](b, x, y))

	case isConvertOp(bv.Op):
		return t.mapValue(bv, t.transConvert(bv, f, b))
	}

	report.Raise(report.KindUnsupported, "instruction opcode %d is not supported", bv.Op)
	return nil
}

// -----------------------------------------------------------------------------

// transBlock translates a label operand.
func (t *Translator) transBlock(bv *spirv.Value, f *ir.Func) *ir.Block {
	if bv.Label == nil {
		report.Raise(report.KindValidation, "branch target id %d is not a label", bv.ID)
	}

	blk, ok := t.transValueWith(bv, f, nil, true).(*ir.Block)
	if !ok {
		report.RaiseICE("label id %d did not translate to a block", bv.ID)
	}
	return blk
}

// transCmp translates a comparison with a direct predicate.
func (t *Translator) transCmp(bv *spirv.Value, f *ir.Func, b *ir.Block) value.Value {
	x := t.transValue(bv.Operands[0], f, b)
	y := t.transValue(bv.Operands[1], f, b)

	if pred, ok := icmpMap.Map(bv.Op); ok {
		return b.NewICmp(pred, x, y)
	}

	pred, ok := fcmpMap.Map(bv.Op)
	if !ok {
		report.RaiseICE("comparison opcode %d has no predicate", bv.Op)
	}
	return b.NewFCmp(pred, x, y)
}

// transSwitch translates a multi-way branch.  Case literals are sized by the
// selector type.
func (t *Translator) transSwitch(bv *spirv.Value, f *ir.Func, b *ir.Block) value.Value {
	sel := t.transValue(bv.Operands[0], f, b)
	selType, ok := sel.Type().(*types.IntType)
	if !ok {
		report.Raise(report.KindValidation, "switch selector %d is not an integer", bv.Operands[0].ID)
	}

	sw := b.NewSwitch(sel, t.transBlock(bv.Operands[1], f))

	litWords := 1
	if selType.BitSize > 32 {
		litWords = 2
	}

	for i, target := range bv.Operands[2:] {
		lit := uint64(bv.Words[i*litWords])
		if litWords == 2 {
			lit |= uint64(bv.Words[i*litWords+1]) << 32
		}
		sw.Cases = append(sw.Cases, ir.NewCase(constant.NewInt(selType, int64(lit)), t.transBlock(target, f)))
	}

	return nil
}

// transPhi translates a phi node.  The phi maps before its incomings resolve
// so that self-referential cycles terminate; incoming values may still be
// placeholders at this point.
func (t *Translator) transPhi(bv *spirv.Value, f *ir.Func, b *ir.Block) value.Value {
	phi := &ir.InstPhi{Typ: t.transType(bv.Type)}
	b.Insts = append(b.Insts, phi)
	t.mapValue(bv, phi)

	for i := 0; i+1 < len(bv.Operands); i += 2 {
		x := t.transValue(bv.Operands[i], f, b)
		pred := t.transBlock(bv.Operands[i+1], f)
		phi.Incs = append(phi.Incs, ir.NewIncoming(x, pred))
	}

	return phi
}

// transShuffle translates a vector shuffle; mask components of ^0 become
// undef lanes.
func (t *Translator) transShuffle(bv *spirv.Value, f *ir.Func, b *ir.Block) value.Value {
	comps := make([]constant.Constant, len(bv.Words))
	for i, w := range bv.Words {
		if w == 0xffffffff {
			comps[i] = constant.NewUndef(types.I32)
		} else {
			comps[i] = constant.NewInt(types.I32, int64(w))
		}
	}

	maskType := types.NewVector(uint64(len(comps)), types.I32)
	mask := constant.NewVector(maskType, comps...)

	return b.NewShuffleVector(t.transValue(bv.Operands[0], f, b), t.transValue(bv.Operands[1], f, b), mask)
}

// transAccessChain translates pointer arithmetic.  Plain access chains index
// through the pointee and get a leading zero index; ptr-access chains carry
// their own leading element index.
func (t *Translator) transAccessChain(bv *spirv.Value, f *ir.Func, b *ir.Block) value.Value {
	base := t.transValue(bv.Operands[0], f, b)
	elemType := t.transType(bv.Operands[0].Type.Elem)

	var indices []value.Value
	if bv.Op == spirv.OpAccessChain || bv.Op == spirv.OpInBoundsAccessChain {
		indices = append(indices, constant.NewInt(types.I32, 0))
	}
	indices = append(indices, t.transValues(bv.Operands[1:], f, b)...)

	gep := b.NewGetElementPtr(elemType, base, indices...)
	gep.InBounds = bv.Op == spirv.OpInBoundsAccessChain || bv.Op == spirv.OpInBoundsPtrAccessChain
	return gep
}

// transCall translates a direct function call.
func (t *Translator) transCall(bv *spirv.Value, f *ir.Func, b *ir.Block) value.Value {
	callee := t.transFunction(bv.Operands[0].Func)
	args := t.transValues(bv.Operands[1:], f, b)

	call := b.NewCall(callee, args...)
	call.CallingConv = callee.CallingConv
	call.FuncAttrs = append(call.FuncAttrs, callee.FuncAttrs...)
	return t.mapValue(bv, call)
}

// allOnes builds the all-ones constant of an integer or integer-vector type.
func allOnes(t types.Type) constant.Constant {
	switch v := t.(type) {
	case *types.IntType:
		return constant.NewInt(v, -1)
	case *types.VectorType:
		elems := make([]constant.Constant, v.Len)
		for i := range elems {
			elems[i] = allOnes(v.ElemType)
		}
		return constant.NewVector(v, elems...)
	}

	report.RaiseICE("all-ones constant of non-integer type %s", t)
	return nil
}
