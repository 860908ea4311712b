package translate

import (
	"fmt"
	"strings"

	"spv2ll/mangle"
	"spv2ll/report"
	"spv2ll/spirv"
	"spv2ll/util"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// getOrCreateFunc returns the declaration of name with the given signature,
// creating it on first use.  The cache key is the (name, signature) pair: a
// same-name request with a different signature yields a fresh declaration
// under a suffixed symbol.
func (t *Translator) getOrCreateFunc(name string, ft *types.FuncType) *ir.Func {
	collisions := 0
	for _, f := range t.m.Funcs {
		if f.Name() == name {
			if f.Sig.Equal(ft) {
				return f
			}
			collisions++
		}
	}

	if collisions > 0 {
		name = fmt.Sprintf("%s.%d", name, collisions)
	}

	params := util.Map(ft.Params, func(pt types.Type) *ir.Param {
		return ir.NewParam("", pt)
	})

	f := t.m.NewFunc(name, ft.RetType, params...)
	f.Sig.Variadic = ft.Variadic
	f.Linkage = enum.LinkageExternal
	if !strings.HasPrefix(name, "llvm.") {
		f.CallingConv = enum.CallingConvSPIRFunc
	}
	f.FuncAttrs = append(f.FuncAttrs, enum.FuncAttrNoUnwind)

	return f
}

// callBuiltin declares (or reuses) the mangled builtin and emits a call.
func (t *Translator) callBuiltin(b *ir.Block, name string, ret types.Type, args ...value.Value) *ir.InstCall {
	argTypes := util.Map(args, value.Value.Type)

	fn := t.getOrCreateFunc(mangle.Builtin(name, argTypes), types.NewFunc(ret, argTypes...))
	call := b.NewCall(fn, args...)
	call.CallingConv = fn.CallingConv
	return call
}

// -----------------------------------------------------------------------------

// transAtomic resynthesizes an atomic instruction as an OpenCL atomic
// builtin call.  The builtin's result type is the pointee type of its first
// operand; the scope and semantics operands have no OpenCL counterpart and
// are dropped.
func (t *Translator) transAtomic(bv *spirv.Value, f *ir.Func, b *ir.Block) value.Value {
	name, ok := atomicNames[bv.Op]
	if !ok {
		report.Raise(report.KindUnsupported, "atomic opcode %d is not supported", bv.Op)
	}

	ptr := t.transValue(bv.Operands[0], f, b)
	ret := t.transType(bv.Operands[0].Type.Elem)

	args := []value.Value{ptr}
	switch bv.Op {
	case spirv.OpAtomicIIncrement, spirv.OpAtomicIDecrement:
		// Pointer only.

	case spirv.OpAtomicCompareExchange, spirv.OpAtomicCompareExchangeWeak:
		// atomic_cmpxchg(p, cmp, val): operands carry value then comparator.
		args = append(args, t.transValue(bv.Operands[5], f, b), t.transValue(bv.Operands[4], f, b))

	default:
		args = append(args, t.transValue(bv.Operands[3], f, b))
	}

	return t.callBuiltin(b, name, ret, args...)
}

// transBarrier resynthesizes control and memory barriers as the barrier and
// mem_fence builtins, remapping the memory-semantics bits to CLK flags.
func (t *Translator) transBarrier(bv *spirv.Value, f *ir.Func, b *ir.Block) {
	name := "barrier"
	semOperand := bv.Operands[2]
	if bv.Op == spirv.OpMemoryBarrier {
		name = "mem_fence"
		semOperand = bv.Operands[1]
	}

	if semOperand.Op != spirv.OpConstant {
		report.Raise(report.KindValidation, "barrier semantics id %d is not a constant", semOperand.ID)
	}

	flags := util.MapBitMask(memFenceMap, uint32(constantBits(semOperand)))
	t.callBuiltin(b, name, types.Void, constant.NewInt(types.I32, int64(flags)))
}

// transCmpBuiltin resynthesizes the relational comparisons that have no
// predicate (islessgreater, isordered, isunordered).
func (t *Translator) transCmpBuiltin(bv *spirv.Value, f *ir.Func, b *ir.Block) value.Value {
	x := t.transValue(bv.Operands[0], f, b)
	y := t.transValue(bv.Operands[1], f, b)

	return t.callWidened(b, cmpBuiltinNames[bv.Op], t.transType(bv.Type), x, y)
}

// transBuiltinInst resynthesizes an instruction from the builtin table as a
// builtin call.  Boolean results widen to the integer return type of the
// OpenCL builtin and truncate back; function-valued arguments switch the
// call to the decorated naming scheme for the block-binding fixup.
func (t *Translator) transBuiltinInst(bv *spirv.Value, f *ir.Func, b *ir.Block) value.Value {
	name := builtinInstNames[bv.Op]
	args := t.transValues(bv.Operands, f, b)

	if bv.Op == spirv.OpBuildNDRange {
		name = fmt.Sprintf("ndrange_%dD", ndrangeDims(bv.Operands[0].Type))
	}

	for _, arg := range args {
		if isFuncPtr(arg.Type()) {
			return t.callDecorated(b, name, t.transType(bv.Type), args)
		}
	}

	return t.callWidened(b, name, t.transType(bv.Type), args...)
}

// callWidened emits a builtin call, widening i1 results to the builtin's
// integer return type and truncating back.
func (t *Translator) callWidened(b *ir.Block, name string, ret types.Type, args ...value.Value) value.Value {
	wide := widenBoolType(ret, args)
	call := t.callBuiltin(b, name, wide, args...)

	if !wide.Equal(ret) {
		return b.NewTrunc(call, ret)
	}

	return call
}

// callDecorated emits a call under the reserved decorated name, bypassing
// mangling.  The block-binding fixup rewrites these calls once all functions
// have translated.
func (t *Translator) callDecorated(b *ir.Block, name string, ret types.Type, args []value.Value) value.Value {
	argTypes := util.Map(args, value.Value.Type)

	fn := t.getOrCreateFunc(decoratedPrefix+name, types.NewFunc(ret, argTypes...))
	call := b.NewCall(fn, args...)
	call.CallingConv = fn.CallingConv
	return call
}

// decoratedPrefix marks resynthesized builtins that still need the
// block-binding fixup.
const decoratedPrefix = "__spirv_"

// widenBoolType widens a boolean (or boolean-vector) result type to the
// integer type the OpenCL builtin actually returns: int for scalars, an
// integer vector of the operand's component width for vectors.
func widenBoolType(ret types.Type, args []value.Value) types.Type {
	switch v := ret.(type) {
	case *types.IntType:
		if v.BitSize == 1 {
			return types.I32
		}

	case *types.VectorType:
		elem, ok := v.ElemType.(*types.IntType)
		if !ok || elem.BitSize != 1 {
			return ret
		}

		width := uint64(32)
		if len(args) > 0 {
			if av, ok := args[0].Type().(*types.VectorType); ok {
				width = scalarBitWidth(av.ElemType)
			}
		}
		return types.NewVector(v.Len, types.NewInt(width))
	}

	return ret
}

// scalarBitWidth returns the bit width of a scalar numeric type.
func scalarBitWidth(t types.Type) uint64 {
	switch v := t.(type) {
	case *types.IntType:
		return v.BitSize
	case *types.FloatType:
		switch v.Kind {
		case types.FloatKindHalf:
			return 16
		case types.FloatKindDouble:
			return 64
		default:
			return 32
		}
	}
	return 32
}

func isFuncPtr(t types.Type) bool {
	pt, ok := t.(*types.PointerType)
	if !ok {
		return false
	}
	_, ok = pt.ElemType.(*types.FuncType)
	return ok
}

// transImageRead resynthesizes image sampling and reads as read_image*
// builtins.  Samplers travel as i32; the cast to the opaque sampler pointer
// happens here so the declaration mangles with the sampler type.
func (t *Translator) transImageRead(bv *spirv.Value, f *ir.Func, b *ir.Block) value.Value {
	name := "read_image" + imageChannelSuffix(bv.Type)

	var args []value.Value
	if imgOp := bv.Operands[0]; imgOp.Op == spirv.OpSampledImage {
		img := t.transValue(imgOp.Operands[0], f, b)
		smp := t.transValue(imgOp.Operands[1], f, b)
		cast := b.NewIntToPtr(smp, t.opaquePtrType("opencl.sampler_t", asConstant))
		args = append(args, img, cast)
	} else {
		args = append(args, t.transValue(imgOp, f, b))
	}
	args = append(args, t.transValue(bv.Operands[1], f, b))

	return t.callBuiltin(b, name, t.transType(bv.Type), args...)
}

// transImageWrite resynthesizes an image write as a write_image* builtin.
func (t *Translator) transImageWrite(bv *spirv.Value, f *ir.Func, b *ir.Block) {
	texel := bv.Operands[2]

	t.callBuiltin(b, "write_image"+imageChannelSuffix(texel.Type), types.Void,
		t.transValue(bv.Operands[0], f, b),
		t.transValue(bv.Operands[1], f, b),
		t.transValue(texel, f, b))
}

// imageChannelSuffix picks the read/write_image suffix from the texel type:
// h for half, f for other floats, i for integers.
func imageChannelSuffix(bt *spirv.Type) string {
	scalar := bt.Scalar()
	switch {
	case scalar.IsFloat() && scalar.Width == 16:
		return "h"
	case scalar.IsFloat():
		return "f"
	}
	return "i"
}

// ndrangeDims derives the dimensionality suffix of an ndrange builtin from
// its global-size operand.
func ndrangeDims(bt *spirv.Type) uint32 {
	switch bt.Op {
	case spirv.OpTypeVector, spirv.OpTypeArray:
		return bt.Len
	default:
		return 1
	}
}

// -----------------------------------------------------------------------------

// transConvert translates a conversion instruction.  Saturating or rounded
// conversions resynthesize to convert_* builtins; plain conversions map to
// cast instructions chosen by the width relation, never a bitcast.
func (t *Translator) transConvert(bv *spirv.Value, f *ir.Func, b *ir.Block) value.Value {
	x := t.transValue(bv.Operands[0], f, b)
	to := t.transType(bv.Type)

	sat := bv.Op == spirv.OpSatConvertSToU || bv.Op == spirv.OpSatConvertUToS ||
		t.bm.HasDecoration(bv.ID, spirv.DecorationSaturatedConversion)
	rm, hasRM := t.bm.RoundingMode(bv.ID)

	if sat || hasRM {
		return t.callBuiltin(b, convertBuiltinName(bv, sat, rm, hasRM), to, x)
	}

	srcWidth := bv.Operands[0].Type.ScalarWidth()
	dstWidth := bv.Type.ScalarWidth()

	switch bv.Op {
	case spirv.OpSConvert:
		switch {
		case dstWidth > srcWidth:
			return b.NewSExt(x, to)
		case dstWidth < srcWidth:
			return b.NewTrunc(x, to)
		}
		return x

	case spirv.OpUConvert:
		switch {
		case dstWidth > srcWidth:
			return b.NewZExt(x, to)
		case dstWidth < srcWidth:
			return b.NewTrunc(x, to)
		}
		return x

	case spirv.OpFConvert:
		switch {
		case dstWidth > srcWidth:
			return b.NewFPExt(x, to)
		case dstWidth < srcWidth:
			return b.NewFPTrunc(x, to)
		}
		return x

	case spirv.OpConvertFToU:
		return b.NewFPToUI(x, to)
	case spirv.OpConvertFToS:
		return b.NewFPToSI(x, to)
	case spirv.OpConvertSToF:
		return b.NewSIToFP(x, to)
	case spirv.OpConvertUToF:
		return b.NewUIToFP(x, to)
	case spirv.OpConvertPtrToU:
		return b.NewPtrToInt(x, to)
	case spirv.OpConvertUToPtr:
		return b.NewIntToPtr(x, to)
	case spirv.OpBitcast:
		return b.NewBitCast(x, to)
	case spirv.OpPtrCastToGeneric, spirv.OpGenericCastToPtr, spirv.OpGenericCastToPtrExplicit:
		return b.NewAddrSpaceCast(x, to)
	}

	report.Raise(report.KindUnsupported, "conversion opcode %d is not supported", bv.Op)
	return nil
}

// convertBuiltinName assembles the convert_<type>[_sat][_<rm>] builtin name
// for a saturating or rounded conversion.  The destination type spelling
// carries the signedness implied by the opcode.
func convertBuiltinName(bv *spirv.Value, sat bool, rm spirv.FPRoundingMode, hasRM bool) string {
	dest := bv.Type
	scalar := dest.Scalar()

	var base string
	switch {
	case scalar.IsInt():
		base = intOCLName(scalar.Width)
		if bv.Op == spirv.OpConvertFToU || bv.Op == spirv.OpSatConvertSToU || bv.Op == spirv.OpUConvert {
			base = "u" + base
		}
	case scalar.IsFloat():
		switch scalar.Width {
		case 16:
			base = "half"
		case 64:
			base = "double"
		default:
			base = "float"
		}
	default:
		report.Raise(report.KindValidation, "conversion to a non-numeric type")
	}

	if dest.IsVector() {
		base += fmt.Sprint(dest.Len)
	}

	name := "convert_" + base
	if sat {
		name += "_sat"
	}
	if hasRM {
		name += roundingSuffixes[rm]
	}
	return name
}

// -----------------------------------------------------------------------------

// transMemCpy lowers a sized memory copy onto the memcpy intrinsic, choosing
// the intrinsic suffix from the operand address spaces and the size width.
func (t *Translator) transMemCpy(bv *spirv.Value, f *ir.Func, b *ir.Block) {
	dst := t.transValue(bv.Operands[0], f, b)
	src := t.transValue(bv.Operands[1], f, b)
	size := t.transValue(bv.Operands[2], f, b)

	dstAS := addrSpaceMap.MustMap(bv.Operands[0].Type.Storage)
	srcAS := addrSpaceMap.MustMap(bv.Operands[1].Type.Storage)
	sizeWidth := bv.Operands[2].Type.Width

	name := fmt.Sprintf("llvm.memcpy.p%di8.p%di8.i%d", dstAS, srcAS, sizeWidth)

	dst8 := b.NewBitCast(dst, bytePtr(dstAS))
	src8 := b.NewBitCast(src, bytePtr(srcAS))

	ft := types.NewFunc(types.Void, bytePtr(dstAS), bytePtr(srcAS), types.NewInt(uint64(sizeWidth)), types.I32, types.I1)
	fn := t.getOrCreateFunc(name, ft)

	b.NewCall(fn, dst8, src8, size,
		constant.NewInt(types.I32, int64(bv.Align)),
		constant.NewBool(bv.Volatile))
}

func bytePtr(addrSpace uint32) *types.PointerType {
	pt := types.NewPointer(types.I8)
	pt.AddrSpace = types.AddrSpace(addrSpace)
	return pt
}
