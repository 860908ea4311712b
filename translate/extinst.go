package translate

import (
	"fmt"

	"spv2ll/mangle"
	"spv2ll/report"
	"spv2ll/spirv"
	"spv2ll/util"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// OpenCL.std instruction numbers that need more than a table lookup.
const (
	oclVloadn        = 171
	oclVstoren       = 172
	oclVloadHalfn    = 174
	oclVstoreHalfR   = 176
	oclVstoreHalfn   = 177
	oclVstoreHalfnR  = 178
	oclVloadaHalfn   = 179
	oclVstoreaHalfn  = 180
	oclVstoreaHalfnR = 181
	oclPrintf        = 184
)

// oclExtNames relates OpenCL.std instruction numbers to builtin names.  The
// signed/unsigned integer variants share one OpenCL name, so both numbers map
// to the same entry.
var oclExtNames = map[uint32]string{
	// Math.
	0: "acos", 1: "acosh", 2: "acospi",
	3: "asin", 4: "asinh", 5: "asinpi",
	6: "atan", 7: "atan2", 8: "atanh", 9: "atanpi", 10: "atan2pi",
	11: "cbrt", 12: "ceil", 13: "copysign",
	14: "cos", 15: "cosh", 16: "cospi",
	17: "erfc", 18: "erf",
	19: "exp", 20: "exp2", 21: "exp10", 22: "expm1",
	23: "fabs", 24: "fdim", 25: "floor", 26: "fma",
	27: "fmax", 28: "fmin", 29: "fmod", 30: "fract", 31: "frexp",
	32: "hypot", 33: "ilogb", 34: "ldexp",
	35: "lgamma", 36: "lgamma_r",
	37: "log", 38: "log2", 39: "log10", 40: "log1p", 41: "logb",
	42: "mad", 43: "maxmag", 44: "minmag", 45: "modf", 46: "nan",
	47: "nextafter", 48: "pow", 49: "pown", 50: "powr",
	51: "remainder", 52: "remquo", 53: "rint", 54: "rootn", 55: "round",
	56: "rsqrt", 57: "sin", 58: "sincos", 59: "sinh", 60: "sinpi",
	61: "sqrt", 62: "tan", 63: "tanh", 64: "tanpi",
	65: "tgamma", 66: "trunc",

	// Half and native variants.
	67: "half_cos", 68: "half_divide", 69: "half_exp", 70: "half_exp2",
	71: "half_exp10", 72: "half_log", 73: "half_log2", 74: "half_log10",
	75: "half_powr", 76: "half_recip", 77: "half_rsqrt", 78: "half_sin",
	79: "half_sqrt", 80: "half_tan",
	81: "native_cos", 82: "native_divide", 83: "native_exp",
	84: "native_exp2", 85: "native_exp10", 86: "native_log",
	87: "native_log2", 88: "native_log10", 89: "native_powr",
	90: "native_recip", 91: "native_rsqrt", 92: "native_sin",
	93: "native_sqrt", 94: "native_tan",

	// Common.
	95: "clamp", 96: "degrees", 97: "max", 98: "min", 99: "mix",
	100: "radians", 101: "step", 102: "smoothstep", 103: "sign",

	// Geometric.
	104: "cross", 105: "distance", 106: "length", 107: "normalize",
	108: "fast_distance", 109: "fast_length", 110: "fast_normalize",

	// Integer; the s_/u_ pairs collapse onto the shared OpenCL name.
	141: "abs", 142: "abs_diff",
	143: "add_sat", 144: "add_sat",
	145: "hadd", 146: "hadd", 147: "rhadd", 148: "rhadd",
	149: "clamp", 150: "clamp",
	151: "clz", 152: "ctz",
	153: "mad_hi", 154: "mad_sat", 155: "mad_sat",
	156: "max", 157: "max", 158: "min", 159: "min",
	160: "mul_hi", 161: "rotate",
	162: "sub_sat", 163: "sub_sat",
	164: "upsample", 165: "upsample",
	166: "popcount",
	167: "mad24", 168: "mad24", 169: "mul24", 170: "mul24",
	201: "abs", 202: "abs_diff", 203: "mul_hi", 204: "mad_hi",

	// Vector data load/store; the n and _r forms are fixed up textually.
	oclVloadn: "vload", oclVstoren: "vstore",
	173: "vload_half", oclVloadHalfn: "vload_half",
	175: "vstore_half", oclVstoreHalfR: "vstore_half",
	oclVstoreHalfn: "vstore_half", oclVstoreHalfnR: "vstore_half",
	oclVloadaHalfn: "vloada_half",
	oclVstoreaHalfn: "vstorea_half", oclVstoreaHalfnR: "vstorea_half",

	// Miscellaneous vector.
	182: "shuffle", 183: "shuffle2",

	oclPrintf: "printf",
	185:       "prefetch",
	186:       "bitselect", 187: "select",
}

// transExtInst translates an extended instruction as an OpenCL builtin call.
func (t *Translator) transExtInst(bv *spirv.Value, f *ir.Func, b *ir.Block) value.Value {
	if bv.Set != "OpenCL.std" {
		report.Raise(report.KindUnsupported, "extended instruction set %q is not supported", bv.Set)
	}

	num := bv.Words[0]
	name, ok := oclExtNames[num]
	if !ok {
		report.Raise(report.KindUnsupported, "OpenCL.std instruction %d is not supported", num)
	}

	args := t.transValues(bv.Operands, f, b)
	ret := t.transType(bv.Type)

	if num == oclPrintf {
		return t.transPrintf(ret, args, b)
	}

	return t.callBuiltin(b, t.extInstName(name, num, bv), ret, args...)
}

// extInstName applies the textual fixups of the vector load/store family:
// the n forms gain their element count (from the trailing literal for loads,
// from the data operand for stores), the _r forms gain the rounding suffix.
func (t *Translator) extInstName(name string, num uint32, bv *spirv.Value) string {
	switch num {
	case oclVloadn, oclVloadHalfn, oclVloadaHalfn:
		return vectorName(name, bv.Words[1])

	case oclVstoren, oclVstoreHalfn, oclVstoreaHalfn:
		return vectorName(name, storedVectorLen(bv))

	case oclVstoreHalfR:
		return name + roundingSuffixes[spirv.FPRoundingMode(bv.Words[1])]

	case oclVstoreHalfnR, oclVstoreaHalfnR:
		return vectorName(name, storedVectorLen(bv)) +
			roundingSuffixes[spirv.FPRoundingMode(bv.Words[1])]
	}

	return name
}

// vectorName appends the element count to an n-form name.  A count of one
// erases the marker: vload, not vload1.
func vectorName(name string, n uint32) string {
	if n <= 1 {
		return name
	}
	return fmt.Sprintf("%s%d", name, n)
}

// storedVectorLen is the element count of a vector store's data operand.
func storedVectorLen(bv *spirv.Value) uint32 {
	if len(bv.Operands) == 0 || !bv.Operands[0].Type.IsVector() {
		report.Raise(report.KindValidation, "vector store %d has a non-vector data operand", bv.ID)
	}
	return bv.Operands[0].Type.Len
}

// transPrintf emits a printf call.  The declared signature is variadic and
// truncated to the format argument, matching the OpenCL C declaration.
func (t *Translator) transPrintf(ret types.Type, args []value.Value, b *ir.Block) value.Value {
	if len(args) == 0 {
		report.Raise(report.KindValidation, "printf requires a format argument")
	}

	ft := types.NewFunc(ret, args[0].Type())
	ft.Variadic = true

	fn := t.getOrCreateFunc(mangle.Builtin("printf", util.Map(args[:1], value.Value.Type)), ft)
	call := b.NewCall(fn, args...)
	call.CallingConv = fn.CallingConv
	return call
}
