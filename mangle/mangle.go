// Package mangle produces Itanium-style mangled names for OpenCL builtin
// function declarations.  Mangling is a pure function of the builtin name and
// its argument types: two calls with the same inputs always yield the same
// name, which keeps resynthesized declarations stable across a translation.
package mangle

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir/types"
)

// Builtin mangles an OpenCL builtin function name against its argument types.
// Integer arguments mangle as signed unless the builtin is known to take
// unsigned parameters.
func Builtin(name string, args []types.Type) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "_Z%d%s", len(name), name)

	if len(args) == 0 {
		sb.WriteByte('v')
		return sb.String()
	}

	unsigned := unsignedArgs[name]
	for i, arg := range args {
		sb.WriteString(typeCode(arg, unsigned == allArgs || unsigned&(1<<i) != 0))
	}

	return sb.String()
}

// allArgs marks a builtin whose integer arguments are all unsigned.
const allArgs = -1

// unsignedArgs maps builtin names to a bitmask of the argument positions that
// take unsigned integers.
var unsignedArgs = map[string]int{
	"barrier":          allArgs,
	"mem_fence":        allArgs,
	"read_mem_fence":   allArgs,
	"write_mem_fence":  allArgs,
	"get_global_id":    allArgs,
	"get_local_id":     allArgs,
	"get_group_id":     allArgs,
	"get_global_size":  allArgs,
	"get_local_size":   allArgs,
	"get_num_groups":   allArgs,
	"get_global_offset": allArgs,
	"atomic_umin":      allArgs,
	"atomic_umax":      allArgs,
}

// typeCode returns the Itanium mangling of a single argument type.
func typeCode(t types.Type, unsigned bool) string {
	switch v := t.(type) {
	case *types.VoidType:
		return "v"

	case *types.IntType:
		switch v.BitSize {
		case 1:
			return "b"
		case 8:
			return pick(unsigned, "h", "c")
		case 16:
			return pick(unsigned, "t", "s")
		case 32:
			return pick(unsigned, "j", "i")
		case 64:
			return pick(unsigned, "m", "l")
		}
		return pick(unsigned, "j", "i")

	case *types.FloatType:
		switch v.Kind {
		case types.FloatKindHalf:
			return "Dh"
		case types.FloatKindFloat:
			return "f"
		case types.FloatKindDouble:
			return "d"
		}
		return "e"

	case *types.VectorType:
		return fmt.Sprintf("Dv%d_%s", v.Len, typeCode(v.ElemType, unsigned))

	case *types.PointerType:
		code := "P"
		if v.AddrSpace != 0 {
			code += fmt.Sprintf("U3AS%d", v.AddrSpace)
		}
		return code + typeCode(v.ElemType, unsigned)

	case *types.StructType:
		if v.TypeName != "" {
			// Named opaque types (images, samplers, events) mangle by name.
			return fmt.Sprintf("%d%s", len(v.TypeName), v.TypeName)
		}
		return "9anonstruct"

	case *types.ArrayType:
		return fmt.Sprintf("A%d_%s", v.Len, typeCode(v.ElemType, unsigned))
	}

	return "z"
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
