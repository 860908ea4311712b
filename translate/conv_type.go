package translate

import (
	"fmt"
	"strings"

	"spv2ll/report"
	"spv2ll/spirv"
	"spv2ll/util"

	"github.com/llir/llvm/ir/types"
)

// transType translates a source type to a target type.  Translation is
// memoized: translating the same source type twice yields the identical
// target object, which keeps struct identity intact across the module.
func (t *Translator) transType(bt *spirv.Type) types.Type {
	if lt, ok := t.typeMap[bt]; ok {
		return lt
	}

	return t.mapType(bt, t.transTypeNoCache(bt))
}

func (t *Translator) mapType(bt *spirv.Type, lt types.Type) types.Type {
	t.typeMap[bt] = lt
	return lt
}

func (t *Translator) transTypeNoCache(bt *spirv.Type) types.Type {
	switch bt.Op {
	case spirv.OpTypeVoid:
		return types.Void

	case spirv.OpTypeBool:
		return types.I1

	case spirv.OpTypeInt:
		return types.NewInt(uint64(bt.Width))

	case spirv.OpTypeFloat:
		switch bt.Width {
		case 16:
			return types.Half
		case 32:
			return types.Float
		case 64:
			return types.Double
		}
		report.Raise(report.KindValidation, "invalid float bit width %d", bt.Width)

	case spirv.OpTypeVector:
		return types.NewVector(uint64(bt.Len), t.transType(bt.Elem))

	case spirv.OpTypeArray, spirv.OpTypeRuntimeArray:
		return types.NewArray(uint64(bt.Len), t.transType(bt.Elem))

	case spirv.OpTypePointer:
		as, ok := addrSpaceMap.Map(bt.Storage)
		if !ok {
			report.Raise(report.KindUnsupported, "storage class %d has no address space", bt.Storage)
		}
		pt := types.NewPointer(t.transType(bt.Elem))
		pt.AddrSpace = types.AddrSpace(as)
		return pt

	case spirv.OpTypeStruct:
		// The named struct must be registered before its members translate so
		// that self-referential structs terminate.
		name := bt.Name
		if name == "" {
			name = fmt.Sprintf("structtype.%d", bt.ID)
		}
		st := &types.StructType{Packed: bt.Packed}
		t.m.NewTypeDef(name, st)
		t.mapType(bt, st)
		st.Fields = util.Map(bt.Members, t.transType)
		return st

	case spirv.OpTypeFunction:
		ft := types.NewFunc(t.transType(bt.Return), util.Map(bt.Members, t.transType)...)
		return ft

	case spirv.OpTypeOpaque:
		name := bt.Name
		if name == "" {
			name = fmt.Sprintf("opaquetype.%d", bt.ID)
		}
		st := &types.StructType{Opaque: true}
		t.m.NewTypeDef(name, st)
		return st

	case spirv.OpTypeSampler:
		// Sampler values travel as i32; image read resynthesis casts them to
		// the opaque sampler pointer at the call site.
		return types.I32

	case spirv.OpTypeImage:
		return t.opaquePtrType(imageTypeName(bt), asGlobal)

	case spirv.OpTypePipe:
		// The pipe's element type, when it carries one, becomes the sole
		// member of the named pipe struct.
		pt := t.opaquePtrType("opencl.pipe_t", asGlobal)
		t.mapType(bt, pt)
		if st, ok := pt.ElemType.(*types.StructType); ok && bt.Elem != nil && st.Opaque {
			st.Opaque = false
			st.Fields = []types.Type{t.transType(bt.Elem)}
		}
		return pt

	case spirv.OpTypeEvent, spirv.OpTypeDeviceEvent, spirv.OpTypeQueue,
		spirv.OpTypeReserveId, spirv.OpTypeSampledImage:
		return t.opaquePtrType(opaqueTypeNames[bt.Op], asPrivate)
	}

	report.Raise(report.KindUnsupported, "type opcode %d is not supported", bt.Op)
	return nil
}

// opaquePtrType returns a pointer to the named opaque struct type in the
// given address space, creating the type definition on first use.
func (t *Translator) opaquePtrType(name string, addrSpace uint32) *types.PointerType {
	var st *types.StructType

	for _, def := range t.m.TypeDefs {
		if s, ok := def.(*types.StructType); ok && s.TypeName == name {
			st = s
			break
		}
	}

	if st == nil {
		st = &types.StructType{Opaque: true}
		t.m.NewTypeDef(name, st)
	}

	pt := types.NewPointer(st)
	pt.AddrSpace = types.AddrSpace(addrSpace)
	return pt
}

// imageTypeName returns the opaque type name of an image type.
func imageTypeName(bt *spirv.Type) string {
	name := "opencl.image"

	switch bt.Image.Dim {
	case spirv.Dim1D:
		name += "1d"
	case spirv.Dim2D:
		name += "2d"
	case spirv.Dim3D:
		name += "3d"
	case spirv.DimBuffer:
		name += "1d_buffer"
	default:
		report.Raise(report.KindUnsupported, "image dimensionality %d is not supported", bt.Image.Dim)
	}

	if bt.Image.Arrayed != 0 {
		name += "_array"
	}

	return name + "_t"
}

// -----------------------------------------------------------------------------

// typeOCLName renders a source type as its OpenCL C spelling, used for the
// kernel argument type metadata and conversion builtin names.
func (t *Translator) typeOCLName(bt *spirv.Type) string {
	switch bt.Op {
	case spirv.OpTypeVoid:
		return "void"

	case spirv.OpTypeBool:
		return "bool"

	case spirv.OpTypeInt:
		// Kernel producers encode every integer with signedness 0 ("no
		// signedness semantics"), so the signed spelling is the default.
		return intOCLName(bt.Width)

	case spirv.OpTypeFloat:
		switch bt.Width {
		case 16:
			return "half"
		case 64:
			return "double"
		default:
			return "float"
		}

	case spirv.OpTypeVector:
		return t.typeOCLName(bt.Elem) + fmt.Sprint(bt.Len)

	case spirv.OpTypePointer:
		return t.typeOCLName(bt.Elem) + "*"

	case spirv.OpTypeArray, spirv.OpTypeRuntimeArray:
		return t.typeOCLName(bt.Elem) + "*"

	case spirv.OpTypeStruct:
		name := bt.Name
		if rest := strings.TrimPrefix(name, "union."); rest != name {
			return "union " + rest
		}
		return "struct " + strings.TrimPrefix(name, "struct.")

	case spirv.OpTypeImage:
		return strings.TrimPrefix(imageTypeName(bt), "opencl.")

	case spirv.OpTypeSampler:
		return "sampler_t"

	case spirv.OpTypePipe:
		return "pipe_t"

	case spirv.OpTypeEvent:
		return "event_t"

	case spirv.OpTypeDeviceEvent:
		return "clk_event_t"

	case spirv.OpTypeQueue:
		return "queue_t"

	case spirv.OpTypeReserveId:
		return "reserve_id_t"
	}

	return ""
}

// intOCLName returns the OpenCL C name of a signed integer width.
func intOCLName(width uint32) string {
	switch width {
	case 8:
		return "char"
	case 16:
		return "short"
	case 64:
		return "long"
	default:
		return "int"
	}
}
