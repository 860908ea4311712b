package translate

import (
	"strings"

	"spv2ll/spirv"
	"spv2ll/util"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/types"
)

// KernelInfo describes one kernel for the opencl.kernels metadata.  The
// record is assembled in full before any metadata node exists; serialization
// to the target module happens only at the boundary.
type KernelInfo struct {
	Fn   *ir.Func
	Args []ArgInfo

	// ReqdWorkGroupSize and WorkGroupSizeHint hold three extents when the
	// corresponding execution mode is present.
	ReqdWorkGroupSize []uint32
	WorkGroupSizeHint []uint32

	// VecTypeHint is the hinted type, nil without the execution mode.
	VecTypeHint types.Type

	// ArgNames records whether kernel_arg_name should be emitted.
	ArgNames bool
}

// ArgInfo describes one kernel argument.
type ArgInfo struct {
	AddrSpace  uint32
	AccessQual string
	TypeName   string
	BaseType   string
	TypeQuals  string
	Name       string
}

// transKernelMetadata synthesizes the opencl.kernels named metadata from the
// entry points of the source module.
func (t *Translator) transKernelMetadata() {
	var nodes []metadata.Node

	for _, bf := range t.bm.Functions {
		if !t.bm.IsEntryPoint(spirv.ExecModelKernel, bf.ID) {
			continue
		}

		nodes = append(nodes, t.serializeKernel(t.kernelInfo(bf)))
	}

	if len(nodes) > 0 {
		t.namedMD("opencl.kernels", nodes...)
	}
}

// kernelInfo collects the metadata record of one kernel.
func (t *Translator) kernelInfo(bf *spirv.Function) *KernelInfo {
	ki := &KernelInfo{Fn: t.funcMap[bf]}

	argInfo := strings.Contains(t.bm.CompileFlags, "-cl-kernel-arg-info")
	ki.ArgNames = argInfo

	for _, bp := range bf.Params {
		ai := ArgInfo{
			AccessQual: "none",
			TypeName:   t.typeOCLName(bp.Type),
			BaseType:   t.typeOCLName(bp.Type),
			TypeQuals:  t.argTypeQuals(bp),
			Name:       bp.Name,
		}

		if bp.Type.IsPointer() {
			ai.AddrSpace = addrSpaceMap.MustMap(bp.Type.Storage)
		}

		if qual, ok := accessQualNames[argAccessQual(bp.Type)]; ok && isImageOrPipe(bp.Type) {
			ai.AccessQual = qual
		}

		if bp.Name == "" {
			ki.ArgNames = false
		}

		ki.Args = append(ki.Args, ai)
	}

	if em := t.bm.ExecutionMode(bf.ID, spirv.ExecModeLocalSize); em != nil && len(em.Words) >= 3 {
		ki.ReqdWorkGroupSize = em.Words[:3]
	}
	if em := t.bm.ExecutionMode(bf.ID, spirv.ExecModeLocalSizeHint); em != nil && len(em.Words) >= 3 {
		ki.WorkGroupSizeHint = em.Words[:3]
	}
	if em := t.bm.ExecutionMode(bf.ID, spirv.ExecModeVecTypeHint); em != nil && len(em.Words) >= 1 {
		ki.VecTypeHint = decodeVecTypeHint(em.Words[0])
	}

	return ki
}

// argTypeQuals derives the kernel_arg_type_qual spelling of a parameter.
func (t *Translator) argTypeQuals(bp *spirv.Value) string {
	var quals []string

	if bp.Type.Op == spirv.OpTypePipe {
		quals = append(quals, "pipe")
	}
	if t.bm.HasDecoration(bp.ID, spirv.DecorationVolatile) {
		quals = append(quals, "volatile")
	}

	for _, attr := range t.bm.ParamAttrs(bp.ID) {
		switch attr {
		case spirv.FuncParamAttrNoAlias:
			quals = append(quals, "restrict")
		case spirv.FuncParamAttrNoWrite:
			quals = append(quals, "const")
		}
	}

	return strings.Join(quals, " ")
}

func argAccessQual(bt *spirv.Type) spirv.AccessQualifier {
	if bt.IsPointer() {
		bt = bt.Elem
	}
	return bt.Access
}

func isImageOrPipe(bt *spirv.Type) bool {
	if bt.IsPointer() {
		bt = bt.Elem
	}
	return bt.Op == spirv.OpTypeImage || bt.Op == spirv.OpTypePipe
}

// decodeVecTypeHint unpacks the vector-type-hint literal: component count in
// the high half, scalar kind in the low half.
func decodeVecTypeHint(word uint32) types.Type {
	var scalar types.Type
	switch word & 0xffff {
	case 0:
		scalar = types.I8
	case 1:
		scalar = types.I16
	case 2:
		scalar = types.I32
	case 3:
		scalar = types.I64
	case 4:
		scalar = types.Half
	case 5:
		scalar = types.Float
	case 6:
		scalar = types.Double
	default:
		return nil
	}

	if n := word >> 16; n > 1 {
		return types.NewVector(uint64(n), scalar)
	}
	return scalar
}

// serializeKernel turns a kernel record into its metadata tuple.
func (t *Translator) serializeKernel(ki *KernelInfo) *metadata.Tuple {
	fields := []metadata.Field{ki.Fn}

	addField := func(name string, vals func(ArgInfo) metadata.Field) {
		row := []metadata.Field{mdString("kernel_arg_" + name)}
		for _, ai := range ki.Args {
			row = append(row, vals(ai))
		}
		fields = append(fields, t.newTuple(row...))
	}

	addField("addr_space", func(ai ArgInfo) metadata.Field {
		return constant.NewInt(types.I32, int64(ai.AddrSpace))
	})
	addField("access_qual", func(ai ArgInfo) metadata.Field { return mdString(ai.AccessQual) })
	addField("type", func(ai ArgInfo) metadata.Field { return mdString(ai.TypeName) })
	addField("base_type", func(ai ArgInfo) metadata.Field { return mdString(ai.BaseType) })
	addField("type_qual", func(ai ArgInfo) metadata.Field { return mdString(ai.TypeQuals) })

	if ki.ArgNames {
		addField("name", func(ai ArgInfo) metadata.Field { return mdString(ai.Name) })
	}

	if ki.ReqdWorkGroupSize != nil {
		fields = append(fields, t.sizeTuple("reqd_work_group_size", ki.ReqdWorkGroupSize))
	}
	if ki.WorkGroupSizeHint != nil {
		fields = append(fields, t.sizeTuple("work_group_size_hint", ki.WorkGroupSizeHint))
	}
	if ki.VecTypeHint != nil {
		fields = append(fields, t.newTuple(
			mdString("vec_type_hint"),
			constant.NewUndef(ki.VecTypeHint),
			constant.NewInt(types.I32, 1)))
	}

	return t.newTuple(fields...)
}

func (t *Translator) sizeTuple(name string, sizes []uint32) *metadata.Tuple {
	fields := []metadata.Field{mdString(name)}
	for _, s := range sizes {
		fields = append(fields, constant.NewInt(types.I32, int64(s)))
	}
	return t.newTuple(fields...)
}

// -----------------------------------------------------------------------------

// optionalCoreFeatures are the source extensions reported under
// opencl.used.optional.core.features rather than opencl.used.extensions.
var optionalCoreFeatures = []string{"cl_images", "cl_doubles"}

// transModuleMetadata synthesizes the module-level OpenCL metadata: FP
// contraction, SPIR and OpenCL versions, used extensions and optional core
// features, and recorded compiler options.
func (t *Translator) transModuleMetadata() {
	if !t.contractionOff() {
		t.namedMD("opencl.enable.FP_CONTRACT")
	}

	major, minor := t.sourceVersion()

	spirMajor, spirMinor := int64(1), int64(2)
	if major >= 2 {
		spirMajor, spirMinor = 2, 0
	}

	t.namedMD("opencl.spir.version", t.newTuple(
		constant.NewInt(types.I32, spirMajor), constant.NewInt(types.I32, spirMinor)))
	t.namedMD("opencl.ocl.version", t.newTuple(
		constant.NewInt(types.I32, major), constant.NewInt(types.I32, minor)))

	features := util.Filter(t.bm.SourceExtensions, func(s string) bool {
		return util.Contains(optionalCoreFeatures, s)
	})
	exts := util.Filter(t.bm.SourceExtensions, func(s string) bool {
		return !util.Contains(optionalCoreFeatures, s)
	})

	t.namedMD("opencl.used.extensions", t.newTuple(mdStrings(exts)...))
	t.namedMD("opencl.used.optional.core.features", t.newTuple(mdStrings(features)...))

	opts := strings.Fields(t.bm.CompileFlags)
	t.namedMD("opencl.compiler.options", t.newTuple(mdStrings(opts)...))
}

// contractionOff reports whether any entry point disables FP contraction.
func (t *Translator) contractionOff() bool {
	for _, bf := range t.bm.Functions {
		if t.bm.ExecutionMode(bf.ID, spirv.ExecModeContractionOff) != nil {
			return true
		}
	}
	return false
}

// sourceVersion decodes the source-language version into major and minor
// parts.  OpenCL C encodes 1.2 as 102000; small values are taken as
// major*10+minor.
func (t *Translator) sourceVersion() (int64, int64) {
	ver := int64(t.bm.SourceVersion)
	if ver >= 100000 {
		return ver / 100000, ver % 100000 / 1000
	}
	return ver / 10, ver % 10
}

// -----------------------------------------------------------------------------

// newTuple registers a metadata tuple on the module.
func (t *Translator) newTuple(fields ...metadata.Field) *metadata.Tuple {
	tup := &metadata.Tuple{Fields: fields}
	tup.SetID(int64(len(t.m.MetadataDefs)))
	t.m.MetadataDefs = append(t.m.MetadataDefs, tup)
	return tup
}

// namedMD attaches a named metadata definition to the module.
func (t *Translator) namedMD(name string, nodes ...metadata.Node) {
	if t.m.NamedMetadataDefs == nil {
		t.m.NamedMetadataDefs = make(map[string]*metadata.NamedDef)
	}
	t.m.NamedMetadataDefs[name] = &metadata.NamedDef{Name: name, Nodes: nodes}
}

func mdString(s string) *metadata.String {
	return &metadata.String{Value: s}
}

func mdStrings(ss []string) []metadata.Field {
	return util.Map(ss, func(s string) metadata.Field { return mdString(s) })
}
