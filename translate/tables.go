package translate

import (
	"spv2ll/spirv"
	"spv2ll/util"

	"github.com/llir/llvm/ir/enum"
)

// Target address spaces of the SPIR ABI.
const (
	asPrivate  = 0
	asGlobal   = 1
	asConstant = 2
	asLocal    = 3
	asGeneric  = 4
)

// addrSpaceMap relates storage classes to target address spaces.  Function
// and Private storage both land in the private address space; Private owns
// the reverse direction.
var addrSpaceMap = util.NewBiMap(map[spirv.StorageClass]uint32{}).
	Add(spirv.StoragePrivate, asPrivate).
	Add(spirv.StorageFunction, asPrivate).
	Add(spirv.StorageCrossWorkgroup, asGlobal).
	Add(spirv.StorageUniformConstant, asConstant).
	Add(spirv.StorageWorkgroup, asLocal).
	Add(spirv.StorageGeneric, asGeneric)

// memFenceMap relates memory-semantics bits to the CLK_*_MEM_FENCE flag
// values of the barrier and mem_fence builtins.
var memFenceMap = util.NewBiMap(map[uint32]uint32{
	uint32(spirv.MemSemWorkgroupMemory):      1, // CLK_LOCAL_MEM_FENCE
	uint32(spirv.MemSemCrossWorkgroupMemory): 2, // CLK_GLOBAL_MEM_FENCE
	uint32(spirv.MemSemImageMemory):          4, // CLK_IMAGE_MEM_FENCE
})

// icmpMap relates integer and boolean comparison opcodes to predicates.
var icmpMap = util.NewBiMap(map[spirv.Op]enum.IPred{
	spirv.OpIEqual:              enum.IPredEQ,
	spirv.OpINotEqual:           enum.IPredNE,
	spirv.OpUGreaterThan:        enum.IPredUGT,
	spirv.OpSGreaterThan:        enum.IPredSGT,
	spirv.OpUGreaterThanEqual:   enum.IPredUGE,
	spirv.OpSGreaterThanEqual:   enum.IPredSGE,
	spirv.OpULessThan:           enum.IPredULT,
	spirv.OpSLessThan:           enum.IPredSLT,
	spirv.OpULessThanEqual:      enum.IPredULE,
	spirv.OpSLessThanEqual:      enum.IPredSLE,
	spirv.OpLogicalEqual:        enum.IPredEQ,
	spirv.OpLogicalNotEqual:     enum.IPredNE,
})

// fcmpMap relates float comparison opcodes to predicates.
var fcmpMap = util.NewBiMap(map[spirv.Op]enum.FPred{
	spirv.OpFOrdEqual:              enum.FPredOEQ,
	spirv.OpFUnordEqual:            enum.FPredUEQ,
	spirv.OpFOrdNotEqual:           enum.FPredONE,
	spirv.OpFUnordNotEqual:         enum.FPredUNE,
	spirv.OpFOrdLessThan:           enum.FPredOLT,
	spirv.OpFUnordLessThan:         enum.FPredULT,
	spirv.OpFOrdGreaterThan:        enum.FPredOGT,
	spirv.OpFUnordGreaterThan:      enum.FPredUGT,
	spirv.OpFOrdLessThanEqual:      enum.FPredOLE,
	spirv.OpFUnordLessThanEqual:    enum.FPredULE,
	spirv.OpFOrdGreaterThanEqual:   enum.FPredOGE,
	spirv.OpFUnordGreaterThanEqual: enum.FPredUGE,
})

// cmpBuiltinNames holds the comparison opcodes that have no predicate and
// resynthesize to relational builtins instead.
var cmpBuiltinNames = map[spirv.Op]string{
	spirv.OpLessOrGreater: "islessgreater",
	spirv.OpOrdered:       "isordered",
	spirv.OpUnordered:     "isunordered",
}

// atomicNames relates atomic opcodes to their OpenCL builtin names.
var atomicNames = map[spirv.Op]string{
	spirv.OpAtomicExchange:            "atomic_xchg",
	spirv.OpAtomicCompareExchange:     "atomic_cmpxchg",
	spirv.OpAtomicCompareExchangeWeak: "atomic_cmpxchg",
	spirv.OpAtomicIIncrement:          "atomic_inc",
	spirv.OpAtomicIDecrement:          "atomic_dec",
	spirv.OpAtomicIAdd:                "atomic_add",
	spirv.OpAtomicISub:                "atomic_sub",
	spirv.OpAtomicSMin:                "atomic_min",
	spirv.OpAtomicUMin:                "atomic_min",
	spirv.OpAtomicSMax:                "atomic_max",
	spirv.OpAtomicUMax:                "atomic_max",
	spirv.OpAtomicAnd:                 "atomic_and",
	spirv.OpAtomicOr:                  "atomic_or",
	spirv.OpAtomicXor:                 "atomic_xor",
}

// builtinInstNames relates the remaining resynthesized instruction opcodes to
// OpenCL builtin names.
var builtinInstNames = map[spirv.Op]string{
	spirv.OpDot:        "dot",
	spirv.OpAny:        "any",
	spirv.OpAll:        "all",
	spirv.OpIsNan:      "isnan",
	spirv.OpIsInf:      "isinf",
	spirv.OpIsFinite:   "isfinite",
	spirv.OpIsNormal:   "isnormal",
	spirv.OpSignBitSet: "signbit",
	spirv.OpFMod:       "fmod",

	spirv.OpGroupAsyncCopy:  "async_work_group_strided_copy",
	spirv.OpGroupWaitEvents: "wait_group_events",

	spirv.OpReadPipe:                "read_pipe",
	spirv.OpWritePipe:               "write_pipe",
	spirv.OpReservedReadPipe:        "reserved_read_pipe",
	spirv.OpReservedWritePipe:       "reserved_write_pipe",
	spirv.OpReserveReadPipePackets:  "reserve_read_pipe",
	spirv.OpReserveWritePipePackets: "reserve_write_pipe",
	spirv.OpCommitReadPipe:          "commit_read_pipe",
	spirv.OpCommitWritePipe:         "commit_write_pipe",
	spirv.OpIsValidReserveId:        "is_valid_reserve_id",
	spirv.OpGetNumPipePackets:       "get_pipe_num_packets",
	spirv.OpGetMaxPipePackets:       "get_pipe_max_packets",

	spirv.OpEnqueueMarker:                           "enqueue_marker",
	spirv.OpEnqueueKernel:                           "enqueue_kernel",
	spirv.OpGetKernelNDrangeSubGroupCount:           "get_kernel_sub_group_count_for_ndrange",
	spirv.OpGetKernelNDrangeMaxSubGroupSize:         "get_kernel_max_sub_group_size_for_ndrange",
	spirv.OpGetKernelWorkGroupSize:                  "get_kernel_work_group_size",
	spirv.OpGetKernelPreferredWorkGroupSizeMultiple: "get_kernel_preferred_work_group_size_multiple",
	spirv.OpRetainEvent:                             "retain_event",
	spirv.OpReleaseEvent:                            "release_event",
	spirv.OpCreateUserEvent:                         "create_user_event",
	spirv.OpIsValidEvent:                            "is_valid_event",
	spirv.OpSetUserEventStatus:                      "set_user_event_status",
	spirv.OpCaptureEventProfilingInfo:               "capture_event_profiling_info",
	spirv.OpGetDefaultQueue:                         "get_default_queue",
	spirv.OpBuildNDRange:                            "ndrange",
}

// builtinVarNames relates builtin variables to the workitem builtin
// functions they lower to.
var builtinVarNames = map[spirv.BuiltIn]string{
	spirv.BuiltInWorkDim:                   "get_work_dim",
	spirv.BuiltInGlobalSize:                "get_global_size",
	spirv.BuiltInGlobalInvocationId:        "get_global_id",
	spirv.BuiltInGlobalOffset:              "get_global_offset",
	spirv.BuiltInLocalInvocationId:         "get_local_id",
	spirv.BuiltInWorkgroupSize:             "get_local_size",
	spirv.BuiltInEnqueuedWorkgroupSize:     "get_enqueued_local_size",
	spirv.BuiltInNumWorkgroups:             "get_num_groups",
	spirv.BuiltInWorkgroupId:               "get_group_id",
	spirv.BuiltInGlobalLinearId:            "get_global_linear_id",
	spirv.BuiltInLocalInvocationIndex:      "get_local_linear_id",
	spirv.BuiltInSubgroupSize:              "get_sub_group_size",
	spirv.BuiltInSubgroupMaxSize:           "get_max_sub_group_size",
	spirv.BuiltInNumSubgroups:              "get_num_sub_groups",
	spirv.BuiltInNumEnqueuedSubgroups:      "get_enqueued_num_sub_groups",
	spirv.BuiltInSubgroupId:                "get_sub_group_id",
	spirv.BuiltInSubgroupLocalInvocationId: "get_sub_group_local_id",
}

// funcCtlAttrs relates function-control bits to function attributes.
var funcCtlAttrs = map[spirv.FunctionControl]enum.FuncAttr{
	spirv.FuncCtlInline:     enum.FuncAttrAlwaysInline,
	spirv.FuncCtlDontInline: enum.FuncAttrNoInline,
	spirv.FuncCtlPure:       enum.FuncAttrReadNone,
	spirv.FuncCtlConst:      enum.FuncAttrReadOnly,
}

// paramAttrMap relates parameter-attribute decorations to parameter
// attributes.  ByVal and Sret are handled structurally, not as attributes.
var paramAttrMap = map[spirv.FuncParamAttr]enum.ParamAttr{
	spirv.FuncParamAttrZext:      enum.ParamAttrZeroExt,
	spirv.FuncParamAttrSext:      enum.ParamAttrSignExt,
	spirv.FuncParamAttrNoAlias:   enum.ParamAttrNoAlias,
	spirv.FuncParamAttrNoCapture: enum.ParamAttrNoCapture,
}

// linkageMap relates linkage kinds to target linkage.
var linkageMap = map[spirv.LinkageType]enum.Linkage{
	spirv.LinkageExport:   enum.LinkageExternal,
	spirv.LinkageImport:   enum.LinkageAvailableExternally,
	spirv.LinkageInternal: enum.LinkageInternal,
}

// roundingSuffixes relates rounding modes to builtin name suffixes.
var roundingSuffixes = map[spirv.FPRoundingMode]string{
	spirv.FPRoundingRTE: "_rte",
	spirv.FPRoundingRTZ: "_rtz",
	spirv.FPRoundingRTP: "_rtp",
	spirv.FPRoundingRTN: "_rtn",
}

// opaqueTypeNames relates opaque generic type opcodes to their named opaque
// struct types.
var opaqueTypeNames = map[spirv.Op]string{
	spirv.OpTypeEvent:        "opencl.event_t",
	spirv.OpTypeDeviceEvent:  "opencl.clk_event_t",
	spirv.OpTypeQueue:        "opencl.queue_t",
	spirv.OpTypeReserveId:    "opencl.reserve_id_t",
	spirv.OpTypeSampledImage: "opencl.sampled_image_t",
}

// accessQualNames relates access qualifiers to their metadata spellings.
var accessQualNames = map[spirv.AccessQualifier]string{
	spirv.AccessReadOnly:  "read_only",
	spirv.AccessWriteOnly: "write_only",
	spirv.AccessReadWrite: "read_write",
}

// -----------------------------------------------------------------------------

func isAtomicOp(op spirv.Op) bool {
	return op >= spirv.OpAtomicLoad && op <= spirv.OpAtomicXor
}

// cmp opcodes that translate directly to compare instructions.
func isPredCmpOp(op spirv.Op) bool {
	if _, ok := icmpMap.Map(op); ok {
		return true
	}
	_, ok := fcmpMap.Map(op)
	return ok
}

// cmp opcodes that resynthesize to relational builtins rather than compare
// instructions.
func isCmpBuiltinOp(op spirv.Op) bool {
	_, ok := cmpBuiltinNames[op]
	return ok
}

func isBinaryOp(op spirv.Op) bool {
	_, ok := binOps[op]
	return ok
}

func isConvertOp(op spirv.Op) bool {
	return op >= spirv.OpConvertFToU && op <= spirv.OpBitcast
}
