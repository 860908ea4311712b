// Package spirv provides the in-memory data model and binary decoder for
// SPIR-V modules as produced by OpenCL C compilers.  Only the kernel-compute
// subset of the instruction set is modeled; graphics-only instructions decode
// into generic values that the translator rejects.
package spirv

// Op is a SPIR-V opcode.
type Op uint16

// Enumeration of the SPIR-V opcodes handled by the decoder and translator.
const (
	OpNop             Op = 0
	OpUndef           Op = 1
	OpSourceContinued Op = 2
	OpSource          Op = 3
	OpSourceExtension Op = 4
	OpName            Op = 5
	OpMemberName      Op = 6
	OpString          Op = 7
	OpLine            Op = 8
	OpExtension       Op = 10
	OpExtInstImport   Op = 11
	OpExtInst         Op = 12
	OpMemoryModel     Op = 14
	OpEntryPoint      Op = 15
	OpExecutionMode   Op = 16
	OpCapability      Op = 17

	OpTypeVoid           Op = 19
	OpTypeBool           Op = 20
	OpTypeInt            Op = 21
	OpTypeFloat          Op = 22
	OpTypeVector         Op = 23
	OpTypeMatrix         Op = 24
	OpTypeImage          Op = 25
	OpTypeSampler        Op = 26
	OpTypeSampledImage   Op = 27
	OpTypeArray          Op = 28
	OpTypeRuntimeArray   Op = 29
	OpTypeStruct         Op = 30
	OpTypeOpaque         Op = 31
	OpTypePointer        Op = 32
	OpTypeFunction       Op = 33
	OpTypeEvent          Op = 34
	OpTypeDeviceEvent    Op = 35
	OpTypeReserveId      Op = 36
	OpTypeQueue          Op = 37
	OpTypePipe           Op = 38
	OpTypeForwardPointer Op = 39

	OpConstantTrue      Op = 41
	OpConstantFalse     Op = 42
	OpConstant          Op = 43
	OpConstantComposite Op = 44
	OpConstantSampler   Op = 45
	OpConstantNull      Op = 46

	OpFunction          Op = 54
	OpFunctionParameter Op = 55
	OpFunctionEnd       Op = 56
	OpFunctionCall      Op = 57

	OpVariable          Op = 59
	OpImageTexelPointer Op = 60
	OpLoad              Op = 61
	OpStore             Op = 62
	OpCopyMemory        Op = 63
	OpCopyMemorySized   Op = 64
	OpAccessChain       Op = 65
	OpInBoundsAccessChain Op = 66
	OpPtrAccessChain    Op = 67
	OpArrayLength       Op = 68
	OpGenericPtrMemSemantics Op = 69
	OpInBoundsPtrAccessChain Op = 70

	OpDecorate         Op = 71
	OpMemberDecorate   Op = 72
	OpDecorationGroup  Op = 73
	OpGroupDecorate    Op = 74

	OpVectorExtractDynamic Op = 77
	OpVectorInsertDynamic  Op = 78
	OpVectorShuffle        Op = 79
	OpCompositeConstruct   Op = 80
	OpCompositeExtract     Op = 81
	OpCompositeInsert      Op = 82
	OpCopyObject           Op = 83

	OpSampledImage            Op = 86
	OpImageSampleExplicitLod  Op = 88
	OpImageRead               Op = 98
	OpImageWrite              Op = 99
	OpImageQuerySizeLod       Op = 103
	OpImageQuerySize          Op = 104

	OpConvertFToU             Op = 109
	OpConvertFToS             Op = 110
	OpConvertSToF             Op = 111
	OpConvertUToF             Op = 112
	OpUConvert                Op = 113
	OpSConvert                Op = 114
	OpFConvert                Op = 115
	OpQuantizeToF16           Op = 116
	OpConvertPtrToU           Op = 117
	OpSatConvertSToU          Op = 118
	OpSatConvertUToS          Op = 119
	OpConvertUToPtr           Op = 120
	OpPtrCastToGeneric        Op = 121
	OpGenericCastToPtr        Op = 122
	OpGenericCastToPtrExplicit Op = 123
	OpBitcast                 Op = 124

	OpSNegate Op = 126
	OpFNegate Op = 127
	OpIAdd    Op = 128
	OpFAdd    Op = 129
	OpISub    Op = 130
	OpFSub    Op = 131
	OpIMul    Op = 132
	OpFMul    Op = 133
	OpUDiv    Op = 134
	OpSDiv    Op = 135
	OpFDiv    Op = 136
	OpUMod    Op = 137
	OpSRem    Op = 138
	OpSMod    Op = 139
	OpFRem    Op = 140
	OpFMod    Op = 141

	OpDot Op = 148

	OpAny           Op = 154
	OpAll           Op = 155
	OpIsNan         Op = 156
	OpIsInf         Op = 157
	OpIsFinite      Op = 158
	OpIsNormal      Op = 159
	OpSignBitSet    Op = 160
	OpLessOrGreater Op = 161
	OpOrdered       Op = 162
	OpUnordered     Op = 163

	OpLogicalEqual    Op = 164
	OpLogicalNotEqual Op = 165
	OpLogicalOr       Op = 166
	OpLogicalAnd      Op = 167
	OpLogicalNot      Op = 168
	OpSelect          Op = 169

	OpIEqual                 Op = 170
	OpINotEqual              Op = 171
	OpUGreaterThan           Op = 172
	OpSGreaterThan           Op = 173
	OpUGreaterThanEqual      Op = 174
	OpSGreaterThanEqual      Op = 175
	OpULessThan              Op = 176
	OpSLessThan              Op = 177
	OpULessThanEqual         Op = 178
	OpSLessThanEqual         Op = 179
	OpFOrdEqual              Op = 180
	OpFUnordEqual            Op = 181
	OpFOrdNotEqual           Op = 182
	OpFUnordNotEqual         Op = 183
	OpFOrdLessThan           Op = 184
	OpFUnordLessThan         Op = 185
	OpFOrdGreaterThan        Op = 186
	OpFUnordGreaterThan      Op = 187
	OpFOrdLessThanEqual      Op = 188
	OpFUnordLessThanEqual    Op = 189
	OpFOrdGreaterThanEqual   Op = 190
	OpFUnordGreaterThanEqual Op = 191

	OpShiftRightLogical    Op = 194
	OpShiftRightArithmetic Op = 195
	OpShiftLeftLogical     Op = 196
	OpBitwiseOr            Op = 197
	OpBitwiseXor           Op = 198
	OpBitwiseAnd           Op = 199
	OpNot                  Op = 200

	OpBitCount Op = 205

	OpControlBarrier Op = 224
	OpMemoryBarrier  Op = 225

	OpAtomicLoad                Op = 227
	OpAtomicStore               Op = 228
	OpAtomicExchange            Op = 229
	OpAtomicCompareExchange     Op = 230
	OpAtomicCompareExchangeWeak Op = 231
	OpAtomicIIncrement          Op = 232
	OpAtomicIDecrement          Op = 233
	OpAtomicIAdd                Op = 234
	OpAtomicISub                Op = 235
	OpAtomicSMin                Op = 236
	OpAtomicUMin                Op = 237
	OpAtomicSMax                Op = 238
	OpAtomicUMax                Op = 239
	OpAtomicAnd                 Op = 240
	OpAtomicOr                  Op = 241
	OpAtomicXor                 Op = 242

	OpPhi               Op = 245
	OpLoopMerge         Op = 246
	OpSelectionMerge    Op = 247
	OpLabel             Op = 248
	OpBranch            Op = 249
	OpBranchConditional Op = 250
	OpSwitch            Op = 251
	OpReturn            Op = 253
	OpReturnValue       Op = 254
	OpUnreachable       Op = 255
	OpLifetimeStart     Op = 256
	OpLifetimeStop      Op = 257

	// OpVariableArray is a pre-release opcode emitted by early OpenCL 1.2
	// producers for stack allocations whose element count is a value operand.
	// The word 258 is unassigned in the 1.0 core set.
	OpVariableArray Op = 258

	OpGroupAsyncCopy  Op = 259
	OpGroupWaitEvents Op = 260

	OpReadPipe                    Op = 274
	OpWritePipe                   Op = 275
	OpReservedReadPipe            Op = 276
	OpReservedWritePipe           Op = 277
	OpReserveReadPipePackets      Op = 278
	OpReserveWritePipePackets     Op = 279
	OpCommitReadPipe              Op = 280
	OpCommitWritePipe             Op = 281
	OpIsValidReserveId            Op = 282
	OpGetNumPipePackets           Op = 283
	OpGetMaxPipePackets           Op = 284

	OpEnqueueMarker                           Op = 291
	OpEnqueueKernel                           Op = 292
	OpGetKernelNDrangeSubGroupCount           Op = 293
	OpGetKernelNDrangeMaxSubGroupSize         Op = 294
	OpGetKernelWorkGroupSize                  Op = 295
	OpGetKernelPreferredWorkGroupSizeMultiple Op = 296
	OpRetainEvent                             Op = 297
	OpReleaseEvent                            Op = 298
	OpCreateUserEvent                         Op = 299
	OpIsValidEvent                            Op = 300
	OpSetUserEventStatus                      Op = 301
	OpCaptureEventProfilingInfo               Op = 302
	OpGetDefaultQueue                         Op = 303
	OpBuildNDRange                            Op = 304

	OpModuleProcessed Op = 330
)

// -----------------------------------------------------------------------------

// StorageClass is the storage class of a pointer type or variable.
type StorageClass uint32

const (
	StorageUniformConstant StorageClass = 0
	StorageInput           StorageClass = 1
	StorageUniform         StorageClass = 2
	StorageOutput          StorageClass = 3
	StorageWorkgroup       StorageClass = 4
	StorageCrossWorkgroup  StorageClass = 5
	StoragePrivate         StorageClass = 6
	StorageFunction        StorageClass = 7
	StorageGeneric         StorageClass = 8
)

// AddressingModel selects the pointer width of the module.
type AddressingModel uint32

const (
	AddressingLogical    AddressingModel = 0
	AddressingPhysical32 AddressingModel = 1
	AddressingPhysical64 AddressingModel = 2
)

// MemoryModel is the memory model declared by OpMemoryModel.
type MemoryModel uint32

const (
	MemoryModelSimple  MemoryModel = 0
	MemoryModelGLSL450 MemoryModel = 1
	MemoryModelOpenCL  MemoryModel = 2
)

// ExecutionModel classifies an entry point.  Compute kernels use Kernel.
type ExecutionModel uint32

const (
	ExecModelKernel ExecutionModel = 6
)

// ExecutionMode is a per-entry-point execution mode.
type ExecutionMode uint32

const (
	ExecModeLocalSize      ExecutionMode = 17
	ExecModeLocalSizeHint  ExecutionMode = 18
	ExecModeVecTypeHint    ExecutionMode = 30
	ExecModeContractionOff ExecutionMode = 31
)

// SourceLanguage is the declared source language of the module.
type SourceLanguage uint32

const (
	SourceLanguageUnknown   SourceLanguage = 0
	SourceLanguageESSL      SourceLanguage = 1
	SourceLanguageGLSL      SourceLanguage = 2
	SourceLanguageOpenCLC   SourceLanguage = 3
	SourceLanguageOpenCLCPP SourceLanguage = 4
)

// Decoration is a decoration kind applied by OpDecorate/OpMemberDecorate.
type Decoration uint32

const (
	DecorationRelaxedPrecision    Decoration = 0
	DecorationSpecId              Decoration = 1
	DecorationBlock               Decoration = 2
	DecorationCPacked             Decoration = 10
	DecorationBuiltIn             Decoration = 11
	DecorationRestrict            Decoration = 19
	DecorationAliased             Decoration = 20
	DecorationVolatile            Decoration = 21
	DecorationConstant            Decoration = 22
	DecorationCoherent            Decoration = 23
	DecorationNonWritable         Decoration = 24
	DecorationNonReadable         Decoration = 25
	DecorationSaturatedConversion Decoration = 28
	DecorationFuncParamAttr       Decoration = 38
	DecorationFPRoundingMode      Decoration = 39
	DecorationFPFastMathMode      Decoration = 40
	DecorationLinkageAttributes   Decoration = 41
	DecorationNoContraction       Decoration = 42
	DecorationAlignment           Decoration = 44
)

// BuiltIn identifies a builtin variable decorated with DecorationBuiltIn.
type BuiltIn uint32

const (
	BuiltInNumWorkgroups         BuiltIn = 24
	BuiltInWorkgroupSize         BuiltIn = 25
	BuiltInWorkgroupId           BuiltIn = 26
	BuiltInLocalInvocationId     BuiltIn = 27
	BuiltInGlobalInvocationId    BuiltIn = 28
	BuiltInLocalInvocationIndex  BuiltIn = 29
	BuiltInWorkDim               BuiltIn = 30
	BuiltInGlobalSize            BuiltIn = 31
	BuiltInEnqueuedWorkgroupSize BuiltIn = 32
	BuiltInGlobalOffset          BuiltIn = 33
	BuiltInGlobalLinearId        BuiltIn = 34
	BuiltInSubgroupSize          BuiltIn = 36
	BuiltInSubgroupMaxSize       BuiltIn = 37
	BuiltInNumSubgroups          BuiltIn = 38
	BuiltInNumEnqueuedSubgroups  BuiltIn = 39
	BuiltInSubgroupId            BuiltIn = 40
	BuiltInSubgroupLocalInvocationId BuiltIn = 41
)

// LinkageType is carried by the LinkageAttributes decoration.  Symbols with no
// linkage decoration are internal.
type LinkageType uint32

const (
	LinkageExport   LinkageType = 0
	LinkageImport   LinkageType = 1
	LinkageInternal LinkageType = 2
)

// AccessQualifier qualifies image and pipe types.
type AccessQualifier uint32

const (
	AccessReadOnly  AccessQualifier = 0
	AccessWriteOnly AccessQualifier = 1
	AccessReadWrite AccessQualifier = 2
)

// FunctionControl is the bitmask attached to OpFunction.
type FunctionControl uint32

const (
	FuncCtlInline     FunctionControl = 0x1
	FuncCtlDontInline FunctionControl = 0x2
	FuncCtlPure       FunctionControl = 0x4
	FuncCtlConst      FunctionControl = 0x8
)

// FuncParamAttr is carried by the FuncParamAttr decoration on parameters.
type FuncParamAttr uint32

const (
	FuncParamAttrZext        FuncParamAttr = 0
	FuncParamAttrSext        FuncParamAttr = 1
	FuncParamAttrByVal       FuncParamAttr = 2
	FuncParamAttrSret        FuncParamAttr = 3
	FuncParamAttrNoAlias     FuncParamAttr = 4
	FuncParamAttrNoCapture   FuncParamAttr = 5
	FuncParamAttrNoWrite     FuncParamAttr = 6
	FuncParamAttrNoReadWrite FuncParamAttr = 7
)

// FPRoundingMode is carried by the FPRoundingMode decoration on conversions.
type FPRoundingMode uint32

const (
	FPRoundingRTE FPRoundingMode = 0
	FPRoundingRTZ FPRoundingMode = 1
	FPRoundingRTP FPRoundingMode = 2
	FPRoundingRTN FPRoundingMode = 3
)

// MemorySemantics is the memory-semantics bitmask of barriers and atomics.
type MemorySemantics uint32

const (
	MemSemAcquire            MemorySemantics = 0x2
	MemSemRelease            MemorySemantics = 0x4
	MemSemAcquireRelease     MemorySemantics = 0x8
	MemSemSeqConsistent      MemorySemantics = 0x10
	MemSemUniformMemory      MemorySemantics = 0x40
	MemSemSubgroupMemory     MemorySemantics = 0x80
	MemSemWorkgroupMemory    MemorySemantics = 0x100
	MemSemCrossWorkgroupMemory MemorySemantics = 0x200
	MemSemAtomicCounterMemory MemorySemantics = 0x400
	MemSemImageMemory        MemorySemantics = 0x800
)

// MemoryAccess is the optional memory-access bitmask of loads and stores.
type MemoryAccess uint32

const (
	MemAccessVolatile    MemoryAccess = 0x1
	MemAccessAligned     MemoryAccess = 0x2
	MemAccessNontemporal MemoryAccess = 0x4
)

// Dim is the dimensionality of an image type.
type Dim uint32

const (
	Dim1D     Dim = 0
	Dim2D     Dim = 1
	Dim3D     Dim = 2
	DimCube   Dim = 3
	DimRect   Dim = 4
	DimBuffer Dim = 5
)

// Capability is a capability declared by OpCapability.
type Capability uint32

const (
	CapabilityAddresses     Capability = 4
	CapabilityLinkage       Capability = 5
	CapabilityKernel        Capability = 6
	CapabilityVector16      Capability = 7
	CapabilityFloat16Buffer Capability = 8
	CapabilityFloat16       Capability = 9
	CapabilityFloat64       Capability = 10
	CapabilityInt64         Capability = 11
	CapabilityInt64Atomics  Capability = 12
	CapabilityImageBasic    Capability = 13
	CapabilityPipes         Capability = 17
	CapabilityDeviceEnqueue Capability = 19
)

// Magic is the word that begins every SPIR-V binary.
const Magic = 0x07230203
