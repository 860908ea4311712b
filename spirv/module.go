package spirv

import "fmt"

// ID is a SPIR-V result id.
type ID uint32

// Type is a decoded type entry.  A single struct covers all type opcodes; the
// fields that apply depend on Op.
type Type struct {
	Op   Op
	ID   ID
	Name string

	// Width is the bit width of an integer or float type.
	Width uint32

	// Signed records the signedness hint of an integer type.
	Signed bool

	// Elem is the array element, vector component, pointer pointee, or pipe
	// element type.
	Elem *Type

	// Len is the array length or vector component count.
	Len uint32

	// Storage is the storage class of a pointer type.
	Storage StorageClass

	// Members holds struct member types or function parameter types.
	Members []*Type

	// Return is the return type of a function type.
	Return *Type

	// Packed indicates a struct with the CPacked decoration.
	Packed bool

	// Image describes an image type.
	Image ImageDescriptor

	// Access is the access qualifier of an image or pipe type.
	Access AccessQualifier
}

// ImageDescriptor carries the operand words of OpTypeImage.
type ImageDescriptor struct {
	Dim     Dim
	Depth   uint32
	Arrayed uint32
	MS      uint32
	Sampled uint32
	Format  uint32
}

// IsInt reports whether the type is a scalar integer.
func (t *Type) IsInt() bool { return t.Op == OpTypeInt }

// IsFloat reports whether the type is a scalar float.
func (t *Type) IsFloat() bool { return t.Op == OpTypeFloat }

// IsBool reports whether the type is a scalar boolean.
func (t *Type) IsBool() bool { return t.Op == OpTypeBool }

// IsPointer reports whether the type is a pointer.
func (t *Type) IsPointer() bool { return t.Op == OpTypePointer }

// IsVector reports whether the type is a vector.
func (t *Type) IsVector() bool { return t.Op == OpTypeVector }

// Scalar returns the component type of a vector, or the type itself.
func (t *Type) Scalar() *Type {
	if t.Op == OpTypeVector {
		return t.Elem
	}
	return t
}

// ScalarWidth returns the bit width of the type's scalar (component) type, or
// zero when it has none.
func (t *Type) ScalarWidth() uint32 {
	return t.Scalar().Width
}

// -----------------------------------------------------------------------------

// Value is a decoded constant, variable, parameter, or instruction.  As with
// Type, one struct covers every value opcode.
type Value struct {
	Op   Op
	ID   ID
	Type *Type
	Name string

	// Words holds the literal payload of the value: constant words, shuffle
	// components, extract/insert indices, switch case literals, the extended
	// instruction number, sampler fields.
	Words []uint32

	// Operands are the id operands in instruction order, linked after decode.
	Operands []*Value

	// Set is the name of the extended instruction set of an OpExtInst.
	Set string

	// Storage is the storage class of an OpVariable.
	Storage StorageClass

	// Init is the initializer of an OpVariable, if any.
	Init *Value

	// Volatile and Align decode the optional memory-access mask of loads,
	// stores and sized copies.
	Volatile bool
	Align    uint32

	// Func points at the owning Function when Op is OpFunction.
	Func *Function

	// Label points at the owning BasicBlock when Op is OpLabel.
	Label *BasicBlock

	// In is the function a parameter or instruction belongs to.
	In *Function

	rawOperands []ID
	rawSet      ID
	module      *Module
}

// Function is a decoded function definition or declaration.
type Function struct {
	Value

	// FuncType is the OpTypeFunction of the function.
	FuncType *Type

	// Control is the function-control bitmask of OpFunction.
	Control FunctionControl

	// Params are the OpFunctionParameter values in order.
	Params []*Value

	// Blocks are the basic blocks in program order; empty for declarations.
	Blocks []*BasicBlock
}

// ReturnType returns the declared return type of the function.
func (f *Function) ReturnType() *Type { return f.FuncType.Return }

// BasicBlock is a decoded basic block.
type BasicBlock struct {
	Value

	// Fn is the enclosing function.
	Fn *Function

	// Insts are the block's instructions in program order, terminator last.
	Insts []*Value
}

// -----------------------------------------------------------------------------

// Decor is one decoration applied to an id.
type Decor struct {
	Kind  Decoration
	Words []uint32

	// Str is the literal string of a LinkageAttributes decoration.
	Str string
}

// ExecMode is one execution mode applied to an entry point.
type ExecMode struct {
	Mode  ExecutionMode
	Words []uint32
	Str   string
}

type entryPoint struct {
	model ExecutionModel
	fn    ID
}

// Module is a fully decoded SPIR-V module.
type Module struct {
	Version    uint32
	Generator  uint32
	Bound      uint32
	Addressing AddressingModel
	Memory     MemoryModel

	Source           SourceLanguage
	SourceVersion    uint32
	SourceExtensions []string
	Extensions       []string
	Capabilities     []Capability

	// CompileFlags carries the compiler options recorded by OpModuleProcessed.
	CompileFlags string

	Types     []*Type
	Variables []*Value
	Functions []*Function

	entryPoints       map[entryPoint]string
	execModes         map[ID][]*ExecMode
	decorations       map[ID][]*Decor
	memberDecorations map[ID][]*Decor
	names             map[ID]string
	extImports        map[ID]string

	byID map[ID]interface{}
	err  error
}

func newModule() *Module {
	return &Module{
		entryPoints:       make(map[entryPoint]string),
		execModes:         make(map[ID][]*ExecMode),
		decorations:       make(map[ID][]*Decor),
		memberDecorations: make(map[ID][]*Decor),
		names:             make(map[ID]string),
		extImports:        make(map[ID]string),
		byID:              make(map[ID]interface{}),
	}
}

// Err returns the deferred structural error recorded while linking ids, if
// any.  A module with a non-nil Err must not be translated.
func (m *Module) Err() error { return m.err }

func (m *Module) recordErr(format string, args ...interface{}) {
	if m.err == nil {
		m.err = fmt.Errorf(format, args...)
	}
}

// TypeByID returns the type entry with the given id.
func (m *Module) TypeByID(id ID) *Type {
	t, _ := m.byID[id].(*Type)
	return t
}

// ValueByID returns the value entry with the given id.
func (m *Module) ValueByID(id ID) *Value {
	v, _ := m.byID[id].(*Value)
	return v
}

// IsEntryPoint reports whether the function id is an entry point under the
// given execution model.
func (m *Module) IsEntryPoint(model ExecutionModel, fn ID) bool {
	_, ok := m.entryPoints[entryPoint{model, fn}]
	return ok
}

// ExecutionModes returns the execution modes attached to the function id.
func (m *Module) ExecutionModes(fn ID) []*ExecMode {
	return m.execModes[fn]
}

// ExecutionMode returns the execution mode of the given kind attached to the
// function id, or nil.
func (m *Module) ExecutionMode(fn ID, mode ExecutionMode) *ExecMode {
	for _, em := range m.execModes[fn] {
		if em.Mode == mode {
			return em
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Decorations returns all decorations applied to the id.
func (m *Module) Decorations(id ID) []*Decor {
	return m.decorations[id]
}

// Decoration returns the decoration of the given kind applied to the id, or
// nil if the id does not carry it.
func (m *Module) Decoration(id ID, kind Decoration) *Decor {
	for _, d := range m.decorations[id] {
		if d.Kind == kind {
			return d
		}
	}

	return nil
}

// HasDecoration reports whether the id carries the given decoration kind.
func (m *Module) HasDecoration(id ID, kind Decoration) bool {
	return m.Decoration(id, kind) != nil
}

// Alignment returns the Alignment decoration of the id.
func (m *Module) Alignment(id ID) (uint32, bool) {
	if d := m.Decoration(id, DecorationAlignment); d != nil && len(d.Words) > 0 {
		return d.Words[0], true
	}

	return 0, false
}

// BuiltinKind returns the BuiltIn decoration of the id.
func (m *Module) BuiltinKind(id ID) (BuiltIn, bool) {
	if d := m.Decoration(id, DecorationBuiltIn); d != nil && len(d.Words) > 0 {
		return BuiltIn(d.Words[0]), true
	}

	return 0, false
}

// Linkage returns the linkage of the id: the LinkageAttributes decoration if
// present, internal otherwise.
func (m *Module) Linkage(id ID) LinkageType {
	if d := m.Decoration(id, DecorationLinkageAttributes); d != nil && len(d.Words) > 0 {
		return LinkageType(d.Words[len(d.Words)-1])
	}

	return LinkageInternal
}

// ParamAttrs returns the FuncParamAttr decorations applied to the id.
func (m *Module) ParamAttrs(id ID) []FuncParamAttr {
	var attrs []FuncParamAttr
	for _, d := range m.decorations[id] {
		if d.Kind == DecorationFuncParamAttr && len(d.Words) > 0 {
			attrs = append(attrs, FuncParamAttr(d.Words[0]))
		}
	}

	return attrs
}

// RoundingMode returns the FPRoundingMode decoration of the id.
func (m *Module) RoundingMode(id ID) (FPRoundingMode, bool) {
	if d := m.Decoration(id, DecorationFPRoundingMode); d != nil && len(d.Words) > 0 {
		return FPRoundingMode(d.Words[0]), true
	}

	return 0, false
}
