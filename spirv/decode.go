package spirv

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Decode reads a SPIR-V binary from r and produces a linked Module.  Decoding
// is two-phase: the first pass creates an entry for every result id with its
// raw operand ids, the second pass links ids to objects.  Forward references
// inside function bodies only become resolvable in the second pass.
//
// Malformed streams (bad magic, truncated words, short instructions) fail
// immediately; structural id inconsistencies are recorded on the module and
// returned after the full stream has been decoded.
func Decode(r io.Reader) (*Module, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading binary: %w", err)
	}

	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("binary length %d is not a whole number of words", len(buf))
	}

	words := make([]uint32, len(buf)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}

	if len(words) < 5 {
		return nil, fmt.Errorf("binary too short for a module header")
	}

	// A byte-swapped magic word means the producer used the other endianness.
	if words[0] == swap32(Magic) {
		for i, w := range words {
			words[i] = swap32(w)
		}
	}

	if words[0] != Magic {
		return nil, fmt.Errorf("bad magic word %#08x", words[0])
	}

	m := newModule()
	m.Version = words[1]
	m.Generator = words[2]
	m.Bound = words[3]

	d := &decoder{m: m}

	for pos := 5; pos < len(words); {
		head := words[pos]
		wc := int(head >> 16)
		op := Op(head & 0xffff)

		if wc == 0 || pos+wc > len(words) {
			return nil, fmt.Errorf("truncated instruction %d at word %d", op, pos)
		}

		if err := d.instr(op, words[pos+1:pos+wc]); err != nil {
			return nil, err
		}

		pos += wc
	}

	d.link()
	return m, m.err
}

func swap32(w uint32) uint32 {
	return w<<24 | w<<8&0xff0000 | w>>8&0xff00 | w>>24
}

// -----------------------------------------------------------------------------

// decoder holds the mutable state of the first decode pass.
type decoder struct {
	m     *Module
	fn    *Function
	block *BasicBlock

	// values collects every decoded value for the link pass.
	values []*Value

	// groups maps decoration-group ids to their collected decorations.
	groups map[ID][]*Decor
}

// instr decodes a single instruction; ops excludes the opcode word.
func (d *decoder) instr(op Op, ops []uint32) error {
	m := d.m

	switch op {
	case OpNop, OpSourceContinued, OpMemberName, OpString, OpLine,
		OpLoopMerge, OpSelectionMerge:
		return nil

	case OpCapability:
		if err := need(op, ops, 1); err != nil {
			return err
		}
		m.Capabilities = append(m.Capabilities, Capability(ops[0]))

	case OpExtension:
		s, _ := decodeString(ops)
		m.Extensions = append(m.Extensions, s)

	case OpExtInstImport:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		s, _ := decodeString(ops[1:])
		m.extImports[ID(ops[0])] = s

	case OpMemoryModel:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		m.Addressing = AddressingModel(ops[0])
		m.Memory = MemoryModel(ops[1])

	case OpEntryPoint:
		if err := need(op, ops, 3); err != nil {
			return err
		}
		name, _ := decodeString(ops[2:])
		m.entryPoints[entryPoint{ExecutionModel(ops[0]), ID(ops[1])}] = name

	case OpExecutionMode:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		em := &ExecMode{Mode: ExecutionMode(ops[1]), Words: ops[2:]}
		m.execModes[ID(ops[0])] = append(m.execModes[ID(ops[0])], em)

	case OpSource:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		m.Source = SourceLanguage(ops[0])
		m.SourceVersion = ops[1]

	case OpSourceExtension:
		s, _ := decodeString(ops)
		m.SourceExtensions = append(m.SourceExtensions, s)

	case OpModuleProcessed:
		s, _ := decodeString(ops)
		if m.CompileFlags == "" {
			m.CompileFlags = s
		} else {
			m.CompileFlags += " " + s
		}

	case OpName:
		if err := need(op, ops, 1); err != nil {
			return err
		}
		s, _ := decodeString(ops[1:])
		m.names[ID(ops[0])] = s

	case OpDecorate:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		d.addDecoration(ID(ops[0]), decodeDecor(Decoration(ops[1]), ops[2:]))

	case OpMemberDecorate:
		if err := need(op, ops, 3); err != nil {
			return err
		}
		dec := decodeDecor(Decoration(ops[2]), ops[3:])
		m.memberDecorations[ID(ops[0])] = append(m.memberDecorations[ID(ops[0])], dec)

	case OpDecorationGroup:
		if err := need(op, ops, 1); err != nil {
			return err
		}
		// The group's decorations were collected under its id already; nothing
		// further to do until OpGroupDecorate distributes them.
		if d.groups == nil {
			d.groups = make(map[ID][]*Decor)
		}
		d.groups[ID(ops[0])] = m.decorations[ID(ops[0])]
		delete(m.decorations, ID(ops[0]))

	case OpGroupDecorate:
		if err := need(op, ops, 1); err != nil {
			return err
		}
		for _, target := range ops[1:] {
			for _, dec := range d.groups[ID(ops[0])] {
				d.addDecoration(ID(target), dec)
			}
		}

	case OpTypeVoid, OpTypeBool, OpTypeSampler, OpTypeEvent, OpTypeDeviceEvent,
		OpTypeReserveId, OpTypeQueue:
		if err := need(op, ops, 1); err != nil {
			return err
		}
		d.newType(op, ID(ops[0]))

	case OpTypeInt:
		if err := need(op, ops, 3); err != nil {
			return err
		}
		t := d.newType(op, ID(ops[0]))
		t.Width = ops[1]
		t.Signed = ops[2] != 0

	case OpTypeFloat:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		t := d.newType(op, ID(ops[0]))
		t.Width = ops[1]

	case OpTypeVector:
		if err := need(op, ops, 3); err != nil {
			return err
		}
		t := d.newType(op, ID(ops[0]))
		t.Elem = d.typeAt(ID(ops[1]))
		t.Len = ops[2]

	case OpTypeArray:
		if err := need(op, ops, 3); err != nil {
			return err
		}
		t := d.newType(op, ID(ops[0]))
		t.Elem = d.typeAt(ID(ops[1]))
		if c := m.ValueByID(ID(ops[2])); c != nil && len(c.Words) > 0 {
			t.Len = c.Words[0]
		} else {
			m.recordErr("array type %d has no constant length", ops[0])
		}

	case OpTypeRuntimeArray:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		t := d.newType(op, ID(ops[0]))
		t.Elem = d.typeAt(ID(ops[1]))

	case OpTypeStruct:
		if err := need(op, ops, 1); err != nil {
			return err
		}
		t := d.newType(op, ID(ops[0]))
		for _, id := range ops[1:] {
			t.Members = append(t.Members, d.typeAt(ID(id)))
		}

	case OpTypeOpaque:
		if err := need(op, ops, 1); err != nil {
			return err
		}
		t := d.newType(op, ID(ops[0]))
		t.Name, _ = decodeString(ops[1:])

	case OpTypePointer:
		if err := need(op, ops, 3); err != nil {
			return err
		}
		// A forward declaration may already have registered the shell.
		if shell := m.TypeByID(ID(ops[0])); shell != nil && shell.Op == OpTypePointer {
			shell.Storage = StorageClass(ops[1])
			shell.Elem = d.typeAt(ID(ops[2]))
			return nil
		}
		t := d.newType(op, ID(ops[0]))
		t.Storage = StorageClass(ops[1])
		t.Elem = d.typeAt(ID(ops[2]))

	case OpTypeForwardPointer:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		t := d.newType(OpTypePointer, ID(ops[0]))
		t.Storage = StorageClass(ops[1])

	case OpTypeFunction:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		t := d.newType(op, ID(ops[0]))
		t.Return = d.typeAt(ID(ops[1]))
		for _, id := range ops[2:] {
			t.Members = append(t.Members, d.typeAt(ID(id)))
		}

	case OpTypeImage:
		if err := need(op, ops, 8); err != nil {
			return err
		}
		t := d.newType(op, ID(ops[0]))
		t.Elem = d.typeAt(ID(ops[1]))
		t.Image = ImageDescriptor{
			Dim:     Dim(ops[2]),
			Depth:   ops[3],
			Arrayed: ops[4],
			MS:      ops[5],
			Sampled: ops[6],
			Format:  ops[7],
		}
		if len(ops) > 8 {
			t.Access = AccessQualifier(ops[8])
		}

	case OpTypeSampledImage:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		t := d.newType(op, ID(ops[0]))
		t.Elem = d.typeAt(ID(ops[1]))

	case OpTypePipe:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		t := d.newType(op, ID(ops[0]))
		if len(ops) >= 3 {
			t.Elem = d.typeAt(ID(ops[1]))
			t.Access = AccessQualifier(ops[2])
		} else {
			t.Access = AccessQualifier(ops[1])
		}

	case OpConstantTrue, OpConstantFalse, OpConstantNull, OpUndef:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		d.newValue(op, ID(ops[1]), d.typeAt(ID(ops[0])))

	case OpConstant, OpConstantSampler:
		if err := need(op, ops, 3); err != nil {
			return err
		}
		v := d.newValue(op, ID(ops[1]), d.typeAt(ID(ops[0])))
		v.Words = ops[2:]

	case OpConstantComposite:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		v := d.newValue(op, ID(ops[1]), d.typeAt(ID(ops[0])))
		v.rawOperands = rawIDs(ops[2:])

	case OpVariable:
		if err := need(op, ops, 3); err != nil {
			return err
		}
		v := d.newValue(op, ID(ops[1]), d.typeAt(ID(ops[0])))
		v.Storage = StorageClass(ops[2])
		if len(ops) > 3 {
			v.rawOperands = rawIDs(ops[3:4])
		}
		if v.Storage == StorageFunction {
			return d.appendInst(v)
		}
		m.Variables = append(m.Variables, v)

	case OpFunction:
		if err := need(op, ops, 4); err != nil {
			return err
		}
		f := &Function{
			Value: Value{
				Op:     op,
				ID:     ID(ops[1]),
				Type:   d.typeAt(ID(ops[0])),
				module: m,
			},
			Control:  FunctionControl(ops[2]),
			FuncType: d.typeAt(ID(ops[3])),
		}
		f.Value.Func = f
		m.byID[f.ID] = &f.Value
		d.values = append(d.values, &f.Value)
		m.Functions = append(m.Functions, f)
		d.fn = f

	case OpFunctionParameter:
		if err := need(op, ops, 2); err != nil {
			return err
		}
		if d.fn == nil {
			return fmt.Errorf("function parameter %d outside a function", ops[1])
		}
		p := d.newValue(op, ID(ops[1]), d.typeAt(ID(ops[0])))
		p.In = d.fn
		d.fn.Params = append(d.fn.Params, p)

	case OpLabel:
		if err := need(op, ops, 1); err != nil {
			return err
		}
		if d.fn == nil {
			return fmt.Errorf("label %d outside a function", ops[0])
		}
		bb := &BasicBlock{
			Value: Value{Op: op, ID: ID(ops[0]), module: m},
			Fn:    d.fn,
		}
		bb.Value.Label = bb
		bb.Value.In = d.fn
		m.byID[bb.ID] = &bb.Value
		d.values = append(d.values, &bb.Value)
		d.fn.Blocks = append(d.fn.Blocks, bb)
		d.block = bb

	case OpFunctionEnd:
		d.fn, d.block = nil, nil

	default:
		return d.bodyInstr(op, ops)
	}

	return nil
}

// bodyInstr decodes a function-body instruction with an opcode-specific
// split of its words into id operands and literals.
func (d *decoder) bodyInstr(op Op, ops []uint32) error {
	hasType, hasResult := opLayout(op)

	min := 0
	if hasType {
		min++
	}
	if hasResult {
		min++
	}
	if err := need(op, ops, min); err != nil {
		return err
	}

	v := &Value{Op: op, module: d.m}
	if hasType {
		v.Type = d.typeAt(ID(ops[0]))
	}
	if hasResult {
		v.ID = ID(ops[min-1])
		d.m.byID[v.ID] = v
	}
	d.values = append(d.values, v)
	rest := ops[min:]

	switch op {
	case OpLoad:
		if err := need(op, rest, 1); err != nil {
			return err
		}
		v.rawOperands = rawIDs(rest[:1])
		v.Volatile, v.Align = decodeMemAccess(rest[1:])

	case OpStore, OpCopyMemory:
		if err := need(op, rest, 2); err != nil {
			return err
		}
		v.rawOperands = rawIDs(rest[:2])
		v.Volatile, v.Align = decodeMemAccess(rest[2:])

	case OpCopyMemorySized:
		if err := need(op, rest, 3); err != nil {
			return err
		}
		v.rawOperands = rawIDs(rest[:3])
		v.Volatile, v.Align = decodeMemAccess(rest[3:])

	case OpVectorShuffle:
		if err := need(op, rest, 2); err != nil {
			return err
		}
		v.rawOperands = rawIDs(rest[:2])
		v.Words = rest[2:]

	case OpCompositeExtract:
		if err := need(op, rest, 1); err != nil {
			return err
		}
		v.rawOperands = rawIDs(rest[:1])
		v.Words = rest[1:]

	case OpCompositeInsert:
		if err := need(op, rest, 2); err != nil {
			return err
		}
		v.rawOperands = rawIDs(rest[:2])
		v.Words = rest[2:]

	case OpImageSampleExplicitLod, OpImageRead:
		if err := need(op, rest, 2); err != nil {
			return err
		}
		// The image-operand mask and its trailing ids are literals as far as
		// the operand link pass is concerned.
		v.rawOperands = rawIDs(rest[:2])
		v.Words = rest[2:]

	case OpImageWrite:
		if err := need(op, rest, 3); err != nil {
			return err
		}
		v.rawOperands = rawIDs(rest[:3])
		v.Words = rest[3:]

	case OpExtInst:
		if err := need(op, rest, 2); err != nil {
			return err
		}
		v.rawSet = ID(rest[0])
		v.Words = []uint32{rest[1]}
		ids := rest[2:]
		// A few OpenCL.std instructions end in a literal (vloadn's count,
		// vstore_*_r's rounding mode); keep those out of the id operands.
		if tail := extInstLiteralTail(d.m.extImports[v.rawSet], rest[1]); tail > 0 && len(ids) >= tail {
			v.Words = append(v.Words, ids[len(ids)-tail:]...)
			ids = ids[:len(ids)-tail]
		}
		v.rawOperands = rawIDs(ids)

	case OpSwitch:
		if err := need(op, rest, 2); err != nil {
			return err
		}
		v.rawOperands = rawIDs(rest[:2])
		// Case literals are sized by the selector type; the selector dominates
		// the switch, so its entry already exists.
		litWords := 1
		if sel := d.m.ValueByID(ID(rest[0])); sel != nil && sel.Type != nil && sel.Type.Width > 32 {
			litWords = 2
		}
		for pairs := rest[2:]; len(pairs) >= litWords+1; pairs = pairs[litWords+1:] {
			v.Words = append(v.Words, pairs[:litWords]...)
			v.rawOperands = append(v.rawOperands, ID(pairs[litWords]))
		}

	case OpBranchConditional:
		if err := need(op, rest, 3); err != nil {
			return err
		}
		// Branch weights, if present, are dropped.
		v.rawOperands = rawIDs(rest[:3])

	case OpLifetimeStart, OpLifetimeStop:
		if err := need(op, rest, 2); err != nil {
			return err
		}
		v.rawOperands = rawIDs(rest[:1])
		v.Words = rest[1:]

	case OpVariableArray:
		if err := need(op, rest, 1); err != nil {
			return err
		}
		v.Storage = StorageFunction
		v.rawOperands = rawIDs(rest[:1])

	default:
		// The remaining handled opcodes carry only id operands.
		v.rawOperands = rawIDs(rest)
	}

	return d.appendInst(v)
}

func (d *decoder) appendInst(v *Value) error {
	if d.block == nil {
		return fmt.Errorf("instruction %d outside a basic block", v.Op)
	}

	v.In = d.fn
	d.block.Insts = append(d.block.Insts, v)
	return nil
}

// -----------------------------------------------------------------------------

// link is the second decode pass: it resolves raw operand ids to objects,
// applies debug names, and checks structural consistency.
func (d *decoder) link() {
	m := d.m

	for _, t := range m.Types {
		if t.Op == OpTypePointer && t.Elem == nil {
			m.recordErr("forward pointer %d was never completed", t.ID)
		}
		if t.Op == OpTypeStruct && m.HasDecoration(t.ID, DecorationCPacked) {
			t.Packed = true
		}
		if t.Name == "" {
			t.Name = m.names[t.ID]
		}
	}

	for _, v := range d.values {
		v.Name = m.names[v.ID]

		if v.rawSet != 0 {
			v.Set = m.extImports[v.rawSet]
			if v.Set == "" {
				m.recordErr("value %d references unknown instruction set %d", v.ID, v.rawSet)
			}
		}

		for _, id := range v.rawOperands {
			operand := m.ValueByID(id)
			if operand == nil {
				m.recordErr("value %d references undefined id %d", v.ID, id)
				continue
			}
			v.Operands = append(v.Operands, operand)
		}
		v.rawOperands = nil

		if v.Op == OpVariable && len(v.Operands) > 0 {
			v.Init = v.Operands[0]
		}
	}

	for _, f := range m.Functions {
		if f.FuncType == nil || f.FuncType.Op != OpTypeFunction {
			m.recordErr("function %d has no function type", f.ID)
			continue
		}
		if len(f.Params) != len(f.FuncType.Members) {
			m.recordErr("function %d declares %d parameters but its type has %d",
				f.ID, len(f.Params), len(f.FuncType.Members))
		}
	}
}

// -----------------------------------------------------------------------------

func (d *decoder) newType(op Op, id ID) *Type {
	t := &Type{Op: op, ID: id}
	d.m.Types = append(d.m.Types, t)
	d.m.byID[id] = t
	return t
}

func (d *decoder) newValue(op Op, id ID, typ *Type) *Value {
	v := &Value{Op: op, ID: id, Type: typ, module: d.m}
	d.m.byID[id] = v
	d.values = append(d.values, v)
	return v
}

func (d *decoder) typeAt(id ID) *Type {
	t := d.m.TypeByID(id)
	if t == nil {
		d.m.recordErr("undefined type id %d", id)
	}
	return t
}

// addDecoration records a decoration against its target id.  Group ids
// collect here too until OpDecorationGroup claims them.
func (d *decoder) addDecoration(id ID, dec *Decor) {
	d.m.decorations[id] = append(d.m.decorations[id], dec)
}

func decodeDecor(kind Decoration, words []uint32) *Decor {
	dec := &Decor{Kind: kind}

	if kind == DecorationLinkageAttributes {
		s, n := decodeString(words)
		dec.Str = s
		dec.Words = words[n:]
		return dec
	}

	dec.Words = words
	return dec
}

func decodeMemAccess(words []uint32) (volatile bool, align uint32) {
	if len(words) == 0 {
		return false, 0
	}

	mask := MemoryAccess(words[0])
	volatile = mask&MemAccessVolatile != 0
	if mask&MemAccessAligned != 0 && len(words) > 1 {
		align = words[1]
	}

	return volatile, align
}

// decodeString decodes a null-terminated string packed into words, returning
// the string and the number of words consumed.
func decodeString(words []uint32) (string, int) {
	var sb strings.Builder

	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return sb.String(), i + 1
			}
			sb.WriteByte(c)
		}
	}

	return sb.String(), len(words)
}

func rawIDs(words []uint32) []ID {
	ids := make([]ID, len(words))
	for i, w := range words {
		ids[i] = ID(w)
	}
	return ids
}

func need(op Op, ops []uint32, n int) error {
	if len(ops) < n {
		return fmt.Errorf("opcode %d has %d operand words, needs at least %d", op, len(ops), n)
	}
	return nil
}

// opLayout reports whether a function-body opcode carries a result type word
// and a result id word.
func opLayout(op Op) (hasType, hasResult bool) {
	switch op {
	case OpStore, OpCopyMemory, OpCopyMemorySized, OpBranch, OpBranchConditional,
		OpSwitch, OpReturn, OpReturnValue, OpUnreachable, OpControlBarrier,
		OpMemoryBarrier, OpAtomicStore, OpLifetimeStart, OpLifetimeStop,
		OpRetainEvent, OpReleaseEvent, OpSetUserEventStatus,
		OpCaptureEventProfilingInfo, OpCommitReadPipe, OpCommitWritePipe,
		OpGroupWaitEvents, OpImageWrite:
		return false, false
	default:
		return true, true
	}
}

// extInstLiteralTail reports how many trailing words of an extended
// instruction are literals rather than id operands.  Only the OpenCL.std
/// vector load/store forms carry one: vloadn, vload_halfn and vloada_halfn end
// in the element count, vstore_half_r, vstore_halfn_r and vstorea_halfn_r in
// the rounding mode.
func extInstLiteralTail(set string, inst uint32) int {
	if set != "OpenCL.std" {
		return 0
	}

	switch inst {
	case 171, 174, 179, 176, 178, 181:
		return 1
	}
	return 0
}
