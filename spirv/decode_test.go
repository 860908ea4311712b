package spirv

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// asm assembles a binary word stream for decoder tests.
type asm struct {
	words []uint32
}

func newAsm(bound uint32) *asm {
	return &asm{words: []uint32{Magic, 0x10000, 0, bound, 0}}
}

func (a *asm) op(op Op, ops ...uint32) *asm {
	a.words = append(a.words, uint32(len(ops)+1)<<16|uint32(op))
	a.words = append(a.words, ops...)
	return a
}

// strWords packs a string into null-terminated little-endian words.
func strWords(s string) []uint32 {
	bs := append([]byte(s), 0)
	for len(bs)%4 != 0 {
		bs = append(bs, 0)
	}

	words := make([]uint32, len(bs)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(bs[i*4:])
	}
	return words
}

func (a *asm) bytes() []byte {
	var buf bytes.Buffer
	for _, w := range a.words {
		binary.Write(&buf, binary.LittleEndian, w)
	}
	return buf.Bytes()
}

func cat(groups ...[]uint32) []uint32 {
	var out []uint32
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// -----------------------------------------------------------------------------

// Assembles a minimal kernel:
//
//	kernel void inc(global int* p) { *p = *p; }
func testKernelBinary() []byte {
	a := newAsm(20)
	a.op(OpCapability, uint32(CapabilityAddresses))
	a.op(OpCapability, uint32(CapabilityKernel))
	a.op(OpExtInstImport, cat([]uint32{1}, strWords("OpenCL.std"))...)
	a.op(OpMemoryModel, uint32(AddressingPhysical64), uint32(MemoryModelOpenCL))
	a.op(OpEntryPoint, cat([]uint32{uint32(ExecModelKernel), 6}, strWords("inc"))...)
	a.op(OpSource, uint32(SourceLanguageOpenCLC), 12)
	a.op(OpName, cat([]uint32{6}, strWords("inc"))...)
	a.op(OpName, cat([]uint32{7}, strWords("p"))...)
	a.op(OpDecorate, cat([]uint32{6, uint32(DecorationLinkageAttributes)}, strWords("inc"), []uint32{uint32(LinkageExport)})...)

	a.op(OpTypeVoid, 2)
	a.op(OpTypeInt, 3, 32, 0)
	a.op(OpTypePointer, 4, uint32(StorageCrossWorkgroup), 3)
	a.op(OpTypeFunction, 5, 2, 4)

	a.op(OpFunction, 2, 6, 0, 5)
	a.op(OpFunctionParameter, 4, 7)
	a.op(OpLabel, 8)
	a.op(OpLoad, 3, 9, 7, uint32(MemAccessAligned), 4)
	a.op(OpStore, 7, 9)
	a.op(OpReturn)
	a.op(OpFunctionEnd)

	return a.bytes()
}

func TestDecodeKernel(t *testing.T) {
	m, err := Decode(bytes.NewReader(testKernelBinary()))
	if err != nil {
		t.Fatalf("Decode failed: %s", err)
	}

	if m.Addressing != AddressingPhysical64 {
		t.Errorf("addressing model = %d; want Physical64", m.Addressing)
	}

	if m.Source != SourceLanguageOpenCLC || m.SourceVersion != 12 {
		t.Errorf("source = %d v%d; want OpenCL C v12", m.Source, m.SourceVersion)
	}

	if len(m.Functions) != 1 {
		t.Fatalf("decoded %d functions; want 1", len(m.Functions))
	}

	f := m.Functions[0]
	if f.Name != "inc" {
		t.Errorf("function name = %q; want inc", f.Name)
	}

	if !m.IsEntryPoint(ExecModelKernel, f.ID) {
		t.Error("function should be a kernel entry point")
	}

	if m.Linkage(f.ID) != LinkageExport {
		t.Errorf("linkage = %d; want Export", m.Linkage(f.ID))
	}

	if len(f.Params) != 1 || f.Params[0].Name != "p" {
		t.Fatalf("params = %v; want one named p", f.Params)
	}

	if pt := f.Params[0].Type; !pt.IsPointer() || pt.Storage != StorageCrossWorkgroup || !pt.Elem.IsInt() {
		t.Errorf("parameter type is not global int*")
	}

	if len(f.Blocks) != 1 {
		t.Fatalf("decoded %d blocks; want 1", len(f.Blocks))
	}

	insts := f.Blocks[0].Insts
	if len(insts) != 3 {
		t.Fatalf("decoded %d instructions; want 3", len(insts))
	}

	ld := insts[0]
	if ld.Op != OpLoad || ld.Operands[0] != f.Params[0] {
		t.Error("load does not read the parameter")
	}
	if ld.Align != 4 {
		t.Errorf("load alignment = %d; want 4", ld.Align)
	}

	st := insts[1]
	if st.Op != OpStore || st.Operands[0] != f.Params[0] || st.Operands[1] != ld {
		t.Error("store operands are not linked to the parameter and the load")
	}

	if insts[2].Op != OpReturn {
		t.Errorf("terminator = %d; want OpReturn", insts[2].Op)
	}
}

func TestDecodeForwardReference(t *testing.T) {
	// A phi that references a value defined in a later block.
	a := newAsm(30)
	a.op(OpCapability, uint32(CapabilityAddresses))
	a.op(OpMemoryModel, uint32(AddressingPhysical32), uint32(MemoryModelOpenCL))

	a.op(OpTypeVoid, 2)
	a.op(OpTypeInt, 3, 32, 0)
	a.op(OpTypeBool, 4)
	a.op(OpTypeFunction, 5, 2)
	a.op(OpConstant, 3, 7, 1)
	a.op(OpConstantTrue, 4, 8)

	a.op(OpFunction, 2, 9, 0, 5)
	a.op(OpLabel, 10)
	a.op(OpBranchConditional, 8, 11, 12)
	a.op(OpLabel, 11)
	// %14 is defined in the block below.
	a.op(OpPhi, 3, 13, 14, 12, 7, 10)
	a.op(OpReturn)
	a.op(OpLabel, 12)
	a.op(OpIAdd, 3, 14, 7, 7)
	a.op(OpBranch, 11)
	a.op(OpFunctionEnd)

	m, err := Decode(bytes.NewReader(a.bytes()))
	if err != nil {
		t.Fatalf("Decode failed: %s", err)
	}

	f := m.Functions[0]
	phi := f.Blocks[1].Insts[0]
	if phi.Op != OpPhi {
		t.Fatalf("expected a phi, got opcode %d", phi.Op)
	}

	add := f.Blocks[2].Insts[0]
	if phi.Operands[0] != add {
		t.Error("phi forward reference was not linked to the add")
	}
	if phi.Operands[1].Label == nil || phi.Operands[1].Label.Fn != f {
		t.Error("phi predecessor was not linked to a block")
	}
}

func TestDecodeBadMagic(t *testing.T) {
	bad := testKernelBinary()
	bad[0] = 0xff

	if _, err := Decode(bytes.NewReader(bad)); err == nil {
		t.Error("decoding a stream with a bad magic word should fail")
	}
}

func TestDecodeTruncated(t *testing.T) {
	bin := testKernelBinary()

	if _, err := Decode(bytes.NewReader(bin[:len(bin)-6])); err == nil {
		t.Error("decoding a truncated stream should fail")
	}
}

func TestDecodeTruncatedLoad(t *testing.T) {
	a := newAsm(10)
	a.op(OpMemoryModel, uint32(AddressingPhysical32), uint32(MemoryModelOpenCL))
	a.op(OpTypeVoid, 2)
	a.op(OpTypeFunction, 3, 2)
	a.op(OpTypeInt, 4, 32, 0)
	a.op(OpFunction, 2, 5, 0, 3)
	a.op(OpLabel, 6)
	a.op(OpLoad, 4, 7) // no pointer operand
	a.op(OpReturn)
	a.op(OpFunctionEnd)

	if _, err := Decode(bytes.NewReader(a.bytes())); err == nil {
		t.Error("a load without a pointer operand should fail to decode")
	}
}

func TestDecodeImageSampleOperands(t *testing.T) {
	a := newAsm(30)
	a.op(OpCapability, uint32(CapabilityKernel))
	a.op(OpMemoryModel, uint32(AddressingPhysical32), uint32(MemoryModelOpenCL))
	a.op(OpTypeVoid, 2)
	a.op(OpTypeFloat, 3, 32)
	a.op(OpTypeVector, 4, 3, 4)
	a.op(OpTypeImage, 5, 3, uint32(Dim2D), 0, 0, 0, 0, 0)
	a.op(OpTypeSampler, 6)
	a.op(OpTypeSampledImage, 7, 5)
	a.op(OpTypeInt, 8, 32, 0)
	a.op(OpTypeFunction, 9, 2, 5, 6, 8)
	a.op(OpFunction, 2, 10, 0, 9)
	a.op(OpFunctionParameter, 5, 11)
	a.op(OpFunctionParameter, 6, 12)
	a.op(OpFunctionParameter, 8, 13)
	a.op(OpLabel, 14)
	a.op(OpSampledImage, 7, 15, 11, 12)
	// Lod image-operand mask and its operand word trail the coordinate.
	a.op(OpImageSampleExplicitLod, 4, 16, 15, 13, 2, 13)
	a.op(OpReturn)
	a.op(OpFunctionEnd)

	m, err := Decode(bytes.NewReader(a.bytes()))
	if err != nil {
		t.Fatalf("Decode failed: %s", err)
	}

	f := m.Functions[0]
	insts := f.Blocks[0].Insts
	si, sample := insts[0], insts[1]

	if si.Op != OpSampledImage || len(si.Operands) != 2 {
		t.Fatalf("sampled image decoded %d operands; want image and sampler", len(si.Operands))
	}

	if len(sample.Operands) != 2 || sample.Operands[0] != si || sample.Operands[1] != f.Params[2] {
		t.Error("sample operands are not the sampled image and the coordinate")
	}

	// The mask and its operand must stay literal words, not id operands.
	if len(sample.Words) != 2 || sample.Words[0] != 2 {
		t.Errorf("sample literals = %v; want the image-operand words", sample.Words)
	}
}

func TestDecodeDecorations(t *testing.T) {
	a := newAsm(10)
	a.op(OpCapability, uint32(CapabilityAddresses))
	a.op(OpMemoryModel, uint32(AddressingPhysical32), uint32(MemoryModelOpenCL))
	a.op(OpDecorate, 5, uint32(DecorationAlignment), 8)
	a.op(OpDecorate, 5, uint32(DecorationConstant))
	a.op(OpTypeInt, 3, 32, 0)
	a.op(OpTypePointer, 4, uint32(StorageUniformConstant), 3)
	a.op(OpVariable, 4, 5, uint32(StorageUniformConstant))

	m, err := Decode(bytes.NewReader(a.bytes()))
	if err != nil {
		t.Fatalf("Decode failed: %s", err)
	}

	if align, ok := m.Alignment(5); !ok || align != 8 {
		t.Errorf("alignment = %d, %t; want 8", align, ok)
	}

	if !m.HasDecoration(5, DecorationConstant) {
		t.Error("variable should carry the Constant decoration")
	}
}

func TestDecodeGroupDecorate(t *testing.T) {
	a := newAsm(10)
	a.op(OpCapability, uint32(CapabilityAddresses))
	a.op(OpMemoryModel, uint32(AddressingPhysical32), uint32(MemoryModelOpenCL))
	a.op(OpDecorate, 2, uint32(DecorationAlignment), 16)
	a.op(OpDecorate, 2, uint32(DecorationVolatile))
	a.op(OpDecorationGroup, 2)
	a.op(OpGroupDecorate, 2, 6, 7)
	a.op(OpTypeInt, 3, 32, 0)
	a.op(OpTypePointer, 4, uint32(StorageCrossWorkgroup), 3)
	a.op(OpVariable, 4, 6, uint32(StorageCrossWorkgroup))
	a.op(OpVariable, 4, 7, uint32(StorageCrossWorkgroup))

	m, err := Decode(bytes.NewReader(a.bytes()))
	if err != nil {
		t.Fatalf("Decode failed: %s", err)
	}

	for _, id := range []ID{6, 7} {
		if align, ok := m.Alignment(id); !ok || align != 16 {
			t.Errorf("alignment of %%%d = %d, %t; want 16", id, align, ok)
		}
		if !m.HasDecoration(id, DecorationVolatile) {
			t.Errorf("%%%d should carry the Volatile decoration", id)
		}
	}

	if len(m.Decorations(2)) != 0 {
		t.Error("the group id should not retain the distributed decorations")
	}
}

func TestDecodeUndefinedOperand(t *testing.T) {
	a := newAsm(10)
	a.op(OpMemoryModel, uint32(AddressingPhysical32), uint32(MemoryModelOpenCL))
	a.op(OpTypeVoid, 2)
	a.op(OpTypeFunction, 3, 2)
	a.op(OpTypeInt, 4, 32, 0)
	a.op(OpFunction, 2, 5, 0, 3)
	a.op(OpLabel, 6)
	a.op(OpIAdd, 4, 7, 8, 8) // %8 is never defined
	a.op(OpReturn)
	a.op(OpFunctionEnd)

	if _, err := Decode(bytes.NewReader(a.bytes())); err == nil {
		t.Error("an undefined operand id should surface as a deferred error")
	}
}
