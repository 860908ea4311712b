package translate

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"spv2ll/spirv"

	"github.com/kr/pretty"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/metadata"
)

// asm assembles a binary word stream for end-to-end tests.
type asm struct {
	words []uint32
}

func newAsm(bound uint32) *asm {
	return &asm{words: []uint32{spirv.Magic, 0x10000, 0, bound, 0}}
}

func (a *asm) op(op spirv.Op, ops ...uint32) *asm {
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

func decode(t *testing.T, bin []byte) *spirv.Module {
	t.Helper()

	m, err := spirv.Decode(bytes.NewReader(bin))
	if err != nil {
		t.Fatalf("Decode failed: %s", err)
	}
	return m
}

// -----------------------------------------------------------------------------

// Assembles the simplest useful kernel:
//
//	kernel void inc(global int* p) { *p = *p; }
func simpleKernelBinary() []byte {
	a := newAsm(20)
	a.op(spirv.OpCapability, uint32(spirv.CapabilityAddresses))
	a.op(spirv.OpCapability, uint32(spirv.CapabilityKernel))
	a.op(spirv.OpMemoryModel, uint32(spirv.AddressingPhysical64), uint32(spirv.MemoryModelOpenCL))
	a.op(spirv.OpEntryPoint, cat([]uint32{uint32(spirv.ExecModelKernel), 6}, strWords("inc"))...)
	a.op(spirv.OpSource, uint32(spirv.SourceLanguageOpenCLC), 12)
	a.op(spirv.OpName, cat([]uint32{6}, strWords("inc"))...)
	a.op(spirv.OpName, cat([]uint32{7}, strWords("p"))...)
	a.op(spirv.OpDecorate, cat([]uint32{6, uint32(spirv.DecorationLinkageAttributes)}, strWords("inc"), []uint32{uint32(spirv.LinkageExport)})...)

	a.op(spirv.OpTypeVoid, 2)
	a.op(spirv.OpTypeInt, 3, 32, 0)
	a.op(spirv.OpTypePointer, 4, uint32(spirv.StorageCrossWorkgroup), 3)
	a.op(spirv.OpTypeFunction, 5, 2, 4)

	a.op(spirv.OpFunction, 2, 6, 0, 5)
	a.op(spirv.OpFunctionParameter, 4, 7)
	a.op(spirv.OpLabel, 8)
	a.op(spirv.OpLoad, 3, 9, 7, uint32(spirv.MemAccessAligned), 4)
	a.op(spirv.OpStore, 7, 9)
	a.op(spirv.OpReturn)
	a.op(spirv.OpFunctionEnd)

	return a.bytes()
}

func TestTranslateSimpleKernel(t *testing.T) {
	mod, err := Translate(decode(t, simpleKernelBinary()), Options{})
	if err != nil {
		t.Fatalf("Translate failed: %s", err)
	}

	if mod.TargetTriple != "spir64-unknown-unknown" {
		t.Errorf("target triple = %q; want spir64-unknown-unknown", mod.TargetTriple)
	}

	if len(mod.Funcs) != 1 {
		t.Fatalf("produced %d functions; want 1", len(mod.Funcs))
	}

	f := mod.Funcs[0]
	if f.Name() != "inc" {
		t.Errorf("function name = %q; want inc", f.Name())
	}
	if f.CallingConv != enum.CallingConvSPIRKernel {
		t.Errorf("calling convention = %d; want spir_kernel", f.CallingConv)
	}
	if f.Linkage != enum.LinkageExternal {
		t.Errorf("linkage = %d; want external", f.Linkage)
	}

	if len(f.Blocks) != 1 {
		t.Fatalf("produced %d blocks; want 1", len(f.Blocks))
	}

	insts := f.Blocks[0].Insts
	if len(insts) != 2 {
		t.Fatalf("produced %d instructions; want load+store", len(insts))
	}

	ld, ok := insts[0].(*ir.InstLoad)
	if !ok || ld.Src != f.Params[0] {
		t.Error("first instruction is not a load of the parameter")
	}
	if ld.Align != 4 {
		t.Errorf("load alignment = %d; want 4", ld.Align)
	}

	st, ok := insts[1].(*ir.InstStore)
	if !ok || st.Dst != f.Params[0] || st.Src != ld {
		t.Error("second instruction is not a store of the load back to the parameter")
	}

	if _, ok := f.Blocks[0].Term.(*ir.TermRet); !ok {
		t.Error("terminator is not a return")
	}

	if len(mod.Globals) != 0 {
		t.Errorf("produced %d globals; want none", len(mod.Globals))
	}
}

func TestTranslateKernelMetadata(t *testing.T) {
	mod, err := Translate(decode(t, simpleKernelBinary()), Options{})
	if err != nil {
		t.Fatalf("Translate failed: %s", err)
	}

	nd := mod.NamedMetadataDefs["opencl.kernels"]
	if nd == nil || len(nd.Nodes) != 1 {
		t.Fatalf("opencl.kernels metadata missing or wrong size")
	}

	kernel, ok := nd.Nodes[0].(*metadata.Tuple)
	if !ok || len(kernel.Fields) != 6 {
		t.Fatalf("kernel tuple has %d fields; want function + 5 argument rows", len(kernel.Fields))
	}

	if kernel.Fields[0] != mod.Funcs[0] {
		t.Error("kernel tuple does not reference the kernel function")
	}

	addrSpace := kernel.Fields[1].(*metadata.Tuple)
	if s := addrSpace.Fields[0].(*metadata.String).Value; s != "kernel_arg_addr_space" {
		t.Errorf("first row = %q; want kernel_arg_addr_space", s)
	}
	if as := addrSpace.Fields[1].(*constant.Int).X.Int64(); as != 1 {
		t.Errorf("argument address space = %d; want 1 (global)", as)
	}

	argType := kernel.Fields[3].(*metadata.Tuple)
	if s := argType.Fields[1].(*metadata.String).Value; s != "int*" {
		t.Errorf("argument type = %q; want int*", s)
	}

	if mod.NamedMetadataDefs["opencl.ocl.version"] == nil {
		t.Error("opencl.ocl.version metadata missing")
	}
	if mod.NamedMetadataDefs["opencl.enable.FP_CONTRACT"] == nil {
		t.Error("FP_CONTRACT should be enabled without a ContractionOff mode")
	}
}

func TestKernelInfoRecord(t *testing.T) {
	bm := decode(t, simpleKernelBinary())

	tr := NewTranslator(bm, Options{})
	tr.run()

	got := tr.kernelInfo(bm.Functions[0])
	if got.Fn != tr.funcMap[bm.Functions[0]] {
		t.Error("kernel record does not reference the translated function")
	}
	got.Fn = nil

	want := &KernelInfo{
		Args: []ArgInfo{{
			AddrSpace:  1,
			AccessQual: "none",
			TypeName:   "int*",
			BaseType:   "int*",
			Name:       "p",
		}},
	}

	if diffs := pretty.Diff(got, want); len(diffs) != 0 {
		t.Errorf("kernel record mismatch:\n%s", strings.Join(diffs, "\n"))
	}
}

// -----------------------------------------------------------------------------

func TestTranslateForwardPhi(t *testing.T) {
	a := newAsm(30)
	a.op(spirv.OpCapability, uint32(spirv.CapabilityAddresses))
	a.op(spirv.OpMemoryModel, uint32(spirv.AddressingPhysical32), uint32(spirv.MemoryModelOpenCL))

	a.op(spirv.OpTypeVoid, 2)
	a.op(spirv.OpTypeInt, 3, 32, 0)
	a.op(spirv.OpTypeBool, 4)
	a.op(spirv.OpTypeFunction, 5, 2)
	a.op(spirv.OpConstant, 3, 7, 1)
	a.op(spirv.OpConstantTrue, 4, 8)

	a.op(spirv.OpFunction, 2, 9, 0, 5)
	a.op(spirv.OpLabel, 10)
	a.op(spirv.OpBranchConditional, 8, 11, 12)
	a.op(spirv.OpLabel, 11)
	// %14 is defined in the block below: the phi needs a placeholder.
	a.op(spirv.OpPhi, 3, 13, 14, 12, 7, 10)
	a.op(spirv.OpReturn)
	a.op(spirv.OpLabel, 12)
	a.op(spirv.OpIAdd, 3, 14, 7, 7)
	a.op(spirv.OpBranch, 11)
	a.op(spirv.OpFunctionEnd)

	mod, err := Translate(decode(t, a.bytes()), Options{})
	if err != nil {
		t.Fatalf("Translate failed: %s", err)
	}

	f := mod.Funcs[0]
	if len(f.Blocks) != 3 {
		t.Fatalf("produced %d blocks; want 3", len(f.Blocks))
	}

	if len(f.Blocks[1].Insts) != 1 {
		t.Fatalf("phi block has %d instructions; want the phi only", len(f.Blocks[1].Insts))
	}

	phi, ok := f.Blocks[1].Insts[0].(*ir.InstPhi)
	if !ok {
		t.Fatalf("expected a phi, got %T", f.Blocks[1].Insts[0])
	}
	if len(phi.Incs) != 2 {
		t.Fatalf("phi has %d incomings; want 2", len(phi.Incs))
	}

	add, ok := f.Blocks[2].Insts[0].(*ir.InstAdd)
	if !ok {
		t.Fatalf("expected an add, got %T", f.Blocks[2].Insts[0])
	}
	if phi.Incs[0].X != add {
		t.Error("forward reference did not resolve to the add")
	}

	// Placeholder machinery must leave no residue.
	for _, g := range mod.Globals {
		if strings.HasPrefix(g.Name(), placeholderPrefix) {
			t.Errorf("placeholder global %s survived translation", g.Name())
		}
	}
}

func TestTranslateSwitch(t *testing.T) {
	a := newAsm(20)
	a.op(spirv.OpCapability, uint32(spirv.CapabilityAddresses))
	a.op(spirv.OpMemoryModel, uint32(spirv.AddressingPhysical32), uint32(spirv.MemoryModelOpenCL))

	a.op(spirv.OpTypeVoid, 2)
	a.op(spirv.OpTypeInt, 3, 32, 0)
	a.op(spirv.OpTypeFunction, 5, 2, 3)

	a.op(spirv.OpFunction, 2, 6, 0, 5)
	a.op(spirv.OpFunctionParameter, 3, 7)
	a.op(spirv.OpLabel, 8)
	a.op(spirv.OpSwitch, 7, 9, 1, 10, 5, 11)
	a.op(spirv.OpLabel, 9)
	a.op(spirv.OpReturn)
	a.op(spirv.OpLabel, 10)
	a.op(spirv.OpReturn)
	a.op(spirv.OpLabel, 11)
	a.op(spirv.OpReturn)
	a.op(spirv.OpFunctionEnd)

	mod, err := Translate(decode(t, a.bytes()), Options{})
	if err != nil {
		t.Fatalf("Translate failed: %s", err)
	}

	f := mod.Funcs[0]
	sw, ok := f.Blocks[0].Term.(*ir.TermSwitch)
	if !ok {
		t.Fatalf("terminator is %T; want a switch", f.Blocks[0].Term)
	}

	if sw.X != f.Params[0] {
		t.Error("switch does not select on the parameter")
	}
	if sw.TargetDefault != f.Blocks[1] {
		t.Error("switch default is not the first successor block")
	}

	if len(sw.Cases) != 2 {
		t.Fatalf("switch has %d cases; want 2", len(sw.Cases))
	}
	for i, want := range []int64{1, 5} {
		if lit := sw.Cases[i].X.(*constant.Int).X.Int64(); lit != want {
			t.Errorf("case %d literal = %d; want %d", i, lit, want)
		}
	}
}

func TestTranslateBuiltinVariable(t *testing.T) {
	a := newAsm(20)
	a.op(spirv.OpCapability, uint32(spirv.CapabilityAddresses))
	a.op(spirv.OpCapability, uint32(spirv.CapabilityInt64))
	a.op(spirv.OpMemoryModel, uint32(spirv.AddressingPhysical64), uint32(spirv.MemoryModelOpenCL))
	a.op(spirv.OpEntryPoint, cat([]uint32{uint32(spirv.ExecModelKernel), 12}, strWords("k"))...)
	a.op(spirv.OpName, cat([]uint32{12}, strWords("k"))...)
	a.op(spirv.OpDecorate, 7, uint32(spirv.DecorationBuiltIn), uint32(spirv.BuiltInGlobalInvocationId))

	a.op(spirv.OpTypeVoid, 2)
	a.op(spirv.OpTypeInt, 3, 64, 0)
	a.op(spirv.OpTypeVector, 4, 3, 3)
	a.op(spirv.OpTypePointer, 5, uint32(spirv.StorageInput), 4)
	a.op(spirv.OpTypeFunction, 6, 2)
	a.op(spirv.OpVariable, 5, 7, uint32(spirv.StorageInput))

	a.op(spirv.OpFunction, 2, 12, 0, 6)
	a.op(spirv.OpLabel, 13)
	a.op(spirv.OpLoad, 4, 14, 7)
	a.op(spirv.OpCompositeExtract, 3, 15, 14, 0)
	a.op(spirv.OpReturn)
	a.op(spirv.OpFunctionEnd)

	mod, err := Translate(decode(t, a.bytes()), Options{})
	if err != nil {
		t.Fatalf("Translate failed: %s", err)
	}

	if len(mod.Globals) != 0 {
		t.Errorf("builtin variable survived lowering: %d globals", len(mod.Globals))
	}

	var kernel, decl *ir.Func
	for _, f := range mod.Funcs {
		switch f.Name() {
		case "k":
			kernel = f
		case "_Z13get_global_idj":
			decl = f
		}
	}

	if decl == nil {
		t.Fatal("get_global_id declaration missing")
	}
	if kernel == nil {
		t.Fatal("kernel function missing")
	}

	insts := kernel.Blocks[0].Insts
	if len(insts) != 1 {
		t.Fatalf("kernel has %d instructions; want the builtin call only", len(insts))
	}

	call, ok := insts[0].(*ir.InstCall)
	if !ok || call.Callee != decl {
		t.Error("dimension extraction was not rewritten to a get_global_id call")
	}
	if idx := call.Args[0].(*constant.Int).X.Int64(); idx != 0 {
		t.Errorf("dimension argument = %d; want 0", idx)
	}
}
