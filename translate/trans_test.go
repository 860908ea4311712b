package translate

import (
	"testing"

	"spv2ll/spirv"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
)

func constInt(t *testing.T, v interface{}) int64 {
	t.Helper()

	ci, ok := v.(*constant.Int)
	if !ok {
		t.Fatalf("expected an integer constant, got %T", v)
	}
	return ci.X.Int64()
}

func newTestTranslator() (*Translator, *ir.Block) {
	tr := NewTranslator(&spirv.Module{}, Options{})
	f := tr.m.NewFunc("test", types.Void)
	return tr, f.NewBlock("")
}

func intType(id spirv.ID, width uint32) *spirv.Type {
	return &spirv.Type{Op: spirv.OpTypeInt, ID: id, Width: width}
}

func intConst(id spirv.ID, ty *spirv.Type, val uint32) *spirv.Value {
	return &spirv.Value{Op: spirv.OpConstant, ID: id, Type: ty, Words: []uint32{val}}
}

func TestTypeMemoization(t *testing.T) {
	tr, _ := newTestTranslator()

	i32T := intType(1, 32)
	vecT := &spirv.Type{Op: spirv.OpTypeVector, ID: 2, Elem: i32T, Len: 4}

	for _, bt := range []*spirv.Type{i32T, vecT} {
		if tr.transType(bt) != tr.transType(bt) {
			t.Errorf("type id %d did not memoize to one object", bt.ID)
		}
	}

	if vt, ok := tr.transType(vecT).(*types.VectorType); !ok || vt.ElemType != tr.transType(i32T) {
		t.Error("vector element type is not the shared i32 translation")
	}
}

func TestSelfReferentialStruct(t *testing.T) {
	tr, _ := newTestTranslator()

	i32T := intType(1, 32)
	node := &spirv.Type{Op: spirv.OpTypeStruct, ID: 2, Name: "struct.node"}
	nodePtr := &spirv.Type{Op: spirv.OpTypePointer, ID: 3, Storage: spirv.StorageCrossWorkgroup, Elem: node}
	node.Members = []*spirv.Type{i32T, nodePtr}

	st, ok := tr.transType(node).(*types.StructType)
	if !ok {
		t.Fatalf("struct translated to %T", tr.transType(node))
	}

	if len(st.Fields) != 2 {
		t.Fatalf("struct has %d fields; want 2", len(st.Fields))
	}

	pt, ok := st.Fields[1].(*types.PointerType)
	if !ok || pt.ElemType != st {
		t.Error("recursive member does not point back at the struct itself")
	}
	if pt.AddrSpace != asGlobal {
		t.Errorf("recursive member address space = %d; want %d", pt.AddrSpace, asGlobal)
	}
}

func TestAddressSpaceMapping(t *testing.T) {
	// Function and Private storage collapse onto the private address space;
	// the reverse direction must pick Private.
	if as := addrSpaceMap.MustMap(spirv.StorageFunction); as != asPrivate {
		t.Errorf("Function storage maps to %d; want %d", as, asPrivate)
	}
	if as := addrSpaceMap.MustMap(spirv.StoragePrivate); as != asPrivate {
		t.Errorf("Private storage maps to %d; want %d", as, asPrivate)
	}
	if sc, ok := addrSpaceMap.RMap(asPrivate); !ok || sc != spirv.StoragePrivate {
		t.Errorf("address space 0 reverse-maps to %d; want Private", sc)
	}

	if sc, ok := addrSpaceMap.RMap(asGlobal); !ok || sc != spirv.StorageCrossWorkgroup {
		t.Errorf("address space 1 reverse-maps to %d; want CrossWorkgroup", sc)
	}

	if _, ok := addrSpaceMap.Map(spirv.StorageInput); ok {
		t.Error("Input storage must not map to an address space")
	}
}

func TestConversionSelection(t *testing.T) {
	i8T := intType(1, 8)
	i16T := intType(2, 16)
	i32T := intType(3, 32)
	i64T := intType(4, 64)

	cases := []struct {
		op   spirv.Op
		from *spirv.Type
		to   *spirv.Type
		want string
	}{
		{spirv.OpUConvert, i32T, i16T, "trunc"},
		{spirv.OpUConvert, i32T, i64T, "zext"},
		{spirv.OpSConvert, i32T, i64T, "sext"},
		{spirv.OpSConvert, i32T, i8T, "trunc"},
		{spirv.OpUConvert, i32T, i32T, "identity"},
	}

	for _, c := range cases {
		tr, b := newTestTranslator()

		src := intConst(10, c.from, 7)
		bv := &spirv.Value{Op: c.op, ID: 11, Type: c.to, Operands: []*spirv.Value{src}}

		got := tr.transConvert(bv, nil, b)

		var kind string
		switch got.(type) {
		case *ir.InstTrunc:
			kind = "trunc"
		case *ir.InstZExt:
			kind = "zext"
		case *ir.InstSExt:
			kind = "sext"
		default:
			kind = "identity"
			if got != tr.transValue(src, nil, b) {
				t.Errorf("%v %d->%d: equal-width conversion is not the operand itself",
					c.op, c.from.Width, c.to.Width)
			}
		}

		if kind != c.want {
			t.Errorf("%v %d->%d produced %s; want %s", c.op, c.from.Width, c.to.Width, kind, c.want)
		}
	}
}

func TestSaturatingConversionName(t *testing.T) {
	tr, b := newTestTranslator()

	src := intConst(10, intType(1, 32), 300)
	bv := &spirv.Value{Op: spirv.OpSatConvertSToU, ID: 11, Type: intType(2, 8), Operands: []*spirv.Value{src}}

	call, ok := tr.transConvert(bv, nil, b).(*ir.InstCall)
	if !ok {
		t.Fatal("saturating conversion did not produce a call")
	}

	fn := call.Callee.(*ir.Func)
	if fn.Name() != "_Z17convert_uchar_sati" {
		t.Errorf("callee = %q; want _Z17convert_uchar_sati", fn.Name())
	}
}

func TestBarrierFlags(t *testing.T) {
	tr, b := newTestTranslator()

	i32T := intType(1, 32)
	scope := intConst(10, i32T, 2) // workgroup scope
	sem := intConst(11, i32T, uint32(spirv.MemSemCrossWorkgroupMemory))

	bv := &spirv.Value{Op: spirv.OpControlBarrier, ID: 12, Operands: []*spirv.Value{scope, scope, sem}}
	tr.transBarrier(bv, nil, b)

	call, ok := b.Insts[len(b.Insts)-1].(*ir.InstCall)
	if !ok {
		t.Fatal("barrier did not produce a call")
	}

	if name := call.Callee.(*ir.Func).Name(); name != "_Z7barrierj" {
		t.Errorf("callee = %q; want _Z7barrierj", name)
	}

	// Global-memory semantics become CLK_GLOBAL_MEM_FENCE.
	if flags := constInt(t, call.Args[0]); flags != 2 {
		t.Errorf("fence flags = %d; want 2", flags)
	}
}

func TestExtInstNameFixups(t *testing.T) {
	tr, _ := newTestTranslator()

	i32T := intType(1, 32)
	vec4T := &spirv.Type{Op: spirv.OpTypeVector, ID: 2, Elem: i32T, Len: 4}
	data := &spirv.Value{ID: 10, Type: vec4T}

	cases := []struct {
		name string
		num  uint32
		bv   *spirv.Value
		want string
	}{
		{"vload", oclVloadn, &spirv.Value{Words: []uint32{oclVloadn, 4}}, "vload4"},
		{"vload", oclVloadn, &spirv.Value{Words: []uint32{oclVloadn, 1}}, "vload"},
		{"vstore", oclVstoren, &spirv.Value{Words: []uint32{oclVstoren}, Operands: []*spirv.Value{data}}, "vstore4"},
		{"vstore_half", oclVstoreHalfR,
			&spirv.Value{Words: []uint32{oclVstoreHalfR, uint32(spirv.FPRoundingRTZ)}}, "vstore_half_rtz"},
		{"vstorea_half", oclVstoreaHalfnR,
			&spirv.Value{Words: []uint32{oclVstoreaHalfnR, uint32(spirv.FPRoundingRTP)}, Operands: []*spirv.Value{data}},
			"vstorea_half4_rtp"},
		{"clamp", 95, &spirv.Value{Words: []uint32{95}}, "clamp"},
	}

	for _, c := range cases {
		if got := tr.extInstName(c.name, c.num, c.bv); got != c.want {
			t.Errorf("instruction %d mangled to %q; want %q", c.num, got, c.want)
		}
	}
}

func TestOpaqueNamedType(t *testing.T) {
	tr, _ := newTestTranslator()

	bt := &spirv.Type{Op: spirv.OpTypeOpaque, ID: 1, Name: "my_handle"}

	st, ok := tr.transType(bt).(*types.StructType)
	if !ok {
		t.Fatalf("opaque type translated to %T", tr.transType(bt))
	}

	if !st.Opaque {
		t.Error("translated struct is not opaque")
	}
	if st.TypeName != "my_handle" {
		t.Errorf("type name = %q; want my_handle", st.TypeName)
	}

	var defined bool
	for _, def := range tr.m.TypeDefs {
		defined = defined || def == st
	}
	if !defined {
		t.Error("opaque struct was not registered as a type definition")
	}
}

func TestPipeElementType(t *testing.T) {
	tr, _ := newTestTranslator()

	i32T := intType(1, 32)
	pipe := &spirv.Type{Op: spirv.OpTypePipe, ID: 2, Elem: i32T}

	pt, ok := tr.transType(pipe).(*types.PointerType)
	if !ok {
		t.Fatalf("pipe translated to %T", tr.transType(pipe))
	}
	if pt.AddrSpace != asGlobal {
		t.Errorf("pipe address space = %d; want %d", pt.AddrSpace, asGlobal)
	}

	st, ok := pt.ElemType.(*types.StructType)
	if !ok || st.TypeName != "opencl.pipe_t" {
		t.Fatalf("pipe pointee is not the named pipe struct")
	}

	if st.Opaque || len(st.Fields) != 1 || st.Fields[0] != tr.transType(i32T) {
		t.Error("pipe element type is not the sole member of the pipe struct")
	}
}

func TestTypeOCLNameSpellings(t *testing.T) {
	tr, _ := newTestTranslator()

	cases := []struct {
		bt   *spirv.Type
		want string
	}{
		{&spirv.Type{Op: spirv.OpTypeStruct, Name: "struct.foo"}, "struct foo"},
		{&spirv.Type{Op: spirv.OpTypeStruct, Name: "union.bar"}, "union bar"},
		{&spirv.Type{Op: spirv.OpTypePipe}, "pipe_t"},
		{&spirv.Type{Op: spirv.OpTypeSampler}, "sampler_t"},
	}

	for _, c := range cases {
		if got := tr.typeOCLName(c.bt); got != c.want {
			t.Errorf("type %q spelled as %q; want %q", c.bt.Name, got, c.want)
		}
	}
}

func TestReplaceUsesSelect(t *testing.T) {
	_, b := newTestTranslator()

	oldV := constant.NewInt(types.I32, 1)
	newV := constant.NewInt(types.I32, 2)
	sel := b.NewSelect(constant.NewBool(true), oldV, oldV)
	b.NewRet(nil)

	if n := replaceUses(b.Parent, oldV, newV); n != 2 {
		t.Fatalf("replaced %d select operands; want 2", n)
	}
	if sel.ValueTrue != newV || sel.ValueFalse != newV {
		t.Error("select branches were not redirected")
	}
}

func TestImageReadSampler(t *testing.T) {
	tr, b := newTestTranslator()

	i32T := intType(1, 32)
	floatT := &spirv.Type{Op: spirv.OpTypeFloat, ID: 2, Width: 32}
	vec4fT := &spirv.Type{Op: spirv.OpTypeVector, ID: 3, Elem: floatT, Len: 4}
	imgT := &spirv.Type{Op: spirv.OpTypeImage, ID: 4, Image: spirv.ImageDescriptor{Dim: spirv.Dim2D}}
	sampT := &spirv.Type{Op: spirv.OpTypeSampler, ID: 5}

	img := &spirv.Value{Op: spirv.OpFunctionParameter, ID: 10, Type: imgT}
	tr.valueMap[img] = ir.NewParam("img", tr.transType(imgT))
	smp := &spirv.Value{Op: spirv.OpFunctionParameter, ID: 11, Type: sampT}
	tr.valueMap[smp] = ir.NewParam("smp", types.I32)
	coord := intConst(12, i32T, 0)

	si := &spirv.Value{Op: spirv.OpSampledImage, ID: 13, Operands: []*spirv.Value{img, smp}}
	bv := &spirv.Value{Op: spirv.OpImageSampleExplicitLod, ID: 14, Type: vec4fT,
		Operands: []*spirv.Value{si, coord}}

	call, ok := tr.transImageRead(bv, b.Parent, b).(*ir.InstCall)
	if !ok {
		t.Fatal("image sample did not produce a call")
	}

	want := "_Z11read_imagefPU3AS116opencl.image2d_tPU3AS216opencl.sampler_ti"
	if name := call.Callee.(*ir.Func).Name(); name != want {
		t.Errorf("callee = %q; want %q", name, want)
	}

	// The i32 sampler argument converts to the opaque sampler pointer at the
	// call site.
	cast, ok := call.Args[1].(*ir.InstIntToPtr)
	if !ok {
		t.Fatal("sampler argument is not an int-to-pointer cast")
	}
	if cast.From != tr.valueMap[smp] {
		t.Error("sampler cast does not read the sampler value")
	}
}

func TestImageWriteSuffix(t *testing.T) {
	tr, b := newTestTranslator()

	i32T := intType(1, 32)
	halfT := &spirv.Type{Op: spirv.OpTypeFloat, ID: 2, Width: 16}
	vec4hT := &spirv.Type{Op: spirv.OpTypeVector, ID: 3, Elem: halfT, Len: 4}
	imgT := &spirv.Type{Op: spirv.OpTypeImage, ID: 4, Image: spirv.ImageDescriptor{Dim: spirv.Dim2D}}

	img := &spirv.Value{Op: spirv.OpFunctionParameter, ID: 10, Type: imgT}
	tr.valueMap[img] = ir.NewParam("img", tr.transType(imgT))
	texel := &spirv.Value{Op: spirv.OpFunctionParameter, ID: 11, Type: vec4hT}
	tr.valueMap[texel] = ir.NewParam("texel", tr.transType(vec4hT))
	coord := intConst(12, i32T, 0)

	bv := &spirv.Value{Op: spirv.OpImageWrite, Operands: []*spirv.Value{img, coord, texel}}
	tr.transImageWrite(bv, b.Parent, b)

	call, ok := b.Insts[len(b.Insts)-1].(*ir.InstCall)
	if !ok {
		t.Fatal("image write did not produce a call")
	}

	// Half texels pick the h suffix.
	want := "_Z12write_imagehPU3AS116opencl.image2d_tiDv4_Dh"
	if name := call.Callee.(*ir.Func).Name(); name != want {
		t.Errorf("callee = %q; want %q", name, want)
	}
}

func TestCallSiteAttrs(t *testing.T) {
	tr, b := newTestTranslator()

	voidT := &spirv.Type{Op: spirv.OpTypeVoid, ID: 1}
	bf := &spirv.Function{
		Value:    spirv.Value{Op: spirv.OpFunction, ID: 2, Type: voidT, Name: "helper"},
		FuncType: &spirv.Type{Op: spirv.OpTypeFunction, ID: 3, Return: voidT},
		Control:  spirv.FuncCtlPure,
	}
	bf.Value.Func = bf

	bv := &spirv.Value{Op: spirv.OpFunctionCall, ID: 4, Type: voidT, Operands: []*spirv.Value{&bf.Value}}
	call, ok := tr.transCall(bv, b.Parent, b).(*ir.InstCall)
	if !ok {
		t.Fatal("function call did not produce a call")
	}

	var readNone bool
	for _, attr := range call.FuncAttrs {
		readNone = readNone || attr == enum.FuncAttrReadNone
	}
	if !readNone {
		t.Error("call site does not carry the callee's readnone attribute")
	}
}
