package mangle

import (
	"testing"

	"github.com/llir/llvm/ir/types"
)

func TestBuiltinMangling(t *testing.T) {
	globalIntPtr := types.NewPointer(types.I32)
	globalIntPtr.AddrSpace = 1

	float4 := types.NewVector(4, types.Float)

	sampler := &types.StructType{TypeName: "opencl.sampler_t", Opaque: true}

	tests := []struct {
		name string
		args []types.Type
		want string
	}{
		{"barrier", []types.Type{types.I32}, "_Z7barrierj"},
		{"mem_fence", []types.Type{types.I32}, "_Z9mem_fencej"},
		{"get_global_id", []types.Type{types.I32}, "_Z13get_global_idj"},
		{"atomic_add", []types.Type{globalIntPtr, types.I32}, "_Z10atomic_addPU3AS1ii"},
		{"fabs", []types.Type{types.Float}, "_Z4fabsf"},
		{"dot", []types.Type{float4, float4}, "_Z3dotDv4_fDv4_f"},
		{"convert_uchar_sat", []types.Type{types.I32}, "_Z17convert_uchar_sati"},
		{"get_work_dim", nil, "_Z12get_work_dimv"},
		{"fmax", []types.Type{types.Double, types.Double}, "_Z4fmaxdd"},
	}

	for _, tt := range tests {
		if got := Builtin(tt.name, tt.args); got != tt.want {
			t.Errorf("Builtin(%s) = %s; want %s", tt.name, got, tt.want)
		}
	}

	// Sampler arguments mangle by their opaque type name.
	got := Builtin("read_imagef", []types.Type{types.NewPointer(sampler)})
	want := "_Z11read_imagefP16opencl.sampler_t"
	if got != want {
		t.Errorf("Builtin(read_imagef) = %s; want %s", got, want)
	}
}

// Mangling must be deterministic: the same name and argument types always
// produce the same result.
func TestBuiltinManglingDeterministic(t *testing.T) {
	args := []types.Type{types.NewVector(2, types.I16), types.I64}

	first := Builtin("shuffle", args)
	for i := 0; i < 8; i++ {
		if got := Builtin("shuffle", args); got != first {
			t.Fatalf("mangling is not deterministic: %s then %s", first, got)
		}
	}
}
