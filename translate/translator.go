// Package translate converts decoded SPIR-V modules into LLVM IR modules.
// The translation direction is read-only: the source module is never
// modified, and the produced module is fully self-contained.
package translate

import (
	"io"
	"os"

	"spv2ll/report"
	"spv2ll/spirv"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Options configures a single translation.
type Options struct {
	// SaveTemps dumps the produced module as textual IR to TempFile.
	SaveTemps bool

	// TempFile is the dump path used when SaveTemps is set.
	TempFile string
}

// DefaultTempFile is the dump path used when Options.TempFile is empty.
const DefaultTempFile = "_tmp_llvmbil.ll"

// Translator holds the state of one module translation.  A translator is
// single-use and not safe for concurrent use: translation is a sequential
// walk over the source module.
type Translator struct {
	// bm is the source module being translated.
	bm *spirv.Module

	// m is the target module being produced.
	m *ir.Module

	// typeMap memoizes type translation.
	typeMap map[*spirv.Type]types.Type

	// valueMap memoizes value translation.  Entries may temporarily point at
	// placeholder loads until the real value translates.
	valueMap map[*spirv.Value]value.Value

	// funcMap memoizes function translation.
	funcMap map[*spirv.Function]*ir.Func

	// placeholders records the outstanding placeholder of every forward
	// reference.  The map must be empty when translation finishes.
	placeholders map[*spirv.Value]*placeholder

	// placeholderCount numbers placeholder globals uniquely.
	placeholderCount int

	// builtinVars records globals that arose from builtin variables; they are
	// rewritten to workitem builtin calls after the functions translate.
	builtinVars map[*ir.Global]spirv.BuiltIn

	opts Options
}

// NewTranslator creates a translator for the given source module.
func NewTranslator(bm *spirv.Module, opts Options) *Translator {
	return &Translator{
		bm:           bm,
		m:            ir.NewModule(),
		typeMap:      make(map[*spirv.Type]types.Type),
		valueMap:     make(map[*spirv.Value]value.Value),
		funcMap:      make(map[*spirv.Function]*ir.Func),
		placeholders: make(map[*spirv.Value]*placeholder),
		builtinVars:  make(map[*ir.Global]spirv.BuiltIn),
		opts:         opts,
	}
}

// Translate converts a decoded source module into a target module.  All
// translation failures surface as errors; the partially built module is
// discarded on failure.
func Translate(bm *spirv.Module, opts Options) (mod *ir.Module, err error) {
	defer report.Catch(&err)

	if bmErr := bm.Err(); bmErr != nil {
		return nil, bmErr
	}

	t := NewTranslator(bm, opts)
	t.run()

	if opts.SaveTemps {
		path := opts.TempFile
		if path == "" {
			path = DefaultTempFile
		}
		if werr := os.WriteFile(path, []byte(t.m.String()), 0o644); werr != nil {
			report.ReportWarning("unable to dump module to %s: %s", path, werr)
		}
	}

	return t.m, nil
}

// ReadSPIRV decodes a SPIR-V binary from r and translates it.
func ReadSPIRV(r io.Reader, opts Options) (*ir.Module, error) {
	bm, err := spirv.Decode(r)
	if err != nil {
		return nil, err
	}

	return Translate(bm, opts)
}

// -----------------------------------------------------------------------------

// run performs the translation passes in order.
func (t *Translator) run() {
	// The addressing model gates everything else.
	t.transAddressingModel()

	for _, bv := range t.bm.Variables {
		t.transValue(bv, nil, nil)
	}

	for _, bf := range t.bm.Functions {
		t.transFunction(bf)
	}

	t.transKernelMetadata()
	t.transModuleMetadata()

	t.lowerBuiltinVariables()
	t.fixupStructReturnBuiltins()
	t.fixupBlockArgBuiltins()

	// Every forward reference must have resolved by now.
	for bv := range t.placeholders {
		report.RaiseICE("unresolved forward reference to id %d", bv.ID)
	}
}

// transAddressingModel applies the addressing model as the target triple and
// data layout.  The logical model leaves both unset.
func (t *Translator) transAddressingModel() {
	switch t.bm.Addressing {
	case spirv.AddressingPhysical32:
		t.m.TargetTriple = "spir-unknown-unknown"
		t.m.DataLayout = dataLayout32

	case spirv.AddressingPhysical64:
		t.m.TargetTriple = "spir64-unknown-unknown"
		t.m.DataLayout = dataLayout64

	case spirv.AddressingLogical:
		// Logical modules have no fixed pointer width.

	default:
		report.Raise(report.KindAddressingModel, "addressing model %d cannot be translated", t.bm.Addressing)
	}
}

const (
	dataLayout32 = "e-p:32:32:32-i1:8:8-i8:8:8-i16:16:16-i32:32:32-i64:64:64-f32:32:32-f64:64:64-v16:16:16-v24:32:32-v32:32:32-v48:64:64-v64:64:64-v96:128:128-v128:128:128-v192:256:256-v256:256:256-v512:512:512-v1024:1024:1024"
	dataLayout64 = "e-p:64:64:64-i1:8:8-i8:8:8-i16:16:16-i32:32:32-i64:64:64-f32:32:32-f64:64:64-v16:16:16-v24:32:32-v32:32:32-v48:64:64-v64:64:64-v96:128:128-v128:128:128-v192:256:256-v256:256:256-v512:512:512-v1024:1024:1024"
)
