package translate

import (
	"fmt"
	"strings"

	"spv2ll/report"
	"spv2ll/spirv"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
)

// transFunction translates a function definition or declaration.  Assembly is
// two-pass: every block is created before any instruction translates, so
// branch targets always exist; instructions then translate in program order
// with placeholder creation reserved for operand recursion.
func (t *Translator) transFunction(bf *spirv.Function) *ir.Func {
	if lf, ok := t.funcMap[bf]; ok {
		return lf
	}

	isKernel := t.bm.IsEntryPoint(spirv.ExecModelKernel, bf.ID)
	ft, ok := t.transType(bf.FuncType).(*types.FuncType)
	if !ok {
		report.Raise(report.KindValidation, "function %d has a non-function type", bf.ID)
	}

	params := make([]*ir.Param, len(bf.Params))
	for i, bp := range bf.Params {
		params[i] = ir.NewParam(bp.Name, ft.Params[i])
	}

	lf := t.m.NewFunc(t.functionName(bf), ft.RetType, params...)
	t.funcMap[bf] = lf
	t.mapValue(&bf.Value, lf)

	linkage := t.bm.Linkage(bf.ID)
	switch {
	case isKernel, len(bf.Blocks) == 0:
		lf.Linkage = enum.LinkageExternal
	default:
		lf.Linkage = linkageMap[linkage]
	}

	switch {
	case isKernel:
		lf.CallingConv = enum.CallingConvSPIRKernel
	case !strings.HasPrefix(lf.Name(), "llvm."):
		lf.CallingConv = enum.CallingConvSPIRFunc
	}

	lf.FuncAttrs = append(lf.FuncAttrs, enum.FuncAttrNoUnwind)
	for _, ctl := range []spirv.FunctionControl{
		spirv.FuncCtlInline, spirv.FuncCtlDontInline, spirv.FuncCtlPure, spirv.FuncCtlConst,
	} {
		if bf.Control&ctl != 0 {
			lf.FuncAttrs = append(lf.FuncAttrs, funcCtlAttrs[ctl])
		}
	}

	// Parameters map eagerly so that body instructions resolve them without
	// placeholders.
	for i, bp := range bf.Params {
		t.mapValue(bp, lf.Params[i])

		for _, battr := range t.bm.ParamAttrs(bp.ID) {
			if attr, ok := paramAttrMap[battr]; ok {
				lf.Params[i].Attrs = append(lf.Params[i].Attrs, attr)
			}
		}
	}

	if retAttr, ok := t.returnAttr(bf); ok {
		lf.ReturnAttrs = append(lf.ReturnAttrs, retAttr)
	}

	if len(bf.Blocks) == 0 {
		return lf
	}

	for _, bb := range bf.Blocks {
		t.transValueWith(&bb.Value, lf, nil, true)
	}

	for _, bb := range bf.Blocks {
		lb, ok := t.valueMap[&bb.Value].(*ir.Block)
		if !ok {
			report.RaiseICE("block id %d did not translate to a block", bb.ID)
		}

		for _, inst := range bb.Insts {
			t.transValueWith(inst, lf, lb, false)
		}
	}

	return lf
}

// functionName picks the target symbol name of a function: the linkage name
// when exported or imported, the debug name otherwise.
func (t *Translator) functionName(bf *spirv.Function) string {
	if d := t.bm.Decoration(bf.ID, spirv.DecorationLinkageAttributes); d != nil && d.Str != "" {
		return d.Str
	}

	if bf.Name != "" {
		return bf.Name
	}

	return fmt.Sprintf("func%d", bf.ID)
}

// returnAttr maps a zext/sext parameter attribute decorated on the function
// itself onto the return value.
func (t *Translator) returnAttr(bf *spirv.Function) (enum.ReturnAttr, bool) {
	for _, battr := range t.bm.ParamAttrs(bf.ID) {
		switch battr {
		case spirv.FuncParamAttrZext:
			return enum.ReturnAttrZeroExt, true
		case spirv.FuncParamAttrSext:
			return enum.ReturnAttrSignExt, true
		}
	}

	return 0, false
}
