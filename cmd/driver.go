// Package cmd is the top-level "driver" package for the translator: it
// contains all the functionality for parsing command-line arguments, loading
// configuration, and running a translation from a SPIR-V binary to textual
// LLVM IR.
package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"spv2ll/report"
	"spv2ll/translate"
)

// Version is the translator's version identifier.
const Version = "spv2ll v0.1.0"

// Driver represents the overall state and configuration of one translation.
type Driver struct {
	// The path to the input SPIR-V binary.
	inPath string

	// The path to write the textual IR to.  Defaults to the input path with
	// its extension replaced by .ll.
	outPath string

	// The translator options forwarded to the translate package.
	opts translate.Options
}

// RunTranslator is the main entry point for the translator.  This should be
// called directly from main.
func RunTranslator() int {
	d := NewDriverFromArgs()

	file, err := os.Open(d.inPath)
	if err != nil {
		report.ReportFatal("unable to open input file: %s", err)
	}
	defer file.Close()

	mod, err := translate.ReadSPIRV(file, d.opts)
	if err != nil {
		report.ReportError("%s: %s", d.inPath, err)
		return 1
	}

	if err := os.WriteFile(d.outPath, []byte(mod.String()), 0o644); err != nil {
		report.ReportError("unable to write output file: %s", err)
		return 1
	}

	report.ReportInfo("wrote %s", d.outPath)
	return 0
}

// defaultOutPath derives the output path from the input path.
func defaultOutPath(inPath string) string {
	base := strings.TrimSuffix(inPath, filepath.Ext(inPath))
	return base + ".ll"
}
