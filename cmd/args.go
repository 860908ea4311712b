package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"spv2ll/report"
	"spv2ll/translate"
)

const usage = `Usage: spv2ll [flags|options] <path to SPIR-V binary>

Flags:
------
-h, --help         Displays usage information (ie. this text).
-v, --version      Displays the current translator version.
-s, --save-temps   Dumps the produced module to a temporary .ll file as well.

Options:
--------
-o,  --outpath    Sets the path for the textual IR output.  Defaults to the
                  input path with its extension replaced by .ll.
-c,  --config     Loads translator options from a TOML configuration file.
-ll, --loglevel   Sets the translator's log-level.  Valid values are:
                    - "verbose" for outputting all messages (default)
                    - "warn" for outputting errors and warnings
                    - "error" for outputting errors only
                    - "silent" for no output
`

// Prints the usage message and exits the translator with the given exit code.
func printUsage(exitCode int) {
	fmt.Print(usage, "\n")
	os.Exit(exitCode)
}

// argParser is a command-line argument parser.
type argParser struct {
	// The arguments being parsed.
	args []string

	// The argument parser's position within those arguments.
	ndx int
}

// Set containing all the argument names that correspond to options.
var options = map[string]struct{}{
	"o":         {},
	"c":         {},
	"ll":        {},
	"-outpath":  {},
	"-config":   {},
	"-loglevel": {},
}

// argumentError displays an argument error and exits the program.
func argumentError(message string, args ...interface{}) {
	fmt.Print("argument error: ", fmt.Sprintf(message, args...), "\n\n")
	printUsage(1)
}

// nextArg parses the next command-line argument if one exists.  The first value
// is the name of the argument.  If this argument is positional, this value is
// empty.  The second value is the value of argument. If this value is empty,
// the argument is a flag.  If an argument exists, at least one of the returned
// values will be non-empty.  The final value indicates whether or not there was
// an argument to parse.
func (ap *argParser) nextArg() (string, string, bool) {
	if ap.ndx < len(ap.args) {
		arg := ap.args[ap.ndx]
		ap.ndx++

		if strings.HasPrefix(arg, "-") { // flag or option
			name := arg[1:]

			if _, ok := options[name]; ok { // option
				// Make sure the option value exists.
				if ap.ndx < len(ap.args) && !strings.HasPrefix(ap.args[ap.ndx], "-") {
					value := ap.args[ap.ndx]
					ap.ndx++
					return name, value, true
				} else {
					argumentError("option %s requires an argument", strings.TrimLeft(name, "-"))
				}
			} else { // flag
				return name, "", true
			}

		} else { // positional
			return "", arg, true
		}
	}

	// No arguments to parse.
	return "", "", false
}

// useArg attempts to use a single command-line argument to initialize the
// driver.  If the argument is invalid, the program will exit.
func useArg(d *Driver, name, value string) {
	switch name {
	case "h", "-help":
		printUsage(0)
	case "v", "-version":
		fmt.Println(Version)
		os.Exit(0)
	case "s", "-save-temps":
		d.opts.SaveTemps = true
	case "ll", "-loglevel":
		{
			var logLevel int
			switch value {
			case "silent":
				logLevel = report.LogLevelSilent
			case "error":
				logLevel = report.LogLevelError
			case "warn":
				logLevel = report.LogLevelWarn
			case "verbose":
				logLevel = report.LogLevelVerbose
			default:
				argumentError("invalid log level")
			}

			report.InitReporter(logLevel)
		}
	case "o", "-outpath":
		{
			absPath, err := filepath.Abs(value)
			if err != nil {
				argumentError("invalid output path: %s", value)
			}

			d.outPath = absPath
		}
	case "c", "-config":
		loadConfig(d, value)
	case "":
		if d.inPath == "" {
			absPath, err := filepath.Abs(value)
			if err != nil {
				argumentError("invalid input path: %s", value)
			}

			d.inPath = absPath
		} else {
			argumentError("input path specified multiple times")
		}
	default:
		argumentError("unknown flag: %s", name)
	}
}

// NewDriverFromArgs creates a new driver instance based on the given command
// line arguments if the arguments are valid and translation should continue:
// ie. if the user requests the translator version, then translation should
// not continue.
func NewDriverFromArgs() *Driver {
	d := &Driver{opts: translate.Options{TempFile: translate.DefaultTempFile}}

	ap := argParser{args: os.Args[1:], ndx: 0}

	// Parse all command line arguments.
	for {
		if name, value, ok := ap.nextArg(); ok {
			useArg(d, name, value)
		} else {
			break
		}
	}

	// Check to make sure an input path was specified.
	if d.inPath == "" {
		argumentError("an input path must be specified")
	}

	// Set default values for any optional unspecified flags.
	if d.outPath == "" {
		d.outPath = defaultOutPath(d.inPath)
	}

	return d
}
