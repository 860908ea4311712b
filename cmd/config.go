package cmd

import (
	"os"

	"github.com/pelletier/go-toml"
)

// tomlConfig represents the translator configuration as it is encoded in TOML.
type tomlConfig struct {
	// The output path for the textual IR.
	OutPath string `toml:"output,omitempty"`

	// Whether to dump the produced module to a temporary file.
	SaveTemps bool `toml:"save-temps"`

	// The temporary dump path.  Empty selects the built-in default.
	TempFile string `toml:"temp-file,omitempty"`
}

// loadConfig applies a TOML configuration file to the driver.  Command-line
// arguments given after the config option override its values.
func loadConfig(d *Driver, path string) {
	buff, err := os.ReadFile(path)
	if err != nil {
		argumentError("unable to read config file: %s", err)
	}

	cfg := &tomlConfig{}
	if err := toml.Unmarshal(buff, cfg); err != nil {
		argumentError("unable to parse config file: %s", err)
	}

	if cfg.OutPath != "" {
		d.outPath = cfg.OutPath
	}

	d.opts.SaveTemps = cfg.SaveTemps
	if cfg.TempFile != "" {
		d.opts.TempFile = cfg.TempFile
	}
}
