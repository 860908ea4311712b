package main

import (
	"os"

	"spv2ll/cmd"
)

func main() {
	os.Exit(cmd.RunTranslator())
}
