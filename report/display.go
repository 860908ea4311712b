package report

import "github.com/pterm/pterm"

// displayICE displays an internal translator error message.
func displayICE(message string) {
	pterm.Error.Println("internal translator error: " + message)
	pterm.Println("This error was not supposed to happen: please open an issue on GitHub.")
}

// displayFatal displays a fatal error message.
func displayFatal(message string) {
	pterm.Error.Println("fatal error: " + message)
}

// displayError displays a non-fatal error message.
func displayError(message string) {
	pterm.Error.Println(message)
}

// displayWarning displays a warning message.
func displayWarning(message string) {
	pterm.Warning.Println(message)
}

// displayInfo displays an informational message.
func displayInfo(message string) {
	pterm.Info.Println(message)
}
