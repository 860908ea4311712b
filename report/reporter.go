package report

import "sync"

// Reporter is responsible for reporting errors, warnings, and other kinds of
// messages to the user during program execution.  The reporter respects the
// set log level and is synchronized: its methods can be safely called from
// multiple goroutines.
type Reporter struct {
	// The mutex used to synchronize different report method calls.
	m *sync.Mutex

	// The selected log level of the reporter.  This must be one of the
	// enumerated log levels below.
	logLevel int

	// Indicates whether or not an error has been detected.
	isErr bool
}

// Enumeration of the different possible log levels.
const (
	LogLevelSilent  = iota // Displays no output.
	LogLevelError          // Displays only errors to the user.
	LogLevelWarn           // Displays only warnings and errors to the user.
	LogLevelVerbose        // Displays all messages to the user (default).
)

// rep is the global reporter instance.  It starts at the verbose log level so
// that library use without an explicit InitReporter still reports.
var rep = &Reporter{
	m:        &sync.Mutex{},
	logLevel: LogLevelVerbose,
}

// InitReporter sets the log level of the global error reporter.
func InitReporter(logLevel int) {
	rep.m.Lock()
	defer rep.m.Unlock()

	rep.logLevel = logLevel
}

// AnyErrors returns whether or not any errors were detected.
func AnyErrors() bool {
	return rep.isErr
}
