package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (unreadable config, template or script file)
	ExitDataError   = 3 // Data error (unparseable bibliography, missing cache entry)
	ExitRenderError = 4 // Template failed to parse or execute
	ExitCheckIssues = 5 // check found problems
)
