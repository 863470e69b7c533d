package core

// Process exit codes. Signal exits follow the 128+signal convention.
const (
	ExitCodeSuccess  = 0
	ExitCodeError    = 1
	ExitCodeAuth     = 2
	ExitCodeNoTopics = 3
	ExitCodeSIGINT   = 130
	ExitCodeSIGTERM  = 143
)

// ExitCodeName returns a human-readable name for an exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeError:
		return "error"
	case ExitCodeAuth:
		return "credential rejected"
	case ExitCodeNoTopics:
		return "no topics available"
	case ExitCodeSIGINT:
		return "interrupted (SIGINT)"
	case ExitCodeSIGTERM:
		return "terminated (SIGTERM)"
	default:
		return "unknown"
	}
}
