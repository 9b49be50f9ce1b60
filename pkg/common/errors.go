package common

import "errors"

// Error kinds surfaced at the process boundary. Callers wrap them with
// fmt.Errorf("...: %w") and ExitCode maps them back with errors.Is.
var (
	ErrUsage     = errors.New("bad usage")
	ErrIO        = errors.New("i/o failure")
	ErrMalformed = errors.New("malformed raster")
)

// Exit codes returned by the command line programs.
const (
	ExitOK        = 0
	ExitUsage     = 255 // -1 as seen by the shell
	ExitIO        = 2
	ExitMalformed = 3
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, ErrIO):
		return ExitIO
	case errors.Is(err, ErrMalformed):
		return ExitMalformed
	default:
		return 1
	}
}
