package warden

import (
	"errors"
	"fmt"
)

// Error kinds reported by workload execution. Failures wrap one of these
// sentinels so callers can classify them with errors.Is without inspecting
// messages.
var (
	// ErrConfiguration reports an invalid or unsatisfiable deployment
	// configuration, such as a stdin policy naming a bundle path that does
	// not exist.
	ErrConfiguration = errors.New("configuration error")

	// ErrExportNotFound reports that the module exports no callable entry
	// point under any recognized name.
	ErrExportNotFound = errors.New("export not found")

	// ErrInstantiation reports a failure to decode, compile, or instantiate
	// the module, including malformed bundles and archives.
	ErrInstantiation = errors.New("module instantiation failed")

	// ErrCall reports that the entry point started and then failed.
	ErrCall = errors.New("call failed")
)

// ExitError reports that the workload terminated itself with a non-zero exit
// code. It matches ErrCall in errors.Is so exits classify as call failures,
// while the code stays available through errors.As.
type ExitError uint32

func (e ExitError) Error() string {
	return fmt.Sprintf("module exited with code %d", uint32(e))
}

func (e ExitError) Is(err error) bool {
	return err == ErrCall
}
