package max30102

import "errors"

var (
	// ErrNotDevice is returned when the part ID register does not match the
	// MAX30102 signature (0x15).
	ErrNotDevice = errors.New("max30102: part ID does not match (0x15)")

	// ErrInvalidArgument is returned when a mode, slot, LED code or
	// configuration byte is outside its legal range. It is raised before any
	// bus access happens.
	ErrInvalidArgument = errors.New("max30102: invalid argument")

	// ErrNoData is returned by non-blocking reads when no sample batch is
	// ready. It is a normal empty result, not a failure.
	ErrNoData = errors.New("max30102: no data available")

	// ErrTimeout is returned when a temperature conversion or a blocking
	// batch read exhausts its time budget.
	ErrTimeout = errors.New("max30102: timeout")

	// ErrNotConfigured is returned when an operation requires a completed
	// initialization sequence.
	ErrNotConfigured = errors.New("max30102: device not configured")

	// ErrFaulted is returned once the device entered the faulted state;
	// re-running Initialize is required to recover.
	ErrFaulted = errors.New("max30102: device faulted")
)
