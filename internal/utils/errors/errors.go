package errors

import (
	"errors"
)

var (
	// General Errors
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrUnsupportedFile   = errors.New("unsupported file format")
	ErrPathNotAccessible = errors.New("path is not accessible")
	ErrOSNotSupported    = errors.New("operating system not supported")

	// Workflow Errors
	ErrWorkflowNotFound = errors.New("workflow file not found")
	ErrWorkflowInvalid  = errors.New("invalid workflow definition")
	ErrUnknownAction    = errors.New("unknown action kind")
	ErrUnknownSection   = errors.New("unknown section")
	ErrUnknownBackend   = errors.New("unknown automation backend")

	// Execution Errors
	ErrResolution = errors.New("reference could not be resolved")
	ErrBackend    = errors.New("backend action failed")
	ErrCapture    = errors.New("screenshot could not be persisted")
	ErrLaunch     = errors.New("application launch failed")
	ErrNoResults  = errors.New("no recorded step results")

	// Element Driver Errors
	ErrElementNotFound  = errors.New("element not found")
	ErrSessionNotOpen   = errors.New("driver session not open")
	ErrSelectorRequired = errors.New("element backend requires a selector target")
	ErrPointRequired    = errors.New("pointer backend requires a point target")

	// Synthesis Errors
	ErrSynthesis    = errors.New("section could not be fully rendered")
	ErrMissingImage = errors.New("visible screenshot step has no captured image")
	ErrStepFailed   = errors.New("step failed during the last run")
	ErrStepNotRun   = errors.New("step has not been run")

	// Review Errors
	ErrReview          = errors.New("review transition rejected")
	ErrNoStagedTree    = errors.New("no staged documentation for wallet")
	ErrDigestMismatch  = errors.New("published copy differs from staged content")
	ErrArchiveFailed   = errors.New("published tree could not be archived")
	ErrUnsupportedArch = errors.New("unsupported archive format")

	// Export Errors
	ErrNothingToExport = errors.New("no screenshots to export")

	// File & Directory Errors
	ErrFileNotFound    = errors.New("file not found")
	ErrFileReadError   = errors.New("error reading file")
	ErrFileWriteError  = errors.New("error writing to file")
	ErrDirNotFound     = errors.New("directory not found")
	ErrDirCopyError    = errors.New("error copying directory")
	ErrDirMoveError    = errors.New("error moving directory")
	ErrFileExistsError = errors.New("file already exists")

	// Hash Errors
	ErrInvalidHasher = errors.New("invalid hasher")

	// Configuration Errors
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrConfigFileNotFound = errors.New("configuration file not found")
	ErrConfigParseError   = errors.New("error parsing configuration")
	ErrAlreadyInitialized = errors.New("component already initialized")
	ErrNotInitialized     = errors.New("component not initialized")
)

// Join combines errs; see errors.Join
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
