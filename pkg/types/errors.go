package types

import (
	"errors"
	"fmt"
)

// Error kinds returned by the update pipeline.
// Every stage wraps one of these so callers can classify failures with errors.Is.
var (
	// ErrInvalidConfiguration indicates a missing or malformed configuration value.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrUnsupportedProvider indicates an image repository no supported registry can serve.
	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrMetadataParse indicates the image coordinate could not be extracted.
	ErrMetadataParse = errors.New("metadata parse error")
	// ErrRegistryRequestFailed indicates a non-success registry response or a transport failure.
	ErrRegistryRequestFailed = errors.New("registry request failed")
	// ErrNoVersionMatched indicates the version pattern matched no published tag.
	ErrNoVersionMatched = errors.New("no version matched")
	// ErrCloneFailed indicates the repository could not be cloned.
	ErrCloneFailed = errors.New("clone failed")
	// ErrAuthenticationFailed indicates missing, mismatched or rejected git credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrBranchNotFound indicates the requested branch does not exist upstream.
	ErrBranchNotFound = errors.New("branch not found")
	// ErrManifestNotFound indicates the values file is absent from the workspace.
	ErrManifestNotFound = errors.New("manifest not found")
	// ErrManifestInvalid indicates the values file is not a YAML document that can be rewritten.
	ErrManifestInvalid = errors.New("manifest invalid")
	// ErrKeyNotFound indicates the values key does not resolve inside the manifest.
	ErrKeyNotFound = errors.New("key not found")
	// ErrPushConflict indicates the remote branch moved and the push was rejected as non-fast-forward.
	ErrPushConflict = errors.New("push conflict")
	// ErrPushFailed indicates a push failure other than a conflict or rejected credentials.
	ErrPushFailed = errors.New("push failed")
)

// kinds maps each sentinel to the name used in logs and reports.
// Order matters: the first matching kind wins when errors wrap each other.
var kinds = []struct {
	err  error
	name string
}{
	{ErrInvalidConfiguration, "InvalidConfiguration"},
	{ErrUnsupportedProvider, "UnsupportedProvider"},
	{ErrMetadataParse, "MetadataParseError"},
	{ErrRegistryRequestFailed, "RegistryRequestFailed"},
	{ErrNoVersionMatched, "NoVersionMatched"},
	{ErrBranchNotFound, "BranchNotFound"},
	{ErrAuthenticationFailed, "AuthenticationFailed"},
	{ErrCloneFailed, "CloneFailed"},
	{ErrManifestNotFound, "ManifestNotFound"},
	{ErrManifestInvalid, "ManifestInvalid"},
	{ErrKeyNotFound, "KeyNotFound"},
	{ErrPushConflict, "PushConflict"},
	{ErrPushFailed, "PushFailed"},
}

// Kind returns the error kind name for err, or "Unknown" if err wraps no known kind.
func Kind(err error) string {
	if err == nil {
		return ""
	}

	for _, kind := range kinds {
		if errors.Is(err, kind.err) {
			return kind.name
		}
	}

	return "Unknown"
}

// RegistryRequestError carries the upstream status code of a failed registry call.
type RegistryRequestError struct {
	StatusCode int    // HTTP status returned by the registry.
	URL        string // Requested URL.
	Message    string // Upstream error message, if any.
}

func (e RegistryRequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s returned %d: %s", ErrRegistryRequestFailed, e.URL, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("%s: %s returned %d", ErrRegistryRequestFailed, e.URL, e.StatusCode)
}

// Is reports RegistryRequestError as ErrRegistryRequestFailed.
func (e RegistryRequestError) Is(target error) bool {
	return target == ErrRegistryRequestFailed
}

// Error represents a Git operation error with structured information.
type Error struct {
	Op     string // Operation that failed
	URL    string // Repository URL
	Reason string // Human-readable reason
	Kind   error  // One of the pipeline error kinds
	Cause  error  // Underlying error
}

func (e Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("git %s %s: %s: %v", e.Op, e.URL, e.Reason, e.Cause)
	}

	return fmt.Sprintf("git %s %s: %s", e.Op, e.URL, e.Reason)
}

// Unwrap exposes both the error kind and the underlying cause.
func (e Error) Unwrap() []error {
	errs := make([]error, 0, 2) //nolint:mnd // kind and cause

	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}

	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}

	return errs
}

// IsAuthError checks if an error is authentication-related.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed)
}

// Stage names one step of the per-entry pipeline.
type Stage string

// Pipeline stages, in execution order.
const (
	StageValidate Stage = "validate"
	StageResolve  Stage = "resolve"
	StageMetadata Stage = "metadata"
	StageVersions Stage = "versions"
	StageMatch    Stage = "match"
	StageClone    Stage = "clone"
	StageApply    Stage = "apply"
	StagePush     Stage = "push"
)

// StageError attributes a failure to an entry and the stage it happened in.
type StageError struct {
	Entry string
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Entry, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
