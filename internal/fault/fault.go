// Package fault defines the error taxonomy shared by the publishing pipeline.
// Every error is a go-errors value tagged with a category and a text code so
// callers can branch on the kind of failure without string matching.
package fault

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	CategoryConfiguration goerrors.Category = "configuration"
	CategoryFetch         goerrors.Category = "fetch"
	CategoryTimeout       goerrors.Category = "timeout"
	CategoryParse         goerrors.Category = "parse"
	CategoryCycle         goerrors.Category = "reference_cycle"
	CategoryDepth         goerrors.Category = "reference_depth"
	CategorySigning       goerrors.Category = "signing"
	CategoryUpload        goerrors.Category = "upload"
	CategoryDelete        goerrors.Category = "delete"
	CategoryTransport     goerrors.Category = "network_transport"
)

const (
	CodeConfiguration = "CONFIGURATION_INVALID"
	CodeShareOptions  = "SHARE_OPTIONS_INVALID"
	CodeFetch         = "FETCH_FAILED"
	CodeTimeout       = "FETCH_TIMEOUT"
	CodeParse         = "PAYLOAD_MALFORMED"
	CodeCycle         = "REFERENCE_CYCLE"
	CodeDepth         = "REFERENCE_DEPTH_EXCEEDED"
	CodeSigning       = "SIGNING_FAILED"
	CodeUpload        = "UPLOAD_FAILED"
	CodeDelete        = "DELETE_FAILED"
	CodeTransport     = "NETWORK_TRANSPORT"
)

// Configuration reports invalid or incomplete configuration. It is raised
// before any I/O takes place.
func Configuration(err error, message string) error {
	return wrap(err, CategoryConfiguration, CodeConfiguration, message)
}

// Validation reports invalid caller supplied options.
func Validation(err error, message string) error {
	return wrap(err, goerrors.CategoryValidation, CodeShareOptions, message)
}

// Fetch reports an unreachable collaborator or a non-success status. Context
// deadline errors are reported as Timeout instead.
func Fetch(err error, message string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(err, message)
	}
	return wrap(err, CategoryFetch, CodeFetch, message)
}

// Timeout reports an expired per-call deadline.
func Timeout(err error, message string) error {
	return wrap(err, CategoryTimeout, CodeTimeout, message)
}

// Parse reports a missing or malformed payload.
func Parse(err error, message string) error {
	return wrap(err, CategoryParse, CodeParse, message)
}

// Cycle reports a transclusion cycle. Resolvers log it and drop the branch.
func Cycle(err error, message string) error {
	return wrap(err, CategoryCycle, CodeCycle, message)
}

// Depth reports a transclusion chain deeper than the configured limit.
func Depth(err error, message string) error {
	return wrap(err, CategoryDepth, CodeDepth, message)
}

// Signing reports a failure to sign a request. Signing is pure computation,
// so this indicates a programming error such as missing credentials.
func Signing(err error, message string) error {
	return wrap(err, CategorySigning, CodeSigning, message)
}

// Upload reports a rejected object upload.
func Upload(err error, message string) error {
	return wrap(err, CategoryUpload, CodeUpload, message)
}

// Delete reports a rejected object deletion.
func Delete(err error, message string) error {
	return wrap(err, CategoryDelete, CodeDelete, message)
}

// Transport reports a network level failure where no HTTP response was
// received.
func Transport(err error, message string) error {
	return wrap(err, CategoryTransport, CodeTransport, message)
}

// Is reports whether err carries the provided category.
func Is(err error, category goerrors.Category) bool {
	if err == nil {
		return false
	}
	return goerrors.IsCategory(err, category)
}

// TextCode returns the text code attached to err, or "" when err is not a
// go-errors value.
func TextCode(err error) string {
	var target *goerrors.Error
	if errors.As(err, &target) {
		return target.TextCode
	}
	return ""
}

func wrap(err error, category goerrors.Category, code, message string) error {
	if err == nil {
		err = errors.New(message)
	}
	if goerrors.IsWrapped(err) && goerrors.IsCategory(err, category) {
		return err
	}
	return goerrors.Wrap(err, category, message).WithTextCode(code)
}
