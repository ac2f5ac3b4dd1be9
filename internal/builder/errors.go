package builder

import (
	"errors"
	"fmt"
	"strings"

	qerrors "github.com/qiniu/x/errors"

	"github.com/goplus/pupnet/internal/deploy"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrRequiredPhase = errors.New("required phase failed")
	ErrCleanup       = errors.New("cleanup failed")
	ErrEntitlements  = errors.New("entitlements unavailable")
	ErrSigning       = errors.New("code signing failed")
	ErrFileSystem    = errors.New("file system operation failed")
)

// ValidationError lists every problem found by Validate.
type ValidationError struct {
	Kind     deploy.Kind
	Problems qerrors.List
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s (%d problems)", ErrValidation, e.Kind, len(e.Problems))
	for _, p := range e.Problems {
		b.WriteString("\n  - ")
		b.WriteString(p.Error())
	}
	return b.String()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() []error {
	return e.Problems
}

// PhaseError reports the required phase that aborted a build.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase %q: %v", e.Phase, e.Err)
}

func (e *PhaseError) Is(target error) bool {
	return target == ErrRequiredPhase
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
