package listview

import (
	"context"
	"errors"
	"net/http"

	"github.com/louisbranch/viewkit/identity"
	"github.com/louisbranch/viewkit/weberror"
)

type parentContextKey struct{}

// WithParent returns a context carrying a resolved parent object. DetailList
// applies it before delegating to its source; tests and custom handlers can
// use it to scope Source queries the same way.
func WithParent(ctx context.Context, parent any) context.Context {
	if parent == nil {
		return ctx
	}
	return context.WithValue(ctx, parentContextKey{}, parent)
}

// ParentFromContext returns the parent object resolved for the current
// DetailList request. Sources use it to scope their queries.
func ParentFromContext(ctx context.Context) (any, bool) {
	if ctx == nil {
		return nil, false
	}
	parent := ctx.Value(parentContextKey{})
	if parent == nil {
		return nil, false
	}
	return parent, true
}

func withParent(r *http.Request, parent any) *http.Request {
	if r == nil || parent == nil {
		return r
	}
	return r.WithContext(WithParent(r.Context(), parent))
}

// Form parses and validates an append submission. Bind reports validation
// failures as KindInvalidInput errors.
type Form interface {
	Bind(r *http.Request) error
}

// PrincipalAware is implemented by forms that want the request principal
// before binding.
type PrincipalAware interface {
	SetPrincipal(identity.Principal)
}

// ParentAware is implemented by forms that want the resolved parent object
// before binding.
type ParentAware interface {
	SetParent(parent any)
}

// FieldErrors is implemented by forms that report per-field validation
// messages after a failed Bind.
type FieldErrors interface {
	Fields() map[string]string
}

func applyFormContext(form Form, principal identity.Principal, parent any) {
	if form == nil {
		return
	}
	if aware, ok := form.(PrincipalAware); ok {
		aware.SetPrincipal(principal)
	}
	if parent == nil {
		return
	}
	if aware, ok := form.(ParentAware); ok {
		aware.SetParent(parent)
	}
}

func isInvalidInput(err error) bool {
	var appErr weberror.Error
	return errors.As(err, &appErr) && appErr.Kind == weberror.KindInvalidInput
}

// fieldErrors collects per-field messages from the form, falling back to the
// bind error under the "form" key.
func fieldErrors(form Form, bindErr error) map[string]string {
	if reporter, ok := form.(FieldErrors); ok {
		if fields := reporter.Fields(); len(fields) > 0 {
			return fields
		}
	}
	if bindErr == nil {
		return nil
	}
	return map[string]string{"form": bindErr.Error()}
}
