// Package perrors provides the typed error categories the dispatcher
// boundary (spec §7) uses to turn any component failure into (nok, message)
// without ever letting a panic or a raw error cross that boundary.
package perrors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sync"
	"time"
)

// Category is one of the error kinds spec.md §7 enumerates.
type Category string

const (
	CategoryClient          Category = "client"          // unknown component/verb, protected key, bad range
	CategoryBusy            Category = "busy"            // overlapping acquire/record on a locked resource
	CategoryHardware        Category = "hardware"        // transient hardware read failure
	CategoryAutointegration Category = "autointegration" // autointegration could not find a value
	CategoryOutput          Category = "output"          // write failure, logged and dropped
	CategoryFatal           Category = "fatal"           // unwritable data directory on startup
	CategoryScheduler       Category = "scheduler"        // invalid schedule spec, logged not raised
)

// Error wraps an underlying cause with a category and free-form context,
// the way internal/errors.EnhancedError does in the teacher repo, trimmed
// of its telemetry-reporting machinery (no telemetry surface in scope).
type Error struct {
	Err       error
	Category  Category
	Context   map[string]any
	Timestamp time.Time

	mu sync.RWMutex
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Category)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Err.Error())
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target shares this error's category.
func (e *Error) Is(target error) bool {
	var other *Error
	if stderrors.As(target, &other) {
		return e.Category == other.Category
	}
	return false
}

// WithContext returns a copy of the context map for safe external reading.
func (e *Error) WithContext() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.Context == nil {
		return nil
	}
	cp := make(map[string]any, len(e.Context))
	maps.Copy(cp, e.Context)
	return cp
}

// Builder provides the fluent error-construction style the teacher repo
// uses across its components.
type Builder struct {
	err      error
	category Category
	context  map[string]any
}

// New starts building an Error from an existing cause (nil is allowed: the
// message becomes the category name).
func New(err error) *Builder {
	return &Builder{err: err}
}

// Newf starts building an Error from a formatted message.
func Newf(format string, args ...any) *Builder {
	return New(fmt.Errorf(format, args...))
}

// Category sets the error's category.
func (b *Builder) Category(c Category) *Builder {
	b.category = c
	return b
}

// Context attaches one key/value of diagnostic context.
func (b *Builder) Context(key string, value any) *Builder {
	if b.context == nil {
		b.context = make(map[string]any)
	}
	b.context[key] = value
	return b
}

// Build finalizes the Error.
func (b *Builder) Build() *Error {
	return &Error{
		Err:       b.err,
		Category:  b.category,
		Context:   b.context,
		Timestamp: time.Now(),
	}
}

// CategoryOf reports the category of err if it (or something it wraps) is a
// *Error, and whether one was found.
func CategoryOf(err error) (Category, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Category, true
	}
	return "", false
}

// Is is a thin re-export of the standard library's errors.Is for callers
// that only import this package.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As is a thin re-export of the standard library's errors.As.
func As(err error, target any) bool { return stderrors.As(err, target) }
