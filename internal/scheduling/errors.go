package scheduling

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"meeting-scheduler/internal/store"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrConfigurationMissing = errors.New("meeting duration is not configured")
	ErrValidation           = errors.New("validation failed")
	ErrSlotTaken            = errors.New("slot is no longer available")
	ErrTransientStore       = errors.New("store unavailable")
)

// ValidationError carries per-field messages keyed by the JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// storeErr translates a store error into the engine taxonomy. what names the
// missing entity for ErrNotFound.
func storeErr(what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	case errors.Is(err, store.ErrDuplicate):
		return invalid(dupField(what), "already exists")
	default:
		return fmt.Errorf("%w: %s: %w", ErrTransientStore, what, err)
	}
}

func dupField(what string) string {
	switch what {
	case "meeting type":
		return "slug"
	case "organizer":
		return "username"
	}
	return what
}
