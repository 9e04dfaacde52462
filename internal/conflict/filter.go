package conflict

import (
	"fmt"
	"strings"

	"docflow/internal/services"
	"docflow/internal/store"
)

// Filter selects conflicts by status for listing.
type Filter string

const (
	FilterPending   Filter = "pending"
	FilterResolved  Filter = "resolved"
	FilterCancelled Filter = "cancelled"
	FilterAll       Filter = "all"
)

// ParseFilter accepts the filter names used by the CLI and API. An empty
// value means pending.
func ParseFilter(raw string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(raw)))
	if f == "" {
		return FilterPending, nil
	}
	if _, err := f.status(); err != nil {
		return "", err
	}
	return f, nil
}

func (f Filter) status() (store.ConflictStatus, error) {
	switch f {
	case FilterPending, "":
		return store.ConflictPending, nil
	case FilterResolved:
		return store.ConflictResolved, nil
	case FilterCancelled:
		return store.ConflictCancelled, nil
	case FilterAll:
		return "", nil
	default:
		return "", services.Wrap(services.ErrValidation, "conflict", "filter",
			fmt.Sprintf("unknown filter %q (want pending, resolved, cancelled or all)", string(f)), nil)
	}
}
