package errors

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Batch collects per-unit errors during a batch operation so that one
// failing mod or resource never prevents unrelated units from completing.
// It is safe for concurrent use.
type Batch struct {
	mu   sync.Mutex
	errs []error
}

// Add records an error against the batch. Nil errors are ignored.
func (b *Batch) Add(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	b.errs = append(b.errs, err)
	b.mu.Unlock()
}

// Len returns the number of collected errors.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.errs)
}

// Errors returns the collected errors, sorted by attributed path for a
// stable report order.
func (b *Batch) Errors() []error {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]error, len(b.errs))
	copy(out, b.errs)
	sort.SliceStable(out, func(i, j int) bool {
		return Path(out[i]) < Path(out[j])
	})
	return out
}

// Err returns nil when no errors were collected, otherwise a single error
// summarizing every failure.
func (b *Batch) Err() error {
	errs := b.Errors()
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors occurred:", len(errs))
	for _, err := range errs {
		sb.WriteString("\n  * ")
		sb.WriteString(err.Error())
	}
	return New(ErrInternal, sb.String())
}
