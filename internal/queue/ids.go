package queue

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDAllocator mints opaque, monotonically increasing-within-boot queue
// entry IDs by concatenating a per-boot nonce with an incrementing
// counter (spec.md §4.C "ID allocation").
type IDAllocator struct {
	boot    string
	counter uint64
}

// NewIDAllocator mints a fresh boot nonce via google/uuid, as
// flowpbx-flowpbx and rustyguts-bken use it for similarly opaque
// identifiers.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{boot: uuid.NewString()}
}

// Next returns the next opaque ID. IDs are only ordered within one
// IDAllocator (one server boot); clients must not assume cross-boot
// ordering.
func (a *IDAllocator) Next() string {
	n := atomic.AddUint64(&a.counter, 1)
	return fmt.Sprintf("%s-%08x", a.boot, n)
}
