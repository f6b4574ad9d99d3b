// Package repository reconciles the backend with local state: batches
// against the offline store, custom supplies against an in-memory
// snapshot, and the read-only supply catalog against the cache.
package repository

import (
	"errors"
	"fmt"

	"restock-sync/internal/config"
	"restock-sync/internal/remote"
)

// WritePolicy decides what a write does when the backend call fails
type WritePolicy string

const (
	// PolicySurface returns the failure to the caller and leaves local state untouched
	PolicySurface WritePolicy = config.WritePolicySurface
	// PolicyOptimisticLocal records the edit locally and returns the optimistic record
	PolicyOptimisticLocal WritePolicy = config.WritePolicyOptimisticLocal
)

func ParseWritePolicy(value string) (WritePolicy, error) {
	switch WritePolicy(value) {
	case PolicySurface, PolicyOptimisticLocal:
		return WritePolicy(value), nil
	default:
		return "", fmt.Errorf("unknown write policy %q", value)
	}
}

// keepsLocalCopy reports whether a failed write becomes an optimistic local record.
// A malformed 2xx answer means the backend may already hold the write, so it is never duplicated locally.
func (p WritePolicy) keepsLocalCopy(err error) bool {
	return p == PolicyOptimisticLocal && !errors.Is(err, remote.ErrMalformedResponse)
}
