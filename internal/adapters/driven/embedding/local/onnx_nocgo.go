//go:build !cgo

package local

import "github.com/custodia-labs/chatrag/internal/core/domain"

// unavailableRuntime is used by binaries built without cgo.
type unavailableRuntime struct{}

// DefaultRuntime returns a runtime that always fails to open models.
func DefaultRuntime() Runtime {
	return unavailableRuntime{}
}

func (unavailableRuntime) Open(string, int) (Session, error) {
	return nil, domain.ErrLocalRuntimeUnavailable
}
