package objectstore

import (
	"context"

	"github.com/vibedata/platform/pkg/errors"
)

// Disabled is the Client used when remote storage is not configured.
// Coordinators that can run without a remote take a Client dependency
// unconditionally; this implementation turns every call into a remote
// error the caller can surface or count.
type Disabled struct{}

func (Disabled) List(context.Context, string) ([]Object, error) {
	return nil, errDisabled()
}

func (Disabled) Stat(context.Context, string, string) (*Object, error) {
	return nil, errDisabled()
}

func (Disabled) Get(context.Context, string, string) ([]byte, error) {
	return nil, errDisabled()
}

func (Disabled) Put(context.Context, string, string, []byte) error {
	return errDisabled()
}

func errDisabled() error {
	return errors.New(errors.ErrorTypeRemote, "remote storage is disabled")
}
