//go:build !cgo

package capture

import "fmt"

// GstScreenBackend is unavailable without cgo; use a fake Backend in tests.
type GstScreenBackend struct{}

func NewGstScreenBackend() *GstScreenBackend { return &GstScreenBackend{} }

func (b *GstScreenBackend) Start(emit func(Frame)) error {
	return fmt.Errorf("capture: built without cgo, screen capture is unavailable")
}

func (b *GstScreenBackend) Stop() {}
