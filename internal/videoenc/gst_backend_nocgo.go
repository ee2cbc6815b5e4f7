//go:build !cgo

package videoenc

import "fmt"

// newBackend on a non-cgo build cannot drive GStreamer; mirrors the
// teacher's audio_stream_nocgo.go / mic_stream_nocgo.go pattern of a
// build-tag-gated stub that fails fast with a clear message instead of
// silently no-oping.
func newBackend() (backend, error) {
	return nil, fmt.Errorf("videoenc: built without cgo, GStreamer encoding is unavailable")
}
