//go:build !cgo

package audiodecode

import "fmt"

func decodeAstiav(path string) (*DecodedAudio, error) {
	return nil, fmt.Errorf("audiodecode: built without cgo, astiav decoding is unavailable")
}
