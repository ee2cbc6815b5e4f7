package wire

import (
	"encoding/binary"
	"fmt"
)

// EncodeAVCC concatenates nals, each prefixed with its 4-byte big-endian
// byte length, producing the binary video wire message. An empty nals
// slice yields an empty (zero-length) message.
func EncodeAVCC(nals [][]byte) []byte {
	total := 0
	for _, n := range nals {
		total += 4 + len(n)
	}
	out := make([]byte, 0, total)
	for _, n := range nals {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(n)))
		out = append(out, lenBuf[:]...)
		out = append(out, n...)
	}
	return out
}

// DecodeAVCC splits a `u32_be length || NAL bytes` message back into its
// constituent NAL units. It returns an error if the message is truncated
// or a length field overruns the remaining buffer.
func DecodeAVCC(data []byte) ([][]byte, error) {
	var nals [][]byte
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, fmt.Errorf("avcc: truncated length prefix (%d bytes left)", len(data))
		}
		n := binary.BigEndian.Uint32(data[:4])
		data = data[4:]
		if uint64(n) > uint64(len(data)) {
			return nil, fmt.Errorf("avcc: length %d exceeds remaining %d bytes", n, len(data))
		}
		nals = append(nals, data[:n])
		data = data[n:]
	}
	return nals, nil
}
