package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAVCCRoundTrip(t *testing.T) {
	cases := [][][]byte{
		nil,
		{{0x67, 0x42, 0x00, 0x1f}},
		{{0x67, 0x42}, {0x68, 0xce}, {0x65, 0x88, 0x80}},
		{{}}, // empty NAL is a legal (if odd) entry to round-trip
	}

	for _, nals := range cases {
		encoded := EncodeAVCC(nals)

		// length invariant: sum(reported lengths) == len(encoded) - 4*count
		decoded, err := DecodeAVCC(encoded)
		require.NoError(t, err)
		require.Len(t, decoded, len(nals))

		var sum int
		for _, n := range decoded {
			sum += len(n)
		}
		require.Equal(t, len(encoded)-4*len(nals), sum)

		for i := range nals {
			require.Equal(t, nals[i], decoded[i])
		}
	}
}

func TestDecodeAVCCTruncated(t *testing.T) {
	_, err := DecodeAVCC([]byte{0x00, 0x00, 0x00})
	require.Error(t, err)

	_, err = DecodeAVCC([]byte{0x00, 0x00, 0x00, 0x05, 0x01, 0x02})
	require.Error(t, err)
}

func TestEncodeAVCCConsumesWholeMessage(t *testing.T) {
	nals := [][]byte{
		{0x67, 0x42, 0x00, 0x1f, 0xab},
		{0x68, 0xce, 0x3c, 0x80},
	}
	encoded := EncodeAVCC(nals)
	decoded, err := DecodeAVCC(encoded)
	require.NoError(t, err)
	require.Equal(t, nals, decoded)
}
