package videoenc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeNALStripsStartCodes(t *testing.T) {
	sps := []byte{0x67, 0x42, 0x00, 0x1f, 0xab}

	with4 := append([]byte{0, 0, 0, 1}, sps...)
	require.Equal(t, sps, normalizeNAL(with4))

	with3 := append([]byte{0, 0, 1}, sps...)
	require.Equal(t, sps, normalizeNAL(with3))

	require.Equal(t, sps, normalizeNAL(sps))
}

func TestNormalizeNALStripsExistingLengthPrefix(t *testing.T) {
	payload := []byte{0x67, 0x42, 0x00, 0x1f}
	lengthPrefixed := []byte{0x00, 0x00, 0x00, byte(len(payload))}
	lengthPrefixed = append(lengthPrefixed, payload...)

	require.Equal(t, payload, normalizeNAL(lengthPrefixed))
}

func TestNormalizeNALEmptyYieldsNil(t *testing.T) {
	require.Nil(t, normalizeNAL(nil))
	require.Nil(t, normalizeNAL([]byte{0, 0, 0, 1}))
}

func TestCollectNALsSplitsMixedStartCodes(t *testing.T) {
	raw := []byte{}
	raw = append(raw, 0, 0, 0, 1, 0x67, 0xAA) // 4-byte start code SPS-ish
	raw = append(raw, 0, 0, 1, 0x68, 0xBB)    // 3-byte start code PPS-ish
	raw = append(raw, 0, 0, 0, 1, 0x65, 0xCC) // IDR

	nals := collectNALs(raw)
	require.Len(t, nals, 3)
	require.Equal(t, nalTypeSPS, nalType(nals[0]))
	require.Equal(t, nalTypePPS, nalType(nals[1]))
	require.Equal(t, nalTypeIDR, nalType(nals[2]))
}

func TestBuildAVCCConfigLayout(t *testing.T) {
	sps := []byte{0x67, 0x42, 0x00, 0x1f, 0xaa, 0xbb}
	pps := []byte{0x68, 0xce, 0x3c, 0x80}

	record := buildAVCCConfig(sps, pps)

	require.Equal(t, byte(0x01), record[0])
	require.Equal(t, sps[1], record[1])
	require.Equal(t, sps[2], record[2])
	require.Equal(t, sps[3], record[3])
	require.Equal(t, byte(0xFF), record[4])
	require.Equal(t, byte(0xE1), record[5])

	spsLen := int(record[6])<<8 | int(record[7])
	require.Equal(t, len(sps), spsLen)
	require.Equal(t, sps, record[8:8+spsLen])

	off := 8 + spsLen
	require.Equal(t, byte(0x01), record[off])
	off++
	ppsLen := int(record[off])<<8 | int(record[off+1])
	require.Equal(t, len(pps), ppsLen)
	off += 2
	require.Equal(t, pps, record[off:off+ppsLen])
}
