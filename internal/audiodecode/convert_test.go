package audiodecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvertF32ToI16Rounds(t *testing.T) {
	frames := [][]float32{{1.0, -1.0, 0.5, 1.5, -1.5}}
	out := convertF32ToI16(frames, 1)
	require.Equal(t, []int16{32767, -32767, 16384, 32767, -32767}, out)
}

func TestConvertF32ToI16DuplicatesLastChannel(t *testing.T) {
	mono := [][]float32{{0.5}}
	out := convertF32ToI16(mono, 2)
	require.Len(t, out, 2)
	require.Equal(t, out[0], out[1])
}

func TestConvertS16ToI16Passthrough(t *testing.T) {
	stereo := [][]int16{{1, 2, 3}, {4, 5, 6}}
	out := convertS16ToI16(stereo, 2)
	require.Equal(t, []int16{1, 4, 2, 5, 3, 6}, out)
}

func TestConvertS32ToI16ShiftsRight(t *testing.T) {
	frames := [][]int32{{1 << 20}}
	out := convertS32ToI16(frames, 1)
	require.Equal(t, []int16{1 << 4}, out)
}

func TestConvertChannelDuplicationWhenSourceMono(t *testing.T) {
	mono := [][]int16{{100}}
	out := convertS16ToI16(mono, 2)
	require.Equal(t, []int16{100, 100}, out)
}
