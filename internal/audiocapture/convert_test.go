package audiocapture

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSampleToI16Clamps(t *testing.T) {
	require.Equal(t, int16(32767), sampleToI16(1.0))
	require.Equal(t, int16(32767), sampleToI16(2.0))
	require.Equal(t, int16(-32768), sampleToI16(-1.5))
	require.Equal(t, int16(0), sampleToI16(0))
}

func TestMixdownToMonoAverages(t *testing.T) {
	stereo := []int16{100, 300, -100, -300}
	mono := mixdownToMono(stereo, 2)
	require.Equal(t, []int16{200, -200}, mono)
}

func TestMixdownToMonoPassthroughWhenAlreadyMono(t *testing.T) {
	in := []int16{1, 2, 3}
	out := mixdownToMono(in, 1)
	require.Equal(t, in, out)
}

func TestMixdownToMonoSaturates(t *testing.T) {
	stereo := []int16{32767, 32767}
	mono := mixdownToMono(stereo, 2)
	require.Equal(t, []int16{32767}, mono)
}
