package videoenc

// H.264 NAL unit type values relevant to config synthesis and IDR detection.
const (
	nalTypeSlice    = 1
	nalTypeIDR      = 5
	nalTypeSEI      = 6
	nalTypeSPS      = 7
	nalTypePPS      = 8
	nalTypeAUD      = 9
	nalTypeTypeMask = 0x1F
)

func nalType(nal []byte) int {
	if len(nal) == 0 {
		return -1
	}
	return int(nal[0]) & nalTypeTypeMask
}

// normalizeNAL strips a leading 4-byte or 3-byte Annex B start code. If
// neither is present but the first 4 bytes parse as a plausible length
// field pointing within the remainder of the buffer, those 4 bytes are
// dropped too (an existing AVCC length prefix). Returns nil for an
// effectively-empty NAL.
func normalizeNAL(nal []byte) []byte {
	switch {
	case len(nal) >= 4 && nal[0] == 0 && nal[1] == 0 && nal[2] == 0 && nal[3] == 1:
		nal = nal[4:]
	case len(nal) >= 3 && nal[0] == 0 && nal[1] == 0 && nal[2] == 1:
		nal = nal[3:]
	case len(nal) >= 4:
		length := int(nal[0])<<24 | int(nal[1])<<16 | int(nal[2])<<8 | int(nal[3])
		if length >= 0 && length <= len(nal)-4 {
			nal = nal[4:]
		}
	}
	if len(nal) == 0 {
		return nil
	}
	return nal
}

// collectNALs splits a buffer of encoder output that may mix NALs
// separated by either 4-byte or 3-byte Annex B start codes into individual
// normalized NAL units, dropping any that end up empty.
func collectNALs(raw []byte) [][]byte {
	starts := findStartCodes(raw)
	var nals [][]byte
	for i, start := range starts {
		end := len(raw)
		if i+1 < len(starts) {
			end = starts[i+1].offset
		}
		chunk := raw[start.offset:end]
		if n := normalizeNAL(chunk); n != nil {
			nals = append(nals, n)
		}
	}
	if len(starts) == 0 {
		if n := normalizeNAL(raw); n != nil {
			nals = append(nals, n)
		}
	}
	return nals
}

type startCode struct {
	offset int
	length int
}

// findStartCodes locates every Annex B start code (4- or 3-byte) in raw.
func findStartCodes(raw []byte) []startCode {
	var out []startCode
	for i := 0; i+2 < len(raw); i++ {
		if raw[i] == 0 && raw[i+1] == 0 {
			if i+3 < len(raw) && raw[i+2] == 0 && raw[i+3] == 1 {
				out = append(out, startCode{offset: i, length: 4})
				i += 3
				continue
			}
			if raw[i+2] == 1 {
				out = append(out, startCode{offset: i, length: 3})
				i += 2
			}
		}
	}
	return out
}

// buildAVCCConfig synthesizes the AVCC decoder configuration record from
// one SPS and one PPS NAL (each without start code/length prefix), per
// spec.md §4.3's byte layout.
func buildAVCCConfig(sps, pps []byte) []byte {
	out := make([]byte, 0, 11+len(sps)+len(pps))
	out = append(out, 0x01)                     // configurationVersion
	out = append(out, sps[1], sps[2], sps[3])    // profile, compat, level
	out = append(out, 0xFF)                     // lengthSizeMinusOne = 3
	out = append(out, 0xE1)                     // numSPS = 1
	out = append(out, byte(len(sps)>>8), byte(len(sps)))
	out = append(out, sps...)
	out = append(out, 0x01) // numPPS = 1
	out = append(out, byte(len(pps)>>8), byte(len(pps)))
	out = append(out, pps...)
	return out
}
