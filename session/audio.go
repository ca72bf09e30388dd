package session

import "encoding/binary"

var muLawToPcmTable [256]int16

func init() {
	for i := 0; i < 256; i++ {
		muLawToPcmTable[i] = decodeMuLawByte(byte(i))
	}
}

// muLawToPCM16k converts Twilio's 8kHz mu-law to 16kHz 16-bit LE PCM by
// decoding each byte and writing the sample twice.
func muLawToPCM16k(muLaw []byte) []byte {
	pcm := make([]byte, len(muLaw)*4)
	for i, b := range muLaw {
		s := uint16(muLawToPcmTable[b])
		binary.LittleEndian.PutUint16(pcm[i*4:], s)
		binary.LittleEndian.PutUint16(pcm[i*4+2:], s)
	}
	return pcm
}

// pcm24kToMuLaw converts Gemini's 24kHz 16-bit LE PCM to 8kHz mu-law by
// keeping every third sample.
func pcm24kToMuLaw(pcm []byte) []byte {
	samples := len(pcm) / 2
	out := make([]byte, 0, samples/3+1)
	for i := 0; i < samples; i += 3 {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out = append(out, pcmToMuLawByte(s))
	}
	return out
}

// G.711 mu-law, after the Sun Microsystems reference implementation.
func decodeMuLawByte(u byte) int16 {
	u = ^u
	sign := u & 0x80
	exponent := (u >> 4) & 0x07
	mantissa := u & 0x0F

	sample := int16((int32(mantissa)<<3 + 0x84) << exponent)
	sample -= 0x84

	if sign != 0 {
		return -sample
	}
	return sample
}

func pcmToMuLawByte(pcm int16) byte {
	const (
		bias = 0x84
		clip = 32635
	)

	sign := (pcm >> 8) & 0x80
	if pcm < 0 {
		if pcm == -32768 {
			pcm = clip
		} else {
			pcm = -pcm
		}
	}
	if pcm > clip {
		pcm = clip
	}
	pcm += bias

	exponent := 7
	for mask := 0x4000; (pcm&int16(mask)) == 0 && exponent > 0; mask >>= 1 {
		exponent--
	}
	mantissa := (pcm >> (exponent + 3)) & 0x0F

	return ^byte(sign | (int16(exponent) << 4) | mantissa)
}
