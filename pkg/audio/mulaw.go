package audio

// G.711 μ-law, used by clients that stream compressed microphone audio.

const (
	muLawBias = 0x84
	muLawClip = 32635
)

// muLawTable maps every μ-law byte to its linear 16-bit value. It is filled
// once at start-up and never written again.
var muLawTable = func() (t [256]int16) {
	for i := range t {
		u := ^byte(i)
		exp := (u >> 4) & 0x07
		mant := int32(u & 0x0f)
		v := ((mant << 3) + muLawBias) << exp
		v -= muLawBias
		if u&0x80 != 0 {
			v = -v
		}
		t[i] = int16(v)
	}
	return t
}()

// MuLawDecode expands one μ-law byte.
func MuLawDecode(b byte) int16 {
	return muLawTable[b]
}

// MuLawEncode compresses one 16-bit sample.
func MuLawEncode(pcm int16) byte {
	s := int32(pcm)
	var sign byte
	if s < 0 {
		sign = 0x80
		s = -s
	}
	if s > muLawClip {
		s = muLawClip
	}
	s += muLawBias

	exp := byte(7)
	for e, limit := byte(0), int32(0xff); e < 8; e, limit = e+1, limit<<1|1 {
		if s <= limit {
			exp = e
			break
		}
	}
	mant := byte(s>>(exp+3)) & 0x0f
	return ^(sign | exp<<4 | mant)
}

// MuLawToFloat32 decodes μ-law bytes straight into mono samples in [-1,1).
func MuLawToFloat32(data []byte) []float32 {
	out := make([]float32, len(data))
	for i, b := range data {
		out[i] = float32(muLawTable[b]) / 32768
	}
	return out
}

// Float32ToMuLaw encodes samples, clamping to [-1,1].
func Float32ToMuLaw(samples []float32) []byte {
	out := make([]byte, len(samples))
	for i, s := range samples {
		out[i] = MuLawEncode(floatToS16(s))
	}
	return out
}
