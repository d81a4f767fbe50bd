package audio

// G.711 mu-law companding constants.
const (
	muLawBias = 0x84
	muLawClip = 32635
)

// DecodeMuLaw expands 8-bit mu-law bytes to linear int16 samples.
func DecodeMuLaw(data []byte) []int16 {
	if len(data) == 0 {
		return nil
	}
	samples := make([]int16, len(data))
	for i, b := range data {
		samples[i] = muLawToLinear(b)
	}
	return samples
}

// EncodeMuLaw compands linear int16 samples to 8-bit mu-law bytes.
func EncodeMuLaw(samples []int16) []byte {
	if len(samples) == 0 {
		return nil
	}
	data := make([]byte, len(samples))
	for i, s := range samples {
		data[i] = linearToMuLaw(s)
	}
	return data
}

func muLawToLinear(u byte) int16 {
	u = ^u
	sign := u & 0x80
	exp := (u >> 4) & 0x07
	mant := u & 0x0F
	value := (int(mant) << 3) + muLawBias
	value <<= uint(exp)
	value -= muLawBias
	if sign != 0 {
		return int16(-value)
	}
	return int16(value)
}

func linearToMuLaw(sample int16) byte {
	s := int(sample)
	sign := byte(0)
	if s < 0 {
		s = -s
		sign = 0x80
	}
	if s > muLawClip {
		s = muLawClip
	}
	s += muLawBias

	exp := byte(7)
	for mask := 0x4000; (s&mask) == 0 && exp > 0; mask >>= 1 {
		exp--
	}
	mant := byte(s>>(exp+3)) & 0x0F
	return ^(sign | exp<<4 | mant)
}
