package audio

// Upsample2x doubles the sample rate of PCM speech audio. Even output
// samples pass the input through; odd samples are interpolated with a
// 4-point Catmull-Rom kernel, which suppresses the imaging artifacts a
// naive sample-duplication upsampler would introduce.
func Upsample2x(samples []int16) []int16 {
	if len(samples) == 0 {
		return nil
	}

	out := make([]int16, len(samples)*2)
	for i, s := range samples {
		out[i*2] = s

		// Midpoint between samples[i] and samples[i+1].
		s0 := int32(at(samples, i-1))
		s1 := int32(s)
		s2 := int32(at(samples, i+1))
		s3 := int32(at(samples, i+2))
		out[i*2+1] = clamp16((-s0 + 9*s1 + 9*s2 - s3) / 16)
	}
	return out
}

// Decimate3x drops the sample rate by a factor of three, keeping every
// third sample. The voice model's 24 kHz output carries little speech
// energy above 4 kHz, so plain decimation is acceptable here.
func Decimate3x(samples []int16) []int16 {
	if len(samples) == 0 {
		return nil
	}
	out := make([]int16, 0, (len(samples)+2)/3)
	for i := 0; i < len(samples); i += 3 {
		out = append(out, samples[i])
	}
	return out
}

// MuLawToPCM16k converts 8 kHz mu-law telephony audio to the 16 kHz
// linear PCM16 the voice model expects.
func MuLawToPCM16k(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	return SamplesToBytes(Upsample2x(DecodeMuLaw(data)))
}

// PCM24kToMuLaw converts the voice model's 24 kHz linear PCM16 output to
// 8 kHz mu-law for the telephony leg.
func PCM24kToMuLaw(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	return EncodeMuLaw(Decimate3x(BytesToSamples(data)))
}

// at reads samples[i], clamping the index to the slice bounds.
func at(samples []int16, i int) int16 {
	if i < 0 {
		return samples[0]
	}
	if i >= len(samples) {
		return samples[len(samples)-1]
	}
	return samples[i]
}

func clamp16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
