package audio

import "time"

// Twilio Media Streams expects outbound audio as 20 ms mu-law frames:
// 8000 samples/s * 0.020 s * 1 byte/sample.
const (
	FrameBytes    = 160
	FrameDuration = 20 * time.Millisecond
)

// Frames splits a mu-law byte stream into FrameBytes-sized frames for
// paced playback. The final partial frame, if any, is emitted as-is
// (never padded or dropped), so frames always concatenate back to the
// original stream.
func Frames(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}
	frames := make([][]byte, 0, (len(data)+FrameBytes-1)/FrameBytes)
	for i := 0; i < len(data); i += FrameBytes {
		end := i + FrameBytes
		if end > len(data) {
			end = len(data)
		}
		frames = append(frames, data[i:end])
	}
	return frames
}
