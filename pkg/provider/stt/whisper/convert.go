package whisper

import "encoding/binary"

// sampleAt decodes the 16-bit signed little-endian sample starting at byte
// offset i, normalised to [-1.0, 1.0].
func sampleAt(pcm []byte, i int) float32 {
	return float32(int16(binary.LittleEndian.Uint16(pcm[i:i+2]))) / 32768.0
}

// pcmToFloat32 converts 16-bit signed little-endian PCM audio to normalised
// float32 samples. A trailing odd byte is silently ignored.
func pcmToFloat32(pcm []byte) []float32 {
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		samples[i] = sampleAt(pcm, i*2)
	}
	return samples
}

// pcmToFloat32Mono down-mixes interleaved multi-channel 16-bit PCM to mono
// by averaging the channels of each frame. With a single channel it degrades
// to pcmToFloat32.
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 1 {
		return pcmToFloat32(pcm)
	}
	frames := len(pcm) / (2 * channels)
	mono := make([]float32, frames)
	for i := range mono {
		var sum float32
		for ch := range channels {
			sum += sampleAt(pcm, (i*channels+ch)*2)
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
