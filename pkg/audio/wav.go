// Package audio provides WAV container validation and PCM conversion helpers
// for the Voicegate transcription pipeline.
//
// The gateway accepts exactly one audio format on its batch surfaces: a WAV
// container holding 16 kHz mono 16-bit signed little-endian PCM. Anything else
// is rejected with [ErrUnsupportedFormat] before the decoder is touched.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Expected audio format for all batch audio payloads.
const (
	// SampleRate is the required sample rate in Hz.
	SampleRate = 16000

	// Channels is the required channel count (mono).
	Channels = 1

	// BitDepth is the required sample width in bits.
	BitDepth = 16
)

// ErrNotWAV is returned when the payload is not a parseable RIFF/WAVE container.
var ErrNotWAV = errors.New("audio: payload is not a valid WAV container")

// ErrUnsupportedFormat is returned when the container parses but the audio
// inside is not 16 kHz mono 16-bit PCM.
var ErrUnsupportedFormat = errors.New("audio: unsupported audio format")

// Info describes the decoded properties of a WAV payload.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// DecodeWAV validates data as a 16 kHz mono 16-bit PCM WAV container and
// returns the raw little-endian PCM bytes together with format info.
//
// The whole container is validated up front; no partial PCM is returned on
// format errors.
func DecodeWAV(data []byte) ([]byte, Info, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, Info{}, ErrNotWAV
	}

	info := Info{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	if info.SampleRate != SampleRate || info.Channels != Channels || info.BitDepth != BitDepth {
		return nil, info, fmt.Errorf("%w: got %dHz %dch %dbit, want %dHz %dch %dbit",
			ErrUnsupportedFormat,
			info.SampleRate, info.Channels, info.BitDepth,
			SampleRate, Channels, BitDepth,
		)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, info, fmt.Errorf("audio: read PCM data: %w", err)
	}
	if d, err := dec.Duration(); err == nil {
		info.Duration = d
	}

	return intBufferToPCM16LE(buf), info, nil
}

// EncodeWAV wraps raw 16-bit little-endian mono PCM bytes in a WAV container
// at the given sample rate. Used by tests and tooling to build fixtures.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}

	dataSize := uint32(len(pcm))
	byteRate := uint32(sampleRate * Channels * BitDepth / 8)
	blockAlign := uint16(Channels * BitDepth / 8)

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36)+dataSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, uint16(BitDepth))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	buf.Write(pcm)

	return buf.Bytes()
}

// PCMDuration returns the playback duration of raw 16-bit mono PCM bytes at
// the given sample rate.
func PCMDuration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	samples := len(pcm) / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// intBufferToPCM16LE flattens a decoded PCM buffer into 16-bit little-endian
// bytes. Values outside the int16 range are clamped.
func intBufferToPCM16LE(buf *gaudio.IntBuffer) []byte {
	if buf == nil {
		return nil
	}
	out := make([]byte, len(buf.Data)*2)
	for i, v := range buf.Data {
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}
