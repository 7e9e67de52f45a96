package pipeline

// AudioMediaType describes how the bytes in AudioData.Data are encoded.
type AudioMediaType string

const (
	// AudioMediaTypeRaw is interleaved signed 16-bit little-endian PCM.
	AudioMediaTypeRaw AudioMediaType = "audio/x-raw"
	// AudioMediaTypeFloat32 is interleaved 32-bit float little-endian PCM.
	AudioMediaTypeFloat32 AudioMediaType = "audio/x-raw-f32"
	// AudioMediaTypeMuLaw is mono G.711 μ-law, one byte per sample.
	AudioMediaTypeMuLaw AudioMediaType = "audio/x-mulaw"
	// AudioMediaTypeSamples means the frame is already decoded into
	// AudioData.Samples (mono float32) and Data is unused.
	AudioMediaTypeSamples AudioMediaType = "audio/x-samples"
)

// String returns the string representation of AudioMediaType
func (amt AudioMediaType) String() string {
	return string(amt)
}
