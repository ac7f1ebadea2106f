package domain

import "time"

const (
	CaptureSampleRate  = 16000
	PlaybackSampleRate = 24000
	CaptureBlockSize   = 4096
	CaptureMIMEType    = "audio/pcm;rate=16000"
)

// PlaybackChunk is a decoded buffer scheduled once on the speaker clock.
type PlaybackChunk struct {
	Samples    []float32
	SampleRate int
	Start      time.Duration
}

// Duration is the playback length of the chunk.
func (c PlaybackChunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// End is the time at which the chunk finishes playing.
func (c PlaybackChunk) End() time.Duration {
	return c.Start + c.Duration()
}
