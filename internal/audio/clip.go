package audio

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1

	// Below this RMS (on a 16-bit scale) a recording is treated as silence.
	DefaultSilenceRMS = 120.0
)

// Clip is little-endian signed 16-bit PCM.
type Clip struct {
	SampleRate int
	Channels   int
	PCM        []byte
}

// Samples decodes the PCM bytes. A trailing odd byte is ignored.
func (c Clip) Samples() []int {
	out := make([]int, len(c.PCM)/2)
	for i := range out {
		out[i] = int(int16(binary.LittleEndian.Uint16(c.PCM[i*2:])))
	}
	return out
}

func (c Clip) Duration() time.Duration {
	rate, ch := c.SampleRate, c.Channels
	if rate <= 0 || ch <= 0 {
		return 0
	}
	frames := len(c.PCM) / 2 / ch
	return time.Duration(frames) * time.Second / time.Duration(rate)
}

// RMS is the root mean square amplitude over all samples.
func (c Clip) RMS() float64 {
	samples := c.Samples()
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Silent reports whether the clip holds no usable speech. threshold <= 0
// uses DefaultSilenceRMS.
func (c Clip) Silent(threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultSilenceRMS
	}
	return len(c.PCM) < 2 || c.RMS() < threshold
}

func clipFromSamples(samples []int, rate, channels int) Clip {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > math.MaxInt16 {
			s = math.MaxInt16
		} else if s < math.MinInt16 {
			s = math.MinInt16
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(s)))
	}
	return Clip{SampleRate: rate, Channels: channels, PCM: pcm}
}
