package filter

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Tunable block/threshold constants from spec.md §4.3. Kept as named
// constants rather than inline literals so their provenance is traceable.
const (
	// AGCBlockTarget is the number of equal sub-blocks the AGC stage
	// divides a frame's per-channel samples into.
	AGCBlockTarget = 10

	// AGCTriggerLevel is the RMS threshold above which the AGC computes a
	// new target gain from signal level rather than holding steady.
	AGCTriggerLevel = 0.003

	// AGCPeakLimit is the post-AGC absolute-sample ceiling; anything above
	// it causes the whole frame to be scaled back down.
	AGCPeakLimit = 0.75

	attackTimeConstant = 0.0001 // seconds
	releaseTimeConstant = 0.002 // seconds
	holdTimeConstant     = 0.001 // seconds

	defaultTargetDBFS = -12.0
	defaultMaxGainDB  = 12.0
)

// Config carries the construction-time parameters for a VoiceFilterChain.
type Config struct {
	SampleRate   int
	Channels     int
	FrameSamples int // total interleaved samples per Process call

	HighPassHz float64 // HPF cutoff; 0 makes the HPF a pass-through
	LowPassHz  float64 // LPF cutoff; 0 makes the LPF a pass-through

	// TargetDBFS and MaxGainDB configure the AGC stage. Zero values take
	// the package defaults (-12 dBFS, +12 dB).
	TargetDBFS float64
	MaxGainDB  float64
}

func (c Config) samplesPerChannel() int {
	return c.FrameSamples / c.Channels
}

type hpfState struct {
	lastInput, lastOutput float32
}

type lpfState struct {
	lastOutput float32
}

type agcState struct {
	currentGain float32
	holdCounter int
}

// VoiceFilterChain applies, in fixed order, a first-order high-pass filter,
// a first-order low-pass filter, and a block-wise AGC with attack/release
// and a hold counter, followed by a peak limiter. Operates in place on
// int16 PCM via an internal float32 scratch buffer.
type VoiceFilterChain struct {
	cfg Config

	hpfAlpha float32
	lpfAlpha float32

	attackCoeff  float32
	releaseCoeff float32
	holdSamples  int

	targetLinear  float32
	maxGainLinear float32

	hpf []hpfState
	lpf []lpfState
	agc []agcState

	scratch []float32
}

// NewVoiceFilterChain constructs a chain for the given configuration.
// HighPassHz/LowPassHz select the HPF/LPF cutoffs; TargetDBFS/MaxGainDB of
// zero use the package defaults (-12 dBFS, +12 dB).
func NewVoiceFilterChain(cfg Config) (*VoiceFilterChain, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("filter: sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.Channels <= 0 {
		return nil, fmt.Errorf("filter: channels must be positive, got %d", cfg.Channels)
	}
	if cfg.FrameSamples <= 0 || cfg.FrameSamples%cfg.Channels != 0 {
		return nil, fmt.Errorf("filter: frame samples %d must be a positive multiple of channels %d", cfg.FrameSamples, cfg.Channels)
	}
	if cfg.TargetDBFS == 0 {
		cfg.TargetDBFS = defaultTargetDBFS
	}
	if cfg.MaxGainDB == 0 {
		cfg.MaxGainDB = defaultMaxGainDB
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewVoiceFilterChain",
		"sample_rate": cfg.SampleRate,
		"channels":    cfg.Channels,
		"hpf_hz":      cfg.HighPassHz,
		"lpf_hz":      cfg.LowPassHz,
		"target_dbfs": cfg.TargetDBFS,
		"max_gain_db": cfg.MaxGainDB,
	}).Info("Creating voice filter chain")

	c := &VoiceFilterChain{cfg: cfg}
	c.recomputeCoefficients()
	c.resetState()

	return c, nil
}

func (c *VoiceFilterChain) recomputeCoefficients() {
	rate := float64(c.cfg.SampleRate)
	dt := 1.0 / rate

	if c.cfg.HighPassHz > 0 {
		rc := 1.0 / (2 * math.Pi * c.cfg.HighPassHz)
		c.hpfAlpha = float32(rc / (rc + dt))
	} else {
		c.hpfAlpha = 1.0 // pass-through: with alpha=1, y_n = y_{n-1} + x_n - x_{n-1} reduces to y_n = x_n from zero state
	}
	if c.cfg.LowPassHz > 0 {
		rc := 1.0 / (2 * math.Pi * c.cfg.LowPassHz)
		c.lpfAlpha = float32(dt / (rc + dt))
	} else {
		c.lpfAlpha = 1.0
	}

	c.attackCoeff = float32(1 - math.Exp(-1/(attackTimeConstant*rate)))
	c.releaseCoeff = float32(1 - math.Exp(-1/(releaseTimeConstant*rate)))
	c.holdSamples = int(math.Round(holdTimeConstant * rate))

	c.targetLinear = float32(math.Pow(10, c.cfg.TargetDBFS/10))
	c.maxGainLinear = float32(math.Pow(10, c.cfg.MaxGainDB/10))
}

func (c *VoiceFilterChain) resetState() {
	c.hpf = make([]hpfState, c.cfg.Channels)
	c.lpf = make([]lpfState, c.cfg.Channels)
	c.agc = make([]agcState, c.cfg.Channels)
	for i := range c.agc {
		c.agc[i].currentGain = 1.0
	}
	c.scratch = make([]float32, c.cfg.FrameSamples)
}

// Reconfigure changes the sample rate/channel/frame-size/cutoff parameters
// and resets all per-channel state, as required when a stream's Profile
// changes. Not safe to call concurrently with Process.
func (c *VoiceFilterChain) Reconfigure(cfg Config) error {
	if cfg.SampleRate <= 0 || cfg.Channels <= 0 || cfg.FrameSamples <= 0 || cfg.FrameSamples%cfg.Channels != 0 {
		return fmt.Errorf("filter: invalid reconfigure parameters: %+v", cfg)
	}
	if cfg.TargetDBFS == 0 {
		cfg.TargetDBFS = defaultTargetDBFS
	}
	if cfg.MaxGainDB == 0 {
		cfg.MaxGainDB = defaultMaxGainDB
	}

	logrus.WithFields(logrus.Fields{
		"function":    "VoiceFilterChain.Reconfigure",
		"sample_rate": cfg.SampleRate,
		"channels":    cfg.Channels,
	}).Info("Reconfiguring voice filter chain")

	c.cfg = cfg
	c.recomputeCoefficients()
	c.resetState()
	return nil
}

// Process runs the HPF -> LPF -> AGC -> peak-limiter chain in place on pcm,
// which must have exactly FrameSamples interleaved int16 samples. This is
// called from the real-time capture callback: it performs no allocation
// and no logging.
func (c *VoiceFilterChain) Process(pcm []int16) error {
	if len(pcm) != c.cfg.FrameSamples {
		return ErrSizeMismatch
	}

	for i, s := range pcm {
		c.scratch[i] = float32(s) / 32768.0
	}

	c.applyHPF(c.scratch)
	c.applyLPF(c.scratch)
	c.applyAGC(c.scratch)

	for i, v := range c.scratch {
		pcm[i] = floatToInt16(v)
	}
	return nil
}

func (c *VoiceFilterChain) applyHPF(buf []float32) {
	ch := c.cfg.Channels
	perChannel := len(buf) / ch
	for cIdx := 0; cIdx < ch; cIdx++ {
		st := &c.hpf[cIdx]
		for n := 0; n < perChannel; n++ {
			idx := n*ch + cIdx
			x := buf[idx]
			y := c.hpfAlpha * (st.lastOutput + x - st.lastInput)
			buf[idx] = y
			st.lastInput = x
			st.lastOutput = y
		}
	}
}

func (c *VoiceFilterChain) applyLPF(buf []float32) {
	ch := c.cfg.Channels
	perChannel := len(buf) / ch
	for cIdx := 0; cIdx < ch; cIdx++ {
		st := &c.lpf[cIdx]
		for n := 0; n < perChannel; n++ {
			idx := n*ch + cIdx
			x := buf[idx]
			y := c.lpfAlpha*x + (1-c.lpfAlpha)*st.lastOutput
			buf[idx] = y
			st.lastOutput = y
		}
	}
}

// applyAGC splits the per-channel samples into AGCBlockTarget equal
// blocks, folding any remainder into the final block (rather than
// truncating it), and runs the attack/hold/release update per block.
func (c *VoiceFilterChain) applyAGC(buf []float32) {
	ch := c.cfg.Channels
	perChannel := len(buf) / ch

	blockCount := AGCBlockTarget
	if perChannel < blockCount {
		blockCount = 1
	}
	base := perChannel / blockCount
	remainder := perChannel - base*blockCount

	start := 0
	for b := 0; b < blockCount; b++ {
		length := base
		if b == blockCount-1 {
			length += remainder
		}
		c.applyAGCBlock(buf, start, length)
		start += length
	}

	c.applyPeakLimiter(buf)
}

func (c *VoiceFilterChain) applyAGCBlock(buf []float32, start, length int) {
	if length == 0 {
		return
	}
	ch := c.cfg.Channels
	for cIdx := 0; cIdx < ch; cIdx++ {
		st := &c.agc[cIdx]

		var sumSq float64
		for n := 0; n < length; n++ {
			v := float64(buf[(start+n)*ch+cIdx])
			sumSq += v * v
		}
		rms := math.Sqrt(sumSq / float64(length))

		target := st.currentGain
		if rms > AGCTriggerLevel {
			target = float32(math.Min(float64(c.targetLinear)/rms, float64(c.maxGainLinear)))
		}

		if target < st.currentGain {
			st.currentGain = c.attackCoeff*target + (1-c.attackCoeff)*st.currentGain
			st.holdCounter = c.holdSamples
		} else {
			st.holdCounter -= length
			if st.holdCounter <= 0 {
				st.currentGain = c.releaseCoeff*target + (1-c.releaseCoeff)*st.currentGain
			}
		}

		gain := st.currentGain
		for n := 0; n < length; n++ {
			idx := (start+n)*ch + cIdx
			buf[idx] *= gain
		}
	}
}

// applyPeakLimiter scans each channel's absolute peak and, if any exceeds
// AGCPeakLimit, scales the entire frame by AGCPeakLimit/peak.
func (c *VoiceFilterChain) applyPeakLimiter(buf []float32) {
	ch := c.cfg.Channels
	perChannel := len(buf) / ch

	var peak float32
	for cIdx := 0; cIdx < ch; cIdx++ {
		for n := 0; n < perChannel; n++ {
			v := buf[n*ch+cIdx]
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
	}

	if peak > AGCPeakLimit {
		scale := AGCPeakLimit / peak
		for i := range buf {
			buf[i] *= scale
		}
	}
}

func floatToInt16(v float32) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	scaled := float64(v) * 32767.0
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return int16(math.Round(scaled))
}
