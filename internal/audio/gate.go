package audio

import "time"

// GateState is the speech gate's current state.
type GateState int

const (
	// GateSilence is the initial state: no speech in progress.
	GateSilence GateState = iota
	// GateSpeech means an utterance is in progress.
	GateSpeech
)

// Minimum absolute thresholds. Even over a very quiet noise floor the gate
// will not trigger on sub-noise energy.
const (
	minSpeechThreshold  = 1e-4
	minSilenceThreshold = 5e-5
)

// maxTickDelta absorbs pauses and debugger stalls between ticks.
const maxTickDelta = time.Second

// GateConfig holds the tunable thresholds of the speech gate.
// SpeechMultiplier must exceed SilenceMultiplier: the band between the two
// derived thresholds is the hysteresis zone where dwell accumulators hold
// their value instead of resetting.
type GateConfig struct {
	SpeechMultiplier  float64
	SilenceMultiplier float64
	SpeechStartHold   time.Duration
	SpeechEndHold     time.Duration
}

// DefaultGateConfig returns the default gate tuning.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		SpeechMultiplier:  2.5,
		SilenceMultiplier: 1.5,
		SpeechStartHold:   200 * time.Millisecond,
		SpeechEndHold:     500 * time.Millisecond,
	}
}

// SpeechGate decides when speech starts and ends. It is a two-state machine
// with noise-floor-relative thresholds and minimum dwell times on both
// transitions. Callers feed it (rms, noiseFloor, delta) each tick; only the
// gate itself mutates its state.
//
// Owned by the processor loop; not safe for concurrent use.
type SpeechGate struct {
	cfg   GateConfig
	state GateState

	speechAccum  time.Duration
	silenceAccum time.Duration

	// OnSpeechStart and OnSpeechEnd fire synchronously inside Update when
	// the corresponding transition is confirmed. Either may be nil.
	OnSpeechStart func()
	OnSpeechEnd   func()
}

// NewSpeechGate creates a gate in the Silence state.
func NewSpeechGate(cfg GateConfig) *SpeechGate {
	return &SpeechGate{cfg: cfg}
}

// Update advances the gate by one tick. delta is the elapsed time since the
// previous tick; it is capped at one second. Returns true when the state
// changed during this tick.
func (g *SpeechGate) Update(rms, noiseFloor float64, delta time.Duration) bool {
	if noiseFloor <= 0 {
		return false
	}
	if delta > maxTickDelta {
		delta = maxTickDelta
	}
	if delta < 0 {
		delta = 0
	}

	speechThreshold := g.SpeechThreshold(noiseFloor)
	silenceThreshold := g.SilenceThreshold(noiseFloor)

	switch g.state {
	case GateSilence:
		switch {
		case rms >= speechThreshold:
			g.speechAccum += delta
			if g.speechAccum >= g.cfg.SpeechStartHold {
				g.transition(GateSpeech, g.OnSpeechStart)
				return true
			}
		case rms < silenceThreshold:
			// False alarm: decay only below the lower threshold.
			g.speechAccum = 0
		}
		// Between thresholds the accumulator holds (hysteresis).

	case GateSpeech:
		switch {
		case rms < silenceThreshold:
			g.silenceAccum += delta
			if g.silenceAccum >= g.cfg.SpeechEndHold {
				g.transition(GateSilence, g.OnSpeechEnd)
				return true
			}
		case rms >= speechThreshold:
			g.silenceAccum = 0
		}
	}

	return false
}

// IsSpeaking reports whether the gate is in the Speech state.
func (g *SpeechGate) IsSpeaking() bool {
	return g.state == GateSpeech
}

// State returns the current gate state.
func (g *SpeechGate) State() GateState {
	return g.state
}

// SpeechThreshold is the enter threshold for the given noise floor.
func (g *SpeechGate) SpeechThreshold(noiseFloor float64) float64 {
	return max(noiseFloor*g.cfg.SpeechMultiplier, minSpeechThreshold)
}

// SilenceThreshold is the exit threshold for the given noise floor.
func (g *SpeechGate) SilenceThreshold(noiseFloor float64) float64 {
	return max(noiseFloor*g.cfg.SilenceMultiplier, minSilenceThreshold)
}

// Reset forces the Silence state with zeroed accumulators.
func (g *SpeechGate) Reset() {
	g.state = GateSilence
	g.speechAccum = 0
	g.silenceAccum = 0
}

func (g *SpeechGate) transition(to GateState, event func()) {
	g.state = to
	g.speechAccum = 0
	g.silenceAccum = 0
	if event != nil {
		event()
	}
}
