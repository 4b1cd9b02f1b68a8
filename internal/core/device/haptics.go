package device

import (
	"errors"
	"fmt"
)

// HapticEffect identifies a waveform the device can play. A value with the high bit set
// is a pause whose low seven bits count 10 ms units.
type HapticEffect uint8

const (
	StrongClick100 HapticEffect = iota + 1
	StrongClick60
	StrongClick30
	SharpClick100
	SharpClick60
	SharpClick30
	SoftBump100
	SoftBump60
	SoftBump30
	DoubleClick100
	DoubleClick60
	TripleClick100
	SoftFuzz60
	StrongBuzz100
	Alert750ms100
	Alert1000ms100
	StrongClick1_100
	StrongClick2_80
	StrongClick3_60
	StrongClick4_30
	MediumClick1_100
	MediumClick2_80
	MediumClick3_60
	SharpTick1_100
	SharpTick2_80
	SharpTick3_60
)

const (
	Buzz1_100            HapticEffect = 47
	PulsingSharp1_100    HapticEffect = 56
	TransitionClick1_100 HapticEffect = 58
	TransitionHum4_40    HapticEffect = 67
	// RampDownShortSmooth50 fades from 50% to nothing.
	RampDownShortSmooth50 HapticEffect = 98
	// RampUpShortSmooth50 rises from nothing to 50%.
	RampUpShortSmooth50 HapticEffect = 110
	LongBuzz100         HapticEffect = 118
	SmoothHum5_10       HapticEffect = 123
)

const delayFlag = 0x80

var ErrInvalidDelay = errors.New("haptic delay must be 1 to 127 units of 10ms")

var effectNames = map[HapticEffect]string{
	StrongClick100: "strong_click_100", StrongClick60: "strong_click_60", StrongClick30: "strong_click_30",
	SharpClick100: "sharp_click_100", SharpClick60: "sharp_click_60", SharpClick30: "sharp_click_30",
	SoftBump100: "soft_bump_100", SoftBump60: "soft_bump_60", SoftBump30: "soft_bump_30",
	DoubleClick100: "double_click_100", DoubleClick60: "double_click_60", TripleClick100: "triple_click_100",
	SoftFuzz60: "soft_fuzz_60", StrongBuzz100: "strong_buzz_100",
	Alert750ms100: "alert_750ms_100", Alert1000ms100: "alert_1000ms_100",
	StrongClick1_100: "strong_click_1_100", StrongClick2_80: "strong_click_2_80",
	StrongClick3_60: "strong_click_3_60", StrongClick4_30: "strong_click_4_30",
	MediumClick1_100: "medium_click_1_100", MediumClick2_80: "medium_click_2_80", MediumClick3_60: "medium_click_3_60",
	SharpTick1_100: "sharp_tick_1_100", SharpTick2_80: "sharp_tick_2_80", SharpTick3_60: "sharp_tick_3_60",
	Buzz1_100: "buzz_1_100", PulsingSharp1_100: "pulsing_sharp_1_100", TransitionClick1_100: "transition_click_1_100",
	TransitionHum4_40: "transition_hum_4_40", RampDownShortSmooth50: "ramp_down_short_smooth_50_to_0",
	RampUpShortSmooth50: "ramp_up_short_smooth_0_to_50", LongBuzz100: "long_buzz_100", SmoothHum5_10: "smooth_hum_5_10",
}

// Delay returns the pause of units × 10 ms.
func Delay(units uint8) (HapticEffect, error) {
	if units == 0 || units > 127 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDelay, units)
	}
	return HapticEffect(delayFlag | units), nil
}

// IsDelay reports whether e is a pause rather than a waveform.
func (e HapticEffect) IsDelay() bool { return e&delayFlag != 0 }

// DelayMillis is the length of a pause, zero for waveforms.
func (e HapticEffect) DelayMillis() int {
	if !e.IsDelay() {
		return 0
	}
	return int(e&^delayFlag) * 10
}

func (e HapticEffect) String() string {
	if e.IsDelay() {
		return fmt.Sprintf("delay_%dms", e.DelayMillis())
	}
	if name, ok := effectNames[e]; ok {
		return name
	}
	return fmt.Sprintf("effect_%d", uint8(e))
}

// HapticPlayer plays effects in order on the physical device.
type HapticPlayer interface {
	PlayHapticEffects(effects ...HapticEffect) error
}

// HapticRecorder is a HapticPlayer keeping everything it was asked to play.
type HapticRecorder struct {
	Played []HapticEffect
}

func (r *HapticRecorder) PlayHapticEffects(effects ...HapticEffect) error {
	r.Played = append(r.Played, effects...)
	return nil
}
