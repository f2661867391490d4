// Package hwtest runs the board acceptance sequence: each status LED and
// the buzzer individually, then every LED at once through a single batch
// request. All waits go through an injected sleep so the sequence is
// testable without wall-clock time.
package hwtest

import (
	"context"
	"time"

	"github.com/gasguard/gasguard-hwcheck/internal/gpio"
)

// Hold and settle times of the acceptance sequence. The level must stay
// applied long enough to be seen (or heard) by the operator.
const (
	lineHold   = time.Second
	lineSettle = 500 * time.Millisecond
	batchHold  = 2 * time.Second
	setHold    = 10 * time.Millisecond
)

// Pins maps the board's actuators to line offsets.
type Pins struct {
	Green  int
	Yellow int
	Red    int
	Buzzer int
}

// Result is the outcome of one sequence step.
type Result struct {
	Name    string `json:"name"`
	Offsets []int  `json:"gpio"`
	Passed  bool   `json:"passed"`
	Error   string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

func (r *Result) fail(err error) {
	r.Passed = false
	r.Err = err
	r.Error = err.Error()
}

// Sequencer drives the acceptance steps against one chip.
type Sequencer struct {
	Controller *gpio.Controller
	Chip       string
	Consumer   string
	// Sleep performs the holds between level changes; nil means time.Sleep.
	Sleep func(time.Duration)
	// Report receives human-readable progress lines; nil discards them.
	Report func(format string, args ...any)
}

func (s *Sequencer) sleep(d time.Duration) {
	if s.Sleep != nil {
		s.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (s *Sequencer) reportf(format string, args ...any) {
	if s.Report != nil {
		s.Report(format, args...)
	}
}

// TestLine switches a single actuator on, holds it, switches it off and
// releases the line. The line is re-acquired per step so a failure in one
// step never leaves lines owned for the rest of the sequence.
func (s *Sequencer) TestLine(name string, offset int) Result {
	res := Result{Name: name, Offsets: []int{offset}, Passed: true}
	s.reportf("Testing %s (GPIO %d)...", name, offset)

	req, err := s.Controller.Request(s.Chip, s.Consumer, []gpio.LineConfig{{Offset: offset, Value: gpio.Active}})
	if err != nil {
		res.fail(err)
		return res
	}
	s.reportf("%s ON", name)
	s.sleep(lineHold)

	if err := req.SetValue(offset, gpio.Inactive); err != nil {
		res.fail(err)
		_ = req.Release()
		return res
	}
	s.reportf("%s OFF", name)

	if err := req.Release(); err != nil {
		res.fail(err)
		return res
	}
	s.sleep(lineSettle)
	return res
}

// TestAllLEDs lights every LED through one batch request so they switch in
// lock-step, holds, then extinguishes them one by one before releasing.
func (s *Sequencer) TestAllLEDs(pins Pins) Result {
	offsets := []int{pins.Green, pins.Yellow, pins.Red}
	res := Result{Name: "All LEDs", Offsets: offsets, Passed: true}
	s.reportf("Testing all LEDs simultaneously...")

	configs := make([]gpio.LineConfig, len(offsets))
	for i, o := range offsets {
		configs[i] = gpio.LineConfig{Offset: o, Value: gpio.Active}
	}
	req, err := s.Controller.Request(s.Chip, s.Consumer, configs)
	if err != nil {
		res.fail(err)
		return res
	}
	s.reportf("All LEDs ON")
	s.sleep(batchHold)

	for _, o := range offsets {
		if err := req.SetValue(o, gpio.Inactive); err != nil {
			res.fail(err)
			_ = req.Release()
			return res
		}
	}
	s.reportf("All LEDs OFF")

	if err := req.Release(); err != nil {
		res.fail(err)
	}
	return res
}

// Run executes the full board sequence. A failing step is recorded and the
// sequence moves on, so one broken actuator does not mask the state of the
// others. Cancelling ctx stops the sequence between steps.
func (s *Sequencer) Run(ctx context.Context, pins Pins) []Result {
	steps := []func() Result{
		func() Result { return s.TestLine("Green LED", pins.Green) },
		func() Result { return s.TestLine("Yellow LED", pins.Yellow) },
		func() Result { return s.TestLine("Red LED", pins.Red) },
		func() Result { return s.TestLine("Buzzer", pins.Buzzer) },
		func() Result { return s.TestAllLEDs(pins) },
	}

	results := make([]Result, 0, len(steps))
	for _, step := range steps {
		if ctx.Err() != nil {
			break
		}
		results = append(results, step())
	}
	return results
}

// Set drives one line to v, holding ownership just long enough for the
// level to be applied before the line is released again.
func (s *Sequencer) Set(offset int, v gpio.Value) error {
	req, err := s.Controller.Request(s.Chip, s.Consumer, []gpio.LineConfig{{Offset: offset, Value: v}})
	if err != nil {
		return err
	}
	s.sleep(setHold)
	return req.Release()
}
