package scenario

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/zeusync/grab/internal/config"
	"github.com/zeusync/grab/internal/core/events/bus"
	"github.com/zeusync/grab/internal/core/interaction"
	"github.com/zeusync/grab/internal/core/interaction/manipulables"
	"github.com/zeusync/grab/internal/core/spatial"
)

const defaultTolerance = 0.05

// eventLog counts bus events per type and per scene name mentioned in them.
type eventLog struct {
	mu     sync.Mutex
	byType map[string]int
	byName map[string]map[string]int
}

func (l *eventLog) record(e bus.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.byType == nil {
		l.byType = make(map[string]int)
		l.byName = make(map[string]map[string]int)
	}
	l.byType[e.Type()]++
	for _, name := range mentions(e) {
		counts := l.byName[name]
		if counts == nil {
			counts = make(map[string]int)
			l.byName[name] = counts
		}
		counts[e.Type()]++
	}
	return nil
}

func (l *eventLog) count(name, eventType string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.byName[name][eventType]
}

func (l *eventLog) types() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(l.byType))
	for k, v := range l.byType {
		out[k] = v
	}
	return out
}

// mentions lists the distinct names an event refers to.
func mentions(e bus.Event) []string {
	names := []string{e.Source()}
	switch d := e.Data().(type) {
	case interaction.ManipulationEvent:
		names = append(names, d.Manipulator, d.Manipulable, d.Target)
	case manipulables.SelectionEvent:
		names = append(names, d.Manipulable, d.Manipulator)
	case string:
		names = append(names, d)
	}
	out := names[:0]
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup || n == "" {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// eventType accepts the short manipulation event names, e.g. "tap".
func eventType(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return "manipulator." + name
}

// Result is the outcome of one expectation.
type Result struct {
	Object string `json:"object"`
	Check  string `json:"check"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Report summarizes a scenario run.
type Report struct {
	Scenario   string         `json:"scenario"`
	Frames     uint64         `json:"frames"`
	FixedSteps uint64         `json:"fixed_steps"`
	SimTime    float64        `json:"sim_time"`
	Events     map[string]int `json:"events"`
	Results    []Result       `json:"results"`
}

// Passed reports whether every expectation held.
func (r *Report) Passed() bool {
	return len(r.Failures()) == 0
}

func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

func (s *Scene) report() *Report {
	m := s.sched.GetMetrics()
	r := &Report{
		Scenario:   s.spec.Name,
		Frames:     m.Frames,
		FixedSteps: m.FixedSteps,
		SimTime:    s.sched.Now(),
		Events:     s.events.types(),
	}
	for _, e := range s.spec.Expect {
		r.Results = append(r.Results, s.check(e)...)
	}
	return r
}

func (s *Scene) check(e config.Expectation) []Result {
	var out []Result
	add := func(check string, passed bool, format string, args ...any) {
		out = append(out, Result{Object: e.Object, Check: check, Passed: passed, Detail: fmt.Sprintf(format, args...)})
	}
	tol := e.Tolerance
	if tol <= 0 {
		tol = defaultTolerance
	}
	n := s.nodes[e.Object]

	if e.Count != nil {
		t := eventType(e.Event)
		got := s.events.count(e.Object, t)
		add("count "+t, got == *e.Count, "want %d, got %d", *e.Count, got)
	}
	if n == nil {
		if e.Destroyed != nil || e.Selected != nil || e.Value != nil || e.Position != nil {
			add("state", false, "template objects have no scene state")
		}
		return out
	}
	if e.Destroyed != nil {
		got := n.IsDestroyed()
		add("destroyed", got == *e.Destroyed, "want %t, got %t", *e.Destroyed, got)
	}
	if e.Selected != nil {
		sel, ok := behaviourOf[*manipulables.Selectable](n)
		switch {
		case !ok:
			add("selected", false, "not selectable")
		default:
			got := sel.IsSelected()
			add("selected", got == *e.Selected, "want %t, got %t", *e.Selected, got)
		}
	}
	if e.Value != nil {
		v, ok := behaviourOf[interface{ Value() float64 }](n)
		switch {
		case !ok:
			add("value", false, "no slider")
		default:
			got := v.Value()
			add("value", math.Abs(got-*e.Value) <= tol, "want %.3f±%.3f, got %.3f", *e.Value, tol, got)
		}
	}
	if e.Position != nil {
		got := n.Position()
		d := spatial.Distance(got, e.Position.Vec())
		add("position", d <= tol, "want %v±%.3f, got %v", e.Position.Vec(), tol, got)
	}
	return out
}

// behaviourOf finds the first manipulable under n whose behaviour is a T.
func behaviourOf[T any](n *spatial.Node) (T, bool) {
	for _, mb := range spatial.ComponentsInChildren[*interaction.Manipulable](n) {
		if b, ok := mb.Behavior().(T); ok {
			return b, true
		}
	}
	var zero T
	return zero, false
}
