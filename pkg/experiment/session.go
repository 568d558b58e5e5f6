package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-fixate/pkg/clock"
	"github.com/teslashibe/go-fixate/pkg/debug"
	"github.com/teslashibe/go-fixate/pkg/geom"
	"github.com/teslashibe/go-fixate/pkg/protocol"
	"github.com/teslashibe/go-fixate/pkg/script"
	"github.com/teslashibe/go-fixate/pkg/state"
	"github.com/teslashibe/go-fixate/pkg/xy"
)

// Outcome is how a state activation ended.
type Outcome string

const (
	OutcomeAcquired  Outcome = "acquired"  // acquire target dwell reached
	OutcomeTimeout   Outcome = "timeout"   // state duration elapsed
	OutcomeCondition Outcome = "condition" // exit_when became true
	OutcomeEscaped   Outcome = "escaped"   // escape or cancellation
	OutcomeBypassed  Outcome = "bypassed"
)

// TrialRecord is one finished state activation.
type TrialRecord struct {
	Session    string  `json:"session"`
	Experiment string  `json:"experiment"`
	Block      int     `json:"block"`
	Trial      int     `json:"trial"`
	State      string  `json:"state"`
	Outcome    Outcome `json:"outcome"`
	Start      float64 `json:"start"`    // seconds since session start
	Duration   float64 `json:"duration"` // seconds the state was active
	Dwell      float64 `json:"dwell"`    // acquire target dwell at exit
	Next       string  `json:"next,omitempty"`
}

// Display draws one frame per tick. term.Screen implements it.
type Display interface {
	Clear()
	DrawTarget(name string, r geom.Rect, active bool)
	DrawCursor(x, y float64, valid bool)
	DrawText(text string)
	Flip()
}

// Feedback plays named tones. audio.Speaker implements it.
type Feedback interface {
	Play(tone string) error
}

// GazeObserver receives a snapshot of the gaze and every target once per tick.
type GazeObserver interface {
	ObserveGaze(g protocol.GazeData)
}

// Option configures Build.
type Option func(*Session)

// WithDisplay draws every frame on d.
func WithDisplay(d Display) Option {
	return func(s *Session) { s.display = d }
}

// WithFeedback plays state tones on f.
func WithFeedback(f Feedback) Option {
	return func(s *Session) { s.feedback = f }
}

// WithObserver adds a per-tick gaze observer.
func WithObserver(o GazeObserver) Option {
	return func(s *Session) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithListener adds a state transition listener.
func WithListener(l state.Listener) Option {
	return func(s *Session) {
		if l != nil {
			s.listeners = append(s.listeners, l)
		}
	}
}

// WithTimeSource drives every clock in the session from ts.
func WithTimeSource(ts clock.TimeSource) Option {
	return func(s *Session) {
		if ts != nil {
			s.time = ts
		}
	}
}

// WithWait replaces the frame pacing sleep. Tests pass a function that
// advances a manual clock.
func WithWait(wait func(time.Duration)) Option {
	return func(s *Session) { s.wait = wait }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// Session is a runnable experiment. Run it from one goroutine.
type Session struct {
	ID  string
	Def *Definition

	pipeline *xy.Pipeline
	source   xy.Source
	sampler  xy.Sampler
	targets  []*xy.Target
	outlines map[string]geom.Rect
	states   map[string]*state.State
	task     *state.Task

	display   Display
	feedback  Feedback
	observers []GazeObserver
	listeners []state.Listener
	time      clock.TimeSource
	wait      func(time.Duration)
	logger    *slog.Logger

	clk       *clock.Clock
	lastFrame time.Time
	block     int
	records   []TrialRecord
	act       activation
	err       error
}

// activation is the bookkeeping for the state currently running.
type activation struct {
	start     float64
	condition bool
}

// Build creates a session for def reading positions from src.
func Build(def *Definition, src xy.Source, opts ...Option) (*Session, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil definition", ErrInvalidConfig)
	}
	if src == nil {
		return nil, fmt.Errorf("experiment: %w: nil source", xy.ErrTypeMismatch)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		ID:       uuid.NewString(),
		Def:      def,
		source:   src,
		outlines: make(map[string]geom.Rect, len(def.Targets)),
		states:   make(map[string]*state.State, len(def.States)),
		time:     clock.System,
		wait:     time.Sleep,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "experiment", "session", s.ID)
	s.clk = clock.New(s.time)

	xyOpts := []xy.Option{xy.WithTimeSource(s.time), xy.WithLogger(s.logger)}
	if err := s.buildPipeline(xyOpts); err != nil {
		return nil, err
	}
	if err := s.buildStates(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) buildPipeline(xyOpts []xy.Option) error {
	def := s.Def
	switch def.Sampler.Kind {
	case "pass":
		s.sampler = xy.NewPassSampler(s.source)
	default:
		ms, err := xy.NewMissingSampler(s.source, *def.Sampler.MaxMissing, xyOpts...)
		if err != nil {
			return fmt.Errorf("%w: sampler: %w", ErrInvalidConfig, err)
		}
		if def.Sampler.AllowMissing != nil {
			ms.SetAllowMissing(*def.Sampler.AllowMissing)
		}
		s.sampler = ms
	}

	s.pipeline = xy.NewPipeline(xyOpts...)
	components := []xy.Component{s.source, s.sampler}
	for i := range def.Targets {
		td := &def.Targets[i]
		b, err := td.bounds(def.Screen)
		if err != nil {
			return fmt.Errorf("%w: target %q: %w", ErrInvalidConfig, td.Name, err)
		}
		t, err := xy.NewTarget(td.Name, s.sampler, b, xyOpts...)
		if err != nil {
			return err
		}
		if td.Duration != nil {
			if err := t.SetDuration(*td.Duration); err != nil {
				return fmt.Errorf("%w: target %q: %w", ErrInvalidConfig, td.Name, err)
			}
		}
		s.targets = append(s.targets, t)
		s.outlines[td.Name] = td.outline()
		components = append(components, t)
	}
	if _, err := s.pipeline.AddAll(components...); err != nil {
		return err
	}
	return nil
}

func (s *Session) buildStates() error {
	def := s.Def
	stOpts := []state.Option{state.WithTimeSource(s.time), state.WithLogger(s.logger)}

	for i := range def.States {
		sd := &def.States[i]
		st := state.New(sd.Name, stOpts...)
		// An absent duration means the state runs until another condition ends it.
		d := math.Inf(1)
		if sd.Duration != nil {
			d = *sd.Duration
		}
		if err := st.SetDuration(d); err != nil {
			return fmt.Errorf("%w: state %q: %w", ErrInvalidConfig, sd.Name, err)
		}
		st.SetBypassed(sd.Bypass)
		s.states[sd.Name] = st
	}

	vars := scriptVarDecls(def.Targets)
	for i := range def.States {
		sd := &def.States[i]
		st := s.states[sd.Name]

		if sd.Next != "" {
			st.Next(s.states[sd.Next])
		}
		if sd.Acquire != "" {
			t := s.pipeline.Target(sd.Acquire)
			st.AddExitCondition(t.IsDurationMet)
		}
		if sd.ExitWhen != "" {
			cond, err := script.Compile(sd.ExitWhen, vars)
			if err != nil {
				return fmt.Errorf("%w: state %q exit_when: %w", ErrInvalidConfig, sd.Name, err)
			}
			st.AddExitCondition(s.scriptCondition(st, cond))
		}

		st.OnEntry(func(st *state.State) { s.enter(sd, st) })
		st.OnLoop(func(st *state.State) { s.tick(sd, st) })
		st.OnExit(func(st *state.State) { s.exit(sd, st) })
		st.OnBypass(func(st *state.State) { s.bypass(sd, st) })
	}

	s.task = state.NewTask(def.Name, stOpts...)
	if def.MaxDuration != nil {
		if err := s.task.SetDuration(*def.MaxDuration); err != nil {
			return fmt.Errorf("%w: max_duration: %w", ErrInvalidConfig, err)
		}
	}
	for _, l := range s.listeners {
		s.task.AddListener(l)
	}
	return nil
}

// scriptCondition adapts a compiled exit_when expression to a state condition.
// An evaluation error ends the state; Exit then aborts the run with it.
func (s *Session) scriptCondition(st *state.State, cond *script.Condition) state.Condition {
	return func() bool {
		ok, err := cond.Eval(s.scriptVars(st))
		if err != nil {
			s.err = fmt.Errorf("state %q: %w", st.Name(), err)
			return true
		}
		if ok {
			s.act.condition = true
		}
		return ok
	}
}

func (s *Session) enter(sd *StateDef, st *state.State) {
	s.act = activation{start: s.clk.Elapsed()}
	for _, t := range s.targets {
		t.Reset()
	}
	s.play(sd.Tones.Entry)
}

func (s *Session) tick(sd *StateDef, st *state.State) {
	if err := s.pipeline.Update(); err != nil {
		st.Abort(err)
		return
	}
	s.render(sd, st)
	s.observe(st)
	s.pace()
}

func (s *Session) exit(sd *StateDef, st *state.State) {
	if s.err != nil {
		err := s.err
		s.err = nil
		st.Abort(err)
		return
	}

	outcome := s.outcome(sd, st)
	next := sd.Next
	switch {
	case outcome == OutcomeAcquired && sd.OnAcquired != "":
		next = sd.OnAcquired
	case outcome == OutcomeTimeout && sd.OnTimeout != "":
		next = sd.OnTimeout
	}
	st.Next(s.states[next])
	debug.Log("branch", "state", sd.Name, "outcome", outcome, "next", next)

	var dwell float64
	if sd.Acquire != "" {
		dwell = s.pipeline.Target(sd.Acquire).Cumulative()
	}
	s.record(TrialRecord{
		State:    sd.Name,
		Outcome:  outcome,
		Start:    s.act.start,
		Duration: st.Elapsed(),
		Dwell:    dwell,
		Next:     next,
	})

	switch outcome {
	case OutcomeAcquired:
		s.play(sd.Tones.Acquired)
	case OutcomeTimeout:
		s.play(sd.Tones.Timeout)
	}
}

func (s *Session) bypass(sd *StateDef, st *state.State) {
	st.Next(s.states[sd.Next])
	s.record(TrialRecord{
		State:   sd.Name,
		Outcome: OutcomeBypassed,
		Start:   s.clk.Elapsed(),
		Next:    sd.Next,
	})
}

// outcome classifies why st is exiting.
func (s *Session) outcome(sd *StateDef, st *state.State) Outcome {
	switch {
	case st.Escaped():
		return OutcomeEscaped
	case sd.Acquire != "" && s.pipeline.Target(sd.Acquire).IsDurationMet():
		return OutcomeAcquired
	case s.act.condition:
		return OutcomeCondition
	case !math.IsInf(st.Duration(), 1) && st.Elapsed() >= st.Duration():
		return OutcomeTimeout
	}
	return OutcomeEscaped
}

func (s *Session) record(r TrialRecord) {
	r.Session = s.ID
	r.Experiment = s.Def.Name
	r.Block = s.block
	r.Trial = len(s.records) + 1
	s.records = append(s.records, r)
	s.logger.Info("trial",
		"block", r.Block,
		"trial", r.Trial,
		"state", r.State,
		"outcome", r.Outcome,
		"duration", r.Duration,
		"dwell", r.Dwell,
	)
}

func (s *Session) play(tone string) {
	if tone == "" || s.feedback == nil {
		return
	}
	if err := s.feedback.Play(tone); err != nil {
		s.logger.Warn("tone failed", "tone", tone, "error", err)
	}
}

func (s *Session) render(sd *StateDef, st *state.State) {
	if s.display == nil {
		return
	}
	s.display.Clear()
	shown := sd.Show
	if len(shown) == 0 && sd.Acquire != "" {
		shown = []string{sd.Acquire}
	}
	for _, name := range shown {
		t := s.pipeline.Target(name)
		s.display.DrawTarget(name, s.outlines[name], t.IsInBounds())
	}
	smp := s.sampler.Sample()
	s.display.DrawCursor(smp.X, smp.Y, smp.Valid)
	s.display.DrawText(fmt.Sprintf("%s  block %d  %s  %.2fs", s.Def.Name, s.block, st.Name(), st.Elapsed()))
	s.display.Flip()
}

func (s *Session) observe(st *state.State) {
	if len(s.observers) == 0 {
		return
	}
	smp := s.sampler.Sample()
	g := protocol.GazeData{
		Valid:   smp.Valid,
		State:   st.Name(),
		Targets: make([]protocol.TargetData, len(s.targets)),
	}
	// Invalid positions are NaN, which JSON cannot carry.
	if smp.Valid {
		g.X, g.Y = smp.X, smp.Y
	}
	for i, t := range s.targets {
		g.Targets[i] = protocol.TargetData{
			Name:       t.Name(),
			InBounds:   t.IsInBounds(),
			Cumulative: t.Cumulative(),
			Met:        t.IsDurationMet(),
		}
	}
	for _, o := range s.observers {
		o.ObserveGaze(g)
	}
}

// pace waits until one frame interval has passed since the previous frame.
func (s *Session) pace() {
	interval := s.Def.FrameInterval
	now := s.time.Now()
	if interval > 0 && !s.lastFrame.IsZero() {
		if d := s.lastFrame.Add(interval).Sub(now); d > 0 {
			s.wait(d)
		}
	}
	s.lastFrame = s.time.Now()
}

// scriptVars returns the values exit_when expressions can read.
func (s *Session) scriptVars(st *state.State) map[string]any {
	smp := s.sampler.Sample()
	in := make(map[string]any, len(s.targets))
	dwell := make(map[string]any, len(s.targets))
	met := make(map[string]any, len(s.targets))
	for _, t := range s.targets {
		in[t.Name()] = t.IsInBounds()
		dwell[t.Name()] = t.Cumulative()
		met[t.Name()] = t.IsDurationMet()
	}
	return map[string]any{
		"elapsed": st.Elapsed(),
		"x":       smp.X,
		"y":       smp.Y,
		"valid":   smp.Valid,
		"trial":   len(s.records),
		"in":      in,
		"dwell":   dwell,
		"met":     met,
	}
}

// scriptVarDecls declares every exit_when variable with a zero value.
func scriptVarDecls(targets []TargetDef) map[string]any {
	in := make(map[string]any, len(targets))
	dwell := make(map[string]any, len(targets))
	met := make(map[string]any, len(targets))
	for _, t := range targets {
		in[t.Name] = false
		dwell[t.Name] = 0.0
		met[t.Name] = false
	}
	return map[string]any{
		"elapsed": 0.0,
		"x":       0.0,
		"y":       0.0,
		"valid":   false,
		"trial":   0,
		"in":      in,
		"dwell":   dwell,
		"met":     met,
	}
}

// RunBlock runs the task once from the start state.
func (s *Session) RunBlock(ctx context.Context) error {
	s.block++
	s.logger.Info("block started", "block", s.block, "start", s.Def.Start)
	err := s.task.Run(ctx, s.states[s.Def.Start])
	s.logger.Info("block finished", "block", s.block, "trials", len(s.records), "error", err)
	return err
}

// Run runs every block in the definition, stopping at the first error.
func (s *Session) Run(ctx context.Context) error {
	for s.block < s.Def.Blocks {
		if err := s.RunBlock(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Block returns the number of blocks started.
func (s *Session) Block() int { return s.block }

// Pipeline returns the session's sampling pipeline.
func (s *Session) Pipeline() *xy.Pipeline { return s.pipeline }

// Task returns the task that sequences the states.
func (s *Session) Task() *state.Task { return s.task }

// State returns the named state, or nil.
func (s *Session) State(name string) *state.State { return s.states[name] }

// Records returns a copy of the trial records so far.
func (s *Session) Records() []TrialRecord {
	out := make([]TrialRecord, len(s.records))
	copy(out, s.records)
	return out
}

// WriteResults writes every trial record as one JSON object per line.
func (s *Session) WriteResults(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, r := range s.records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("experiment: write results: %w", err)
		}
	}
	return nil
}
