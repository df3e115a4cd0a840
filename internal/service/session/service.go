package session

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mirrorfield/dust-machines/backend/internal/model/machine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyInput      = errors.New("input is empty")
	ErrInputTooLong    = errors.New("input exceeds length limit")
	ErrBusy            = errors.New("machine is already processing")
	ErrUnknownMachine  = errors.New("unknown machine")
)

// aspirationMaxLen caps dispenser input, matching the front-end widget.
const aspirationMaxLen = 150

// Generator is the gateway the store calls for each submission.
type Generator interface {
	DispenseMission(ctx context.Context, aspiration string, tuning machine.Tuning) (machine.Mission, error)
	Reflect(ctx context.Context, message string, history []machine.ChatTurn) (string, error)
	Transmute(ctx context.Context, burden string) (machine.Transmutation, error)
}

// Config paces the cosmetic label sequence. Zero delays are valid and used
// in tests.
type Config struct {
	StepDelayMin time.Duration
	StepDelayMax time.Duration
}

// Service owns all view state the installation renders from. One session per
// browser tab; everything lives in memory and dies with the process.
//
// Each machine runs an explicit cycle: idle -> input -> processing ->
// resolved (or failed) -> idle. At most one machine per session is
// processing or resolved; activating another machine resets the one being
// left. Overlapping submissions for the same machine are rejected, and a
// result that lands after a reset is discarded via an epoch check.
type Service struct {
	gen Generator
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*state
	subs     map[string]map[int]chan machine.Snapshot
	nextSub  int
}

type state struct {
	id             string
	createdAt      time.Time
	active         machine.Kind
	inputOpen      bool
	infoOpen       bool
	processingStep string
	phases         map[machine.Kind]machine.Phase
	mission        *machine.Mission
	transmutation  *machine.Transmutation
	oracleChat     []machine.ChatTurn
	tuning         machine.Tuning
	epochs         map[machine.Kind]uint64
	inflight       map[machine.Kind]bool
}

// NewService bootstraps the in-memory session store.
func NewService(gen Generator, cfg Config) *Service {
	if cfg.StepDelayMax < cfg.StepDelayMin {
		cfg.StepDelayMax = cfg.StepDelayMin
	}
	return &Service{
		gen:      gen,
		cfg:      cfg,
		sessions: make(map[string]*state),
		subs:     make(map[string]map[int]chan machine.Snapshot),
	}
}

// Create provisions a fresh session with every machine idle.
func (s *Service) Create(_ context.Context) machine.Snapshot {
	st := &state{
		id:         uuid.NewString(),
		createdAt:  time.Now().UTC(),
		phases:     make(map[machine.Kind]machine.Phase),
		oracleChat: machine.SeedOracleChat(),
		tuning:     machine.DefaultTuning(),
		epochs:     make(map[machine.Kind]uint64),
		inflight:   make(map[machine.Kind]bool),
	}
	for _, kind := range machine.Kinds() {
		st.phases[kind] = machine.PhaseIdle
	}

	s.mu.Lock()
	s.sessions[st.id] = st
	snap := snapshotLocked(st)
	s.mu.Unlock()
	return snap
}

// Get returns the current snapshot for a session.
func (s *Service) Get(_ context.Context, id string) (machine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[id]
	if !ok {
		return machine.Snapshot{}, ErrSessionNotFound
	}
	return snapshotLocked(st), nil
}

// Activate makes kind the active machine. The machine being left is always
// reset, so stale results never linger behind a switch. Re-activating the
// current machine is idempotent.
func (s *Service) Activate(_ context.Context, id string, kind machine.Kind) (machine.Snapshot, error) {
	if !kind.Valid() {
		return machine.Snapshot{}, ErrUnknownMachine
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[id]
	if !ok {
		return machine.Snapshot{}, ErrSessionNotFound
	}

	if st.active != "" && st.active != kind {
		s.resetLocked(st, st.active)
	}
	st.active = kind
	st.inputOpen = kind == machine.KindDispenser
	st.infoOpen = false
	if st.phases[kind] == machine.PhaseIdle {
		st.phases[kind] = machine.PhaseInput
	}
	s.notifyLocked(st)
	return snapshotLocked(st), nil
}

// SetInputOpen toggles the dispenser input modal. Closing it cancels back to
// idle; nothing else is touched.
func (s *Service) SetInputOpen(_ context.Context, id string, open bool) (machine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[id]
	if !ok {
		return machine.Snapshot{}, ErrSessionNotFound
	}

	st.inputOpen = open
	if st.active == machine.KindDispenser {
		if open && st.phases[machine.KindDispenser] == machine.PhaseIdle {
			st.phases[machine.KindDispenser] = machine.PhaseInput
		}
		if !open && st.phases[machine.KindDispenser] == machine.PhaseInput {
			st.phases[machine.KindDispenser] = machine.PhaseIdle
		}
	}
	s.notifyLocked(st)
	return snapshotLocked(st), nil
}

// ToggleInfo flips the info overlay.
func (s *Service) ToggleInfo(_ context.Context, id string) (machine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[id]
	if !ok {
		return machine.Snapshot{}, ErrSessionNotFound
	}
	st.infoOpen = !st.infoOpen
	s.notifyLocked(st)
	return snapshotLocked(st), nil
}

// UpdateTuning merges a partial dial change; every dial is clamped to
// [0,100] here rather than trusting the input widgets.
func (s *Service) UpdateTuning(_ context.Context, id string, update machine.TuningUpdate) (machine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[id]
	if !ok {
		return machine.Snapshot{}, ErrSessionNotFound
	}
	st.tuning = st.tuning.Apply(update)
	s.notifyLocked(st)
	return snapshotLocked(st), nil
}

// SubmitAspiration runs the dispenser cycle for the given aspiration.
func (s *Service) SubmitAspiration(ctx context.Context, id, text string) (machine.Snapshot, error) {
	text, err := validateInput(text, aspirationMaxLen)
	if err != nil {
		return machine.Snapshot{}, err
	}

	return s.process(ctx, id, machine.KindDispenser,
		func(ctx context.Context, tuning machine.Tuning, _ []machine.ChatTurn) (commitFn, error) {
			mission, err := s.gen.DispenseMission(ctx, text, tuning)
			if err != nil {
				return nil, err
			}
			return func(st *state) { st.mission = &mission }, nil
		})
}

// SendReflection runs the oracle cycle. The user's turn and the oracle's
// answer are appended together on success, so history always holds complete
// pairs after the seed line.
func (s *Service) SendReflection(ctx context.Context, id, text string) (machine.Snapshot, error) {
	text, err := validateInput(text, 0)
	if err != nil {
		return machine.Snapshot{}, err
	}

	return s.process(ctx, id, machine.KindOracle,
		func(ctx context.Context, _ machine.Tuning, history []machine.ChatTurn) (commitFn, error) {
			answer, err := s.gen.Reflect(ctx, text, history)
			if err != nil {
				return nil, err
			}
			return func(st *state) {
				st.oracleChat = append(st.oracleChat,
					machine.ChatTurn{Role: machine.RoleUser, Content: text},
					machine.ChatTurn{Role: machine.RoleOracle, Content: answer},
				)
			}, nil
		})
}

// TransmuteBurden runs the temple cycle for the given burden.
func (s *Service) TransmuteBurden(ctx context.Context, id, text string) (machine.Snapshot, error) {
	text, err := validateInput(text, 0)
	if err != nil {
		return machine.Snapshot{}, err
	}

	return s.process(ctx, id, machine.KindTemple,
		func(ctx context.Context, _ machine.Tuning, _ []machine.ChatTurn) (commitFn, error) {
			t, err := s.gen.Transmute(ctx, text)
			if err != nil {
				return nil, err
			}
			return func(st *state) { st.transmutation = &t }, nil
		})
}

// Reset clears the machine's result and deactivates it. The oracle's history
// returns to the single seeded opening turn.
func (s *Service) Reset(_ context.Context, id string, kind machine.Kind) (machine.Snapshot, error) {
	if !kind.Valid() {
		return machine.Snapshot{}, ErrUnknownMachine
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[id]
	if !ok {
		return machine.Snapshot{}, ErrSessionNotFound
	}
	s.resetLocked(st, kind)
	s.notifyLocked(st)
	return snapshotLocked(st), nil
}

// OfferAnother clears only the temple's result, keeping the temple active so
// the visitor can lay down the next burden immediately.
func (s *Service) OfferAnother(_ context.Context, id string) (machine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[id]
	if !ok {
		return machine.Snapshot{}, ErrSessionNotFound
	}

	st.transmutation = nil
	st.epochs[machine.KindTemple]++
	st.phases[machine.KindTemple] = machine.PhaseInput
	if st.processingStep != "" && st.active == machine.KindTemple {
		st.processingStep = ""
	}
	s.notifyLocked(st)
	return snapshotLocked(st), nil
}

// Subscribe registers a snapshot feed for the session. The returned cancel
// must be called when the consumer goes away. Slow consumers miss updates
// rather than blocking mutations.
func (s *Service) Subscribe(id string) (<-chan machine.Snapshot, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[id]
	if !ok {
		return nil, nil, ErrSessionNotFound
	}

	ch := make(chan machine.Snapshot, 16)
	key := s.nextSub
	s.nextSub++
	if s.subs[id] == nil {
		s.subs[id] = make(map[int]chan machine.Snapshot)
	}
	s.subs[id][key] = ch

	// Prime with the current view so the consumer never starts blind.
	ch <- snapshotLocked(st)

	cancel := func() {
		s.mu.Lock()
		if m, ok := s.subs[id]; ok {
			delete(m, key)
			if len(m) == 0 {
				delete(s.subs, id)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

type commitFn func(*state)

// invokeFn performs the gateway call with a stable copy of the state the
// submission needs, returning the mutation to apply on success.
type invokeFn func(ctx context.Context, tuning machine.Tuning, history []machine.ChatTurn) (commitFn, error)

// process drives one submission: enter processing, walk the label sequence
// while the gateway call runs concurrently, then commit whichever outcome
// applies. A reset during flight bumps the epoch and the outcome is dropped.
func (s *Service) process(ctx context.Context, id string, kind machine.Kind, invoke invokeFn) (machine.Snapshot, error) {
	steps := processingSteps[kind]

	s.mu.Lock()
	st, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return machine.Snapshot{}, ErrSessionNotFound
	}
	if st.inflight[kind] {
		s.mu.Unlock()
		return machine.Snapshot{}, ErrBusy
	}
	if st.active != "" && st.active != kind {
		s.resetLocked(st, st.active)
	}
	st.active = kind
	st.inflight[kind] = true
	epoch := st.epochs[kind]
	st.inputOpen = false
	st.infoOpen = false
	st.processingStep = steps[0]
	st.phases[kind] = machine.PhaseProcessing
	tuning := st.tuning
	history := append([]machine.ChatTurn(nil), st.oracleChat...)
	s.notifyLocked(st)
	s.mu.Unlock()

	// The real call runs alongside the cosmetic sequence; neither waits on
	// the other until both are done.
	type outcome struct {
		commit commitFn
		err    error
	}
	resultCh := make(chan outcome, 1)
	go func() {
		commit, err := invoke(ctx, tuning, history)
		resultCh <- outcome{commit: commit, err: err}
	}()

	for _, label := range steps[1:] {
		s.sleepStep()
		s.mu.Lock()
		if st.epochs[kind] != epoch {
			// Reset or switch happened underneath; abandon the sequence.
			st.inflight[kind] = false
			snap := snapshotLocked(st)
			s.mu.Unlock()
			return snap, nil
		}
		st.processingStep = label
		s.notifyLocked(st)
		s.mu.Unlock()
	}

	res := <-resultCh

	s.mu.Lock()
	defer s.mu.Unlock()
	st.inflight[kind] = false
	if st.epochs[kind] != epoch {
		// Late arrival after reset; discard rather than apply.
		log.Printf("[session] discarding stale %s result for session=%s", kind, st.id)
		return snapshotLocked(st), nil
	}

	st.processingStep = ""
	if res.err != nil {
		log.Printf("[session] %s generation failed for session=%s: %v", kind, st.id, res.err)
		st.phases[kind] = machine.PhaseFailed
	} else {
		res.commit(st)
		st.phases[kind] = machine.PhaseResolved
	}
	s.notifyLocked(st)
	return snapshotLocked(st), nil
}

// resetLocked returns one machine's slot to its initial value.
func (s *Service) resetLocked(st *state, kind machine.Kind) {
	st.epochs[kind]++
	st.phases[kind] = machine.PhaseIdle
	switch kind {
	case machine.KindDispenser:
		st.mission = nil
	case machine.KindOracle:
		st.oracleChat = machine.SeedOracleChat()
	case machine.KindTemple:
		st.transmutation = nil
	}
	if st.active == kind {
		st.active = ""
		st.inputOpen = false
		st.processingStep = ""
	}
}

func (s *Service) notifyLocked(st *state) {
	subs := s.subs[st.id]
	if len(subs) == 0 {
		return
	}
	snap := snapshotLocked(st)
	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Service) sleepStep() {
	if s.cfg.StepDelayMax <= 0 {
		return
	}
	d := s.cfg.StepDelayMin
	if jitter := s.cfg.StepDelayMax - s.cfg.StepDelayMin; jitter > 0 {
		d += time.Duration(rand.Int63n(int64(jitter)))
	}
	time.Sleep(d)
}

func validateInput(text string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyInput
	}
	if maxLen > 0 && len([]rune(trimmed)) > maxLen {
		return "", ErrInputTooLong
	}
	return trimmed, nil
}

func snapshotLocked(st *state) machine.Snapshot {
	snap := machine.Snapshot{
		ID:             st.id,
		CreatedAt:      st.createdAt,
		ActiveMachine:  st.active,
		InputOpen:      st.inputOpen,
		InfoOpen:       st.infoOpen,
		ProcessingStep: st.processingStep,
		Phases:         make(map[machine.Kind]machine.Phase, len(st.phases)),
		OracleChat:     append([]machine.ChatTurn(nil), st.oracleChat...),
		Tuning:         st.tuning,
	}
	for kind, phase := range st.phases {
		snap.Phases[kind] = phase
	}
	if st.mission != nil {
		mission := *st.mission
		snap.Mission = &mission
	}
	if st.transmutation != nil {
		t := *st.transmutation
		snap.Transmutation = &t
	}
	return snap
}
