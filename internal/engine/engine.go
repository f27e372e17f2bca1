package engine

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"hastyquiz-service/internal/domain"
	"hastyquiz-service/internal/history"
	"hastyquiz-service/internal/prefs"
	"hastyquiz-service/internal/storage"
)

// State names the phase of the session lifecycle.
type State string

const (
	StateIdle        State = "idle"        // no quiz loaded
	StateConfiguring State = "configuring" // quiz loaded, not started
	StateActive      State = "active"      // question in progress
	StateCompleted   State = "completed"   // summary exists
)

// Snapshot is an immutable view of the engine handed to subscribers on
// every transition and timer tick.
type Snapshot struct {
	State         State              `json:"state"`
	Quiz          *domain.Quiz       `json:"quiz,omitempty"`
	QuestionIndex int                `json:"questionIndex"`
	Remaining     int                `json:"remaining"`
	Results       []domain.Result    `json:"results"`
	Summary       *domain.Summary    `json:"summary,omitempty"`
	Preferences   domain.Preferences `json:"preferences"`
}

// Engine owns the quiz session lifecycle: load, configure, start with
// shuffle, per-question answer/timeout, score accumulation, completion and
// history append. All mutations are serialized through its mutex; the
// storage mirror is best-effort and never blocks a transition.
type Engine struct {
	store   storage.Store
	prefs   *prefs.Store
	history *history.Store

	now  func() time.Time
	tick time.Duration
	rnd  *rand.Rand

	mu            sync.Mutex
	quiz          *domain.Quiz // shuffled copy once a session starts
	active        bool
	index         int
	results       []domain.Result
	answered      map[string]bool // question id -> result recorded this attempt
	summary       *domain.Summary
	attempt       uint64 // bumped on every load/start/reset; fences stale timers
	questionStart time.Time
	remaining     int
	timer         *countdown
	subscribers   map[chan Snapshot]struct{}
}

func New(store storage.Store, prefsStore *prefs.Store, historyStore *history.Store) *Engine {
	return NewWithClock(store, prefsStore, historyStore, time.Now, time.Second)
}

// NewWithClock allows deterministic timestamps and a compressed tick
// interval in tests.
func NewWithClock(store storage.Store, prefsStore *prefs.Store, historyStore *history.Store, now func() time.Time, tick time.Duration) *Engine {
	return &Engine{
		store:       store,
		prefs:       prefsStore,
		history:     historyStore,
		now:         now,
		tick:        tick,
		rnd:         rand.New(rand.NewSource(now().UnixNano())),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// LoadQuiz replaces the current quiz and discards any in-flight session.
// Valid from any state.
func (e *Engine) LoadQuiz(ctx context.Context, quiz domain.Quiz) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelTimerLocked()
	e.attempt++
	copied := copyQuiz(quiz)
	e.quiz = &copied
	e.active = false
	e.index = 0
	e.results = nil
	e.answered = make(map[string]bool)
	e.summary = nil

	e.persist(ctx, storage.KeyCurrentQuiz, copied)
	e.persist(ctx, storage.KeyCurrentResults, []domain.Result{})
	e.clear(ctx, storage.KeyCurrentSummary)
	e.broadcastLocked()
}

// Start begins a fresh attempt at the loaded quiz. Shuffling (questions and,
// independently, each question's options) happens here and the arrangement
// holds for the whole session.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked(ctx)
}

func (e *Engine) startLocked(ctx context.Context) error {
	if e.quiz == nil {
		return domain.ErrNoQuizLoaded
	}
	if e.active {
		return domain.ErrSessionActive
	}

	p := e.prefs.Current()
	shuffled := copyQuiz(*e.quiz)
	if p.ShuffleQuestions {
		shuffleQuestions(e.rnd, shuffled.Questions)
	}
	if p.ShuffleOptions {
		for i := range shuffled.Questions {
			shuffleOptions(e.rnd, shuffled.Questions[i].Options)
		}
	}
	e.quiz = &shuffled

	e.attempt++
	e.active = true
	e.index = 0
	e.results = nil
	e.answered = make(map[string]bool)
	e.summary = nil

	e.persist(ctx, storage.KeyCurrentQuiz, shuffled)
	e.persist(ctx, storage.KeyCurrentResults, []domain.Result{})
	e.clear(ctx, storage.KeyCurrentSummary)

	e.armTimerLocked()
	e.broadcastLocked()
	return nil
}

// Answer records the selected option for the current question. Re-answering
// an already answered question, answering outside an active session, or
// answering with an option that does not belong to the current question are
// all silent no-ops: stale UI events must not corrupt the session.
func (e *Engine) Answer(ctx context.Context, optionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active || e.quiz == nil || e.answeredLocked() {
		return
	}

	question := e.quiz.Questions[e.index]
	var selected *domain.Option
	for i := range question.Options {
		if question.Options[i].ID == optionID {
			selected = &question.Options[i]
			break
		}
	}
	if selected == nil {
		return
	}

	limit := e.timeLimitLocked()
	elapsed := int(e.now().Sub(e.questionStart).Round(time.Second) / time.Second)
	e.recordLocked(ctx, domain.Result{
		QuestionID:       question.ID,
		SelectedOptionID: selected.ID,
		Correct:          selected.Correct,
		TimeTaken:        clamp(elapsed, 0, limit),
	})
}

// NextQuestion advances manually; moving past the last question ends the
// session with the results accumulated so far.
func (e *Engine) NextQuestion(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active || e.quiz == nil {
		return
	}
	if e.index >= len(e.quiz.Questions)-1 {
		e.endSessionLocked(ctx)
		return
	}
	e.cancelTimerLocked()
	e.index++
	if !e.answeredLocked() {
		e.armTimerLocked()
	}
	e.broadcastLocked()
}

// PreviousQuestion steps back one question; a no-op at index 0. The earlier
// question keeps its recorded result, so no timer is armed for it.
func (e *Engine) PreviousQuestion(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active || e.index == 0 {
		return
	}
	e.cancelTimerLocked()
	e.index--
	if !e.answeredLocked() {
		e.armTimerLocked()
	}
	e.broadcastLocked()
}

// Reset returns a loaded quiz to the configuring state, discarding results
// and summary but keeping the quiz.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resetLocked(ctx)
}

// Restart resets and immediately starts a fresh attempt.
func (e *Engine) Restart(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.resetLocked(ctx); err != nil {
		return err
	}
	return e.startLocked(ctx)
}

func (e *Engine) resetLocked(ctx context.Context) error {
	if e.quiz == nil {
		return domain.ErrNoQuizLoaded
	}
	e.cancelTimerLocked()
	e.attempt++
	e.active = false
	e.index = 0
	e.results = nil
	e.answered = make(map[string]bool)
	e.summary = nil

	e.persist(ctx, storage.KeyCurrentResults, []domain.Result{})
	e.clear(ctx, storage.KeyCurrentSummary)
	e.broadcastLocked()
	return nil
}

// recordLocked appends exactly one result for the current question,
// persists the result list, then applies the post-answer policy.
func (e *Engine) recordLocked(ctx context.Context, result domain.Result) {
	e.cancelTimerLocked()
	e.results = append(e.results, result)
	e.answered[result.QuestionID] = true

	// Durability before any derived transition.
	e.persist(ctx, storage.KeyCurrentResults, e.results)

	p := e.prefs.Current()
	switch {
	case !result.Correct && p.RestartOnError:
		e.endSessionLocked(ctx)
	case e.index >= len(e.quiz.Questions)-1:
		e.endSessionLocked(ctx)
	default:
		e.index++
		if !e.answeredLocked() {
			e.armTimerLocked()
		}
		e.broadcastLocked()
	}
}

// endSessionLocked builds the summary once, flips to completed, and appends
// to history. A second call for the same attempt is a no-op.
func (e *Engine) endSessionLocked(ctx context.Context) {
	if e.summary != nil {
		return
	}
	e.cancelTimerLocked()
	e.active = false

	correct := 0
	totalTime := 0
	for _, r := range e.results {
		if r.Correct {
			correct++
		}
		totalTime += r.TimeTaken
	}
	results := make([]domain.Result, len(e.results))
	copy(results, e.results)

	summary := domain.Summary{
		QuizID:         e.quiz.ID,
		QuizTitle:      e.quiz.Title,
		TotalQuestions: len(e.quiz.Questions),
		CorrectAnswers: correct,
		TotalTime:      totalTime,
		Results:        results,
		CompletedAt:    e.now(),
	}
	e.summary = &summary

	e.persist(ctx, storage.KeyCurrentSummary, summary)
	e.history.Append(ctx, summary)
	e.broadcastLocked()
}

// answeredLocked reports whether the question at the current index already
// has a result this attempt. Tracked by question id, not result count, so
// skipping ahead and navigating back cannot misattribute answered state.
func (e *Engine) answeredLocked() bool {
	return e.answered[e.quiz.Questions[e.index].ID]
}

func (e *Engine) timeLimitLocked() int {
	limit := e.prefs.Current().TimePerQuestion
	if limit < 1 {
		limit = 1
	}
	return limit
}

func (e *Engine) armTimerLocked() {
	e.cancelTimerLocked()
	limit := e.timeLimitLocked()
	e.questionStart = e.now()
	e.remaining = limit

	attempt, index := e.attempt, e.index
	e.timer = startCountdown(limit, e.tick,
		func(remaining int) { e.onTick(attempt, index, remaining) },
		func() { e.onExpire(attempt, index) },
	)
}

func (e *Engine) cancelTimerLocked() {
	if e.timer != nil {
		e.timer.cancel()
		e.timer = nil
	}
}

func (e *Engine) onTick(attempt uint64, index int, remaining int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if attempt != e.attempt || index != e.index || !e.active {
		return
	}
	e.remaining = remaining
	e.broadcastLocked()
}

// onExpire is the timeout path: equivalent to answering nothing, with the
// full time budget charged. The attempt/index fence discards timers whose
// question has already moved on. The persistence mirror runs on a background
// context: the timer outlives whatever request armed it.
func (e *Engine) onExpire(attempt uint64, index int) {
	ctx := context.Background()
	e.mu.Lock()
	defer e.mu.Unlock()

	if attempt != e.attempt || index != e.index || !e.active || e.answeredLocked() {
		return
	}
	question := e.quiz.Questions[e.index]
	e.remaining = 0
	e.recordLocked(ctx, domain.Result{
		QuestionID: question.ID,
		Correct:    false,
		TimeTaken:  e.timeLimitLocked(),
	})
}

// State reports the lifecycle phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) stateLocked() State {
	switch {
	case e.quiz == nil:
		return StateIdle
	case e.summary != nil:
		return StateCompleted
	case e.active:
		return StateActive
	case len(e.results) > 0 && len(e.results) == len(e.quiz.Questions):
		// Defensive: a full result list with an inactive session is terminal
		// even if the summary write lagged behind.
		return StateCompleted
	default:
		return StateConfiguring
	}
}

// CurrentQuiz returns a copy of the loaded (possibly shuffled) quiz.
func (e *Engine) CurrentQuiz() (domain.Quiz, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.quiz == nil {
		return domain.Quiz{}, false
	}
	return copyQuiz(*e.quiz), true
}

// CurrentQuestion returns the question in progress.
func (e *Engine) CurrentQuestion() (domain.Question, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.quiz == nil || !e.active || e.index >= len(e.quiz.Questions) {
		return domain.Question{}, false
	}
	return e.quiz.Questions[e.index], true
}

func (e *Engine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *Engine) CurrentIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

// Results returns a copy of the results recorded for the current attempt.
func (e *Engine) Results() []domain.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Result, len(e.results))
	copy(out, e.results)
	return out
}

// Summary returns the completed summary, if any.
func (e *Engine) Summary() (domain.Summary, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.summary == nil {
		return domain.Summary{}, false
	}
	return *e.summary, true
}

// Subscribe returns a channel receiving state snapshots, starting with the
// current one. The caller must invoke cancel to avoid leaks.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	e.mu.Lock()
	e.subscribers[ch] = struct{}{}
	initial := e.snapshotLocked()
	e.mu.Unlock()

	ch <- initial

	cancel := func() {
		e.mu.Lock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) broadcastLocked() {
	snap := e.snapshotLocked()
	for ch := range e.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so slow consumers never block a transition.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:         e.stateLocked(),
		QuestionIndex: e.index,
		Remaining:     e.remaining,
		Preferences:   e.prefs.Current(),
	}
	if e.quiz != nil {
		quiz := copyQuiz(*e.quiz)
		snap.Quiz = &quiz
	}
	snap.Results = make([]domain.Result, len(e.results))
	copy(snap.Results, e.results)
	if e.summary != nil {
		summary := *e.summary
		snap.Summary = &summary
	}
	return snap
}

func (e *Engine) persist(ctx context.Context, key string, value any) {
	if err := e.store.Save(ctx, key, value); err != nil {
		log.Printf("engine: persist %s failed: %v", key, err)
	}
}

func (e *Engine) clear(ctx context.Context, key string) {
	if err := e.store.Delete(ctx, key); err != nil {
		log.Printf("engine: clear %s failed: %v", key, err)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
