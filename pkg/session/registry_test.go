package session_test

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/testutils"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RunGeneralQuestion(t *testing.T) {
	c := newCollaborators(domain.IntentGeneral)
	r := session.NewRegistry(c.engine(t))

	answer, err := r.Run(context.Background(), "What is 2+2-ish chit-chat question", "s1")
	require.NoError(t, err)
	assert.Equal(t, "generated answer", answer)

	events, err := r.GetEvents("s1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		domain.StepStartRun,
		domain.StepPlannerStart,
		domain.StepIntentDetermined,
		domain.StepDirectAnswerStart,
		domain.StepDirectAnswerDone,
		domain.StepFinalAnswer,
	}, testutils.Steps(events))
	assert.Equal(t, 1, countSteps(events, domain.StepDirectAnswerStart))
	assert.Equal(t, 1, countSteps(events, domain.StepDirectAnswerDone))
	assert.Zero(t, countSteps(events, domain.StepRetrieveStart))
	assert.Zero(t, countSteps(events, domain.StepRetrieveDone))
}

func TestRegistry_RunGenerateQuiz(t *testing.T) {
	c := newCollaborators(domain.IntentGenerateQuiz)
	r := session.NewRegistry(c.engine(t))

	answer, err := r.Run(context.Background(), "quiz me", "s2")
	require.NoError(t, err)
	assert.Equal(t, "1. Explain doc-a.", answer)

	events, err := r.GetEvents("s2")
	require.NoError(t, err)
	assert.Equal(t, []string{
		domain.StepStartRun,
		domain.StepPlannerStart,
		domain.StepIntentDetermined,
		domain.StepRetrieveStart,
		domain.StepRetrieveDone,
		domain.StepQuizStart,
		domain.StepQuizDone,
		domain.StepFinalAnswer,
	}, testutils.Steps(events))
	assert.Equal(t, 2, events[4].Meta["count"])

	s, ok := r.GetSession("s2")
	require.True(t, ok)
	state := s.State()
	assert.Equal(t, state[domain.KeyFinalAnswer], state[domain.KeyQuizContent])
}

func TestRegistry_EvaluateWithoutQuiz(t *testing.T) {
	c := newCollaborators(domain.IntentEvaluateQuiz)
	r := session.NewRegistry(c.engine(t))

	answer, err := r.Run(context.Background(), "1-a 2-b", "s")
	require.NoError(t, err)
	assert.Equal(t, domain.NoQuizMessage, answer)

	s, _ := r.GetSession("s")
	assert.False(t, s.IsRunning())

	// The session stays usable.
	c.classifier.Intent = domain.IntentGeneral
	answer, err = r.Run(context.Background(), "hello", "s")
	require.NoError(t, err)
	assert.Equal(t, "generated answer", answer)
}

func TestRegistry_QuizThenEvaluate(t *testing.T) {
	c := newCollaborators(domain.IntentGenerateQuiz)
	r := session.NewRegistry(c.engine(t))

	_, err := r.Run(context.Background(), "quiz me on doc-a", "s")
	require.NoError(t, err)

	c.classifier.Intent = domain.IntentEvaluateQuiz
	answer, err := r.Run(context.Background(), "doc-a is a document", "s")
	require.NoError(t, err)
	assert.Equal(t, "All correct", answer)
	assert.Equal(t, []string{"exam-1:doc-a is a document"}, c.quizzes.Graded())
}

func TestRegistry_ConcurrentRunsOnSameSessionAreBusy(t *testing.T) {
	c := newCollaborators(domain.IntentGeneral)
	c.generator.Gate = make(chan struct{})
	c.generator.Entered = make(chan struct{}, 1)
	r := session.NewRegistry(c.engine(t))

	first := make(chan string, 1)
	go func() {
		answer, _ := r.Run(context.Background(), "first", "s3")
		first <- answer
	}()
	select {
	case <-c.generator.Entered:
	case <-time.After(waitFor):
		t.Fatal("first execution never reached the generator")
	}

	var wg sync.WaitGroup
	answers := make([]string, 10)
	for i := range answers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			answer, err := r.Run(context.Background(), "second", "s3")
			assert.NoError(t, err)
			answers[i] = answer
		}(i)
	}
	wg.Wait()

	for _, a := range answers {
		assert.Equal(t, domain.BusyMessage, a)
	}

	close(c.generator.Gate)
	select {
	case a := <-first:
		assert.Equal(t, "generated answer", a)
	case <-time.After(waitFor):
		t.Fatal("first run never returned")
	}

	events, _ := r.GetEvents("s3")
	assert.Equal(t, 1, countSteps(events, domain.StepStartRun))
	q, _ := r.CreateSession("s3").Get(domain.KeyQuestion)
	assert.Equal(t, "first", q)
}

func TestRegistry_PermitPoolSerializesExecutions(t *testing.T) {
	c := newCollaborators(domain.IntentGeneral)
	c.generator.Gate = make(chan struct{})
	c.generator.Entered = make(chan struct{}, 1)
	r := session.NewRegistry(c.engine(t), session.WithConcurrencyLimit(1))

	results := make(chan string, 2)
	go func() {
		a, _ := r.Run(context.Background(), "a", "a")
		results <- a
	}()
	select {
	case <-c.generator.Entered:
	case <-time.After(waitFor):
		t.Fatal("first execution never started")
	}

	go func() {
		b, _ := r.Run(context.Background(), "b", "b")
		results <- b
	}()

	require.Eventually(t, func() bool {
		_, ok := r.GetSession("b")
		return ok
	}, waitFor, time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	events, err := r.GetEvents("b")
	require.NoError(t, err)
	assert.Empty(t, events, "second execution must wait for the permit")
	s, _ := r.GetSession("b")
	assert.False(t, s.IsRunning())

	close(c.generator.Gate)
	for i := 0; i < 2; i++ {
		select {
		case a := <-results:
			assert.Equal(t, "generated answer", a)
		case <-time.After(waitFor):
			t.Fatal("runs did not complete")
		}
	}

	eventsA, _ := r.GetEvents("a")
	eventsB, _ := r.GetEvents("b")
	require.NotEmpty(t, eventsB)
	lastA := eventsA[len(eventsA)-1]
	assert.Equal(t, domain.StepFinalAnswer, lastA.Step)
	assert.False(t, eventsB[0].Timestamp.Before(lastA.Timestamp), "b started after a finished")
}

func TestRegistry_RunStopsWaitingForPermitWhenCallerGivesUp(t *testing.T) {
	g := newBlockingGraph()
	r := session.NewRegistry(g, session.WithConcurrencyLimit(1))

	go func() { _, _ = r.Run(context.Background(), "a", "a") }()
	g.waitEntered(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Run(ctx, "b", "b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(g.release)
}

func TestRegistry_PermitHeldUntilExecutionEnds(t *testing.T) {
	g := newBlockingGraph()
	r := session.NewRegistry(g, session.WithConcurrencyLimit(1))

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := r.Run(ctx, "a", "a")
		errs <- err
	}()
	g.waitEntered(t)
	cancel()
	assert.ErrorIs(t, <-errs, context.Canceled)

	a, _ := r.GetSession("a")
	assert.True(t, a.IsRunning(), "the caller leaving does not cancel the execution")

	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	_, err := r.Run(short, "b", "b")
	assert.ErrorIs(t, err, context.DeadlineExceeded, "permit is still held")

	close(g.release)
	require.Eventually(t, func() bool { return !a.IsRunning() }, waitFor, time.Millisecond)

	answer, err := r.Run(context.Background(), "b", "b")
	require.NoError(t, err)
	assert.Equal(t, "released", answer)
}

func TestRegistry_CancelSession(t *testing.T) {
	g := newBlockingGraph()
	r := session.NewRegistry(g)

	results := make(chan string, 1)
	go func() {
		a, _ := r.Run(context.Background(), "q", "s")
		results <- a
	}()
	g.waitEntered(t)

	require.NoError(t, r.CancelSession("s"))
	s, _ := r.GetSession("s")
	assert.False(t, s.IsRunning())
	assert.Equal(t, domain.CancelledMessage, <-results)

	assert.ErrorIs(t, r.CancelSession("missing"), domain.ErrSessionNotFound)
}

func TestRegistry_RemoveSession(t *testing.T) {
	g := newBlockingGraph()
	r := session.NewRegistry(g)

	results := make(chan string, 1)
	go func() {
		a, _ := r.Run(context.Background(), "q", "s")
		results <- a
	}()
	g.waitEntered(t)

	require.NoError(t, r.RemoveSession("s"))
	_, ok := r.GetSession("s")
	assert.False(t, ok)

	select {
	case a := <-results:
		assert.Equal(t, domain.CancelledMessage, a)
	case <-time.After(waitFor):
		t.Fatal("removal did not cancel the execution")
	}

	assert.ErrorIs(t, r.RemoveSession("s"), domain.ErrSessionNotFound)
	require.NoError(t, r.Close(context.Background()))
}

func TestRegistry_RemovedSessionCannotStartAgain(t *testing.T) {
	g := newBlockingGraph()
	r := session.NewRegistry(g)

	held := r.CreateSession("x")
	require.NoError(t, r.RemoveSession("x"))
	waitDone(t, held.Detached())

	x, started := held.Start("late question")
	assert.Nil(t, x)
	assert.False(t, started)
	assert.False(t, held.IsRunning())

	results := make(chan string, 1)
	go func() {
		a, _ := r.Run(context.Background(), "q", "x")
		results <- a
	}()
	g.waitEntered(t)

	fresh, ok := r.GetSession("x")
	require.True(t, ok)
	assert.NotSame(t, held, fresh)
	assert.True(t, fresh.IsRunning())

	close(g.release)
	assert.Equal(t, "released", <-results)
}

func TestRegistry_CreateSessionIsIdempotent(t *testing.T) {
	r := session.NewRegistry(newBlockingGraph())
	a := r.CreateSession("x")
	b := r.CreateSession("x")
	assert.Same(t, a, b)
	assert.Len(t, r.ListSessions(), 1)
}

func TestRegistry_ListSessions(t *testing.T) {
	clock := testutils.NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	r := session.NewRegistry(newBlockingGraph(), session.WithClock(clock.Now))

	r.CreateSession("b")
	clock.Advance(time.Second)
	r.CreateSession("a")
	clock.Advance(4 * time.Second)

	infos := r.ListSessions()
	require.Len(t, infos, 2)
	assert.Equal(t, "b", infos[0].ID)
	assert.Equal(t, "a", infos[1].ID)
	assert.InDelta(t, 5, infos[0].AgeSeconds, 0.001)
	assert.InDelta(t, 4, infos[1].AgeSeconds, 0.001)
	assert.False(t, infos[0].IsRunning)
}

func TestRegistry_UnknownSession(t *testing.T) {
	r := session.NewRegistry(newBlockingGraph())

	_, err := r.GetEvents("nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, r.ClearSessionHistory("nope"), domain.ErrSessionNotFound)
}

func TestRegistry_ClearSessionHistory(t *testing.T) {
	c := newCollaborators(domain.IntentGenerateQuiz)
	r := session.NewRegistry(c.engine(t))
	_, err := r.Run(context.Background(), "quiz me", "s")
	require.NoError(t, err)

	require.NoError(t, r.ClearSessionHistory("s"))

	events, _ := r.GetEvents("s")
	assert.Empty(t, events)
	s, _ := r.GetSession("s")
	assert.Empty(t, s.State())

	c.classifier.Intent = domain.IntentEvaluateQuiz
	answer, err := r.Run(context.Background(), "my answers", "s")
	require.NoError(t, err)
	assert.Equal(t, domain.NoQuizMessage, answer, "the quiz was forgotten")
}

func TestRegistry_SweepExpiredUsesStrictTTL(t *testing.T) {
	clock := testutils.NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	ttl := 10 * time.Minute
	r := session.NewRegistry(newBlockingGraph(), session.WithClock(clock.Now), session.WithTTL(ttl))

	r.CreateSession("older")
	clock.Advance(time.Nanosecond)
	r.CreateSession("exact")
	clock.Advance(ttl - time.Minute)
	r.CreateSession("fresh")
	clock.Advance(time.Minute)

	// older: ttl+1ns idle, exact: ttl idle, fresh: 1m idle.
	assert.Equal(t, 1, r.SweepExpired())

	_, ok := r.GetSession("older")
	assert.False(t, ok)
	_, ok = r.GetSession("exact")
	assert.True(t, ok)
	_, ok = r.GetSession("fresh")
	assert.True(t, ok)

	assert.Equal(t, 0, r.SweepExpired(), "nothing else is expired")
}

func TestRegistry_SweepCancelsLiveExecution(t *testing.T) {
	clock := testutils.NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	g := newBlockingGraph()
	var evicted []string
	r := session.NewRegistry(g,
		session.WithClock(clock.Now),
		session.WithTTL(time.Minute),
		session.WithLifecycleHooks(domain.LifecycleHooks{
			OnEvict: func(ctx context.Context, id string) { evicted = append(evicted, id) },
		}),
	)

	results := make(chan string, 1)
	go func() {
		a, _ := r.Run(context.Background(), "q", "stuck")
		results <- a
	}()
	g.waitEntered(t)
	s, _ := r.GetSession("stuck")

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, r.SweepExpired())

	assert.False(t, s.IsRunning())
	assert.Equal(t, domain.CancelledMessage, <-results)
	assert.Equal(t, []string{"stuck"}, evicted)
	assert.Empty(t, r.ListSessions())
}

// pausingHandler blocks the first record whose message matches msg until
// release is closed.
type pausingHandler struct {
	msg     string
	reached chan struct{}
	release chan struct{}
	once    *sync.Once
}

func newPausingHandler(msg string) *pausingHandler {
	return &pausingHandler{
		msg:     msg,
		reached: make(chan struct{}),
		release: make(chan struct{}),
		once:    &sync.Once{},
	}
}

func (h *pausingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *pausingHandler) Handle(_ context.Context, rec slog.Record) error {
	if rec.Message == h.msg {
		h.once.Do(func() {
			close(h.reached)
			<-h.release
		})
	}
	return nil
}

func (h *pausingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *pausingHandler) WithGroup(string) slog.Handler { return h }

func TestRegistry_RunDuringSweepWaitsForEviction(t *testing.T) {
	clock := testutils.NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	g := newBlockingGraph()
	pause := newPausingHandler("session cleaned up")
	r := session.NewRegistry(g,
		session.WithClock(clock.Now),
		session.WithTTL(time.Minute),
		session.WithLogger(slog.New(pause)),
	)

	old := r.CreateSession("x")
	clock.Advance(2 * time.Minute)

	swept := make(chan int, 1)
	go func() { swept <- r.SweepExpired() }()
	waitDone(t, pause.reached)

	// The sweep is parked between cleanup and removal.
	results := make(chan string, 1)
	go func() {
		a, _ := r.Run(context.Background(), "q", "x")
		results <- a
	}()
	select {
	case <-g.entered:
		t.Fatal("execution started on a session being evicted")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, old.IsRunning())

	close(pause.release)
	assert.Equal(t, 1, <-swept)
	g.waitEntered(t)

	assert.False(t, old.IsRunning())
	current, ok := r.GetSession("x")
	require.True(t, ok)
	assert.NotSame(t, old, current)
	assert.True(t, current.IsRunning())

	close(g.release)
	assert.Equal(t, "released", <-results)
}

func TestRegistry_SweeperLoop(t *testing.T) {
	clock := testutils.NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	r := session.NewRegistry(newBlockingGraph(),
		session.WithClock(clock.Now),
		session.WithTTL(time.Minute),
		session.WithSweepInterval(5*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartSweeper(ctx)
	r.StartSweeper(ctx)

	r.CreateSession("idle")
	clock.Advance(2 * time.Minute)

	require.Eventually(t, func() bool {
		_, ok := r.GetSession("idle")
		return !ok
	}, waitFor, 5*time.Millisecond)

	require.NoError(t, r.Close(context.Background()))
}

func TestRegistry_SweeperSurvivesFailingPass(t *testing.T) {
	r := session.NewRegistry(newBlockingGraph(), session.WithSweepInterval(2*time.Millisecond))

	var passes atomic.Int32
	session.SetSweepFunc(r, func() int {
		if passes.Add(1) == 1 {
			panic("transient failure")
		}
		return 0
	})

	r.StartSweeper(context.Background())
	require.Eventually(t, func() bool { return passes.Load() >= 3 }, waitFor, 2*time.Millisecond)
	require.NoError(t, r.Close(context.Background()))

	stopped := passes.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, passes.Load(), "Close stops the loop")
}

func TestRegistry_Close(t *testing.T) {
	g := newBlockingGraph()
	r := session.NewRegistry(g)

	results := make(chan string, 1)
	go func() {
		a, _ := r.Run(context.Background(), "q", "s")
		results <- a
	}()
	g.waitEntered(t)

	require.NoError(t, r.Close(context.Background()))
	assert.Equal(t, domain.CancelledMessage, <-results)

	_, err := r.Run(context.Background(), "q", "s")
	assert.ErrorIs(t, err, domain.ErrRegistryClosed)
}

func TestRegistry_BusyHook(t *testing.T) {
	g := newBlockingGraph()
	var busy atomic.Int32
	r := session.NewRegistry(g, session.WithLifecycleHooks(domain.LifecycleHooks{
		OnBusy: func(ctx context.Context, id string) { busy.Add(1) },
	}))

	go func() { _, _ = r.Run(context.Background(), "q", "s") }()
	g.waitEntered(t)

	answer, err := r.Run(context.Background(), "again", "s")
	require.NoError(t, err)
	assert.Equal(t, domain.BusyMessage, answer)
	assert.Equal(t, int32(1), busy.Load())

	close(g.release)
}
