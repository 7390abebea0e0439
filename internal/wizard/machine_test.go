package wizard

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cristianadrielbraun/tonttukioski/internal/portrait"
)

// gatedProvider blocks every transformation until the test releases it.
type gatedProvider struct {
	calls   atomic.Int32
	started chan portrait.Request
	release chan outcome
}

type outcome struct {
	res portrait.Result
	err error
}

func newGatedProvider() *gatedProvider {
	return &gatedProvider{
		started: make(chan portrait.Request, 4),
		release: make(chan outcome, 4),
	}
}

func (g *gatedProvider) Transform(ctx context.Context, req portrait.Request) (portrait.Result, error) {
	g.calls.Add(1)
	g.started <- req
	select {
	case o := <-g.release:
		return o.res, o.err
	case <-ctx.Done():
		return portrait.Result{}, portrait.Failed("", ctx.Err())
	}
}

func (g *gatedProvider) waitStarted(t *testing.T) portrait.Request {
	t.Helper()
	select {
	case req := <-g.started:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("transformation did not start")
		return portrait.Request{}
	}
}

func newMachine(t *testing.T, p portrait.Provider, onRelease func()) *Machine {
	t.Helper()
	m := New(Options{Provider: p, OnCameraRelease: onRelease})
	t.Cleanup(m.Close)
	return m
}

// toCamera walks a fresh machine to the camera step.
func toCamera(t *testing.T, m *Machine, email string) {
	t.Helper()
	require.NoError(t, m.Dispatch(Start{}))
	require.NoError(t, m.Dispatch(SubmitName{Name: "Aino", Email: email}))
	require.NoError(t, m.Dispatch(SubmitWish{Wish: "Lego"}))
	require.Equal(t, StepCamera, m.Step())
}

func TestHappyPathWithLocalCompositor(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := New(Options{Provider: portrait.NewCompositor()})
	defer m.Close()

	toCamera(t, m, "")
	require.NoError(t, m.Dispatch(Capture{Image: testPhoto(t)}))
	m.Wait()

	snap := m.Snapshot()
	require.Equal(t, StepResult, snap.Step)
	assert.True(t, strings.HasPrefix(snap.Record.ElfImageURL, "data:image/"))
	assert.False(t, snap.BadgeAvailable())

	require.NoError(t, m.Dispatch(ViewCertificate{}))
	snap = m.Snapshot()
	assert.Equal(t, StepCertificate, snap.Step)
	assert.Equal(t, "Aino", snap.Record.Name)
	assert.Equal(t, "Lego", snap.Record.Wish)

	_, err := m.BadgeTarget()
	assert.ErrorIs(t, err, ErrBadgeUnavailable)
}

func TestNameMustHaveTwoRunes(t *testing.T) {
	m := newMachine(t, newGatedProvider(), nil)
	require.NoError(t, m.Dispatch(Start{}))

	for _, name := range []string{"", " ", "A", "  Ä  ", "\tx\n"} {
		err := m.Dispatch(SubmitName{Name: name})
		require.ErrorIs(t, err, ErrValidation, "name %q", name)
		assert.Equal(t, StepName, m.Step())
	}

	err := m.Dispatch(SubmitName{Name: strings.Repeat("x", MaxNameRunes+1)})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, StepName, m.Step())
	assert.Empty(t, m.Snapshot().Record.Name)

	require.NoError(t, m.Dispatch(SubmitName{Name: "  Öz  "}))
	assert.Equal(t, StepWish, m.Step())
	assert.Equal(t, "Öz", m.Snapshot().Record.Name)
}

func TestWishIsTruncatedNotRejected(t *testing.T) {
	m := newMachine(t, newGatedProvider(), nil)
	require.NoError(t, m.Dispatch(Start{}))
	require.NoError(t, m.Dispatch(SubmitName{Name: "Aino"}))

	long := strings.Repeat("å", MaxWishRunes+40)
	require.NoError(t, m.Dispatch(SubmitWish{Wish: long}))

	stored := m.Snapshot().Record.Wish
	assert.Equal(t, string([]rune(long)[:MaxWishRunes]), stored)
	assert.Len(t, []rune(stored), MaxWishRunes)
}

func TestEmptyWishRefused(t *testing.T) {
	m := newMachine(t, newGatedProvider(), nil)
	require.NoError(t, m.Dispatch(Start{}))
	require.NoError(t, m.Dispatch(SubmitName{Name: "Aino"}))

	err := m.Dispatch(SubmitWish{Wish: "   "})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, StepWish, m.Step())
}

func TestBadgeImageMustBePNGOrSVG(t *testing.T) {
	m := newMachine(t, newGatedProvider(), nil)
	require.NoError(t, m.Dispatch(Start{}))
	require.NoError(t, m.Dispatch(SubmitName{Name: "Aino"}))

	err := m.Dispatch(SubmitWish{Wish: "Lego", BadgeImage: "data:image/gif;base64,R0lGODlh"})
	require.ErrorIs(t, err, ErrValidation)

	svg := "data:image/svg+xml;base64,PHN2Zy8+"
	require.NoError(t, m.Dispatch(SubmitWish{Wish: "Lego", BadgeImage: svg}))
	assert.Equal(t, svg, m.Snapshot().Record.BadgeImage)
}

func TestBackFollowsFixedPredecessors(t *testing.T) {
	m := newMachine(t, newGatedProvider(), nil)

	require.ErrorIs(t, m.Dispatch(Back{}), ErrInvalidTransition)

	require.NoError(t, m.Dispatch(ShowInfo{}))
	require.NoError(t, m.Dispatch(Back{}))
	assert.Equal(t, StepWelcome, m.Step())

	toCamera(t, m, "")
	require.NoError(t, m.Dispatch(Back{}))
	assert.Equal(t, StepWish, m.Step())
	require.NoError(t, m.Dispatch(Back{}))
	assert.Equal(t, StepName, m.Step())
	require.NoError(t, m.Dispatch(Back{}))
	assert.Equal(t, StepWelcome, m.Step())

	snap := m.Snapshot()
	assert.Equal(t, "Aino", snap.Record.Name, "back keeps collected data")
	assert.Equal(t, "Lego", snap.Record.Wish)
}

func TestNoArbitraryJumps(t *testing.T) {
	m := newMachine(t, newGatedProvider(), nil)

	for _, ev := range []Event{SubmitName{Name: "Aino"}, SubmitWish{Wish: "x"}, Capture{Image: "x"}, Retake{}, ViewCertificate{}, CameraFailed{}, BadgeIssued{}} {
		require.ErrorIs(t, m.Dispatch(ev), ErrInvalidTransition, "%T", ev)
		assert.Equal(t, StepWelcome, m.Step())
	}
}

func TestTransformFailureReturnsToCamera(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := newGatedProvider()
	m := New(Options{Provider: p})
	defer m.Close()

	toCamera(t, m, "aino@example.test")
	require.NoError(t, m.Dispatch(Capture{Image: "frame-1"}))
	p.waitStarted(t)
	p.release <- outcome{err: portrait.Failed("quota exceeded", nil)}
	m.Wait()

	snap := m.Snapshot()
	assert.Equal(t, StepCamera, snap.Step)
	assert.Empty(t, snap.Record.ElfImageURL)
	assert.Equal(t, "Aino", snap.Record.Name)
	assert.Equal(t, "Lego", snap.Record.Wish)
	assert.Equal(t, "aino@example.test", snap.Record.Email)

	notes := m.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, VariantError, notes[0].Variant)
	assert.Contains(t, notes[0].Description, "quota exceeded")
	assert.Empty(t, m.Notifications(), "notifications are drained")
}

func TestTransformFailureWithoutMessageUsesDefault(t *testing.T) {
	p := newGatedProvider()
	m := newMachine(t, p, nil)

	toCamera(t, m, "")
	require.NoError(t, m.Dispatch(Capture{Image: "frame"}))
	p.waitStarted(t)
	p.release <- outcome{err: portrait.Failed("", nil)}
	m.Wait()

	notes := m.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, portrait.DefaultFailureMessage, notes[0].Description)
}

func TestSecondCaptureRejectedWhileInFlight(t *testing.T) {
	p := newGatedProvider()
	m := newMachine(t, p, nil)

	toCamera(t, m, "")
	require.NoError(t, m.Dispatch(Capture{Image: "frame-1"}))
	p.waitStarted(t)

	require.ErrorIs(t, m.Dispatch(Capture{Image: "frame-2"}), ErrInvalidTransition)
	require.ErrorIs(t, m.Dispatch(Back{}), ErrInvalidTransition)
	assert.Equal(t, StepTransform, m.Step())

	p.release <- outcome{res: portrait.Result{ImageURL: "https://cdn.example.test/elf.png", RecordID: "rec-9"}}
	m.Wait()

	assert.EqualValues(t, 1, p.calls.Load())
	snap := m.Snapshot()
	assert.Equal(t, StepResult, snap.Step)
	assert.Equal(t, "rec-9", snap.Record.ID)
	assert.Equal(t, "frame-1", snap.Record.CapturedImage)
}

func TestRestartDiscardsLateResult(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := newGatedProvider()
	m := New(Options{Provider: p})
	defer m.Close()

	toCamera(t, m, "")
	require.NoError(t, m.Dispatch(Capture{Image: "frame"}))
	p.waitStarted(t)

	require.NoError(t, m.Dispatch(Restart{}))
	m.Wait()

	snap := m.Snapshot()
	assert.Equal(t, StepWelcome, snap.Step)
	assert.Equal(t, Record{}, snap.Record)
	assert.Empty(t, m.Notifications(), "cancelled run must not surface a failure")
}

func TestLateResultAfterRestartAndNewCaptureIsIgnored(t *testing.T) {
	slow := &slowProvider{first: make(chan struct{}), firstDone: make(chan struct{})}
	m := newMachine(t, slow, nil)

	toCamera(t, m, "")
	require.NoError(t, m.Dispatch(Capture{Image: "old"}))
	<-slow.first
	require.NoError(t, m.Dispatch(Restart{}))
	<-slow.firstDone

	toCamera(t, m, "")
	require.NoError(t, m.Dispatch(Capture{Image: "new"}))
	m.Wait()

	snap := m.Snapshot()
	assert.Equal(t, StepResult, snap.Step)
	assert.Equal(t, "https://cdn.example.test/new", snap.Record.ElfImageURL)
}

// slowProvider ignores cancellation on its first call and answers late.
type slowProvider struct {
	n         atomic.Int32
	first     chan struct{}
	firstDone chan struct{}
}

func (s *slowProvider) Transform(_ context.Context, req portrait.Request) (portrait.Result, error) {
	if s.n.Add(1) == 1 {
		close(s.first)
		time.Sleep(20 * time.Millisecond)
		defer close(s.firstDone)
		return portrait.Result{ImageURL: "https://cdn.example.test/" + req.Image}, nil
	}
	return portrait.Result{ImageURL: "https://cdn.example.test/" + req.Image}, nil
}

func TestRestartFromEveryStepResetsRecord(t *testing.T) {
	p := newGatedProvider()
	reach := map[Step]func(m *Machine){
		StepWelcome: func(*Machine) {},
		StepInfo:    func(m *Machine) { require.NoError(t, m.Dispatch(ShowInfo{})) },
		StepName:    func(m *Machine) { require.NoError(t, m.Dispatch(Start{})) },
		StepWish: func(m *Machine) {
			require.NoError(t, m.Dispatch(Start{}))
			require.NoError(t, m.Dispatch(SubmitName{Name: "Aino", Email: "a@b.c"}))
		},
		StepCamera: func(m *Machine) { toCamera(t, m, "a@b.c") },
		StepTransform: func(m *Machine) {
			toCamera(t, m, "a@b.c")
			require.NoError(t, m.Dispatch(Capture{Image: "frame"}))
			p.waitStarted(t)
		},
	}
	for step, walk := range reach {
		t.Run(string(step), func(t *testing.T) {
			m := newMachine(t, p, nil)
			walk(m)
			require.Equal(t, step, m.Step())

			require.NoError(t, m.Dispatch(Restart{}))
			m.Wait()
			assert.Equal(t, Snapshot{Step: InitialStep}, m.Snapshot())
		})
	}
}

func TestRetakeOnlyTouchesPhoto(t *testing.T) {
	p := newGatedProvider()
	m := newMachine(t, p, nil)
	toCamera(t, m, "aino@example.test")
	badge := "data:image/png;base64,iVBORw0KGgo="
	// return to wish to attach a badge, then come back
	require.NoError(t, m.Dispatch(Back{}))
	require.NoError(t, m.Dispatch(SubmitWish{Wish: "Lego", BadgeImage: badge}))

	require.NoError(t, m.Dispatch(Capture{Image: "frame-1"}))
	p.waitStarted(t)
	p.release <- outcome{err: portrait.Failed("nope", nil)}
	m.Wait()
	before := m.Snapshot().Record

	require.NoError(t, m.Dispatch(Retake{}))
	assert.Empty(t, m.Snapshot().Record.CapturedImage)

	require.NoError(t, m.Dispatch(Capture{Image: "frame-2"}))
	req := p.waitStarted(t)
	assert.Equal(t, "frame-2", req.Image)

	after := m.Snapshot().Record
	assert.Equal(t, "frame-2", after.CapturedImage)
	assert.Equal(t, before.Name, after.Name)
	assert.Equal(t, before.Wish, after.Wish)
	assert.Equal(t, before.Email, after.Email)
	assert.Equal(t, badge, after.BadgeImage)

	p.release <- outcome{res: portrait.Result{ImageURL: "https://cdn.example.test/x"}}
	m.Wait()
}

func TestCameraReleasedOnEveryExit(t *testing.T) {
	var released atomic.Int32
	p := newGatedProvider()
	m := newMachine(t, p, func() { released.Add(1) })

	toCamera(t, m, "")
	require.NoError(t, m.Dispatch(Back{}))
	assert.EqualValues(t, 1, released.Load(), "back")

	require.NoError(t, m.Dispatch(SubmitWish{Wish: "Lego"}))
	require.NoError(t, m.Dispatch(Restart{}))
	assert.EqualValues(t, 2, released.Load(), "restart")

	toCamera(t, m, "")
	require.NoError(t, m.Dispatch(Retake{}))
	require.NoError(t, m.Dispatch(CameraFailed{}))
	assert.EqualValues(t, 2, released.Load(), "staying on camera keeps the lease")

	require.NoError(t, m.Dispatch(Capture{Image: "frame"}))
	assert.EqualValues(t, 3, released.Load(), "capture")
	p.waitStarted(t)
	p.release <- outcome{err: portrait.Failed("", nil)}
	m.Wait()
	require.Equal(t, StepCamera, m.Step())

	m.Close()
	assert.EqualValues(t, 4, released.Load(), "close")
}

func TestCameraFailedNotifiesAndStays(t *testing.T) {
	m := newMachine(t, newGatedProvider(), nil)
	toCamera(t, m, "")

	require.NoError(t, m.Dispatch(CameraFailed{Reason: "NotAllowedError"}))
	assert.Equal(t, StepCamera, m.Step())
	notes := m.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, "NotAllowedError", notes[0].Description)
}

func TestBadgeTargetRequiresEmailWithAt(t *testing.T) {
	for _, tc := range []struct {
		email string
		ok    bool
	}{
		{"", false},
		{"aino.example.test", false},
		{"aino@example.test", true},
	} {
		p := newGatedProvider()
		m := newMachine(t, p, nil)
		toCamera(t, m, tc.email)
		require.NoError(t, m.Dispatch(Capture{Image: "frame"}))
		p.waitStarted(t)
		p.release <- outcome{res: portrait.Result{ImageURL: "https://cdn.example.test/x", RecordID: "rec"}}
		m.Wait()

		assert.Equal(t, tc.ok, m.Snapshot().BadgeAvailable(), tc.email)
		target, err := m.BadgeTarget()
		if !tc.ok {
			assert.ErrorIs(t, err, ErrBadgeUnavailable, tc.email)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, BadgeTarget{Name: "Aino", Email: tc.email, RecordID: "rec"}, target)

		require.NoError(t, m.Dispatch(BadgeIssued{CredentialURL: "https://obf.example.test/c/1"}))
		snap := m.Snapshot()
		assert.True(t, snap.Record.BadgeIssued)
		assert.False(t, snap.BadgeAvailable())
		assert.Equal(t, StepResult, snap.Step)
	}
}

func TestClosedMachineRejectsEvents(t *testing.T) {
	defer goleak.VerifyNone(t)
	p := newGatedProvider()
	m := New(Options{Provider: p})

	toCamera(t, m, "")
	require.NoError(t, m.Dispatch(Capture{Image: "frame"}))
	p.waitStarted(t)
	m.Close()
	m.Close()

	require.ErrorIs(t, m.Dispatch(Restart{}), ErrClosed)
}
