// Package wizard sequences one kiosk session through its screens and owns
// the session record. Screens only submit events; the machine decides.
package wizard

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cristianadrielbraun/tonttukioski/internal/metrics"
	"github.com/cristianadrielbraun/tonttukioski/internal/portrait"
)

const (
	defaultTransformTimeout = 90 * time.Second
	defaultCameraError      = "Kameran käynnistys epäonnistui. Tarkista selaimen oikeudet."
)

// Options configures a Machine.
type Options struct {
	// Provider produces the portrait. Nil selects the local compositor.
	Provider portrait.Provider
	// TransformTimeout bounds one transformation.
	TransformTimeout time.Duration
	// OnCameraRelease runs each time the session leaves the camera step,
	// outside the machine lock.
	OnCameraRelease func()
	Logger          zerolog.Logger
}

// Snapshot is a copy of the machine state for rendering.
type Snapshot struct {
	Step   Step
	Record Record
}

// BadgeAvailable reports whether the badge action may be offered.
func (s Snapshot) BadgeAvailable() bool {
	return s.Record.BadgeAvailable() && s.Record.HasPortrait() && !s.Record.BadgeIssued
}

// BadgeTarget is what a badge issuance needs from the session.
type BadgeTarget struct {
	Name     string
	Email    string
	RecordID string
}

// Machine is the wizard state machine of one session. It is safe for
// concurrent use by HTTP handlers and its own transformation goroutine.
type Machine struct {
	mu     sync.Mutex
	step   Step
	record Record
	notes  []Notification
	closed bool

	generation      uint64
	cancelTransform context.CancelFunc
	pendingRelease  bool

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	provider  portrait.Provider
	timeout   time.Duration
	onRelease func()
	logger    zerolog.Logger
}

// New returns a machine on the initial step with an empty record.
func New(opts Options) *Machine {
	provider := opts.Provider
	if provider == nil {
		provider = portrait.NewCompositor()
	}
	timeout := opts.TransformTimeout
	if timeout <= 0 {
		timeout = defaultTransformTimeout
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Machine{
		step:      InitialStep,
		ctx:       ctx,
		stop:      stop,
		provider:  provider,
		timeout:   timeout,
		onRelease: opts.OnCameraRelease,
		logger:    opts.Logger,
	}
}

// Dispatch applies ev to the current step. Validation failures return a
// *ValidationError and leave the step unchanged.
func (m *Machine) Dispatch(ev Event) error {
	m.mu.Lock()
	var err error
	if m.closed {
		err = ErrClosed
	} else {
		err = m.apply(ev)
	}
	release := m.takeRelease()
	m.mu.Unlock()

	if release && m.onRelease != nil {
		m.onRelease()
	}
	return err
}

func (m *Machine) apply(ev Event) error {
	switch e := ev.(type) {
	case Restart:
		m.restart()
		return nil

	case Start:
		if m.step != StepWelcome {
			return invalidTransition(ev, m.step)
		}
		m.transition(StepName)

	case ShowInfo:
		if m.step != StepWelcome {
			return invalidTransition(ev, m.step)
		}
		m.transition(StepInfo)

	case Back:
		prev, ok := m.step.Predecessor()
		if !ok {
			return invalidTransition(ev, m.step)
		}
		m.transition(prev)

	case SubmitName:
		if m.step != StepName {
			return invalidTransition(ev, m.step)
		}
		name, err := NormalizeName(e.Name)
		if err != nil {
			return err
		}
		m.record.Name = name
		m.record.Email = NormalizeEmail(e.Email)
		m.transition(StepWish)

	case SubmitWish:
		if m.step != StepWish {
			return invalidTransition(ev, m.step)
		}
		wish, err := NormalizeWish(e.Wish)
		if err != nil {
			return err
		}
		badge, err := NormalizeBadgeImage(e.BadgeImage)
		if err != nil {
			return err
		}
		m.record.Wish = wish
		if badge != "" {
			m.record.BadgeImage = badge
		}
		m.transition(StepCamera)

	case Capture:
		if m.step != StepCamera {
			return invalidTransition(ev, m.step)
		}
		image := strings.TrimSpace(e.Image)
		if image == "" {
			return &ValidationError{Field: "image", Reason: "Ota kuva ennen muunnosta."}
		}
		m.record.CapturedImage = image
		m.transition(StepTransform)
		m.startTransform()

	case Retake:
		if m.step != StepCamera {
			return invalidTransition(ev, m.step)
		}
		m.record.CapturedImage = ""

	case CameraFailed:
		if m.step != StepCamera {
			return invalidTransition(ev, m.step)
		}
		reason := strings.TrimSpace(e.Reason)
		if reason == "" {
			reason = defaultCameraError
		}
		m.notify(VariantError, "Kamera", reason)

	case ViewCertificate:
		if m.step != StepResult {
			return invalidTransition(ev, m.step)
		}
		m.transition(StepCertificate)

	case BadgeIssued:
		if m.step != StepResult && m.step != StepCertificate {
			return invalidTransition(ev, m.step)
		}
		m.record.BadgeIssued = true
		m.record.CredentialURL = strings.TrimSpace(e.CredentialURL)
		msg := e.Message
		if msg == "" {
			msg = "Tarkista sähköpostisi: " + m.record.Email
		}
		m.notify(VariantSuccess, "Osaamismerkki lähetetty!", msg)

	case transformDone:
		m.finishTransform(e)

	default:
		return invalidTransition(ev, m.step)
	}
	return nil
}

func (m *Machine) transition(to Step) {
	from := m.step
	if from == to {
		return
	}
	if from == StepCamera {
		m.pendingRelease = true
	}
	m.step = to
	metrics.StepTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	m.logger.Debug().Str("from", string(from)).Str("to", string(to)).Msg("wizard transition")
}

func (m *Machine) takeRelease() bool {
	r := m.pendingRelease
	m.pendingRelease = false
	return r
}

func (m *Machine) restart() {
	m.abortTransform()
	m.record = Record{}
	m.transition(InitialStep)
}

// abortTransform invalidates any in-flight transformation so its result is dropped.
func (m *Machine) abortTransform() {
	m.generation++
	if m.cancelTransform != nil {
		m.cancelTransform()
		m.cancelTransform = nil
	}
}

func (m *Machine) startTransform() {
	m.abortTransform()
	gen := m.generation
	ctx, cancel := context.WithTimeout(m.ctx, m.timeout)
	m.cancelTransform = cancel
	req := portrait.Request{
		Image: m.record.CapturedImage,
		Wish:  m.record.Wish,
		Name:  m.record.Name,
		Email: m.record.Email,
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		res, err := m.provider.Transform(ctx, req)
		_ = m.Dispatch(transformDone{generation: gen, result: res, err: err})
	}()
}

func (m *Machine) finishTransform(done transformDone) {
	if done.generation != m.generation || m.step != StepTransform {
		metrics.StaleResultsTotal.Inc()
		m.logger.Debug().Uint64("generation", done.generation).Msg("discarding stale transformation result")
		return
	}
	m.cancelTransform = nil
	if done.err != nil {
		m.notify(VariantError, "Virhe", portrait.Message(done.err))
		m.transition(StepCamera)
		return
	}
	m.record.ElfImageURL = done.result.ImageURL
	if done.result.RecordID != "" {
		m.record.ID = done.result.RecordID
	}
	m.transition(StepResult)
}

func (m *Machine) notify(v Variant, title, description string) {
	m.notes = append(m.notes, Notification{Variant: v, Title: title, Description: description})
}

// Snapshot returns a copy of the current step and record.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{Step: m.step, Record: m.record}
}

// Step returns the current step.
func (m *Machine) Step() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

// Notifications drains the queued notifications.
func (m *Machine) Notifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.notes
	m.notes = nil
	return out
}

// Notify queues a notification raised outside the machine, e.g. by a
// failed badge issuance.
func (m *Machine) Notify(v Variant, title, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify(v, title, description)
}

// BadgeTarget returns the issuance input, or ErrBadgeUnavailable when the
// badge action must not be offered.
func (m *Machine) BadgeTarget() (BadgeTarget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.step != StepResult && m.step != StepCertificate {
		return BadgeTarget{}, ErrBadgeUnavailable
	}
	if !m.record.BadgeAvailable() || !m.record.HasPortrait() {
		return BadgeTarget{}, ErrBadgeUnavailable
	}
	return BadgeTarget{Name: m.record.Name, Email: m.record.Email, RecordID: m.record.ID}, nil
}

// Wait blocks until in-flight transformations have returned.
func (m *Machine) Wait() {
	m.wg.Wait()
}

// Close cancels any in-flight transformation, releases the camera if the
// session was on the camera step and waits for background work to end.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.abortTransform()
	release := m.step == StepCamera
	m.mu.Unlock()

	m.stop()
	if release && m.onRelease != nil {
		m.onRelease()
	}
	m.wg.Wait()
}
