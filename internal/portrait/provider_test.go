package portrait

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cristianadrielbraun/tonttukioski/internal/config"
	"github.com/cristianadrielbraun/tonttukioski/internal/log"
	"github.com/cristianadrielbraun/tonttukioski/internal/store"
)

type fakeRecorder struct {
	rows []store.Record
	err  error
}

func (f *fakeRecorder) CreateRecord(_ context.Context, rec store.Record) (store.Record, error) {
	if f.err != nil {
		return store.Record{}, f.err
	}
	rec.ID = "row-1"
	f.rows = append(f.rows, rec)
	return rec, nil
}

type stubProvider struct {
	res Result
	err error
}

func (s stubProvider) Transform(context.Context, Request) (Result, error) { return s.res, s.err }

func TestFailedErrorMatching(t *testing.T) {
	cause := errors.New("boom")
	err := Failed("", cause)

	assert.ErrorIs(t, err, ErrTransformationFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, DefaultFailureMessage, Message(err))
	assert.Equal(t, DefaultFailureMessage, Message(errors.New("other")))
	assert.Equal(t, "quota exceeded", Message(Failed("quota exceeded", nil)))
}

func TestRecordingAddsRecordID(t *testing.T) {
	rec := &fakeRecorder{}
	p := NewRecording(stubProvider{res: Result{ImageURL: "data:image/jpeg;base64,AA=="}}, rec, log.Nop())

	res, err := p.Transform(context.Background(), Request{Name: "Aino", Wish: "Lego", Email: "aino@example.test"})
	require.NoError(t, err)
	assert.Equal(t, "row-1", res.RecordID)
	require.Len(t, rec.rows, 1)
	assert.Equal(t, "Aino", rec.rows[0].Name)
	assert.Empty(t, rec.rows[0].ImageURL, "data urls are not persisted")
}

func TestRecordingKeepsUpstreamID(t *testing.T) {
	rec := &fakeRecorder{}
	p := NewRecording(stubProvider{res: Result{ImageURL: "https://x.test/a.png", RecordID: "upstream"}}, rec, log.Nop())

	res, err := p.Transform(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "upstream", res.RecordID)
	assert.Empty(t, rec.rows)
}

func TestRecordingToleratesStoreFailure(t *testing.T) {
	p := NewRecording(stubProvider{res: Result{ImageURL: "https://x.test/a.png"}}, &fakeRecorder{err: errors.New("disk full")}, log.Nop())

	res, err := p.Transform(context.Background(), Request{})
	require.NoError(t, err)
	assert.Empty(t, res.RecordID)
}

func TestRecordingPassesFailureThrough(t *testing.T) {
	rec := &fakeRecorder{}
	p := NewRecording(stubProvider{err: Failed("nope", nil)}, rec, log.Nop())

	_, err := p.Transform(context.Background(), Request{})
	require.ErrorIs(t, err, ErrTransformationFailed)
	assert.Empty(t, rec.rows)
}

func TestNewSelectsStrategy(t *testing.T) {
	local := New(config.Transform{}, nil, log.Nop())
	inst, ok := local.(*instrumented)
	require.True(t, ok)
	assert.Equal(t, StrategyLocal, inst.strategy)
	assert.IsType(t, &Compositor{}, inst.next)

	withRec := New(config.Transform{}, &fakeRecorder{}, log.Nop()).(*instrumented)
	assert.IsType(t, &Recording{}, withRec.next)

	remote := New(config.Transform{URL: "https://fn.example.test/elf-image"}, &fakeRecorder{}, log.Nop()).(*instrumented)
	assert.Equal(t, StrategyRemote, remote.strategy)
	assert.IsType(t, &RemoteProvider{}, remote.next)
}
