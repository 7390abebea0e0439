package portrait

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteProviderSuccess(t *testing.T) {
	var got remoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(remoteResponse{Success: true, ImageURL: "https://cdn.example.test/elf.png", ID: "rec-1"})
	}))
	defer srv.Close()

	p := NewRemoteProvider(RemoteConfig{URL: srv.URL, APIKey: "anon-key"})
	res, err := p.Transform(context.Background(), Request{Image: "data:image/jpeg;base64,AAAA", Wish: "Lego", Name: "Aino"})
	require.NoError(t, err)

	assert.Equal(t, Result{ImageURL: "https://cdn.example.test/elf.png", RecordID: "rec-1"}, res)
	assert.Equal(t, remoteRequest{Name: "Aino", Wish: "Lego", ImageBase64: "data:image/jpeg;base64,AAAA"}, got)
}

func TestRemoteProviderReportsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(remoteResponse{Success: false, Error: "quota exceeded"})
	}))
	defer srv.Close()

	_, err := NewRemoteProvider(RemoteConfig{URL: srv.URL}).Transform(context.Background(), Request{Image: "x"})
	require.ErrorIs(t, err, ErrTransformationFailed)
	assert.Equal(t, "quota exceeded", Message(err))
}

func TestRemoteProviderFailureStatuses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "server error with json", status: http.StatusInternalServerError, body: `{"success":false,"error":"model offline"}`, message: "model offline"},
		{name: "server error plain", status: http.StatusBadGateway, body: "bad gateway", message: DefaultFailureMessage},
		{name: "ok but not json", status: http.StatusOK, body: "<html>", message: DefaultFailureMessage},
		{name: "ok without image", status: http.StatusOK, body: `{"success":true}`, message: DefaultFailureMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewRemoteProvider(RemoteConfig{URL: srv.URL}).Transform(context.Background(), Request{Image: "x"})
			require.ErrorIs(t, err, ErrTransformationFailed)
			assert.Equal(t, tt.message, Message(err))
		})
	}
}

func TestRemoteProviderTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewRemoteProvider(RemoteConfig{URL: url}).Transform(context.Background(), Request{Image: "x"})
	require.ErrorIs(t, err, ErrTransformationFailed)
}

func TestRemoteProviderRateLimitRespectsContext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(remoteResponse{Success: true, ImageURL: "https://cdn.example.test/a.png"})
	}))
	defer srv.Close()

	p := NewRemoteProvider(RemoteConfig{URL: srv.URL, Rate: 0.001, Burst: 1})
	_, err := p.Transform(context.Background(), Request{Image: "x"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Transform(ctx, Request{Image: "x"})
	require.ErrorIs(t, err, ErrTransformationFailed)
	assert.Contains(t, Message(err), "ruuhkautunut")
	assert.EqualValues(t, 1, calls.Load())
}
