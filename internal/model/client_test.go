package model

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_Success(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrompt = r.URL.Query().Get("prompt")
		w.Write([]byte("model reply"))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second)
	reply, err := c.Complete(context.Background(), "the prompt & its specials")
	require.NoError(t, err)
	assert.Equal(t, "model reply", reply)
	assert.Equal(t, "the prompt & its specials", gotPrompt, "prompt must survive query encoding")
}

func TestComplete_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second)
	_, err := c.Complete(context.Background(), "p")
	require.Error(t, err)

	var modelErr *Error
	require.True(t, errors.As(err, &modelErr))
	assert.Equal(t, http.StatusServiceUnavailable, modelErr.StatusCode)
}

func TestComplete_AcceptsAny2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("queued reply"))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 5*time.Second)
	reply, err := c.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "queued reply", reply)
}

func TestComplete_TransportError(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", 500*time.Millisecond)
	_, err := c.Complete(context.Background(), "p")
	require.Error(t, err)

	var modelErr *Error
	assert.False(t, errors.As(err, &modelErr), "transport failures are not status errors")
}

func TestComplete_ContextCancel(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewHTTPClient(srv.URL, 30*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.Complete(ctx, "p")
	assert.Error(t, err)
}

func TestSetEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("from new endpoint"))
	}))
	defer srv.Close()

	c := NewHTTPClient("http://127.0.0.1:1", 5*time.Second)
	c.SetEndpoint(srv.URL)

	reply, err := c.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "from new endpoint", reply)
}

func TestError_Message(t *testing.T) {
	err := &Error{StatusCode: 404}
	assert.Contains(t, err.Error(), "404")
}
