package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	payload := []byte("ftyp-and-friends")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Test") != "yes" {
			http.Error(w, "missing header", http.StatusBadRequest)
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	client := New(Config{})

	body, size, err := Get(context.Background(), client, srv.URL+"/file.mp4", map[string]string{"X-Test": "yes"})
	require.NoError(t, err)
	defer body.Close()
	require.Equal(t, int64(len(payload)), size)

	got, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	_, _, err = Get(context.Background(), client, srv.URL+"/missing", nil)
	require.Error(t, err)
}

func TestSlowBodyOutlivesHeaderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "200")
		w.Write(make([]byte, 100))
		w.(http.Flusher).Flush()
		time.Sleep(400 * time.Millisecond)
		w.Write(make([]byte, 100))
	}))
	defer srv.Close()

	client := New(Config{HeaderTimeout: 200 * time.Millisecond})
	body, size, err := Get(context.Background(), client, srv.URL, nil)
	require.NoError(t, err)
	defer body.Close()
	require.Equal(t, int64(200), size)

	got, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Len(t, got, 200)
}

func TestHeaderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client := New(Config{HeaderTimeout: 100 * time.Millisecond})
	_, _, err := Get(context.Background(), client, srv.URL, nil)
	require.Error(t, err)
}
