package jobclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	c := NewClient(&http.Client{Timeout: 2 * time.Second})
	c.PollInterval = 5 * time.Millisecond
	c.Timeout = 2 * time.Second
	c.IDGenerator = func() string { return "req-1" }
	return c
}

func TestCall_DirectReply(t *testing.T) {
	var got Envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/enqueue", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"req-1","result":{"ok":true,"views":[{"viewId":"1","name":"Level 1"}]}}`))
	}))
	defer srv.Close()

	payload, err := newTestClient().Call(context.Background(), srv.URL, "list_views", nil)
	require.NoError(t, err)

	assert.Equal(t, true, payload["ok"])
	assert.Len(t, payload["views"], 1)
	assert.Equal(t, "2.0", got.JSONRPC)
	assert.Equal(t, "list_views", got.Method)
	assert.Equal(t, "req-1", got.ID)
}

func TestCall_PollsUntilSucceeded(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/enqueue":
			_, _ = w.Write([]byte(`{"jobId":"j1"}`))
		case "/job/j1":
			if atomic.AddInt32(&polls, 1) < 3 {
				_, _ = w.Write([]byte(`{"state":"QUEUED"}`))
				return
			}
			inner := `{"result":{"data":{"ok":true,"elements":[{"stableId":"A"}]}}}`
			body, _ := json.Marshal(map[string]interface{}{"state": "SUCCEEDED", "result_json": inner})
			_, _ = w.Write(body)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	payload, err := newTestClient().Call(context.Background(), srv.URL, "snapshot", map[string]interface{}{"viewId": "1"})
	require.NoError(t, err)

	assert.Equal(t, true, payload["ok"])
	assert.Len(t, payload["elements"], 1)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&polls), int32(3))
}

func TestCall_JobFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/enqueue" {
			_, _ = w.Write([]byte(`{"job_id":"j2"}`))
			return
		}
		_, _ = w.Write([]byte(`{"state":"FAILED","error_msg":"view is not printable"}`))
	}))
	defer srv.Close()

	_, err := newTestClient().Call(context.Background(), srv.URL, "snapshot", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFailed))
	assert.Contains(t, err.Error(), "view is not printable")

	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, KindFailed, remoteErr.Kind)
}

func TestCall_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/enqueue" {
			_, _ = w.Write([]byte(`{"jobId":"slow"}`))
			return
		}
		_, _ = w.Write([]byte(`{"state":"RUNNING"}`))
	}))
	defer srv.Close()

	c := newTestClient()
	start := time.Now()
	_, err := c.Call(context.Background(), srv.URL, "snapshot", nil, WithTimeout(80*time.Millisecond))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Less(t, time.Since(start), time.Second)
}

func TestCall_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	_, err := newTestClient().Call(context.Background(), endpoint, "list_views", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnreachable))
}

func TestCall_RPCErrorReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"req-1","error":{"code":-32601,"message":"method not found"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient().Call(context.Background(), srv.URL, "nope", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFailed))
	assert.Contains(t, err.Error(), "method not found")
}

func TestCall_ReplyWithoutResultOrJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"accepted"}`))
	}))
	defer srv.Close()

	_, err := newTestClient().Call(context.Background(), srv.URL, "list_views", nil)
	assert.True(t, errors.Is(err, ErrFailed))
}

func TestCall_PollsWhenResultIsNull(t *testing.T) {
	cases := map[string]string{
		"null result":   `{"jsonrpc":"2.0","id":"req-1","jobId":"j1","result":null}`,
		"nested job id": `{"jsonrpc":"2.0","id":"req-1","result":{"jobId":"j1"}}`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			var polls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/enqueue":
					_, _ = w.Write([]byte(reply))
				case "/job/j1":
					atomic.AddInt32(&polls, 1)
					_, _ = w.Write([]byte(`{"state":"SUCCEEDED","result":{"ok":true,"elements":[{"stableId":"A"},{"stableId":"B"}]}}`))
				default:
					http.NotFound(w, r)
				}
			}))
			defer srv.Close()

			payload, err := newTestClient().Call(context.Background(), srv.URL, "snapshot", nil)
			require.NoError(t, err)

			assert.Equal(t, int32(1), atomic.LoadInt32(&polls))
			assert.Equal(t, true, payload["ok"])
			assert.Len(t, payload["elements"], 2)
			assert.NotContains(t, payload, "jsonrpc")
		})
	}
}

func TestCall_NullResultWithoutJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"req-1","result":null}`))
	}))
	defer srv.Close()

	_, err := newTestClient().Call(context.Background(), srv.URL, "snapshot", nil)
	assert.True(t, errors.Is(err, ErrFailed))
}

func TestUnwrap(t *testing.T) {
	t.Run("nested wrappers", func(t *testing.T) {
		v := map[string]interface{}{
			"result": map[string]interface{}{
				"payload": `{"data":{"ok":false,"msg":"no view"}}`,
			},
		}
		got := Unwrap(v)
		assert.Equal(t, false, got["ok"])
		assert.Equal(t, "no view", got["msg"])
	})

	t.Run("depth is capped", func(t *testing.T) {
		var v interface{} = map[string]interface{}{"leaf": true}
		for i := 0; i < MaxUnwrapDepth+5; i++ {
			v = map[string]interface{}{"result": v}
		}
		assert.Empty(t, Unwrap(v))
	})

	t.Run("unparseable string", func(t *testing.T) {
		assert.Empty(t, Unwrap("not json at all"))
	})

	t.Run("domain key without ok", func(t *testing.T) {
		got := Unwrap(map[string]interface{}{"data": map[string]interface{}{"views": []interface{}{}}})
		assert.Contains(t, got, "views")
	})
}
