package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/rxplay/web/server/types"
)

func TestChain(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mw("a"), mw("b"), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "handler"}, order)

	rec := httptest.NewRecorder()
	Chain(mw("c")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "handler", "c"}, order)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.PanicsWithValue(t, "middleware: unsupported chain item of type string",
		func() { Chain("invalid") })
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var got string
	h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = types.RequestID(r.Context())
	}))

	t.Run("ok/generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Len(t, got, 36)
		assert.Equal(t, got, rec.Header().Get(RequestIDHeader))
	})

	t.Run("ok/from_client", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "client-id")
		h.ServeHTTP(rec, req)
		assert.Equal(t, "client-id", got)
		assert.Equal(t, "client-id", rec.Header().Get(RequestIDHeader))
	})
}

func TestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := Chain(RequestID(), Logger(logger), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("tea"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/brew", nil)
	req.Header.Set(RequestIDHeader, "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, `level=INFO msg="GET /brew"`)
	assert.Contains(t, out, "response_code=418")
	assert.Contains(t, out, "bytes_sent=3")
	assert.Contains(t, out, "request_id=abc")

	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Contains(t, buf.String(), `level=WARN msg="GET /fail"`)
	assert.Contains(t, buf.String(), "response_code=502")
}

func TestRecover(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)

	t.Run("ok/panic", func(t *testing.T) {
		t.Parallel()

		h := Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal Server Error: boom", rec.Body.String())
	})

	t.Run("ok/abort_propagated", func(t *testing.T) {
		t.Parallel()

		h := Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(http.ErrAbortHandler)
		}))
		assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		})
	})
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	sink := metrics.NewInmemSink(time.Minute, time.Minute)
	cfg := metrics.DefaultConfig("test")
	cfg.EnableHostname = false
	cfg.EnableRuntimeMetrics = false
	cfg.EnableServiceLabel = false
	m, err := metrics.New(cfg, sink)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /mono", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	h := Metrics(m)(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/mono", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	data := sink.Data()
	require.NotEmpty(t, data)
	counters := map[string]int{}
	for _, interval := range data {
		for _, c := range interval.Counters {
			counters[c.Name+";"+labelValues(c.Labels)] += c.Count
		}
	}
	assert.Equal(t, 1, counters["test.http.requests;GET /mono,200"])
	assert.Equal(t, 1, counters["test.http.requests;unmatched,404"])
}

func labelValues(labels []metrics.Label) string {
	var b bytes.Buffer
	for i, l := range labels {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(l.Value)
	}
	return b.String()
}
