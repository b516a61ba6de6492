package app

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/stretchr/testify/require"

	actx "go.hackfix.me/rxplay/app/context"
	"go.hackfix.me/rxplay/db"
)

var timeNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func timeNowFn() time.Time {
	return timeNow
}

type testApp struct {
	*App
	stdout, stderr *safeBuffer
	env            *mockEnv
}

func newTestApp(t *testing.T, ctx context.Context, opts ...Option) *testApp {
	t.Helper()

	// A unique name per app, to avoid clashing of in-memory SQLite DBs.
	rndName := make([]byte, 12)
	_, err := rand.Read(rndName)
	require.NoError(t, err)

	// Not using just :memory: so that all connections share the same database.
	d, err := db.Open(ctx,
		fmt.Sprintf("file:rxplay-%x?mode=memory&cache=shared", rndName), timeNowFn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	var (
		stdout, stderr = newSafeBuffer(), newSafeBuffer()
		env            = &mockEnv{env: map[string]string{}}
	)

	opts = append([]Option{
		WithTimeNow(timeNowFn),
		WithEnv(env),
		WithDB(d),
		WithContext(ctx),
		WithFDs(&bytes.Buffer{}, stdout, stderr),
		WithFS(memoryfs.New()),
		WithLogger(false),
		WithMetrics(false),
	}, opts...)
	app, err := New("rxplay", "/config/config.json", "/data", opts...)
	require.NoError(t, err)

	return &testApp{App: app, stdout: stdout, stderr: stderr, env: env}
}

// Run runs the app with args. The output buffers only contain the output of
// the last run.
func (ta *testApp) Run(args ...string) error {
	ta.stdout.Reset()
	ta.stderr.Reset()

	return ta.App.Run(args)
}

type mockEnv struct {
	mx  sync.RWMutex
	env map[string]string
}

var _ actx.Environment = (*mockEnv)(nil)

func (me *mockEnv) Lookup(key string) (string, bool) {
	me.mx.RLock()
	defer me.mx.RUnlock()
	val, ok := me.env[key]
	return val, ok
}

func (me *mockEnv) Set(key, val string) {
	me.mx.Lock()
	defer me.mx.Unlock()
	me.env[key] = val
}

// safeBuffer is a thread-safe buffer.
type safeBuffer struct {
	mx  sync.RWMutex
	buf *bytes.Buffer
}

func newSafeBuffer() *safeBuffer {
	return &safeBuffer{buf: &bytes.Buffer{}}
}

func (b *safeBuffer) Write(p []byte) (n int, err error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) Reset() {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.buf.Reset()
}

func (b *safeBuffer) String() string {
	b.mx.RLock()
	defer b.mx.RUnlock()
	return b.buf.String()
}

// waitFor polls the buffer until the rxPat regex matches, and returns the
// submatch at matchIdx. It fails the test if ctx is done first.
func (b *safeBuffer) waitFor(t *testing.T, ctx context.Context, rxPat string, matchIdx int) string {
	t.Helper()

	rx := regexp.MustCompile(rxPat)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if match := rx.FindStringSubmatch(b.String()); len(match) > matchIdx {
			return match[matchIdx]
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			require.FailNow(t, "timed out waiting for output", "pattern: %s", rxPat)
			return ""
		}
	}
}
