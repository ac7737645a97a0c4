package workers

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"roomchat/observability"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestHTTPServerWorker_Serves_Until_Cancelled(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	addr := freeAddr(t)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "ok")
	})

	var shutdownCalls atomic.Int32
	worker := NewHTTPServerWorker(log, addr, handler, time.Second).
		OnShutdown(func() { shutdownCalls.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- worker.Run(ctx) }()

	// Then the server answers requests
	req.Eventually(func() bool {
		resp, err := http.Get("http://" + addr)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	// When the context is cancelled
	cancel()

	// Then it shuts down cleanly and runs the shutdown hook
	select {
	case err := <-result:
		req.NoError(err)
	case <-time.After(2 * time.Second):
		req.Fail("server did not stop")
	}
	req.Eventually(func() bool { return shutdownCalls.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestHTTPServerWorker_Fails_On_Busy_Address(t *testing.T) {
	req := require.New(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	defer l.Close()

	worker := NewHTTPServerWorker(logs.GetLoggerFromLevel(slog.LevelDebug), l.Addr().String(), http.NotFoundHandler(), time.Second)

	req.Error(worker.Run(context.Background()))
}

func TestProcessStatsWorker(t *testing.T) {
	req := require.New(t)
	p, err := process.NewProcess(int32(os.Getpid()))
	req.NoError(err)

	rss, _, err := selfStats(p)
	req.NoError(err)
	req.Positive(rss)

	worker := NewProcessStatsWorker(logs.GetLoggerFromLevel(slog.LevelDebug), observability.NewMetrics(), 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req.NoError(worker.Run(ctx))
}
