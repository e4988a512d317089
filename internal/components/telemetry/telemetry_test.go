package telemetry

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func captureSlog(t *testing.T) *bytes.Buffer {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var out bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return &out
}

func TestScopedAPI(t *testing.T) {
	recorder := &Recorder{}
	scoped := NewScopedAPI("catalog", NewScopedAPI("studia_scraper", recorder))

	scoped.ReportBroken("fetch-page", fmt.Errorf("boom"))
	scoped.ReportCount("records", 3)

	broken := recorder.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, "studia_scraper: catalog: fetch-page", broken[0].ID)

	count, ok := recorder.LastCount("records")
	require.True(t, ok)
	require.Equal(t, int64(3), count)
}

func TestSlogAttrs(t *testing.T) {
	out := captureSlog(t)

	tel := WithAttrs(NewScopedAPI("monitor", SlogAPI{}), "run", "abc123")
	tel.ReportWarning("monitor.incomplete", KV{Key: "pages", Value: 4}, "extra")

	line := out.String()
	require.Contains(t, line, "id=\"monitor: monitor.incomplete\"")
	require.Contains(t, line, "run=abc123")
	require.Contains(t, line, "pages=4")
	require.Contains(t, line, "params.1=extra")
}

func TestWithAttrsPassthrough(t *testing.T) {
	recorder := &Recorder{}
	require.Same(t, recorder, WithAttrs(recorder, "run", "x"))
}

type memoryOutput struct {
	mu       sync.Mutex
	messages map[string]string
}

func (m *memoryOutput) Write(id string, contents string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.messages == nil {
		m.messages = map[string]string{}
	}
	m.messages[id] = contents
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-test", "1")
		fmt.Fprint(w, "pong")
	}))
	defer server.Close()

	recorder := &Recorder{}
	output := &memoryOutput{}
	client := resty.New()
	InstrumentResty(client, recorder, output)

	res, err := client.R().
		SetContext(context.Background()).
		SetFormData(map[string]string{"pag": "0"}).
		Post(server.URL + "/ping")
	require.NoError(t, err)
	require.Equal(t, "pong", res.String())

	require.True(t, recorder.Has("debug", report_resty_request))
	require.True(t, recorder.Has("debug", report_resty_response))

	message := output.messages["1"]
	require.Contains(t, message, "POST "+server.URL+"/ping")
	require.Contains(t, message, "pag=0")
	require.Contains(t, message, "200 "+server.URL+"/ping")
	require.Contains(t, message, "X-Test: 1")
	require.Contains(t, message, "pong")
}

func TestDirectoryOutput(t *testing.T) {
	dir := t.TempDir()
	output, err := NewDirectoryOutput(dir, &Recorder{})
	require.NoError(t, err)
	output.Write("7", "contents")

	data, err := os.ReadFile(filepath.Join(dir, "7.txt"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(data))
}
