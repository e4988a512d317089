package telemetry

import (
	"fmt"
	"log/slog"
	"os"
)

// InitSlog sets the default slog logger, verbose enables debug level logs.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// SlogAPI implements API using the log/slog package.
type SlogAPI struct {
	// Attrs are attached to every record, ex. the id of the current run.
	Attrs []any
}

// With returns a copy of the SlogAPI with the given key value pairs attached.
func (s SlogAPI) With(args ...any) SlogAPI {
	attrs := make([]any, 0, len(s.Attrs)+len(args))
	attrs = append(attrs, s.Attrs...)
	attrs = append(attrs, args...)
	return SlogAPI{Attrs: attrs}
}

func (s SlogAPI) WithAttrs(args ...any) API {
	return s.With(args...)
}

func (s SlogAPI) formatParams(out *[]any, params []any) {
	*out = append(*out, s.Attrs...)
	for i, p := range params {
		if kv, ok := p.(KV); ok {
			*out = append(*out, kv.Key, kv.Value)
			continue
		}
		*out = append(
			*out,
			fmt.Sprintf("params.%d", i),
			p,
		)
	}
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	slog.Error("broken component", remainingPairs...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	slog.Warn("warning", remainingPairs...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	remainingPairs := []any{}
	s.formatParams(&remainingPairs, params)
	slog.Debug(message, remainingPairs...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	remainingPairs := []any{"id", id, "n", count}
	remainingPairs = append(remainingPairs, s.Attrs...)
	slog.Info("count", remainingPairs...)
}
