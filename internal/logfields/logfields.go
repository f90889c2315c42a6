// Package logfields holds canonical slog attribute keys.
package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPath       = "path"
	KeyRouteKey   = "route_key"
	KeyStage      = "stage"
	KeyTheme      = "theme"
	KeyWorkers    = "workers"
	KeyDocuments  = "documents"
	KeyFailed     = "failed"
	KeyDurationMS = "duration_ms"
	KeyFormat     = "format"
	KeyOutput     = "output"
	KeyError      = "error"
)

func Path(p string) slog.Attr       { return slog.String(KeyPath, p) }
func RouteKey(k string) slog.Attr   { return slog.String(KeyRouteKey, k) }
func Stage(name string) slog.Attr   { return slog.String(KeyStage, name) }
func Theme(name string) slog.Attr   { return slog.String(KeyTheme, name) }
func Workers(n int) slog.Attr       { return slog.Int(KeyWorkers, n) }
func Documents(n int) slog.Attr     { return slog.Int(KeyDocuments, n) }
func Failed(n int) slog.Attr        { return slog.Int(KeyFailed, n) }
func Format(f string) slog.Attr     { return slog.String(KeyFormat, f) }
func Output(path string) slog.Attr  { return slog.String(KeyOutput, path) }

// Duration records d in fractional milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
