package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBatchID     = "batch_id"
	KeyRoute       = "route"
	KeyOutputPath  = "output_path"
	KeyFailureKind = "failure_kind"
	KeyEngine      = "engine"
	KeyRoutes      = "routes"
	KeyDurationMS  = "duration_ms"
	KeyBytes       = "bytes"
	KeyError       = "error"
	KeyMethod      = "method"
	KeyPath        = "path"
	KeyStatus      = "status"
	KeyRemoteAddr  = "remote_addr"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BatchID(id string) slog.Attr       { return slog.String(KeyBatchID, id) }
func Route(r string) slog.Attr          { return slog.String(KeyRoute, r) }
func OutputPath(p string) slog.Attr     { return slog.String(KeyOutputPath, p) }
func FailureKind(k string) slog.Attr    { return slog.String(KeyFailureKind, k) }
func Engine(name string) slog.Attr      { return slog.String(KeyEngine, name) }
func Routes(n int) slog.Attr            { return slog.Int(KeyRoutes, n) }
func Bytes(n int) slog.Attr             { return slog.Int(KeyBytes, n) }
func Method(m string) slog.Attr         { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr         { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr     { return slog.String(KeyRemoteAddr, a) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
