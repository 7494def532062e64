// Package debug switches extra log output on per category.
//
// Categories are picked with RESPKIT_DEBUG (or observability.debug in the
// config file), e.g. RESPKIT_DEBUG=client,codec. "all" enables every
// category. Output goes through slog.Default at debug level, so the log level
// must also allow it. At TRACE level, enabled categories additionally dump
// raw wire payloads.
//
//	debug.Log("client", "request", "method", "POST", "url", url)
package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"sync/atomic"
)

// EnvVar names the environment variable holding the category list.
const EnvVar = "RESPKIT_DEBUG"

// LevelTrace sits below slog.LevelDebug.
const LevelTrace = slog.LevelDebug - 4

type set map[string]bool

func (s set) has(category string) bool { return s["all"] || s[category] }

var enabled atomic.Pointer[set]

// rawOut receives Raw output.
var rawOut io.Writer = os.Stderr

func init() {
	enable(parse(os.Getenv(EnvVar)))
}

// Init enables the given comma-separated categories unless RESPKIT_DEBUG is
// set, which takes precedence.
func Init(configured string) {
	if v := os.Getenv(EnvVar); v != "" {
		configured = v
	}
	enable(parse(configured))
}

func enable(s set) { enabled.Store(&s) }

// Enabled reports whether category is switched on.
func Enabled(category string) bool {
	return enabled.Load().has(category)
}

// Log writes a debug record tagged with category.
func Log(category, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Tracing reports whether raw payload dumps for category would be written.
func Tracing(category string) bool {
	return Enabled(category) && slog.Default().Enabled(context.Background(), LevelTrace)
}

// Raw prints text unformatted when Tracing(category) holds.
func Raw(category, text string) {
	if Tracing(category) {
		fmt.Fprintln(rawOut, text)
	}
}

// ParseLevel maps TRACE, DEBUG, INFO, WARN(ING) and ERROR, in any case, to a
// slog level. Anything else is INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// String lists the enabled categories, sorted.
func String() string {
	return strings.Join(slices.Sorted(maps.Keys(*enabled.Load())), ",")
}

func parse(s string) set {
	out := set{}
	for _, c := range strings.Split(s, ",") {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			out[c] = true
		}
	}
	return out
}
