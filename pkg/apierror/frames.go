package apierror

import (
	"runtime"
	"strings"
)

// MaxReportedFrames is how many trailing frames telemetry keeps.
const MaxReportedFrames = 5

// maxCapturedFrames bounds the stack walk.
const maxCapturedFrames = 32

// Frame is one entry of a captured call stack.
type Frame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Capture returns the call stack of its caller, skipping skip extra frames.
// Runtime internals are dropped.
func Capture(skip int) []Frame {
	pcs := make([]uintptr, maxCapturedFrames)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	out := make([]Frame, 0, n)
	for {
		f, more := frames.Next()
		if !strings.HasPrefix(f.Function, "runtime.") {
			out = append(out, Frame{Function: f.Function, File: f.File, Line: f.Line})
		}
		if !more {
			break
		}
	}
	return out
}

// Tail returns at most n frames from the end of frames.
func Tail(frames []Frame, n int) []Frame {
	if n <= 0 || len(frames) == 0 {
		return nil
	}
	if len(frames) <= n {
		out := make([]Frame, len(frames))
		copy(out, frames)
		return out
	}
	out := make([]Frame, n)
	copy(out, frames[len(frames)-n:])
	return out
}
