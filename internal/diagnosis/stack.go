package diagnosis

import (
	"fmt"
	"runtime"
	"strings"
)

// publishFrames is the number of frames captureStack may have to skip inside
// this package (Publish, its generic wrapper and captureStack itself).
const publishFrames = 4

// captureStack returns up to depth frames of the goroutine that called
// Handle.Publish, formatted as "function file:line".
func captureStack(depth int) []string {
	if depth < 1 {
		depth = 1
	}
	pcs := make([]uintptr, depth+publishFrames)
	n := runtime.Callers(1, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, depth)
	for {
		frame, more := frames.Next()
		if len(stack) > 0 || !isPublishFrame(frame.Function) {
			stack = append(stack, fmt.Sprintf("%s %s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more || len(stack) == depth {
			break
		}
	}
	return stack
}

func isPublishFrame(function string) bool {
	return strings.HasSuffix(function, "diagnosis.captureStack") ||
		strings.Contains(function, "diagnosis.(*handle[")
}
