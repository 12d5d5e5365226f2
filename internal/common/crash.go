// -----------------------------------------------------------------------
// Crash Protection - Fatal error handling and crash file generation
// -----------------------------------------------------------------------

package common

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"
)

// CrashLogDir is the directory where crash files will be written
var CrashLogDir = "./logs"

var (
	crashMu      sync.Mutex
	crashContext = map[string]string{}
)

// InstallCrashHandler sets the crash directory. Pair with a deferred RecoverWithCrashFile.
func InstallCrashHandler(logDir string) {
	if logDir != "" {
		CrashLogDir = logDir
	}

	if err := os.MkdirAll(CrashLogDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: Failed to create log directory: %v\n", err)
	}
}

// SetCrashContext records a fact about the current run (run id, results dir) for any
// crash report written later. An empty value removes the key.
func SetCrashContext(key, value string) {
	crashMu.Lock()
	defer crashMu.Unlock()
	if value == "" {
		delete(crashContext, key)
		return
	}
	crashContext[key] = value
}

func crashContextLines() []string {
	crashMu.Lock()
	defer crashMu.Unlock()
	lines := make([]string, 0, len(crashContext))
	for key, value := range crashContext {
		lines = append(lines, fmt.Sprintf("%s: %s", key, value))
	}
	sort.Strings(lines)
	return lines
}

// WriteCrashFile writes a crash report and returns its path
func WriteCrashFile(panicVal interface{}, stackTrace string) string {
	now := time.Now()
	crashPath := filepath.Join(CrashLogDir, fmt.Sprintf("crash-%s.log", now.Format("2006-01-02T15-04-05")))

	var report bytes.Buffer
	fmt.Fprintf(&report, "=== GRIDCHECK CRASH REPORT ===\nTime: %s\nVersion: %s\n\n", now.Format(time.RFC3339), GetFullVersion())

	report.WriteString("=== RUN ===\n")
	for _, line := range crashContextLines() {
		report.WriteString(line + "\n")
	}
	report.WriteString("\n")

	fmt.Fprintf(&report, "=== PANIC ===\n%v\n\n", panicVal)
	fmt.Fprintf(&report, "=== STACK ===\n%s\n", stackTrace)
	fmt.Fprintf(&report, "=== GOROUTINES (%d) ===\n%s\n", runtime.NumGoroutine(), allGoroutineStacks())
	report.WriteString("=== END CRASH REPORT ===\n")

	if err := os.WriteFile(crashPath, report.Bytes(), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: Failed to write crash file: %v\n%s", err, report.String())
		return ""
	}

	fmt.Fprintf(os.Stderr, "\n!!! FATAL CRASH - Report saved to: %s !!!\nPanic: %v\n", crashPath, panicVal)
	return crashPath
}

// allGoroutineStacks grows the buffer until every goroutine's stack fits, up to 64 MB
func allGoroutineStacks() string {
	buf := make([]byte, 64*1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) || len(buf) >= 64*1024*1024 {
			return string(buf[:n])
		}
		buf = make([]byte, len(buf)*2)
	}
}

// RecoverWithCrashFile is a helper for deferred panic recovery that writes a crash file.
// Usage: defer common.RecoverWithCrashFile()
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		buf := make([]byte, 8192)
		n := runtime.Stack(buf, false)
		WriteCrashFile(r, string(buf[:n]))
		os.Exit(2)
	}
}
