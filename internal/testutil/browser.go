// Package testutil holds test support shared by browser-backed package tests.
package testutil

import (
	"os"
	"os/exec"
	"testing"
)

// chromeBinaries are the executable names chromedp's exec allocator looks for
var chromeBinaries = []string{
	"headless_shell",
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"google-chrome-beta",
	"google-chrome-unstable",
}

// RemoteChromeURL returns the debugging URL of an externally started Chrome, if any
func RemoteChromeURL() string {
	return os.Getenv("GRIDCHECK_CHROME_URL")
}

// ChromeAvailable reports whether a browser can be started or attached to
func ChromeAvailable() bool {
	if RemoteChromeURL() != "" {
		return true
	}
	for _, name := range chromeBinaries {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

// RequireChrome skips browser-backed tests when no Chrome is reachable or -short is set
func RequireChrome(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if !ChromeAvailable() {
		t.Skip("skipping browser test: no Chrome binary found and GRIDCHECK_CHROME_URL not set")
	}
}
