package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func newTestLogger(verbose, debug bool) (Logger, *bytes.Buffer, *bytes.Buffer) {
	color.NoColor = true
	var out, errOut bytes.Buffer
	return Logger{Verbose: verbose, Debug: debug, Out: &out, Err: &errOut}, &out, &errOut
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		debug     bool
		wantInfo  bool
		wantDebug bool
	}{
		{"quiet", false, false, false, false},
		{"verbose", true, false, true, false},
		{"debug", false, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, out, _ := newTestLogger(tt.verbose, tt.debug)
			l.Infof("opened %s", "vault")
			l.Debugf("scrypt took %dms", 40)

			if got := strings.Contains(out.String(), "[info] opened vault"); got != tt.wantInfo {
				t.Errorf("info shown = %v, want %v (output %q)", got, tt.wantInfo, out.String())
			}
			if got := strings.Contains(out.String(), "[debug] scrypt took 40ms"); got != tt.wantDebug {
				t.Errorf("debug shown = %v, want %v (output %q)", got, tt.wantDebug, out.String())
			}
		})
	}
}

func TestWarnAndErrorAlwaysShown(t *testing.T) {
	l, out, errOut := newTestLogger(false, false)
	l.Warnf("session expires in %d minutes", 2)
	l.Errorf("cannot open %s", "vault.db")

	if out.Len() != 0 {
		t.Errorf("stdout = %q, want empty", out.String())
	}
	if !strings.Contains(errOut.String(), "[warn] session expires in 2 minutes") {
		t.Errorf("stderr missing warning: %q", errOut.String())
	}
	if !strings.Contains(errOut.String(), "[error] cannot open vault.db") {
		t.Errorf("stderr missing error: %q", errOut.String())
	}
}

func TestErrorfAndReturn(t *testing.T) {
	cause := errors.New("boom")

	quiet, _, quietErr := newTestLogger(false, false)
	err := quiet.ErrorfAndReturn("rotating %s: %w", "botc", cause)
	if !errors.Is(err, cause) {
		t.Errorf("ErrorfAndReturn() does not wrap cause: %v", err)
	}
	if err.Error() != "rotating botc: boom" {
		t.Errorf("ErrorfAndReturn() = %q", err.Error())
	}
	if quietErr.Len() != 0 {
		t.Errorf("non-debug ErrorfAndReturn() logged %q", quietErr.String())
	}

	debug, _, debugErr := newTestLogger(false, true)
	_ = debug.ErrorfAndReturn("rotating %s: %w", "botc", cause)
	if !strings.Contains(debugErr.String(), "[error] rotating botc: boom") {
		t.Errorf("debug ErrorfAndReturn() did not log: %q", debugErr.String())
	}
}
