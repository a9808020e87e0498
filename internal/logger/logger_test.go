package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestDebugfHonoursVerbose(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf)

	l.Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("Debugf wrote %q while quiet", buf.String())
	}

	l.SetVerbose(true)
	l.Debugf("shown %d", 2)
	if !strings.Contains(buf.String(), "shown 2") {
		t.Errorf("Debugf output = %q", buf.String())
	}
	if !l.Verbose() {
		t.Error("Verbose() = false after SetVerbose(true)")
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.SetVerbose(true)
	l.Printf("nothing %s", "here")
	l.Debugf("nothing %s", "here")
}
