package console

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrinter_WritesPlainTextToNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Success("pushed %s", "hbb_common")
	p.Warn("careful")

	got := buf.String()
	if got != "pushed hbb_common\ncareful\n" {
		t.Errorf("output = %q", got)
	}
}

func TestPrinter_Banner(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Banner("Repository: rs-client", "Path: /src/rs-client")

	out := buf.String()
	if !strings.Contains(out, "Repository: rs-client") {
		t.Error("banner should contain title")
	}
	if !strings.Contains(out, "Path: /src/rs-client") {
		t.Error("banner should contain detail")
	}
	if strings.Count(out, strings.Repeat("=", 50)) != 2 {
		t.Error("banner should be framed by two bars")
	}
}
