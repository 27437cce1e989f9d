package patch

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestAppendIDThenExtractIDRoundTrips(t *testing.T) {
	id := uuid.New()
	msg := AppendID("Fix the thing\n\nLonger body.\n", id)
	got := ExtractID(msg)
	if got == nil || *got != id {
		t.Fatalf("ExtractID(%q) = %v, want %v", msg, got, id)
	}
}

func TestAppendIDTrimsTrailingNewlinesBeforeAppending(t *testing.T) {
	id := uuid.New()
	msg := AppendID("Summary\n\n\n", id)
	if strings.Contains(msg, "\n\n\n<!-- ps-id:") {
		t.Fatalf("expected trailing newlines to be trimmed before the trailer, got %q", msg)
	}
}

func TestExtractIDAbsent(t *testing.T) {
	if id := ExtractID("Just a summary, no trailer."); id != nil {
		t.Fatalf("got %v, want nil", id)
	}
}

func TestExtractIDMalformedUUIDIgnored(t *testing.T) {
	msg := "Summary\n<!-- ps-id: not-a-uuid -->\n"
	if id := ExtractID(msg); id != nil {
		t.Fatalf("got %v, want nil for malformed uuid", id)
	}
}
