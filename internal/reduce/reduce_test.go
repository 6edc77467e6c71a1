package reduce

import (
	"errors"
	"strings"
	"testing"
)

// pad grows markup past the minimum-content threshold without adding
// anything the annotator would react to.
func pad(n int) string {
	return strings.Repeat("a", n)
}

func TestReduce_StripsNoiseNodes(t *testing.T) {
	markup := `<html><body><script>alert(1)</script><style>p{}</style>` +
		`<iframe src="x"></iframe><p>` + pad(400) + `</p></body></html>`
	out, err := Reduce(markup, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tag := range []string{"<script", "<style", "<iframe"} {
		if strings.Contains(out, tag) {
			t.Fatalf("noise node %q survived", tag)
		}
	}
}

func TestReduce_AnnotatesTablesAndKeywordItems(t *testing.T) {
	markup := `<html><body><table><tr><td>x</td></tr></table>` +
		`<li>ставка 12%</li><li>ничего интересного</li>` +
		`<p>лимит 5000 BYN</p><p>` + pad(400) + `</p></body></html>`
	out, err := Reduce(markup, Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `<table data-critical="table">`) {
		t.Fatalf("table not marked:\n%s", out)
	}
	if !strings.Contains(out, `<li data-critical="important">ставка 12%`) {
		t.Fatalf("keyword list item not marked:\n%s", out)
	}
	if !strings.Contains(out, `<p data-critical="important">лимит 5000 BYN</p>`) {
		t.Fatalf("keyword paragraph not marked:\n%s", out)
	}
	if strings.Contains(out, `<li data-critical="important">ничего`) {
		t.Fatal("plain list item wrongly marked")
	}
}

func TestReduce_MinimumContentBoundary(t *testing.T) {
	// The threshold applies to the serialized cleaned document, which wraps
	// bare text in html/head/body tags. Measure that overhead first, then
	// probe one rune on either side of the boundary.
	probe, err := Reduce(pad(400), Config{})
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	overhead := len([]rune(probe)) - 400

	just, err := Reduce(pad(MinContent-overhead), Config{})
	if err != nil {
		t.Fatalf("length %d must be accepted: %v", MinContent, err)
	}
	if got := len([]rune(just)); got != MinContent {
		t.Fatalf("expected output of exactly %d runes, got %d", MinContent, got)
	}
	if _, err := Reduce(pad(MinContent-overhead-1), Config{}); !errors.Is(err, ErrContentTooSmall) {
		t.Fatalf("length %d must be rejected, got %v", MinContent-1, err)
	}
}

func TestReduce_TruncatesToBudget(t *testing.T) {
	out, err := Reduce("<p>"+pad(5000)+"</p>", Config{Budget: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len([]rune(out)); got > 1000 {
		t.Fatalf("budget exceeded: %d", got)
	}
}

func TestReduce_InitialWindowAppliesBeforeParsing(t *testing.T) {
	// A marker beyond the window must not survive into the output.
	markup := "<p>" + pad(2000) + "</p><p>MARKER</p>"
	out, err := Reduce(markup, Config{InitialWindow: 1500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "MARKER") {
		t.Fatal("content beyond the initial window leaked through")
	}
}

func TestPlainText_JoinsAndCaps(t *testing.T) {
	markup := `<html><body><script>x()</script><h1>Кредит</h1>` +
		`<p>ставка   12%</p><li>срок 5 лет</li></body></html>`
	text := PlainText(markup, 0)
	if text != "Кредит ставка 12% срок 5 лет" {
		t.Fatalf("unexpected text: %q", text)
	}
	capped := PlainText(markup, 10)
	if got := len([]rune(capped)); got != 10 {
		t.Fatalf("cap not applied: %d", got)
	}
}
