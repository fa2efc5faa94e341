package reformat

import "testing"

func TestNormalize_HyphenBreaks(t *testing.T) {
	// WHAT: words split across line breaks by PDF extraction are rejoined.
	got := Normalize("The solu-\ntion was simple.")
	want := "The solution was simple."
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalize_SpacedCaps(t *testing.T) {
	// WHAT: letter-spaced uppercase heading lines collapse their single
	// spaces, including partial spacings with multi-letter fragments.
	// Word rejoining for fully concatenated results is left to the
	// formatting service.
	tests := []struct {
		in   string
		want string
	}{
		{"S T O R Y T E L L I N G", "STORYTELLING"},
		{"G R E AT  I D EAS", "GREAT IDEAS"},
		{"THE MASTER SKILL", "THE MASTER SKILL"}, // no stray letters, kept
		{"A normal sentence stays untouched.", "A normal sentence stays untouched."},
		{"OK", "OK"}, // too short to qualify
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_PageFurniture(t *testing.T) {
	// WHAT: standalone page numbers, running footers, and blank-line runs
	// disappear; body text survives.
	in := "First paragraph of the chapter.\n\n42\n\n\n\n\nSecond paragraph continues here."
	want := "First paragraph of the chapter.\n\nSecond paragraph continues here."
	if got := Normalize(in); got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	// WHY: a manuscript may be re-processed after an earlier run already
	// normalized its text; the second pass must change nothing.
	inputs := []string{
		"The solu-\ntion was simple.\n\n17\n\nS T O R Y T E L L I N G\n\nMore text.",
		"G R E AT  I D EAS\n\nBody paragraph follows.",
		"a-\nb-\nc chained hyphen breaks",
		"plain text with nothing to fix",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: second pass gave %q, first gave %q", in, twice, once)
		}
	}
}

func TestNormalize_CleanTextUnchanged(t *testing.T) {
	// WHY: most manuscript text has no artifacts and must pass through
	// byte for byte.
	inputs := []string{
		"plain text with nothing to fix",
		"Two paragraphs.\n\nSeparated by one blank line.",
		"",
	}
	for _, in := range inputs {
		if got := Normalize(in); got != in {
			t.Errorf("Normalize(%q) = %q, want unchanged", in, got)
		}
	}
}
