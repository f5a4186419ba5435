package language

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"en", "en"},
		{" EN ", "en"},
		{"eng", "en"},
		{"English", "en"},
		{"en-US", "en"},
		{"pt_BR", "pt"},
		{"ger", "de"},
		{"chi", "zh"},
		{"mandarin", "zh"},
		{"xx", "xx"},
		{"klingon", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := Normalize(tc.input); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestKnown(t *testing.T) {
	if !Known("fra") {
		t.Fatal("expected fra to be known")
	}
	if Known("xx") {
		t.Fatal("expected xx to be unknown")
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("es"); got != "Spanish" {
		t.Fatalf("DisplayName(es) = %q", got)
	}
	if got := DisplayName("xx"); got != "XX" {
		t.Fatalf("DisplayName(xx) = %q", got)
	}
	if got := DisplayName(" "); got != "Unknown" {
		t.Fatalf("DisplayName(blank) = %q", got)
	}
}
