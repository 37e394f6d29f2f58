package common

import "testing"

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"\ufeffCity":    "city",
		" Temperature ": "temperature",
		"season":        "season",
	}
	for in, want := range cases {
		if got := NormalizeHeader(in); got != want {
			t.Fatalf("NormalizeHeader(%q) = %q, want %q", in, got, want)
		}
	}
}
