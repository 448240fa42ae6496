package logger

import "testing"

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"ola.nordmann@example.no": "o***@example.no",
		"a@b.no":                  "a***@b.no",
		"":                        "",
		"not-an-email":            "***",
		"@nolocal.no":             "***",
	}
	for in, want := range cases {
		if got := MaskEmail(in); got != want {
			t.Fatalf("MaskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abc", 3); got != "abc" {
		t.Fatalf("truncate = %q", got)
	}
}
