package utils

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"punctuation stripped", "My Project!!", "my-project"},
		{"simple", "Acme", "acme"},
		{"spaces collapse", "a   b", "a-b"},
		{"mixed runs", "Hello, World -- 2026", "hello-world-2026"},
		{"leading trailing", "--trim me--", "trim-me"},
		{"digits kept", "v2 Launch", "v2-launch"},
		{"all symbols", "!!!", ""},
		{"empty", "", ""},
		{"unicode dropped", "café ☕ au lait", "caf-au-lait"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlugSuffix(t *testing.T) {
	a, b := SlugSuffix(), SlugSuffix()
	if len(a) != 6 || len(b) != 6 {
		t.Fatalf("suffix length = %d/%d, want 6", len(a), len(b))
	}
	if a == b {
		t.Error("two suffixes should (almost always) differ")
	}
}
