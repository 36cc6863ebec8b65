package natskv

import "testing"

func TestKVKey(t *testing.T) {
	tests := map[string]string{
		"user:123":   "user.123",
		"plain":      "plain",
		"a:b:c":      "a.b.c",
		"idem.abcde": "idem.abcde",
	}
	for in, want := range tests {
		if got := kvKey(in); got != want {
			t.Errorf("kvKey(%q) = %q, want %q", in, got, want)
		}
	}
}
