package checksum

import "testing"

func TestSum(t *testing.T) {
	got := Sum([]byte("hello"))
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("Sum = %q, want %q", got, want)
	}
	if !Valid(got) {
		t.Error("Sum output should be valid")
	}
}

func TestValid(t *testing.T) {
	for _, s := range []string{"", "abc", "../../etc/passwd", Sum(nil)[:63] + "G"} {
		if Valid(s) {
			t.Errorf("Valid(%q) = true", s)
		}
	}
}
