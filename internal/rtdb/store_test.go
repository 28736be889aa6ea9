package rtdb

import "testing"

func TestJoin(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{[]string{"/kontakDarurat", "abc"}, "/kontakDarurat/abc"},
		{[]string{"/a/", "/b//", "c"}, "/a/b/c"},
		{[]string{""}, "/"},
	}
	for _, c := range cases {
		if got := Join(c.in...); got != c.want {
			t.Errorf("Join(%q): got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValidKey(t *testing.T) {
	valid := []string{"-NqX1abc", "0", "contact_1", "0190a1b2-c3d4-7e5f-8a9b-0c1d2e3f4a5b"}
	invalid := []string{"", "a/b", "a.b", "$x", "#x", "[x]", "tab\there"}
	for _, k := range valid {
		if !ValidKey(k) {
			t.Errorf("ValidKey(%q): got false, want true", k)
		}
	}
	for _, k := range invalid {
		if ValidKey(k) {
			t.Errorf("ValidKey(%q): got true, want false", k)
		}
	}
}

func TestKeyLess(t *testing.T) {
	ordered := []string{"-5", "0", "2", "10", "01", "a", "b"}
	for i := 1; i < len(ordered); i++ {
		if !keyLess(ordered[i-1], ordered[i]) {
			t.Errorf("keyLess(%q, %q): got false, want true", ordered[i-1], ordered[i])
		}
		if keyLess(ordered[i], ordered[i-1]) {
			t.Errorf("keyLess(%q, %q): got true, want false", ordered[i], ordered[i-1])
		}
	}
}
