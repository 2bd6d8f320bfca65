package network

import "testing"

func TestUid(t *testing.T) {
	a, b := NewUid(), NewUid()
	if a == EmptyUid || a == b {
		t.Fatalf("expected two distinct ids, got %v and %v", a, b)
	}
	if !ValidUid(a) {
		t.Errorf("%v should be valid", a)
	}
	if ValidUid("garbage") {
		t.Errorf("garbage should not be valid")
	}
	if s := a.Short(); len(s) != 7 || s[3] != '.' {
		t.Errorf("unexpected short form %v", s)
	}
	if s := Uid("abc").Short(); s != "abc" {
		t.Errorf("short ids should stay as is, got %v", s)
	}
}
