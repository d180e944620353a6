package ratelimit

import "testing"

func TestAllowBurstThenDeny(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("client-a", 3, 0) {
			t.Fatalf("request %d should pass within burst capacity", i)
		}
	}
	if l.Allow("client-a", 3, 0) {
		t.Fatalf("request past capacity should be denied")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()
	for i := 0; i < 2; i++ {
		l.Allow("client-a", 2, 0)
	}
	if l.Allow("client-a", 2, 0) {
		t.Fatalf("client-a should be exhausted")
	}
	if !l.Allow("client-b", 2, 0) {
		t.Fatalf("client-b has its own bucket")
	}
}
