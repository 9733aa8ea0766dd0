package rgraph

import "testing"

func TestInternStable(t *testing.T) {
	a := Intern("scene/color")
	b := Intern("scene/color")
	if a != b {
		t.Fatalf("Intern not stable across calls: have %d and %d", a, b)
	}
	if Intern("scene/color") == Intern("scene/depth") {
		t.Fatalf("Intern collided on distinct strings")
	}
}

func TestCombineDiffersOnOrder(t *testing.T) {
	h1 := Combine(Combine(0, 1), 2)
	h2 := Combine(Combine(0, 2), 1)
	if h1 == h2 {
		t.Fatalf("Combine(Combine(0,1),2) == Combine(Combine(0,2),1): %d", h1)
	}
}
