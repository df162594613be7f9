package crypto

import "testing"

func TestTranscriptDeterministic(t *testing.T) {
	s1, _ := RandomScalar()
	p1 := BasePoint.Mul(s1)

	a := NewTranscript("test-domain").UpdateScalar(s1).UpdatePoint(p1).Challenge()
	b := NewTranscript("test-domain").UpdateScalar(s1).UpdatePoint(p1).Challenge()
	if !a.Equal(b) {
		t.Error("identical update sequences produced different challenges")
	}

	c := NewTranscript("other-domain").UpdateScalar(s1).UpdatePoint(p1).Challenge()
	if a.Equal(c) {
		t.Error("different domains produced the same challenge")
	}
}

func TestTranscriptCloneIndependence(t *testing.T) {
	base := NewTranscript("clone-test")
	clone := base.Clone()

	clone.UpdateBytes([]byte("round-1"))
	if base.Challenge().Equal(clone.Challenge()) {
		t.Error("mutating a clone must not affect the original")
	}
}

func TestTranscriptOrderSensitive(t *testing.T) {
	a, _ := RandomScalar()
	b, _ := RandomScalar()

	t1 := NewTranscript("order").UpdateScalar(a).UpdateScalar(b).Challenge()
	t2 := NewTranscript("order").UpdateScalar(b).UpdateScalar(a).Challenge()
	if t1.Equal(t2) {
		t.Error("update order should affect the challenge")
	}
}
