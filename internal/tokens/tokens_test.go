package tokens

import "testing"

func TestTiktokenCounter_Count(t *testing.T) {
	c := NewTiktokenCounter()

	got := c.Count("What is photosynthesis and why do plants need it?")
	if got <= 0 {
		t.Errorf("Count() = %d, want positive", got)
	}

	if c.Count("") != 0 {
		t.Errorf("Count(empty) = %d, want 0", c.Count(""))
	}
}

func TestTiktokenCounter_Reuse(t *testing.T) {
	c := NewTiktokenCounter()

	first := c.Count("hello world")
	second := c.Count("hello world")
	if first != second {
		t.Errorf("repeated counts differ: %d vs %d", first, second)
	}
}

func TestEstimate(t *testing.T) {
	if got := Estimate("12345678"); got != 2 {
		t.Errorf("Estimate() = %d, want 2", got)
	}
	if got := Estimate(""); got != 0 {
		t.Errorf("Estimate(empty) = %d, want 0", got)
	}
}
