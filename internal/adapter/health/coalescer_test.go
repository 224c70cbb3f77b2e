package health

import "testing"

func TestValueCoalescer_FirstValueAlwaysChanges(t *testing.T) {
	var c valueCoalescer
	if !c.changed(1.0) {
		t.Fatal("first recorded value must report a change")
	}
}

func TestValueCoalescer_RepeatedValueDoesNotChange(t *testing.T) {
	var c valueCoalescer
	c.changed(1.0)
	if c.changed(1.0) {
		t.Fatal("identical consecutive value must not report a change")
	}
	if c.changed(1.0) {
		t.Fatal("identical consecutive value must not report a change")
	}
}

func TestValueCoalescer_DifferentValueChanges(t *testing.T) {
	var c valueCoalescer
	c.changed(1.0)
	if !c.changed(0.0) {
		t.Fatal("a differing value must report a change")
	}
	if c.changed(0.0) {
		t.Fatal("the new value repeated must not report a change")
	}
}
