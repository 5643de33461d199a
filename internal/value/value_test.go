package value

import (
	"math"
	"testing"
)

func TestOrderKeyNumberEquality(t *testing.T) {
	cases := []struct {
		a, b Value
	}{
		{UInt(15), Float(15.0)},
		{Int(-3), Float(-3.0)},
		{UInt(0), Float(0.0)},
		{Float(0.0), Float(math.Copysign(0, -1))},
		{Float(1.5), Float(1.50)},
	}
	for _, c := range cases {
		if !c.a.OrderKey().Equal(c.b.OrderKey()) {
			t.Fatalf("expected %v == %v", c.a, c.b)
		}
	}
}

func TestOrderKeyNaNEqualsItself(t *testing.T) {
	nan1 := Float(math.NaN()).OrderKey()
	nan2 := Float(math.NaN()).OrderKey()
	if !nan1.Equal(nan2) {
		t.Fatalf("expected NaN to equal NaN under OrderKey")
	}
}

func TestOrderKeyTotalOrder(t *testing.T) {
	null := Null().OrderKey()
	num := Int(5).OrderKey()
	neg := Int(-5).OrderKey()
	str := String("a").OrderKey()

	if !null.Less(num) {
		t.Fatalf("Null should be less than Number")
	}
	if !null.Less(str) {
		t.Fatalf("Null should be less than String")
	}
	if !neg.Less(num) {
		t.Fatalf("-5 should be less than 5")
	}
	if !num.Less(str) {
		t.Fatalf("Number must always order less than String")
	}
	// a string compared against a much larger number still orders the string greater
	big := Float(1e300).OrderKey()
	if !big.Less(str) {
		t.Fatalf("even a huge number must order less than any string")
	}
}

func TestOrderKeyNumericOrdering(t *testing.T) {
	vals := []Value{Int(-100), UInt(0), Float(0.5), Int(1), Float(1.5), UInt(1000000)}
	for i := 0; i < len(vals)-1; i++ {
		a, b := vals[i].OrderKey(), vals[i+1].OrderKey()
		if !a.Less(b) {
			t.Fatalf("expected %v < %v", vals[i], vals[i+1])
		}
	}
}

func TestOrderKeyAsValueRoundTrip(t *testing.T) {
	for _, v := range []Value{UInt(42), Int(-42), Float(3.5), String("hi"), Null()} {
		k := v.OrderKey()
		rt := k.AsValue()
		if !rt.OrderKey().Equal(k) {
			t.Fatalf("round-trip mismatch for %v -> %v", v, rt)
		}
	}
}

func TestValueRender(t *testing.T) {
	if Null().Render() != "" {
		t.Fatalf("Null should render empty")
	}
	if UInt(7).Render() != "7" {
		t.Fatalf("unexpected uint render")
	}
	if Int(-7).Render() != "-7" {
		t.Fatalf("unexpected int render")
	}
	if String("hello").Render() != "hello" {
		t.Fatalf("unexpected string render")
	}
}
