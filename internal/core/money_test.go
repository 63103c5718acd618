package core

import "testing"

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"0", 0, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{".5", 50, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1e3", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{".", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents() != tc.out {
				t.Fatalf("%q expected %d cents, got %d (err=%v)", tc.in, tc.out, got.Cents(), err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyArithmeticStaysExact(t *testing.T) {
	sum := Zero
	for i := 0; i < 10; i++ {
		sum = sum.Add(MoneyFromCents(10)) // 0.10 ten times
	}
	if sum.String() != "1.00" {
		t.Fatalf("expected 1.00, got %s", sum)
	}
	if !sum.Equal(MoneyFromCents(100)) {
		t.Fatalf("expected equality with 100 cents")
	}
}

func TestPercentOfZeroTotal(t *testing.T) {
	got := MoneyFromCents(500).PercentOf(Zero)
	if !got.IsZero() {
		t.Fatalf("expected 0%%, got %s", got)
	}
	got = MoneyFromCents(5000).PercentOf(MoneyFromCents(15000))
	if got.String() != "33.3" {
		t.Fatalf("expected 33.3, got %s", got)
	}
}
