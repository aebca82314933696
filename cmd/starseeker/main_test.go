package main

import "testing"

func TestParseTransportArgs(t *testing.T) {
	d, p, k, err := parseTransportArgs([]string{"12.5"})
	if err != nil || d != 12.5 || p != 1 || k != 0 {
		t.Fatalf("defaults: %v %d %d %v", d, p, k, err)
	}
	d, p, k, err = parseTransportArgs([]string{"100", "4", "2"})
	if err != nil || d != 100 || p != 4 || k != 2 {
		t.Fatalf("explicit: %v %d %d %v", d, p, k, err)
	}

	for _, args := range [][]string{
		{},
		{"NaN"},
		{"Inf"},
		{"+Inf"},
		{"-Inf"},
		{"0"},
		{"-3"},
		{"ten"},
		{"10", "0"},
		{"10", "1", "-1"},
		{"10", "1", "1", "extra"},
	} {
		if _, _, _, err := parseTransportArgs(args); err == nil {
			t.Errorf("parseTransportArgs(%q) accepted", args)
		}
	}
}
