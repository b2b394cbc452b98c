package httpwire

import (
	"reflect"
	"testing"
)

func TestEscape(t *testing.T) {
	cases := map[string]string{
		"Operational":             "Operational",
		"Warning: 1 device fault": "Warning%3A+1+device+fault",
		"a-b_c.d~e":               "a-b_c.d~e",
		"a&b=c+d/e?":              "a%26b%3Dc%2Bd%2Fe%3F",
		"é":                       "%C3%A9",
		"\n":                      "%0A",
	}
	for in, want := range cases {
		if got := Escape(in); got != want {
			t.Fatalf("Escape(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"Network Controller",
		"Critical: 3 device faults",
		"100% & rising = bad+worse",
		"тест статуса",
		"\x00\x01\xff\xfe",
	}
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	inputs = append(inputs, string(all))

	for _, in := range inputs {
		if got := Unescape(Escape(in)); got != in {
			t.Fatalf("round trip %q -> %q", in, got)
		}
	}
}

func TestUnescapeLenient(t *testing.T) {
	cases := map[string]string{
		"a+b%41":  "a bA",
		"100%":    "100%",
		"%zz":     "%zz",
		"%41%zz+": "A%zz ",
		"%4":      "%4",
		"%c3%a9":  "é",
	}
	for in, want := range cases {
		if got := Unescape(in); got != want {
			t.Fatalf("Unescape(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParsePairsKeepsOrder(t *testing.T) {
	body := "system_status=Warning%3A+1+device+fault&Device1=ok&Comm+Link=active&junk&empty="
	got := ParsePairs(body)
	want := []Pair{
		{Key: "system_status", Value: "Warning: 1 device fault"},
		{Key: "Device1", Value: "ok"},
		{Key: "Comm Link", Value: "active"},
		{Key: "empty", Value: ""},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParsePairs = %+v, want %+v", got, want)
	}

	if v, ok := Lookup(got, "Comm Link"); !ok || v != "active" {
		t.Fatalf("Lookup = %q, %v", v, ok)
	}
	if _, ok := Lookup(got, "missing"); ok {
		t.Fatalf("Lookup found missing key")
	}
}

func TestEncodePairsRoundTrip(t *testing.T) {
	pairs := []Pair{
		{Key: "system_status", Value: "Critical: 2 device faults"},
		{Key: "Storage Unit", Value: "fault"},
		{Key: "a&b", Value: "c=d"},
	}
	encoded := EncodePairs(pairs)
	if encoded != "system_status=Critical%3A+2+device+faults&Storage+Unit=fault&a%26b=c%3Dd" {
		t.Fatalf("EncodePairs = %q", encoded)
	}
	if got := ParsePairs(encoded); !reflect.DeepEqual(got, pairs) {
		t.Fatalf("round trip = %+v", got)
	}
}

func TestParsePairsEmpty(t *testing.T) {
	if got := ParsePairs(""); len(got) != 0 {
		t.Fatalf("expected no pairs, got %+v", got)
	}
}
