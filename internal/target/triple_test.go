package target

import "testing"

func TestParseTriple(t *testing.T) {
	tests := []struct {
		in      string
		want    Triple
		wantErr bool
	}{
		{in: "x86_64-linux-gnu", want: Triple{ArchX8664, OSLinux, ABIGnu}},
		{in: "aarch64-macos", want: Triple{ArchAarch64, OSMacos, ""}},
		{in: "x86_64-windows-msvc", want: Triple{ArchX8664, OSWindows, ABIMsvc}},
		{in: "mips-linux-gnu", want: Triple{"mips", OSLinux, ABIGnu}}, // parses, fails at classify
		{in: "x86_64", wantErr: true},
		{in: "a-b-c-d", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseTriple(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTriple(%q) = %v, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTriple(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTriple(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTripleString(t *testing.T) {
	tests := []struct {
		triple Triple
		want   string
	}{
		{Triple{ArchX8664, OSLinux, ABIGnu}, "x86_64-linux-gnu"},
		{Triple{ArchAarch64, OSMacos, ""}, "aarch64-macos"},
		{Triple{ArchAarch64, OSMacos, ABIAny}, "aarch64-macos"},
	}
	for _, tt := range tests {
		if got := tt.triple.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseStringRoundTrip(t *testing.T) {
	for _, triple := range Supported() {
		parsed, err := ParseTriple(triple.String())
		if err != nil {
			t.Fatalf("round trip of %v failed: %v", triple, err)
		}
		if parsed != triple {
			t.Errorf("round trip of %v gave %v", triple, parsed)
		}
	}
}

func TestHostIsWellFormed(t *testing.T) {
	host := Host()
	if host.Arch == "" || host.OS == "" {
		t.Fatalf("Host() = %v, missing arch or os", host)
	}
}
