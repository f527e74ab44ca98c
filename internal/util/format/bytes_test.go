package format

import "testing"

func TestHumanizeBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{bytes: -5, want: "0 B"},
		{bytes: 0, want: "0 B"},
		{bytes: 1023, want: "1023 B"},
		{bytes: 1024, want: "1.0 KB"},
		{bytes: 1536, want: "1.5 KB"},
		{bytes: 15728640, want: "15.0 MB"},
		{bytes: 1536 << 20, want: "1.5 GB"},
		{bytes: 1 << 40, want: "1.0 TB"},
		{bytes: 3 << 50, want: "3.0 PB"},
		{bytes: 1 << 62, want: "4.0 EB"},
	}
	for _, tt := range tests {
		if got := HumanizeBytes(tt.bytes); got != tt.want {
			t.Errorf("HumanizeBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "1024kB", want: 1024000},
		{in: "1KiB", want: 1024},
		{in: "1.5MiB", want: 1572864},
		{in: "12MB", want: 12000000},
		{in: "42", want: 42},
		{in: "  256 kB ", want: 256000},
		{in: "lots", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseSize(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// Sizes reported by the encoder in kB come back out in binary units.
func TestParseSize_Humanized(t *testing.T) {
	tests := map[string]string{
		"256kB":   "250.0 KB",
		"1024kB":  "1000.0 KB",
		"1.5MiB":  "1.5 MB",
		"2GiB":    "2.0 GB",
		"1048576": "1.0 MB",
	}
	for in, want := range tests {
		n, err := ParseSize(in)
		if err != nil {
			t.Fatalf("ParseSize(%q): %v", in, err)
		}
		if got := HumanizeBytes(n); got != want {
			t.Errorf("HumanizeBytes(ParseSize(%q)) = %q, want %q", in, got, want)
		}
	}
}
