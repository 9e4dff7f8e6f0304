package wire

import (
	"bytes"
	"testing"
)

func TestEncodeAppendsTerminator(t *testing.T) {
	got := Encode("hello")
	want := []byte{'h', 'e', 'l', 'l', 'o', 0}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode = %q, want %q", got, want)
	}
	if got := Encode(""); !bytes.Equal(got, []byte{0}) {
		t.Fatalf("Encode(\"\") = %q", got)
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"terminated", []byte("hi\x00"), "hi"},
		{"unterminated", []byte("hi"), "hi"},
		{"stale tail", []byte("hi\x00there"), "hi"},
		{"empty", []byte{0}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.in); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single", "a\x00", []string{"a"}},
		{"coalesced", "10.0.0.2 has connected!\x00Server: ok\x00", []string{"10.0.0.2 has connected!", "Server: ok"}},
		{"partial tail", "a\x00b", []string{"a", "b"}},
		{"empty segments", "\x00\x00a\x00", []string{"a"}},
		{"nothing", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split([]byte(tt.in))
			if len(got) != len(tt.want) {
				t.Fatalf("Split(%q) = %q, want %q", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Split(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}
