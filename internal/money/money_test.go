package money

import "testing"

func TestFormat(t *testing.T) {
	tests := []struct {
		copper int64
		want   string
	}{
		{0, "0g 0s 0c"},
		{5, "0g 0s 5c"},
		{123, "0g 1s 23c"},
		{10000, "1g 0s 0c"},
		{1234567, "123g 45s 67c"},
		{-27, "-0g 0s 27c"},
		{-10101, "-1g 1s 1c"},
	}
	for _, tt := range tests {
		if got := Format(tt.copper); got != tt.want {
			t.Errorf("Format(%d) = %q, want %q", tt.copper, got, tt.want)
		}
	}
}
