package stream_test

import (
	"errors"
	"testing"

	"mediastream/internal/stream"
)

func TestParseRange(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		header string
		size   int64
		want   stream.ByteRange
		ok     bool
	}{
		{"explicit bounds", "bytes=0-1023", 2048, stream.ByteRange{Start: 0, End: 1023}, true},
		{"open end", "bytes=100-", 1000, stream.ByteRange{Start: 100, End: 999}, true},
		{"open start", "bytes=-500", 1000, stream.ByteRange{Start: 0, End: 500}, true},
		{"full file", "bytes=0-999", 1000, stream.ByteRange{Start: 0, End: 999}, true},
		{"single byte", "bytes=42-42", 1000, stream.ByteRange{Start: 42, End: 42}, true},
		{"start after end", "bytes=200-100", 1000, stream.ByteRange{}, false},
		{"end beyond size", "bytes=0-999999", 1000, stream.ByteRange{}, false},
		{"end equals size", "bytes=0-1000", 1000, stream.ByteRange{}, false},
		{"non numeric", "bytes=abc-def", 1000, stream.ByteRange{}, false},
		{"missing preamble", "items=0-1", 1000, stream.ByteRange{}, false},
		{"multi range", "bytes=0-1,2-3", 1000, stream.ByteRange{}, false},
		{"no separator", "bytes=100", 1000, stream.ByteRange{}, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := stream.ParseRange(tc.header, tc.size)
			if tc.ok {
				if err != nil {
					t.Fatalf("ParseRange(%q, %d) error = %v", tc.header, tc.size, err)
				}
				if got != tc.want {
					t.Fatalf("ParseRange(%q, %d) = %+v, want %+v", tc.header, tc.size, got, tc.want)
				}
				return
			}
			if !errors.Is(err, stream.ErrInvalidRange) {
				t.Fatalf("ParseRange(%q, %d) error = %v, want ErrInvalidRange", tc.header, tc.size, err)
			}
		})
	}
}

func TestByteRangeHelpers(t *testing.T) {
	t.Parallel()

	br := stream.ByteRange{Start: 100, End: 199}
	if br.Len() != 100 {
		t.Fatalf("Len() = %d, want 100", br.Len())
	}
	if got := br.ContentRange(1000); got != "bytes 100-199/1000" {
		t.Fatalf("ContentRange() = %q", got)
	}
}
