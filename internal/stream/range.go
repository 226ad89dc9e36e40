package stream

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRange is returned for malformed or out-of-bounds Range headers.
// The wrapped message carries the original header text for server-side logs.
var ErrInvalidRange = errors.New("invalid request range")

// ByteRange is an inclusive byte interval within a file:
// 0 <= Start <= End < file size.
type ByteRange struct {
	Start int64
	End   int64
}

// Len returns the number of bytes covered by the range.
func (r ByteRange) Len() int64 {
	return r.End - r.Start + 1
}

// ContentRange renders the Content-Range header value for a 206 response.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseRange parses a Range header of the form "bytes=<start>-<end>" against
// the file size. Either position may be omitted: an empty start means 0 and
// an empty end means size-1, so "bytes=100-" on a 1000-byte file yields
// (100, 999).
//
// Suffix ranges are not supported: "bytes=-500" is read as positions
// (0, 500), not as the last 500 bytes. This is a known deviation from
// RFC 7233 kept for compatibility with existing clients of this server.
//
// Multi-range headers, non-numeric positions, start > end, and
// end >= size are all rejected with ErrInvalidRange.
func ParseRange(header string, size int64) (ByteRange, error) {
	invalid := fmt.Errorf("%w (Range:%q)", ErrInvalidRange, header)

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return ByteRange{}, invalid
	}
	if strings.Contains(spec, ",") {
		return ByteRange{}, invalid
	}

	startText, endText, ok := strings.Cut(spec, "-")
	if !ok {
		return ByteRange{}, invalid
	}

	br := ByteRange{Start: 0, End: size - 1}
	if startText != "" {
		start, err := strconv.ParseInt(startText, 10, 64)
		if err != nil {
			return ByteRange{}, invalid
		}
		br.Start = start
	}
	if endText != "" {
		end, err := strconv.ParseInt(endText, 10, 64)
		if err != nil {
			return ByteRange{}, invalid
		}
		br.End = end
	}

	if br.Start > br.End || br.Start < 0 || br.End > size-1 {
		return ByteRange{}, invalid
	}
	return br, nil
}
