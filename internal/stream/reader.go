package stream

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// DefaultChunkSize caps a single Read when no size is configured.
const DefaultChunkSize int64 = 1 << 20 // 1 MiB

// ChunkReader streams the bytes of a file between two inclusive offsets.
// Reads never return more than the chunk size per call and the underlying
// file is closed as soon as the range is exhausted, a read fails, or the
// reader is closed. A ChunkReader is single-pass; re-reading a range means
// constructing a fresh reader.
type ChunkReader struct {
	file   afero.File
	pos    int64
	end    int64
	chunk  int64
	closed bool
}

// NewChunkReader opens path on fs and positions it at br.Start.
func NewChunkReader(fs afero.Fs, path string, br ByteRange, chunkSize int64) (*ChunkReader, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if br.Start < 0 || br.Start > br.End {
		return nil, fmt.Errorf("chunk reader: bad range %d-%d", br.Start, br.End)
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("chunk reader: open: %w", err)
	}
	if _, err := f.Seek(br.Start, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("chunk reader: seek to %d: %w", br.Start, err)
	}

	return &ChunkReader{
		file:  f,
		pos:   br.Start,
		end:   br.End,
		chunk: chunkSize,
	}, nil
}

func (r *ChunkReader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, io.EOF
	}
	if r.pos > r.end {
		r.Close()
		return 0, io.EOF
	}

	limit := int64(len(p))
	if limit > r.chunk {
		limit = r.chunk
	}
	if remaining := r.end - r.pos + 1; limit > remaining {
		limit = remaining
	}

	n, err := r.file.Read(p[:limit])
	r.pos += int64(n)
	if err != nil {
		// Mid-stream failure: release the handle immediately. Partial
		// bytes already handed out cannot be retried by this reader.
		r.Close()
		if err == io.EOF && r.pos <= r.end {
			return n, io.ErrUnexpectedEOF
		}
		return n, err
	}
	if r.pos > r.end {
		r.Close()
		return n, io.EOF
	}
	return n, nil
}

// Close releases the file handle. Safe to call more than once.
func (r *ChunkReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}
