package record

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Compression is the container format a record file is stored in.
type Compression int

const (
	Raw Compression = iota
	Gzip
	Zlib
)

func (c Compression) String() string {
	switch c {
	case Raw:
		return "raw"
	case Gzip:
		return "gzip"
	case Zlib:
		return "zlib"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}

func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gzip":
		return Gzip, nil
	case "zlib":
		return Zlib, nil
	case "raw", "none":
		return Raw, nil
	}
	return Raw, fmt.Errorf("unknown compression %q (want gzip|zlib|raw)", s)
}

// Sniff classifies b by its magic bytes. Anything that is neither a gzip
// member nor a deflate zlib header is treated as an uncompressed stream.
func Sniff(b []byte) Compression {
	if len(b) < 2 {
		return Raw
	}
	if b[0] == 0x1f && b[1] == 0x8b {
		return Gzip
	}
	if b[0]&0x0f == 8 && b[0]>>4 <= 7 && (uint16(b[0])<<8|uint16(b[1]))%31 == 0 {
		return Zlib
	}
	return Raw
}

// ErrPayloadTooLarge reports a stream that inflates beyond the store's limit.
var ErrPayloadTooLarge = errors.New("decompressed payload exceeds limit")

// decompress inflates b. A stream that expands to more than limit bytes is
// rejected before the excess is buffered.
func decompress(c Compression, b []byte, limit int64) ([]byte, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	switch c {
	case Gzip:
		rc, err = gzip.NewReader(bytes.NewReader(b))
	case Zlib:
		rc, err = zlib.NewReader(bytes.NewReader(b))
	default:
		return b, nil
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	out, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrPayloadTooLarge, limit)
	}
	return out, nil
}

func compress(c Compression, b []byte) ([]byte, error) {
	var (
		buf bytes.Buffer
		w   io.WriteCloser
	)
	switch c {
	case Gzip:
		w = gzip.NewWriter(&buf)
	case Zlib:
		w = zlib.NewWriter(&buf)
	case Raw:
		return b, nil
	default:
		return nil, fmt.Errorf("unknown compression %v", c)
	}
	if _, err := w.Write(b); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
