//go:build xz

package blob

import (
	"bytes"
	"io"

	"github.com/ulikunitz/xz"
)

// xzCodec backs CodecXZ. Registered only when built with -tags xz.
type xzCodec struct{}

func (xzCodec) ID() CodecID { return CodecXZ }

func (xzCodec) Compress(data []byte) ([]byte, error) {
	var out bytes.Buffer
	w, err := xz.NewWriter(&out)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (xzCodec) Decompress(data []byte, size int) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func init() {
	RegisterCodec(xzCodec{})
}
