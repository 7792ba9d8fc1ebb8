package blob

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
)

// CodecID identifies a compression backend in a directory entry.
type CodecID byte

const (
	// CodecNone stores the blob verbatim.
	CodecNone CodecID = 0
	// CodecFlate compresses with compress/flate.
	CodecFlate CodecID = 1
	// CodecZstd selects the zstd backend registered by zstd.go. The ID is
	// always defined so WithZstd can be called regardless of build tags;
	// Put/Get fail with an "unknown codec" error if the backend was never
	// registered.
	CodecZstd CodecID = 2
	// CodecXZ selects the xz backend registered by xz.go. See CodecZstd.
	CodecXZ CodecID = 3
)

// Codec compresses and decompresses blob payloads.
type Codec interface {
	ID() CodecID
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte, size int) ([]byte, error)
}

var registry = map[CodecID]Codec{
	CodecNone:  noneCodec{},
	CodecFlate: flateCodec{},
}

// RegisterCodec makes a Codec available for Put/Get under its own ID.
// Optional backends (see zstd.go, xz.go) call this from an init func
// gated by a build tag.
func RegisterCodec(c Codec) {
	registry[c.ID()] = c
}

func codecFor(id CodecID) (Codec, error) {
	c, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("blob: unknown codec %d", id)
	}
	return c, nil
}

type noneCodec struct{}

func (noneCodec) ID() CodecID                                   { return CodecNone }
func (noneCodec) Compress(data []byte) ([]byte, error)          { return data, nil }
func (noneCodec) Decompress(data []byte, _ int) ([]byte, error) { return data, nil }

type flateCodec struct{}

func (flateCodec) ID() CodecID { return CodecFlate }

func (flateCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
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
	return buf.Bytes(), nil
}

func (flateCodec) Decompress(data []byte, size int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}
