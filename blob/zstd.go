//go:build zstd

package blob

import "github.com/klauspost/compress/zstd"

// zstdCodec backs CodecZstd. Registered only when built with -tags zstd.
type zstdCodec struct{}

func (zstdCodec) ID() CodecID { return CodecZstd }

func (zstdCodec) Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func (zstdCodec) Decompress(data []byte, size int) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, make([]byte, 0, size))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func init() {
	RegisterCodec(zstdCodec{})
}
