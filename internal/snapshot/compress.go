package snapshot

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	codecOnce  sync.Once
	codecErr   error
	compressor *zstd.Encoder
	expander   *zstd.Decoder
)

// zstdMagic первые байты любого zstd-кадра
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// MaxDecodedBytes предельный размер распакованного снимка. Кадры, объявляющие
// или дающие больше, отклоняются до выделения памяти под результат.
const MaxDecodedBytes = 256 << 20

func newDecoder(limit uint64) (*zstd.Decoder, error) {
	return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(limit))
}

// EncodeAll/DecodeAll безопасны для конкурентного использования, кодек общий на процесс
func codec() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		compressor, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if codecErr != nil {
			return
		}
		expander, codecErr = newDecoder(MaxDecodedBytes)
	})
	return compressor, expander, codecErr
}

// EncodeCompressed записывает снимок в JSON, сжатый zstd
func EncodeCompressed(snap Snapshot) ([]byte, error) {
	data, err := Encode(snap)
	if err != nil {
		return nil, err
	}
	enc, _, err := codec()
	if err != nil {
		return nil, fmt.Errorf("zstd init: %w", err)
	}
	return enc.EncodeAll(data, make([]byte, 0, len(data)/4)), nil
}

// DecodeCompressed распаковывает и разбирает снимок
func DecodeCompressed(data []byte) (Snapshot, error) {
	_, dec, err := codec()
	if err != nil {
		return Snapshot{}, fmt.Errorf("zstd init: %w", err)
	}
	return decompress(dec, data)
}

func decompress(dec *zstd.Decoder, data []byte) (Snapshot, error) {
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: decompression failed: %v", ErrInvalidSnapshot, err)
	}
	return Decode(raw)
}

// IsCompressed проверяет, начинаются ли данные с zstd-кадра
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// DecodeAny разбирает снимок в JSON или в zstd, определяя формат по содержимому
func DecodeAny(data []byte) (Snapshot, error) {
	if IsCompressed(data) {
		return DecodeCompressed(data)
	}
	return Decode(data)
}
