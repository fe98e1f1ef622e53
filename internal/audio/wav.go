package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Format 描述 PCM 格式。
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultFormat 是实时会话使用的 24kHz/16bit/单声道。
var DefaultFormat = Format{SampleRate: SampleRate, Channels: 1, BitsPerSample: 16}

// EncodeWAV 为 PCM 数据加上 44 字节 WAV 头。
func EncodeWAV(pcm []byte, f Format) []byte {
	dataLen := len(pcm)
	byteRate := f.SampleRate * f.Channels * f.BitsPerSample / 8
	blockAlign := f.Channels * f.BitsPerSample / 8

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(f.BitsPerSample))
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	return append(header, pcm...)
}

// ErrNotWAV 表示输入不是 RIFF/WAVE。
var ErrNotWAV = errors.New("not a RIFF/WAVE stream")

// DecodeWAV 解析 PCM WAV，返回格式与 data 块内容。跳过未知块。
func DecodeWAV(r io.Reader) (Format, []byte, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Format{}, nil, fmt.Errorf("read riff header: %w", err)
	}
	if !bytes.Equal(riff[0:4], []byte("RIFF")) || !bytes.Equal(riff[8:12], []byte("WAVE")) {
		return Format{}, nil, ErrNotWAV
	}

	var (
		format    Format
		gotFormat bool
	)
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return Format{}, nil, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return Format{}, nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return Format{}, nil, fmt.Errorf("fmt chunk too short: %d", len(body))
			}
			if tag := binary.LittleEndian.Uint16(body[0:2]); tag != 1 {
				return Format{}, nil, fmt.Errorf("unsupported wav encoding %d", tag)
			}
			format = Format{
				Channels:      int(binary.LittleEndian.Uint16(body[2:4])),
				SampleRate:    int(binary.LittleEndian.Uint32(body[4:8])),
				BitsPerSample: int(binary.LittleEndian.Uint16(body[14:16])),
			}
			gotFormat = true
		case "data":
			if !gotFormat {
				return Format{}, nil, errors.New("wav data chunk before fmt chunk")
			}
			data := make([]byte, size)
			n, err := io.ReadFull(r, data)
			if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
				return Format{}, nil, fmt.Errorf("read data chunk: %w", err)
			}
			return format, data[:n], nil
		default:
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return Format{}, nil, fmt.Errorf("skip %q chunk: %w", id, err)
			}
		}
		if size%2 == 1 && id == "fmt " {
			if _, err := io.CopyN(io.Discard, r, 1); err != nil {
				return Format{}, nil, err
			}
		}
	}
}
