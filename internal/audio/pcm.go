// Package audio 提供 PCM16 编解码、定长分帧与 WAV 读写。
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// SampleRate 是实时会话采集与播放使用的采样率。
const SampleRate = 24000

// FrameSize 是采集端每帧的样本数。
const FrameSize = 4096

// QuantizeSample 将浮点样本限幅到 [-1,1] 后量化为 int16：负值乘 0x8000，正值乘 0x7FFF。
// NaN 量化为 0。
func QuantizeSample(s float32) int16 {
	if s != s {
		return 0
	}
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(s * 0x8000)
	}
	return int16(s * 0x7FFF)
}

// FloatToPCM16 批量量化。
func FloatToPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = QuantizeSample(s)
	}
	return out
}

// PCM16ToFloat 将 int16 样本转换为 [-1,1) 浮点（除以 32768）。
func PCM16ToFloat(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// PCM16Bytes 以小端序编码样本。
func PCM16Bytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// BytesToPCM16 解码小端序样本，奇数长度视为错误。
func BytesToPCM16(data []byte) ([]int16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("pcm16 payload has odd length %d", len(data))
	}
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out, nil
}

// EncodeBase64PCM16 编码为 base64 字符串（实时协议的 audio 字段）。
func EncodeBase64PCM16(samples []int16) string {
	return base64.StdEncoding.EncodeToString(PCM16Bytes(samples))
}

// DecodeBase64PCM16 解码 base64 音频增量。
func DecodeBase64PCM16(encoded string) ([]int16, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64 audio: %w", err)
	}
	return BytesToPCM16(raw)
}
