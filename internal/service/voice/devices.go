package voice

import "context"

// CaptureConstraints 是麦克风采集约束。
type CaptureConstraints struct {
	SampleRate       int
	Channels         int
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// DefaultCaptureConstraints 返回 24kHz 单声道并开启回声消除、降噪与自动增益。
func DefaultCaptureConstraints() CaptureConstraints {
	return CaptureConstraints{
		SampleRate:       24000,
		Channels:         1,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
}

// Microphone 是音频输入设备。Open 可能因权限被拒绝而失败。
type Microphone interface {
	Available(ctx context.Context) bool
	Open(ctx context.Context, c CaptureConstraints) (CaptureStream, error)
}

// CaptureStream 以任意长度的浮点块交付样本，关闭后释放设备。
type CaptureStream interface {
	Samples() <-chan []float32
	Close() error
}

// Speaker 是音频输出设备。Play 阻塞到该块播放完毕或 ctx 结束。
type Speaker interface {
	Play(ctx context.Context, samples []float32, sampleRate int) error
	Close() error
}
