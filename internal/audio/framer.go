package audio

// Framer 将任意长度的采集块累积为定长帧。非并发安全。
type Framer struct {
	size    int
	pending []float32
}

// NewFramer 创建分帧器，size<=0 时使用 FrameSize。
func NewFramer(size int) *Framer {
	if size <= 0 {
		size = FrameSize
	}
	return &Framer{size: size, pending: make([]float32, 0, size)}
}

// Write 追加样本，返回本次凑满的所有完整帧。
func (f *Framer) Write(samples []float32) [][]float32 {
	var frames [][]float32
	for len(samples) > 0 {
		n := f.size - len(f.pending)
		if n > len(samples) {
			n = len(samples)
		}
		f.pending = append(f.pending, samples[:n]...)
		samples = samples[n:]
		if len(f.pending) == f.size {
			frame := make([]float32, f.size)
			copy(frame, f.pending)
			frames = append(frames, frame)
			f.pending = f.pending[:0]
		}
	}
	return frames
}

// Buffered 返回尚未凑满一帧的样本数。
func (f *Framer) Buffered() int { return len(f.pending) }

// Reset 丢弃未凑满的样本。
func (f *Framer) Reset() { f.pending = f.pending[:0] }
