package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/audio"
)

// captureRun 是一次采集：pump 协程把麦克风样本切帧后发送。
type captureRun struct {
	stream      CaptureStream
	quit        chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
	releaseOnce sync.Once
}

func newCaptureRun(stream CaptureStream) *captureRun {
	return &captureRun{
		stream: stream,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// stop 通知 pump 退出并等待，返回后不会再有音频帧发出。
func (c *captureRun) stop() {
	c.stopOnce.Do(func() { close(c.quit) })
	<-c.done
}

// release 关闭采集流，释放设备。
func (c *captureRun) release() {
	c.releaseOnce.Do(func() { _ = c.stream.Close() })
}

// StartRecording 打开麦克风并开始发送音频。需要已连接；正在采集时为空操作。
// 麦克风被拒绝时通过 OnError 上报并返回错误。
func (s *Session) StartRecording(ctx context.Context) error {
	if s.opts.Microphone == nil {
		return ErrNoMicrophone
	}

	s.mu.Lock()
	if s.state != StateConnected || s.conn == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}
	if s.recording {
		s.mu.Unlock()
		return nil
	}
	s.recording = true
	s.recGen++
	gen := s.recGen
	s.mu.Unlock()

	stream, err := s.opts.Microphone.Open(ctx, DefaultCaptureConstraints())
	if err != nil {
		s.mu.Lock()
		if s.recGen == gen {
			s.recording = false
		}
		s.mu.Unlock()
		s.emitError("Microphone access denied: " + err.Error())
		return fmt.Errorf("open microphone: %w", err)
	}

	s.mu.Lock()
	// 打开期间已被停止或会话已断开。
	if s.recGen != gen || s.closed {
		s.mu.Unlock()
		_ = stream.Close()
		return nil
	}
	c := newCaptureRun(stream)
	s.capture = c
	s.mu.Unlock()

	go s.pump(c)
	s.logger.Info("recording started")
	return nil
}

// StopRecording 停止采集并提交音频缓冲。未在采集时为空操作。
func (s *Session) StopRecording() error {
	s.mu.Lock()
	if !s.recording && s.capture == nil {
		s.mu.Unlock()
		return nil
	}
	s.recording = false
	s.recGen++
	c := s.capture
	s.capture = nil
	s.mu.Unlock()

	if c != nil {
		c.stop()
	}
	err := s.send(audioCommitMessage)
	if c != nil {
		c.release()
	}
	s.logger.Info("recording stopped")

	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

// stopCapture 在连接已失效时停止采集，不提交缓冲。
func (s *Session) stopCapture() {
	s.mu.Lock()
	s.recording = false
	s.recGen++
	c := s.capture
	s.capture = nil
	s.mu.Unlock()

	if c != nil {
		c.stop()
		c.release()
	}
}

func (s *Session) pump(c *captureRun) {
	defer close(c.done)

	framer := audio.NewFramer(audio.FrameSize)
	samples := c.stream.Samples()
	for {
		select {
		case <-c.quit:
			return
		case chunk, ok := <-samples:
			if !ok {
				return
			}
			for _, frame := range framer.Write(chunk) {
				encoded := audio.EncodeBase64PCM16(audio.FloatToPCM16(frame))
				if err := s.send(newAudioAppend(encoded)); err != nil {
					if !errors.Is(err, ErrNotConnected) {
						s.logger.Warn("send audio frame failed", zap.Error(err))
					}
					return
				}
			}
		}
	}
}
