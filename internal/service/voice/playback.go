package voice

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/audio"
)

// enqueueAudio 追加一帧到播放队列，没有播放协程时启动一个。
// 同一时刻至多一个协程在出队，帧严格按到达顺序播放。
func (s *Session) enqueueAudio(frame []int16) {
	if len(frame) == 0 {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, frame)
	if s.playing {
		s.mu.Unlock()
		return
	}
	s.playing = true
	gen := s.playGen
	s.mu.Unlock()

	go s.drain(gen)
}

// drain 逐帧出队播放，队列为空或代数变化（打断、断开）时退出。
func (s *Session) drain(gen uint64) {
	for {
		s.mu.Lock()
		if s.playGen != gen || len(s.queue) == 0 {
			if s.playGen == gen {
				s.playing = false
			}
			s.mu.Unlock()
			return
		}
		frame := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.play(frame)
	}
}

// play 把一帧交给输出设备。playMu 保证打断后新旧播放协程不会重叠输出。
func (s *Session) play(frame []int16) {
	if s.opts.Speaker == nil {
		return
	}
	s.playMu.Lock()
	defer s.playMu.Unlock()

	if err := s.opts.Speaker.Play(s.playCtx, audio.PCM16ToFloat(frame), audio.SampleRate); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Warn("audio playback failed", zap.Error(err))
	}
}
