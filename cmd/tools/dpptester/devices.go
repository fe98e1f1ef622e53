package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/zhouzirui/dpp-browser/backend/internal/audio"
	"github.com/zhouzirui/dpp-browser/backend/internal/service/voice"
)

// chunkSamples 是每次投递的样本数（24kHz 下 100ms）。
const chunkSamples = audio.SampleRate / 10

// wavMicrophone 把 WAV 文件当作麦克风，按实时速率投递样本。
type wavMicrophone struct {
	path     string
	realtime bool
	done     chan struct{}
	finish   sync.Once
}

func newWAVMicrophone(path string, realtime bool) *wavMicrophone {
	return &wavMicrophone{path: path, realtime: realtime, done: make(chan struct{})}
}

func (m *wavMicrophone) Available(context.Context) bool {
	_, err := os.Stat(m.path)
	return err == nil
}

// Finished 在文件样本全部投递后关闭。
func (m *wavMicrophone) Finished() <-chan struct{} { return m.done }

func (m *wavMicrophone) Open(_ context.Context, c voice.CaptureConstraints) (voice.CaptureStream, error) {
	f, err := os.Open(m.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	format, pcm, err := audio.DecodeWAV(f)
	if err != nil {
		return nil, err
	}
	if format.SampleRate != c.SampleRate || format.Channels != c.Channels || format.BitsPerSample != 16 {
		return nil, fmt.Errorf("want %dHz/%dch/16bit, got %dHz/%dch/%dbit",
			c.SampleRate, c.Channels, format.SampleRate, format.Channels, format.BitsPerSample)
	}
	samples, err := audio.BytesToPCM16(pcm)
	if err != nil {
		return nil, err
	}

	s := &wavStream{ch: make(chan []float32), quit: make(chan struct{})}
	go s.run(audio.PCM16ToFloat(samples), m.realtime, func() { m.finish.Do(func() { close(m.done) }) })
	return s, nil
}

type wavStream struct {
	ch   chan []float32
	quit chan struct{}
	once sync.Once
}

func (s *wavStream) run(samples []float32, realtime bool, finished func()) {
	defer close(s.ch)
	defer finished()

	interval := time.Second * chunkSamples / audio.SampleRate
	for start := 0; start < len(samples); start += chunkSamples {
		end := min(start+chunkSamples, len(samples))
		select {
		case s.ch <- samples[start:end]:
		case <-s.quit:
			return
		}
		if realtime {
			select {
			case <-time.After(interval):
			case <-s.quit:
				return
			}
		}
	}
}

func (s *wavStream) Samples() <-chan []float32 { return s.ch }

func (s *wavStream) Close() error {
	s.once.Do(func() { close(s.quit) })
	return nil
}

// wavSpeaker 累积播放的样本，关闭时写成 WAV 文件。
type wavSpeaker struct {
	path string

	mu      sync.Mutex
	samples []float32
	written bool
}

func newWAVSpeaker(path string) *wavSpeaker {
	return &wavSpeaker{path: path}
}

func (s *wavSpeaker) Play(ctx context.Context, samples []float32, sampleRate int) error {
	if sampleRate != audio.SampleRate {
		return fmt.Errorf("unsupported sample rate %d", sampleRate)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.samples = append(s.samples, samples...)
	s.mu.Unlock()
	return nil
}

// Close 写出文件，重复调用只写一次。没有样本时不创建文件。
func (s *wavSpeaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.written || len(s.samples) == 0 {
		return nil
	}
	s.written = true
	pcm := audio.PCM16Bytes(audio.FloatToPCM16(s.samples))
	return os.WriteFile(s.path, audio.EncodeWAV(pcm, audio.DefaultFormat), 0o644)
}

// Samples 返回已累积的样本数。
func (s *wavSpeaker) Samples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}
