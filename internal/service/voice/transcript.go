package voice

import (
	"strings"
	"sync"
)

// Line 是一条完整的对话记录。
type Line struct {
	Role Role
	Text string
}

// Transcript 按角色拼接增量转写，收到最终文本时落成一条记录。
// 可直接作为 OnTranscript 回调使用，并发安全。
type Transcript struct {
	mu      sync.Mutex
	lines   []Line
	partial map[Role]*strings.Builder
}

// NewTranscript 创建空记录。
func NewTranscript() *Transcript {
	return &Transcript{partial: make(map[Role]*strings.Builder)}
}

// Apply 合并一次转写更新。
func (t *Transcript) Apply(ev TranscriptEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.partial[ev.Role]
	if !ok {
		b = &strings.Builder{}
		t.partial[ev.Role] = b
	}
	if !ev.IsFinal {
		b.WriteString(ev.Text)
		return
	}
	text := ev.Text
	if text == "" {
		text = b.String()
	}
	b.Reset()
	if text != "" {
		t.lines = append(t.lines, Line{Role: ev.Role, Text: text})
	}
}

// Partial 返回某角色尚未落定的文本。
func (t *Transcript) Partial(role Role) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.partial[role]; ok {
		return b.String()
	}
	return ""
}

// Lines 返回已落定记录的副本。
func (t *Transcript) Lines() []Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Line, len(t.lines))
	copy(out, t.lines)
	return out
}
