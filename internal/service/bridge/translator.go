package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/metrics"
	"github.com/zhouzirui/dpp-browser/backend/internal/model/chat"
)

// 结构化事件协议中需要处理的事件类型。
const (
	eventOutputTextDelta  = "response.output_text.delta"
	eventContentPartDelta = "response.content_part.delta"
	eventCompleted        = "response.completed"
)

var blockSeparator = []byte("\n\n")

// translator 将结构化事件流翻译为统一的 chunk 流。
// 入站字节可能在任意位置被切分：完整的事件块以空行结束，末尾不完整的部分留到下次读取。
// 收到 response.completed 后只输出一次 [DONE] 并结束。
type translator struct {
	src     io.ReadCloser
	pending []byte
	out     bytes.Buffer
	readBuf []byte

	done bool
	err  error

	chunks  int
	logger  *zap.Logger
	metrics *metrics.Collector
}

func newTranslator(src io.ReadCloser, logger *zap.Logger, m *metrics.Collector) *translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &translator{
		src:     src,
		readBuf: make([]byte, 4096),
		logger:  logger,
		metrics: m,
	}
}

// Read 实现 io.Reader：按需从上游拉取并翻译。
func (t *translator) Read(p []byte) (int, error) {
	for t.out.Len() == 0 {
		if t.done {
			if t.err != nil {
				return 0, t.err
			}
			return 0, io.EOF
		}

		n, err := t.src.Read(t.readBuf)
		if n > 0 {
			t.feed(t.readBuf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				t.flushTail()
			} else {
				t.err = err
			}
			t.done = true
		}
	}
	return t.out.Read(p)
}

// Close 释放上游连接。
func (t *translator) Close() error {
	t.done = true
	return t.src.Close()
}

// Chunks 返回已输出的文本块数量。
func (t *translator) Chunks() int { return t.chunks }

func (t *translator) feed(data []byte) {
	if t.done {
		return
	}
	t.pending = append(t.pending, data...)
	for !t.done {
		idx := bytes.Index(t.pending, blockSeparator)
		if idx < 0 {
			break
		}
		block := t.pending[:idx]
		t.handleBlock(block)
		t.pending = t.pending[idx+len(blockSeparator):]
	}
	if t.done || len(t.pending) == 0 {
		t.pending = nil
	}
}

// flushTail 处理上游结束时缓冲中残留的最后一个事件块（缺少结尾空行）。
func (t *translator) flushTail() {
	if t.done || len(bytes.TrimSpace(t.pending)) == 0 {
		t.pending = nil
		return
	}
	t.handleBlock(t.pending)
	t.pending = nil
}

type structuredEvent struct {
	Type  string          `json:"type"`
	Delta json.RawMessage `json:"delta"`
}

func (t *translator) handleBlock(block []byte) {
	var (
		eventType string
		dataLines []string
	)
	for _, line := range strings.Split(string(block), "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if len(dataLines) == 0 {
		return
	}
	data := strings.Join(dataLines, "\n")
	if strings.TrimSpace(data) == chat.DoneSentinel {
		t.finish()
		return
	}

	var ev structuredEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		t.metrics.RecordParseError()
		t.logger.Warn("skipping malformed upstream event", zap.String("event", eventType), zap.Error(err))
		return
	}

	typ := ev.Type
	if typ == "" {
		typ = eventType
	}

	switch typ {
	case eventOutputTextDelta:
		var delta string
		if err := json.Unmarshal(ev.Delta, &delta); err != nil {
			t.metrics.RecordParseError()
			t.logger.Warn("unexpected output_text delta shape", zap.Error(err))
			return
		}
		t.emit(delta)
	case eventContentPartDelta:
		var part struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(ev.Delta, &part); err != nil {
			t.metrics.RecordParseError()
			t.logger.Warn("unexpected content_part delta shape", zap.Error(err))
			return
		}
		t.emit(part.Text)
	case eventCompleted:
		t.finish()
	default:
		t.logger.Debug("ignoring upstream event", zap.String("type", typ))
	}
}

func (t *translator) emit(text string) {
	if text == "" {
		return
	}
	payload, err := chat.EncodeChunkEvent(text)
	if err != nil {
		t.logger.Warn("failed to encode chunk", zap.Error(err))
		return
	}
	t.out.Write(payload)
	t.chunks++
	t.metrics.RecordChunk(string(DialectResponses))
}

func (t *translator) finish() {
	if t.done {
		return
	}
	t.out.Write(chat.DoneEvent())
	t.done = true
}
