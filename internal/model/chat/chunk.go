package chat

import "encoding/json"

// DoneSentinel 是统一流格式的结束标记。
const DoneSentinel = "[DONE]"

// Chunk 是统一流格式中的单个数据块：{"choices":[{"delta":{"content":"..."}}]}。
type Chunk struct {
	Choices []ChunkChoice `json:"choices"`
}

// ChunkChoice 对应 choices 数组元素。
type ChunkChoice struct {
	Delta ChunkDelta `json:"delta"`
}

// ChunkDelta 携带增量文本。
type ChunkDelta struct {
	Content string `json:"content,omitempty"`
}

// NewChunk 构造只含一段增量文本的数据块。
func NewChunk(text string) Chunk {
	return Chunk{Choices: []ChunkChoice{{Delta: ChunkDelta{Content: text}}}}
}

// Text 返回首个 choice 的增量文本。
func (c Chunk) Text() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}

// EncodeChunkEvent 编码为一条 SSE 事件 "data: {...}\n\n"。
func EncodeChunkEvent(text string) ([]byte, error) {
	payload, err := json.Marshal(NewChunk(text))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(payload)+8)
	out = append(out, "data: "...)
	out = append(out, payload...)
	out = append(out, "\n\n"...)
	return out, nil
}

// DoneEvent 返回结束标记事件。
func DoneEvent() []byte {
	return []byte("data: " + DoneSentinel + "\n\n")
}
