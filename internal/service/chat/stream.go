// Package chat 实现对话客户端：消费统一格式的 SSE 流并维护对话历史。
package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/zhouzirui/dpp-browser/backend/internal/model/chat"
)

// Opener 打开一条统一格式的 SSE 流。桥接服务与 HTTP 客户端都满足该接口。
type Opener interface {
	Open(ctx context.Context, req chat.Request) (io.ReadCloser, error)
}

// DecodeStream 逐行读取 "data: " 事件，拼接 choices[0].delta.content。
// [DONE] 与无法解析的行被跳过；onChunk 只收到非空文本，可以为 nil。
func DecodeStream(r io.Reader, onChunk func(string)) (string, error) {
	var (
		full strings.Builder
		br   = bufio.NewReader(r)
	)
	for {
		line, err := br.ReadString('\n')
		if text := parseDataLine(line); text != "" {
			full.WriteString(text)
			if onChunk != nil {
				onChunk(text)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return full.String(), nil
			}
			return full.String(), err
		}
	}
}

func parseDataLine(line string) string {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "data:") {
		return ""
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if data == "" || data == chat.DoneSentinel {
		return ""
	}
	var c chat.Chunk
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return ""
	}
	return c.Text()
}

// Stream 打开流并读完，返回完整回复。
func Stream(ctx context.Context, opener Opener, req chat.Request, onChunk func(string)) (string, error) {
	body, err := opener.Open(ctx, req)
	if err != nil {
		return "", err
	}
	defer body.Close()
	return DecodeStream(body, onChunk)
}
