package utils

import (
	"io"
	"net/http"
)

// SetupSSEHeaders 设置Server-Sent Events响应头
func SetupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// CopyFlush 将 src 逐次读取写入 w，每次写入后立即 flush。
// 返回已写出的字节数；src 读到 EOF 时返回 nil。
func CopyFlush(w io.Writer, flusher http.Flusher, src io.Reader) (int64, error) {
	buf := make([]byte, 4096)
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			m, err := w.Write(buf[:n])
			written += int64(m)
			if err != nil {
				return written, err
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
