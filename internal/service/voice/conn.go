package voice

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// 实时接口使用子协议携带凭证。
const (
	subprotocolRealtime = "realtime"
	subprotocolKey      = "openai-insecure-api-key."
	subprotocolBeta     = "openai-beta.realtime-v1"
)

const (
	writeTimeout   = 10 * time.Second
	closeTimeout   = 2 * time.Second
	maxMessageSize = 16 << 20
)

// realtimeURL 在基础地址上附加 model 参数。
func realtimeURL(base, model string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid realtime url %q: %w", base, err)
	}
	q := u.Query()
	q.Set("model", model)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subprotocols 返回握手使用的子协议列表。
func Subprotocols(token string) []string {
	return []string{subprotocolRealtime, subprotocolKey + token, subprotocolBeta}
}

// dial 建立单次连接，不做重试：凭证是一次性的，失败交由调用方重新创建会话。
func (s *Session) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	target, err := realtimeURL(s.opts.URL, s.opts.Model)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: s.opts.ConnectTimeout,
	}
	if s.opts.Dialer != nil {
		dialer = *s.opts.Dialer
	}
	dialer.Subprotocols = Subprotocols(token)

	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)
	return conn, nil
}

// pingLoop 定期发送 ping 保活，连接读循环结束时退出。
func (s *Session) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	if s.opts.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				s.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

// closeConn 发送正常关闭帧后关闭底层连接。
func closeConn(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
	_ = conn.Close()
}

// isNormalClose 判断是否为正常关闭。
func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
