// Package voice 实现实时语音会话客户端：建立 WebSocket 连接、采集麦克风音频、
// 归一化服务端事件并按序播放合成语音。
package voice

import "errors"

// ConnectionState 是会话连接状态。
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateError        ConnectionState = "error"
)

// Role 是转写文本的说话方。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TranscriptEvent 是一次转写更新。IsFinal=false 的增量需要由接收方按角色拼接。
type TranscriptEvent struct {
	Role    Role
	Text    string
	IsFinal bool
}

// AudioResponse 通知一次语音回复的进度。
type AudioResponse struct {
	Complete bool
}

// Callbacks 是会话事件的回调槽位，未设置的槽位忽略。
// 回调在会话内部协程中同步调用，不持有会话锁，可以安全地回调会话方法。
type Callbacks struct {
	OnTranscript       func(TranscriptEvent)
	OnConnectionChange func(ConnectionState)
	OnError            func(message string)
	OnAudioResponse    func(AudioResponse)
}

var (
	// ErrSessionClosed 表示会话已断开，需要创建新会话。
	ErrSessionClosed = errors.New("voice session closed")
	// ErrAlreadyConnected 表示已有活动连接。
	ErrAlreadyConnected = errors.New("voice session already connected")
	// ErrNotConnected 表示当前没有可用连接。
	ErrNotConnected = errors.New("voice session not connected")
	// ErrConnectionClosed 表示连接在握手确认前被关闭。
	ErrConnectionClosed = errors.New("realtime connection closed before session was ready")
	// ErrNoMicrophone 表示未配置麦克风。
	ErrNoMicrophone = errors.New("no microphone configured")
	// ErrEmptyText 表示文本消息为空。
	ErrEmptyText = errors.New("text message is empty")
)
