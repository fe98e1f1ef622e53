package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/dpp-browser/backend/internal/audio"
	"github.com/zhouzirui/dpp-browser/backend/internal/config"
)

// Options 配置一个实时语音会话。
type Options struct {
	URL                string
	Model              string
	Voice              string
	Instructions       string
	TranscriptionModel string
	TurnDetection      TurnDetection
	ConnectTimeout     time.Duration
	PingInterval       time.Duration

	Tokens     TokenSource
	Microphone Microphone
	Speaker    Speaker
	Callbacks  Callbacks
	Logger     *zap.Logger
	// Dialer 可选，替换默认 websocket.Dialer（子协议总会被覆盖）。
	Dialer *websocket.Dialer
}

// OptionsFromConfig 从实时配置构造默认选项。
func OptionsFromConfig(cfg config.RealtimeConfig) Options {
	return Options{
		URL:                cfg.URL,
		Model:              cfg.Model,
		Voice:              cfg.Voice,
		TranscriptionModel: cfg.TranscriptionModel,
		TurnDetection: TurnDetection{
			Type:              "server_vad",
			Threshold:         cfg.VADThreshold,
			PrefixPaddingMS:   cfg.PrefixPaddingMS,
			SilenceDurationMS: cfg.SilenceDurationMS,
		},
		ConnectTimeout: cfg.ConnectTimeout,
		PingInterval:   30 * time.Second,
	}
}

// Session 是一次实时语音会话。Disconnect 之后会话不可再用，需要新建。
type Session struct {
	id     string
	opts   Options
	logger *zap.Logger

	mu     sync.Mutex
	state  ConnectionState
	conn   *websocket.Conn
	closed bool
	ackCh  chan struct{}

	recording bool
	recGen    uint64
	capture   *captureRun

	queue      [][]int16
	playing    bool
	playGen    uint64
	playCtx    context.Context
	playCancel context.CancelFunc
	playMu     sync.Mutex

	assistantBuf strings.Builder
	userBuf      strings.Builder

	writeMu sync.Mutex

	listenerMu   sync.RWMutex
	listeners    map[uint64]Callbacks
	nextListener uint64

	releaseOnce sync.Once
}

// NewSession 创建会话，尚未连接。
func NewSession(opts Options) *Session {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.Voice == "" {
		opts.Voice = "alloy"
	}
	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	playCtx, playCancel := context.WithCancel(context.Background())
	s := &Session{
		id:         id,
		opts:       opts,
		logger:     logger.With(zap.String("voice_session", id)),
		state:      StateDisconnected,
		playCtx:    playCtx,
		playCancel: playCancel,
		listeners:  make(map[uint64]Callbacks),
	}
	s.Subscribe(opts.Callbacks)
	return s
}

// ID 返回会话标识。
func (s *Session) ID() string { return s.id }

// Subscribe 注册一组回调，返回的函数用于注销。
func (s *Session) Subscribe(cb Callbacks) (unsubscribe func()) {
	s.listenerMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = cb
	s.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenerMu.Lock()
			delete(s.listeners, id)
			s.listenerMu.Unlock()
		})
	}
}

func (s *Session) snapshotListeners() []Callbacks {
	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	out := make([]Callbacks, 0, len(s.listeners))
	for i := uint64(0); i < s.nextListener; i++ {
		if cb, ok := s.listeners[i]; ok {
			out = append(out, cb)
		}
	}
	return out
}

func (s *Session) emitState(st ConnectionState) {
	for _, cb := range s.snapshotListeners() {
		if cb.OnConnectionChange != nil {
			cb.OnConnectionChange(st)
		}
	}
}

func (s *Session) emitTranscript(ev TranscriptEvent) {
	for _, cb := range s.snapshotListeners() {
		if cb.OnTranscript != nil {
			cb.OnTranscript(ev)
		}
	}
}

func (s *Session) emitError(message string) {
	s.logger.Warn("voice session error", zap.String("message", message))
	for _, cb := range s.snapshotListeners() {
		if cb.OnError != nil {
			cb.OnError(message)
		}
	}
}

func (s *Session) emitAudio(ev AudioResponse) {
	for _, cb := range s.snapshotListeners() {
		if cb.OnAudioResponse != nil {
			cb.OnAudioResponse(ev)
		}
	}
}

// setState 更新状态，仅在状态变化时通知。
func (s *Session) setState(st ConnectionState) {
	s.mu.Lock()
	changed := s.state != st
	s.state = st
	s.mu.Unlock()
	if changed {
		s.emitState(st)
	}
}

// State 返回当前连接状态。
func (s *Session) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsConnected 表示会话是否已确认连接。
func (s *Session) IsConnected() bool { return s.State() == StateConnected }

// IsRecording 表示是否正在采集。
func (s *Session) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// CheckMicrophoneAvailable 探测是否存在可用的输入设备。
func (s *Session) CheckMicrophoneAvailable(ctx context.Context) bool {
	if s.opts.Microphone == nil {
		return false
	}
	return s.opts.Microphone.Available(ctx)
}

// Connect 获取临时凭证、建立连接并发送会话配置，直到服务端确认会话后返回。
// 超时（默认 10s）或连接错误时状态变为 error，会话不可再用。
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrSessionClosed
	case s.state == StateConnecting || s.state == StateConnected:
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.mu.Unlock()

	if s.opts.Tokens == nil {
		return s.failConnect(nil, errors.New("no token source configured"))
	}
	s.setState(StateConnecting)

	ctx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	defer cancel()

	token, err := s.opts.Tokens.Token(ctx, s.opts.Model, s.opts.Voice)
	if err != nil {
		return s.failConnect(nil, fmt.Errorf("fetch realtime token: %w", err))
	}

	conn, err := s.dial(ctx, token.Token)
	if err != nil {
		return s.failConnect(nil, err)
	}

	ack := make(chan struct{})
	readDone := make(chan struct{})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return ErrSessionClosed
	}
	s.conn = conn
	s.ackCh = ack
	s.mu.Unlock()

	go s.readLoop(conn, readDone)
	go s.pingLoop(conn, readDone)

	if err := s.send(newSessionUpdate(s.opts)); err != nil {
		return s.failConnect(conn, fmt.Errorf("send session.update: %w", err))
	}

	select {
	case <-ack:
		s.logger.Info("voice session connected", zap.String("model", s.opts.Model))
		return nil
	case <-readDone:
		return s.failConnect(conn, ErrConnectionClosed)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return s.failConnect(conn, errors.New("Connection timeout"))
		}
		return s.failConnect(conn, ctx.Err())
	}
}

// failConnect 处理连接阶段的失败：释放资源、状态置为 error 并上报。
// 若会话已被其他路径拆除，只返回错误。
func (s *Session) failConnect(conn *websocket.Conn, cause error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return cause
	}
	s.closed = true
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	s.stopCapture()
	s.releaseAudio()
	s.setState(StateError)
	s.emitError(cause.Error())
	return cause
}

// Disconnect 停止采集、以 1000 关闭连接并释放全部音频资源。任何状态下均可调用，可重复调用。
func (s *Session) Disconnect() {
	if err := s.StopRecording(); err != nil {
		s.logger.Debug("stop recording during disconnect", zap.Error(err))
	}

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.closed = true
	s.mu.Unlock()

	if conn != nil {
		closeConn(conn, "Client disconnect")
	}
	s.stopCapture()
	s.releaseAudio()
	s.setState(StateDisconnected)
}

// readLoop 读取服务端事件，连接关闭时退出。
func (s *Session) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.handleClosed(conn, err)
			return
		}
		s.dispatch(conn, data)
	}
}

// handleClosed 处理服务端或网络导致的关闭，每个连接至多执行一次清理。
// 握手确认前的关闭交给 Connect 处理。
func (s *Session) handleClosed(conn *websocket.Conn, err error) {
	s.mu.Lock()
	if s.conn != conn || s.state == StateConnecting {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.closed = true
	s.mu.Unlock()

	if isNormalClose(err) {
		s.logger.Info("realtime connection closed", zap.Error(err))
	} else {
		s.logger.Warn("realtime connection lost", zap.Error(err))
	}
	_ = conn.Close()
	s.stopCapture()
	s.releaseAudio()
	s.setState(StateDisconnected)
}

// send 串行写入一条 JSON 消息。
func (s *Session) send(v any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

// dispatch 归一化并处理一条服务端消息。
func (s *Session) dispatch(conn *websocket.Conn, data []byte) {
	ev, err := Normalize(data)
	if err != nil {
		s.logger.Warn("dropping undecodable realtime event", zap.Error(err))
		return
	}

	switch ev.Kind {
	case KindSessionReady:
		s.markConnected(conn)

	case KindAssistantDelta:
		if ev.Text == "" {
			return
		}
		s.mu.Lock()
		s.assistantBuf.WriteString(ev.Text)
		s.mu.Unlock()
		s.emitTranscript(TranscriptEvent{Role: RoleAssistant, Text: ev.Text})

	case KindAssistantFinal:
		s.flushAssistant(ev.Text)

	case KindUserDelta:
		if ev.Text == "" {
			return
		}
		s.mu.Lock()
		s.userBuf.WriteString(ev.Text)
		s.mu.Unlock()
		s.emitTranscript(TranscriptEvent{Role: RoleUser, Text: ev.Text})

	case KindUserFinal:
		s.mu.Lock()
		text := ev.Text
		if text == "" {
			text = s.userBuf.String()
		}
		s.userBuf.Reset()
		s.mu.Unlock()
		if text != "" {
			s.emitTranscript(TranscriptEvent{Role: RoleUser, Text: text, IsFinal: true})
		}

	case KindAudioDelta:
		frame, err := audio.DecodeBase64PCM16(ev.Audio)
		if err != nil {
			s.logger.Warn("dropping malformed audio delta", zap.Error(err))
			return
		}
		s.enqueueAudio(frame)

	case KindAudioDone:
		s.emitAudio(AudioResponse{Complete: true})

	case KindLifecycle:
		switch ev.Lifecycle {
		case LifecycleCompleted:
			s.flushAssistant("")
		case LifecycleFailed:
			s.flushAssistant("")
			s.emitError(ev.Message)
		}

	case KindError:
		s.emitError(ev.Message)

	default:
		s.logger.Debug("ignoring realtime event", zap.String("type", ev.Type))
	}
}

// markConnected 在首次收到会话确认时切换为 connected。
func (s *Session) markConnected(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn != conn || s.state != StateConnecting {
		s.mu.Unlock()
		return
	}
	s.state = StateConnected
	ack := s.ackCh
	s.ackCh = nil
	s.mu.Unlock()

	if ack != nil {
		close(ack)
	}
	s.emitState(StateConnected)
}

// flushAssistant 输出助手的最终文本：优先使用事件携带的文本，否则使用累积缓冲。
// 缓冲随后清空，重复的完成事件不会产生重复输出。
func (s *Session) flushAssistant(text string) {
	s.mu.Lock()
	if text == "" {
		text = s.assistantBuf.String()
	}
	s.assistantBuf.Reset()
	s.mu.Unlock()

	if text != "" {
		s.emitTranscript(TranscriptEvent{Role: RoleAssistant, Text: text, IsFinal: true})
	}
}

// SendText 发送一条文本消息并请求回复。
func (s *Session) SendText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	if err := s.send(newUserTextItem(text)); err != nil {
		return err
	}
	return s.send(responseCreateMessage)
}

// Interrupt 取消进行中的回复，清空播放队列与文本缓冲。
// 已交给输出设备的音频块无法收回。
func (s *Session) Interrupt() error {
	err := s.send(responseCancelMessage)

	s.mu.Lock()
	s.queue = nil
	s.playing = false
	s.playGen++
	s.assistantBuf.Reset()
	s.mu.Unlock()

	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

// releaseAudio 清空播放队列并释放输出设备，只执行一次设备释放。
func (s *Session) releaseAudio() {
	s.mu.Lock()
	s.queue = nil
	s.playing = false
	s.playGen++
	s.mu.Unlock()

	s.releaseOnce.Do(func() {
		s.playCancel()
		if s.opts.Speaker != nil {
			if err := s.opts.Speaker.Close(); err != nil {
				s.logger.Debug("close speaker", zap.Error(err))
			}
		}
	})
}
