package voice

// 客户端发送的实时协议消息。

// TurnDetection 是服务端语音活动检测参数。
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
}

type transcriptionConfig struct {
	Model string `json:"model"`
}

type sessionConfig struct {
	Modalities              []string             `json:"modalities"`
	Instructions            string               `json:"instructions,omitempty"`
	Voice                   string               `json:"voice"`
	InputAudioFormat        string               `json:"input_audio_format"`
	OutputAudioFormat       string               `json:"output_audio_format"`
	InputAudioTranscription *transcriptionConfig `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection       `json:"turn_detection,omitempty"`
}

type sessionUpdateMessage struct {
	Type    string        `json:"type"`
	Session sessionConfig `json:"session"`
}

type typedMessage struct {
	Type string `json:"type"`
}

type audioAppendMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type conversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type itemCreateMessage struct {
	Type string           `json:"type"`
	Item conversationItem `json:"item"`
}

func newSessionUpdate(opts Options) sessionUpdateMessage {
	cfg := sessionConfig{
		Modalities:        []string{"text", "audio"},
		Instructions:      opts.Instructions,
		Voice:             opts.Voice,
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
	}
	if opts.TranscriptionModel != "" {
		cfg.InputAudioTranscription = &transcriptionConfig{Model: opts.TranscriptionModel}
	}
	if opts.TurnDetection.Type != "" {
		td := opts.TurnDetection
		cfg.TurnDetection = &td
	}
	return sessionUpdateMessage{Type: "session.update", Session: cfg}
}

func newAudioAppend(encoded string) audioAppendMessage {
	return audioAppendMessage{Type: "input_audio_buffer.append", Audio: encoded}
}

var (
	audioCommitMessage    = typedMessage{Type: "input_audio_buffer.commit"}
	responseCancelMessage = typedMessage{Type: "response.cancel"}
	responseCreateMessage = typedMessage{Type: "response.create"}
)

func newUserTextItem(text string) itemCreateMessage {
	return itemCreateMessage{
		Type: "conversation.item.create",
		Item: conversationItem{
			Type:    "message",
			Role:    "user",
			Content: []contentPart{{Type: "input_text", Text: text}},
		},
	}
}
