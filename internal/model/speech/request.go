package speech

// TTSRequest 语音合成请求（POST /tts）。
type TTSRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice,omitempty"`
	Model string  `json:"model,omitempty"`
	Speed float64 `json:"speed,omitempty"`
}

// TokenRequest 实时会话临时凭证请求（POST /realtime/token）。
type TokenRequest struct {
	Model string `json:"model,omitempty"`
	Voice string `json:"voice,omitempty"`
}

// TokenResponse 返回给客户端的临时凭证。
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
	Model     string `json:"model"`
}
