package voice

import (
	"encoding/json"
	"fmt"
)

// EventKind 是归一化后的服务端事件类别。
type EventKind int

const (
	KindIgnored EventKind = iota
	KindSessionReady
	KindAssistantDelta
	KindAssistantFinal
	KindUserDelta
	KindUserFinal
	KindAudioDelta
	KindAudioDone
	KindLifecycle
	KindError
)

func (k EventKind) String() string {
	switch k {
	case KindSessionReady:
		return "session_ready"
	case KindAssistantDelta:
		return "assistant_delta"
	case KindAssistantFinal:
		return "assistant_final"
	case KindUserDelta:
		return "user_delta"
	case KindUserFinal:
		return "user_final"
	case KindAudioDelta:
		return "audio_delta"
	case KindAudioDone:
		return "audio_done"
	case KindLifecycle:
		return "lifecycle"
	case KindError:
		return "error"
	default:
		return "ignored"
	}
}

// Lifecycle 是一次回复的生命周期阶段。
type Lifecycle string

const (
	LifecycleInProgress Lifecycle = "in_progress"
	LifecycleCompleted  Lifecycle = "completed"
	LifecycleFailed     Lifecycle = "failed"
)

// benignErrorCodes 中的错误码不上报（例如提交空音频缓冲）。
var benignErrorCodes = map[string]struct{}{
	"input_audio_buffer_commit_empty": {},
}

// Event 是归一化后的服务端事件。
type Event struct {
	Kind EventKind
	// Type 是原始事件类型。
	Type string
	// Text 为文本增量或最终文本；最终文本为空时由累积缓冲补齐。
	Text string
	// Audio 为 base64 编码的 PCM16 增量。
	Audio     string
	Lifecycle Lifecycle
	ErrorCode string
	Message   string
}

type serverEvent struct {
	Type       string          `json:"type"`
	Delta      json.RawMessage `json:"delta"`
	Text       string          `json:"text"`
	Transcript string          `json:"transcript"`
	Error      *serverError    `json:"error"`
	Response   *struct {
		Status        string `json:"status"`
		StatusDetails *struct {
			Error *serverError `json:"error"`
		} `json:"status_details"`
	} `json:"response"`
}

type serverError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Normalize 将一条原始服务端消息归一化为 Event。
// 同一语义存在多套事件名（output_text/text/audio_transcript 等），在此统一。
func Normalize(raw []byte) (Event, error) {
	var ev serverEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, fmt.Errorf("decode realtime event: %w", err)
	}
	out := Event{Type: ev.Type}

	switch ev.Type {
	case "session.created", "session.updated":
		out.Kind = KindSessionReady

	case "response.output_text.delta", "response.text.delta",
		"response.audio_transcript.delta", "response.output_audio_transcript.delta":
		out.Kind = KindAssistantDelta
		out.Text = deltaString(ev.Delta)

	case "response.output_text.done", "response.text.done":
		out.Kind = KindAssistantFinal
		out.Text = ev.Text
	case "response.audio_transcript.done", "response.output_audio_transcript.done":
		out.Kind = KindAssistantFinal
		out.Text = ev.Transcript

	case "conversation.item.input_audio_transcription.delta":
		out.Kind = KindUserDelta
		out.Text = deltaString(ev.Delta)
		if out.Text == "" {
			out.Text = ev.Transcript
		}
	case "conversation.item.input_audio_transcription.completed":
		out.Kind = KindUserFinal
		out.Text = ev.Transcript
	case "conversation.item.input_audio_transcription.failed":
		out.Kind = KindError
		out.Message = "Input audio transcription failed"
		if ev.Error != nil && ev.Error.Message != "" {
			out.Message = ev.Error.Message
		}

	case "response.audio.delta", "response.output_audio.delta":
		out.Kind = KindAudioDelta
		out.Audio = deltaString(ev.Delta)
	case "response.audio.done", "response.output_audio.done":
		out.Kind = KindAudioDone

	case "response.created", "response.in_progress":
		out.Kind = KindLifecycle
		out.Lifecycle = LifecycleInProgress
	case "response.completed", "response.done":
		out.Kind = KindLifecycle
		out.Lifecycle = LifecycleCompleted
		if ev.Response != nil && ev.Response.Status == "failed" {
			out.Lifecycle = LifecycleFailed
			out.Message = responseFailure(ev)
		}
	case "response.failed":
		out.Kind = KindLifecycle
		out.Lifecycle = LifecycleFailed
		out.Message = responseFailure(ev)

	case "error":
		out.Kind = KindError
		out.Message = "Unknown error"
		if ev.Error != nil {
			out.ErrorCode = ev.Error.Code
			if ev.Error.Message != "" {
				out.Message = ev.Error.Message
			}
		}
		if _, ok := benignErrorCodes[out.ErrorCode]; ok {
			out.Kind = KindIgnored
		}

	default:
		out.Kind = KindIgnored
	}
	return out, nil
}

func deltaString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func responseFailure(ev serverEvent) string {
	if ev.Response != nil && ev.Response.StatusDetails != nil && ev.Response.StatusDetails.Error != nil {
		if msg := ev.Response.StatusDetails.Error.Message; msg != "" {
			return msg
		}
	}
	if ev.Error != nil && ev.Error.Message != "" {
		return ev.Error.Message
	}
	return "Response failed"
}
