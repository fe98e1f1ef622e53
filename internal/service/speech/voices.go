package speech

import "strings"

// languageVoices 按界面语言选择合成音色。
var languageVoices = map[string]string{
	"IT": "alloy",
	"EN": "nova",
	"ES": "shimmer",
	"FR": "alloy",
}

// VoiceForLanguage 返回语言对应的音色，未知语言使用 alloy。
func VoiceForLanguage(language string) string {
	if v, ok := languageVoices[strings.ToUpper(strings.TrimSpace(language))]; ok {
		return v
	}
	return "alloy"
}
