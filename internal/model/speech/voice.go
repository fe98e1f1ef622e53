package speech

// MaxTTSInputLength 是单次合成允许的最大字符数。
const MaxTTSInputLength = 4096

// Voices 是合成与实时会话支持的音色。
var Voices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// ValidVoice 判断音色是否受支持。
func ValidVoice(v string) bool {
	for _, candidate := range Voices {
		if candidate == v {
			return true
		}
	}
	return false
}
