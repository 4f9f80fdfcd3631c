// Package evidence scans the user's free-text situation description for known
// psychological-pattern keywords and masks sensitive substrings before the
// text reaches any external service or log line.
package evidence

import (
	"regexp"
	"strings"
)

// MaxPoints caps how many evidence labels a single report carries.
const MaxPoints = 4

// Redaction placeholders. The narrative prompt and any operator logs only ever
// see these tokens, never the raw values.
const (
	PhonePlaceholder = "[전화번호]"
	EmailPlaceholder = "[이메일]"
)

// pattern is one catalog entry: if any keyword is a literal substring of the
// normalized text, the label is emitted (once).
type pattern struct {
	key      string
	keywords []string
	label    string
}

// patterns is the fixed catalog. Order matters: matches are reported in
// catalog order of first match.
var patterns = []pattern{
	{
		key:      "fear_of_silence",
		keywords: []string{"답장", "읽씹", "연락없", "잠수", "왜 안", "안 읽", "씹"},
		label:    "침묵을 거절로 해석하는 불안",
	},
	{
		key:      "need_closure",
		keywords: []string{"정리", "확실", "결론", "대답해", "왜 그랬", "이유", "설명"},
		label:    "명확한 결론/해명 욕구",
	},
	{
		key:      "self_blame",
		keywords: []string{"내가 잘못", "내 탓", "예민", "미안", "내 잘못", "내가 문제"},
		label:    "자기비난/과책임",
	},
	{
		key:      "chasing",
		keywords: []string{"붙잡", "잡고싶", "전화", "마지막", "한번만", "기회"},
		label:    "즉시 접촉 충동",
	},
	{
		key:      "obsessive_thinking",
		keywords: []string{"계속 생각", "머리에서", "잊혀지지", "떠오르", "잠이 안"},
		label:    "반추적 사고 패턴",
	},
	{
		key:      "hope_seeking",
		keywords: []string{"가능성", "기회", "아직", "혹시", "다시", "돌아올"},
		label:    "희망 추구 경향",
	},
	{
		key:      "partner_avoidance",
		keywords: []string{"피하", "거리", "차갑", "냉담", "무시", "회피"},
		label:    "상대의 회피 신호 인식",
	},
	{
		key:      "emotional_exhaustion",
		keywords: []string{"지쳤", "피곤", "힘들", "못하겠", "더이상"},
		label:    "감정적 소진 상태",
	},
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	phoneRe      = regexp.MustCompile(`\d{2,4}[-.\s]?\d{3,4}[-.\s]?\d{4}`)
	emailRe      = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// ExtractPoints returns the evidence labels matched in userText: at most
// MaxPoints entries, deduplicated, in catalog order.
func ExtractPoints(userText string) []string {
	t := strings.ToLower(whitespaceRe.ReplaceAllString(userText, " "))

	found := []string{}
	seen := make(map[string]bool)

	for _, p := range patterns {
		if seen[p.label] {
			continue
		}
		for _, k := range p.keywords {
			if strings.Contains(t, strings.ToLower(k)) {
				found = append(found, p.label)
				seen[p.label] = true
				break
			}
		}
		if len(found) == MaxPoints {
			break
		}
	}

	return found
}

// Redact masks phone-number-shaped and email-shaped substrings. It must run
// before the text is sent to a text-generation provider, persisted, or logged.
func Redact(text string) string {
	redacted := phoneRe.ReplaceAllString(text, PhonePlaceholder)
	return emailRe.ReplaceAllString(redacted, EmailPlaceholder)
}
