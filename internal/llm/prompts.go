package llm

import (
	"fmt"
	"strings"

	"github.com/bluenomad/postmortem-backend/internal/scoring"
)

// systemPrompt positions the model as a diagnostic engine, not a counselor.
const systemPrompt = `You are a relationship diagnostic engine, not a counselor.
Your role is to analyze relationship situations using psychology-based structural reasoning.

You must:
- Base conclusions on provided scores and behavioral data
- Separate personal attachment traits from relationship reality
- Deliver a clear, decisive judgment
- Avoid emotional reassurance unless it supports the diagnosis
- Never give false hope or encouragement

You are NOT allowed to:
- Provide generic relationship advice
- Overemphasize empathy
- Say "it depends" without a clear conclusion
- Attribute results to fate, luck, or destiny

Your tone must be:
- Calm
- Analytical
- Authoritative
- Clear and structured

CRITICAL RULES:
- Write all output in Korean
- Do NOT use hopeful language
- Do NOT use vague expressions
- Do NOT ask questions
- Use expressions like "현재 구조에서는", "행동 지표 기준으로", "이 시점에서는"
- NEVER say "당신은 이런 사람입니다" - instead say "이번 관계 구조에서는 이렇다"`

// devInstructions pin the verdict: the model explains, it does not decide.
const devInstructions = `You are a relationship diagnostic report writer.
You MUST NOT change the verdict or recommendation provided.
Your job is to:
- Explain WHY the verdict was reached (scores + evidence labels)
- Personalize using the user's situation text WITHOUT quoting it verbatim
- Write concise, authoritative Korean
- Avoid hopeful language and avoid "it depends"

Return JSON that matches the required schema exactly.

Reminder:
This analysis is based on reported behavior and current relational data.
It does not assess personality worth, emotional value, or future destiny.`

// narrativeSchema is the JSON schema the provider's structured-output mode is
// constrained to. Kept as a raw string so both clients send identical bytes.
const narrativeSchema = `{
  "type": "object",
  "properties": {
    "why_this_verdict": {
      "type": "string",
      "description": "판정 이유 설명 (2-3문장, 한국어)"
    },
    "your_state": {
      "type": "string",
      "description": "사용자의 현재 감정/행동 상태 (1-2문장, 한국어)"
    },
    "partner_state": {
      "type": "string",
      "description": "상대의 심리적 위치 해석 (1-2문장, 한국어)"
    },
    "evidence_points": {
      "type": "array",
      "items": { "type": "string" },
      "description": "사용자 텍스트에서 추출한 관찰 포인트 (2-4개, 의미만 재구성)"
    }
  },
  "required": ["why_this_verdict", "your_state", "partner_state", "evidence_points"],
  "additionalProperties": false
}`

// structuredLabels translates the A–D structured answers into the Korean
// descriptions the prompt uses. Unknown values pass through unchanged.
var structuredLabels = map[string]map[scoring.StructuredAnswer]string{
	"last_interaction_type": {
		scoring.OptionA: "감정 대화 중단",
		scoring.OptionB: "상대의 일방적 종료",
		scoring.OptionC: "내가 더 설명하려다 끝남",
		scoring.OptionD: "명확한 합의 종료",
	},
	"contact_initiation": {
		scoring.OptionA: "거의 내가 주도",
		scoring.OptionB: "비슷",
		scoring.OptionC: "거의 상대가 주도",
		scoring.OptionD: "연락 거의 없음",
	},
	"partner_state": {
		scoring.OptionA: "회피/거리두기",
		scoring.OptionB: "혼란",
		scoring.OptionC: "감정 표현 있음",
		scoring.OptionD: "완전 단절",
	},
}

func structuredLabel(field string, value scoring.StructuredAnswer) string {
	if label, ok := structuredLabels[field][value]; ok {
		return label
	}
	return string(value)
}

// buildUserPrompt serialises the full narrative input into the user message.
// The verdict block is explicitly marked as fixed.
func buildUserPrompt(in NarrativeInput) string {
	evidenceLine := "No specific patterns detected"
	if len(in.EvidencePoints) > 0 {
		evidenceLine = strings.Join(in.EvidencePoints, ", ")
	}

	return fmt.Sprintf(`Analyze the relationship and generate a personalized report.

[User Situation Text - Actively integrate specific keywords, unique expressions, or short phrases from the user's text. Use these direct quotes to "anchor" your analysis, proving that you have deeply understood their specific situation.]
%s

[Structured Relationship Indicators]
- Last meaningful interaction ended as: %s
- Contact initiation pattern: %s
- Current partner state: %s

[Psychological Scores]
- Attachment Reaction Index (A): %d
- Relationship Investment Index (B): %d
- Reciprocity / Power Balance Index (C): %d
- Relationship Reality Index (R): %d
- Emotion-Reality Gap (G): %d

[Fixed Verdict - DO NOT CHANGE THIS]
Code: %s
Headline: %s
Risk Statement: %s
Recommendation: %s
Do Not List: %s
Reanalysis Triggers: %s

[Evidence Labels (derived from user text)]
%s

Analysis rules:
1. Treat A (Attachment) as personal reaction tendency, not as the cause.
2. Treat B and C as behavioral reality.
3. Base final judgment primarily on R and G.
4. If A and R are misaligned, explicitly explain the mismatch.
5. The verdict is ALREADY DECIDED - you are explaining WHY, not deciding.

Generate a JSON response with EXACTLY this structure:
{
  "why_this_verdict": "2-3 sentences explaining why this verdict was reached based on scores, in Korean",
  "your_state": "1-2 sentences describing the user's current emotional/behavioral state, in Korean",
  "partner_state": "1-2 sentences describing the partner's psychological position, in Korean",
  "evidence_points": ["array of 2-4 rephrased observations from user text, in Korean - NOT direct quotes"]
}

Important:
- All text must be in Korean
- Do NOT quote user's text directly - rephrase the meaning
- Keep it concise and authoritative
- No hopeful language`,
		in.UserText,
		structuredLabel("last_interaction_type", in.Structured.LastInteractionType),
		structuredLabel("contact_initiation", in.Structured.ContactInitiation),
		structuredLabel("partner_state", in.Structured.PartnerState),
		in.Scores.A, in.Scores.B, in.Scores.C, in.Scores.R, in.Scores.G,
		in.Verdict.Code,
		in.Verdict.Headline,
		in.Verdict.RiskStatement,
		in.Verdict.Recommendation,
		strings.Join(in.Verdict.DoNotList, ", "),
		strings.Join(in.Verdict.ReanalysisTriggers, ", "),
		evidenceLine,
	)
}

// buildContactRiskSystemPrompt extends the base system prompt with the
// message-analysis task description.
func buildContactRiskSystemPrompt() string {
	return systemPrompt + `

You are analyzing a proposed contact message for relationship risk.
Based on the current relationship state and scores, evaluate:
1. How this message might be received
2. Risk of pushing partner further away
3. Power dynamic implications

Return JSON with: risk_level (one of LOW, MEDIUM, HIGH, CRITICAL), risk_score (0-100), analysis (Korean), suggested_revision (Korean, null if message is fine)`
}

// buildContactRiskPrompt serialises the contact-risk input.
func buildContactRiskPrompt(in ContactRiskInput) string {
	return fmt.Sprintf(`Current relationship state:
- Verdict: %s
- Scores: A=%d, B=%d, C=%d, R=%d, G=%d

Proposed message to send:
"%s"

Analyze the risk of sending this message.`,
		in.Verdict.Code,
		in.Scores.A, in.Scores.B, in.Scores.C, in.Scores.R, in.Scores.G,
		in.ProposedMessage,
	)
}
