package llm

import (
	"fmt"
	"strings"

	"github.com/bluenomad/postmortem-backend/internal/scoring"
	"github.com/bluenomad/postmortem-backend/internal/verdict"
)

// DefaultNarrative is the deterministic local fallback used whenever no
// provider produced a valid narrative. It is a pure function of its inputs —
// identical inputs yield byte-identical output — and makes no external call,
// so a report is always produced.
func DefaultNarrative(scores scoring.Scores, v verdict.Verdict, evidencePoints []string) Narrative {
	gapSign := "양의"
	if scores.G < 0 {
		gapSign = "음의"
	}

	// First clause of the headline, up to the sentence-ending period.
	headlineClause, _, _ := strings.Cut(v.Headline, ".")

	yourState := "감정 반응은 비교적 안정적이나, 관계 현실에 대한 객관적 판단이 필요한 시점입니다."
	if scores.A >= 60 {
		yourState = "현재 감정 반응이 실제 관계 상황보다 앞서 활성화된 상태입니다."
	}

	partnerState := "상대의 관계 참여 신호가 아직 완전히 소멸되지 않은 상태입니다."
	if scores.R < 50 {
		partnerState = "상대는 관계에서 심리적 거리를 두는 방향을 선택한 상태로 보입니다."
	}

	points := evidencePoints
	if len(points) == 0 {
		points = []string{
			"입력된 상황에서 반복되는 불안 패턴이 감지됩니다",
			"상대의 반응 변화에 대한 민감성이 높아진 상태입니다",
		}
	}

	return Narrative{
		WhyThisVerdict: fmt.Sprintf(
			"애착 반응 지수(%d)와 관계 현실 지수(%d) 사이의 %s 격차(%d)가 현재 관계 상태를 결정짓는 핵심 요인입니다. 행동 지표 기준으로 %s입니다.",
			scores.A, scores.R, gapSign, scores.G, headlineClause,
		),
		YourState:      yourState,
		PartnerState:   partnerState,
		EvidencePoints: points,
	}
}

// DefaultContactRisk is the deterministic fallback for contact-risk analysis:
// a neutral MEDIUM/50 result with a fixed caution message and no revision.
func DefaultContactRisk() ContactRisk {
	return ContactRisk{
		RiskLevel:         RiskMedium,
		RiskScore:         50,
		Analysis:          "분석 중 오류가 발생했습니다. 신중하게 판단해주세요.",
		SuggestedRevision: nil,
	}
}
