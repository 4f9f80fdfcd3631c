package report

import "github.com/bluenomad/postmortem-backend/internal/verdict"

// CTA is one paid follow-up offer. Price is in KRW.
type CTA struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Price int64  `json:"price"`
	SKU   string `json:"sku"`
}

// The three offer SKUs. The checkout endpoint and the Stripe metadata key off
// these strings.
const (
	SKURecheck14D = "RECHECK_14D"
	SKUTextRisk   = "TEXT_RISK"
	SKUSimulation = "SIMULATION"
)

// BuildCTAs returns the upsell offers for a finished report. The code argument
// is accepted for the contract but currently ignored: every verdict gets the
// same three offers.
func BuildCTAs(code verdict.Code) []CTA {
	return []CTA{
		{
			Title: "관계 변화 후 재분석 리포트",
			Body:  "상황이 바뀌었을 때 다시 계산합니다.",
			Price: 7900,
			SKU:   SKURecheck14D,
		},
		{
			Title: "연락 리스크 분석",
			Body:  "지금 이 문장, 보내도 될까?",
			Price: 5900,
			SKU:   SKUTextRisk,
		},
		{
			Title: "재회 가능성 시뮬레이션",
			Body:  "이 행동을 하면 관계는 어떻게 변할까?",
			Price: 9900,
			SKU:   SKUSimulation,
		},
	}
}

// FindCTA looks up an offer by SKU. The second return is false for unknown
// SKUs — the checkout handler rejects those before touching Stripe.
func FindCTA(sku string) (CTA, bool) {
	for _, cta := range BuildCTAs("") {
		if cta.SKU == sku {
			return cta, true
		}
	}
	return CTA{}, false
}
