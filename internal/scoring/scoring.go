// Package scoring converts the raw questionnaire input — 25 Likert answers
// plus three forced-choice structured answers — into the five report scores.
// It is intentionally dependency-free: it imports nothing from internal/ and
// can be tested without any I/O.
package scoring

// ─── CONSTANTS ────────────────────────────────────────────────────────────────

// NeutralAnswer is the value substituted for any checklist item the user did
// not answer. The questionnaire UI enforces completeness before submission, so
// defaulting here is a documented policy, not error recovery.
const NeutralAnswer = 3

// ─── TYPES ────────────────────────────────────────────────────────────────────

// ChecklistAnswers maps question IDs ("q1".."q25") to Likert values 1–5.
// Missing keys score as NeutralAnswer; unknown keys are ignored by the
// bucket item tables.
type ChecklistAnswers map[string]int

// StructuredAnswer is one of the four forced-choice options.
type StructuredAnswer string

const (
	OptionA StructuredAnswer = "A"
	OptionB StructuredAnswer = "B"
	OptionC StructuredAnswer = "C"
	OptionD StructuredAnswer = "D"
)

// Valid reports whether the answer is one of A/B/C/D.
func (a StructuredAnswer) Valid() bool {
	switch a {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// StructuredAnswers holds the three mandatory structured questions. All three
// must be present and valid before scoring — there is no default.
type StructuredAnswers struct {
	LastInteractionType StructuredAnswer `json:"last_interaction_type"`
	ContactInitiation   StructuredAnswer `json:"contact_initiation"`
	PartnerState        StructuredAnswer `json:"partner_state"`
}

// Scores is the full computed score set. A, B, C and R are in [0,100] by
// construction; G is in [-100,100]. Computed once per report and immutable
// thereafter.
type Scores struct {
	A int `json:"A"` // attachment reaction index (q1–q8)
	B int `json:"B"` // partner's relationship investment (q9–q17), modified
	C int `json:"C"` // reciprocity / power balance (q18–q25), modified
	R int `json:"R"` // relationship reality index: round((B+C)/2)
	G int `json:"G"` // emotion-reality gap: A − R
}

// ItemSpec describes one checklist item inside a bucket: the question it
// reads, its weight, and whether the Likert value is reversed (v → 6−v).
// Every current item has Weight 1 and Reverse false; both knobs are live in
// the algorithm so future item definitions can use them without code changes.
type ItemSpec struct {
	QID     string
	Weight  int
	Reverse bool
}

// ─── CORE FUNCTIONS ───────────────────────────────────────────────────────────

// clamp constrains a score to [0, 100]. With weight-1 items it is a no-op for
// bucket scores, but modifier application and future weighted items rely on it.
func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// roundHalfUp rounds a non-negative value to the nearest integer, halves up.
func roundHalfUp(v float64) int {
	return int(v + 0.5)
}

// normalizeTo100 linearly rescales raw from [minRaw, maxRaw] to [0, 100].
func normalizeTo100(raw, minRaw, maxRaw int) int {
	v := float64(raw-minRaw) / float64(maxRaw-minRaw)
	return clamp(roundHalfUp(v * 100))
}

// ScoreBucket aggregates one bucket's items into a 0–100 score.
//
// For each item: look up the answer (NeutralAnswer if absent), apply reversal
// if flagged, multiply by weight, and accumulate alongside the theoretical
// minimum (weight×1) and maximum (weight×5). The raw sum is then rescaled to
// [0,100] and rounded.
//
// Missing or malformed per-item answers are silently defaulted, never
// rejected — input validation happens at the request boundary.
func ScoreBucket(answers ChecklistAnswers, items []ItemSpec) int {
	raw, minRaw, maxRaw := 0, 0, 0

	for _, it := range items {
		a, ok := answers[it.QID]
		if !ok || a < 1 || a > 5 {
			a = NeutralAnswer
		}
		// reverse: 1↔5, 2↔4, 3↔3
		if it.Reverse {
			a = 6 - a
		}
		raw += a * it.Weight
		minRaw += 1 * it.Weight
		maxRaw += 5 * it.Weight
	}

	return normalizeTo100(raw, minRaw, maxRaw)
}

// Modifiers are the signed adjustments derived from the structured answers.
// They apply to B and C only; A is never modified.
type Modifiers struct {
	BMod int
	CMod int
}

// GetModifiers maps the three structured answers to their adjustments.
// The three rules are additive and independent.
func GetModifiers(structured StructuredAnswers) Modifiers {
	var m Modifiers

	// Q1: how the last meaningful interaction ended.
	switch structured.LastInteractionType {
	case OptionA:
		m.BMod -= 10
	case OptionB:
		m.BMod -= 20
	case OptionC:
		m.BMod -= 15
	case OptionD:
		m.BMod += 10
	}

	// Q2: who initiates contact.
	switch structured.ContactInitiation {
	case OptionA:
		m.CMod -= 20
	case OptionB:
		m.CMod += 10
	case OptionC:
		m.CMod += 15
	case OptionD:
		m.CMod -= 15
	}

	// Q3: partner's current state. B leaves both untouched.
	switch structured.PartnerState {
	case OptionA:
		m.BMod -= 10
		m.CMod -= 10
	case OptionC:
		m.BMod += 10
		m.CMod += 10
	case OptionD:
		m.BMod -= 25
		m.CMod -= 25
	}

	return m
}

// ComputeScores runs the full scoring pipeline: bucket scores, modifier
// application to B/C, then the derived R and G indices.
func ComputeScores(checklist ChecklistAnswers, structured StructuredAnswers) Scores {
	a := ScoreBucket(checklist, AItems)
	rawB := ScoreBucket(checklist, BItems)
	rawC := ScoreBucket(checklist, CItems)

	m := GetModifiers(structured)
	b := clamp(rawB + m.BMod)
	c := clamp(rawC + m.CMod)

	r, g := ComputeRG(a, b, c)

	return Scores{A: a, B: b, C: c, R: r, G: g}
}

// ComputeABC returns the three raw bucket scores with no modifiers applied.
func ComputeABC(checklist ChecklistAnswers) (a, b, c int) {
	return ScoreBucket(checklist, AItems),
		ScoreBucket(checklist, BItems),
		ScoreBucket(checklist, CItems)
}

// ComputeRG derives the reality index and the emotion-reality gap from the
// (already modified) A, B, C scores.
func ComputeRG(a, b, c int) (r, g int) {
	r = roundHalfUp(float64(b+c) / 2)
	g = a - r
	return r, g
}
