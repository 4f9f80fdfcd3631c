package scoring

// The 25 checklist items, partitioned into three fixed, non-overlapping,
// contiguous buckets. Bucket membership is positional — reordering these
// tables changes scoring semantics.

// AItems — attachment reaction / personal disposition (8 items: q1–q8).
var AItems = []ItemSpec{
	{QID: "q1", Weight: 1},
	{QID: "q2", Weight: 1},
	{QID: "q3", Weight: 1},
	{QID: "q4", Weight: 1},
	{QID: "q5", Weight: 1},
	{QID: "q6", Weight: 1},
	{QID: "q7", Weight: 1},
	{QID: "q8", Weight: 1},
}

// BItems — partner's relationship investment (9 items: q9–q17).
var BItems = []ItemSpec{
	{QID: "q9", Weight: 1},
	{QID: "q10", Weight: 1},
	{QID: "q11", Weight: 1},
	{QID: "q12", Weight: 1},
	{QID: "q13", Weight: 1},
	{QID: "q14", Weight: 1},
	{QID: "q15", Weight: 1},
	{QID: "q16", Weight: 1},
	{QID: "q17", Weight: 1},
}

// CItems — reciprocity / power structure (8 items: q18–q25).
var CItems = []ItemSpec{
	{QID: "q18", Weight: 1},
	{QID: "q19", Weight: 1},
	{QID: "q20", Weight: 1},
	{QID: "q21", Weight: 1},
	{QID: "q22", Weight: 1},
	{QID: "q23", Weight: 1},
	{QID: "q24", Weight: 1},
	{QID: "q25", Weight: 1},
}
