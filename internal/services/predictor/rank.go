package predictor

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"college-predictor/internal/models"
)

// DedupKey is the (institution, program) identity used for deduplication.
func DedupKey(institution, program string) string {
	return foldKey(institution) + "\x00" + foldKey(program)
}

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

type deduper struct {
	seen map[string]struct{}
}

func newDeduper() *deduper {
	return &deduper{seen: make(map[string]struct{})}
}

// add reports whether the key is new, recording it.
func (d *deduper) add(institution, program string) bool {
	key := DedupKey(institution, program)
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Deduplicate keeps the first prediction of every (institution, program) key.
func Deduplicate(preds []models.Prediction) []models.Prediction {
	d := newDeduper()
	out := make([]models.Prediction, 0, len(preds))
	for _, p := range preds {
		if d.add(p.Institution, p.Program) {
			out = append(out, p)
		}
	}
	return out
}

// Rank deduplicates, orders by confidence level (High first) then ascending closing
// rank, and truncates to limit. Ties keep emission order. The input is not modified.
func Rank(preds []models.Prediction, limit int) []models.Prediction {
	out := Deduplicate(preds)
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := out[i].ConfidenceLevel.Ordinal(), out[j].ConfidenceLevel.Ordinal()
		if oi != oj {
			return oi < oj
		}
		return out[i].ReferenceRank() < out[j].ReferenceRank()
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
