package intent

import (
	"regexp"
	"testing"

	"github.com/kailas-cloud/shopqa/internal/domain"
)

func doc(id, typ string, imp domain.Importance, product string) domain.Document {
	return domain.Document{
		ID:       id,
		Content:  "content " + id,
		Metadata: domain.Metadata{Title: id, Type: typ, Importance: imp, ProductID: product},
	}
}

func TestDetectIntent_Categories(t *testing.T) {
	d := NewDetector(nil)
	tests := []struct {
		query string
		want  Category
	}{
		{"Hoeveel liter is de afvalbak?", CategoryTechnical},
		{"Is deze prullenbak veilig voor kinderen?", CategorySafety},
		{"Wat kost de pedaalemmer?", CategoryPrice},
		{"Wat is het verschil tussen 20L en 30L?", CategoryComparison},
		{"Hoe lang duurt de levering?", CategoryFAQ},
		{"Heeft hij een soft close deksel?", CategoryFeature},
		{"Hallo daar", CategoryNone},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			crit, cat := d.DetectIntent(tt.query)
			if cat != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, cat)
			}
			if cat == CategoryNone {
				if !crit.IsEmpty() {
					t.Errorf("expected empty criteria, got %+v", crit)
				}
				return
			}
			if len(crit.Types) != 1 || crit.Types[0] != string(tt.want) {
				t.Errorf("unexpected types %v", crit.Types)
			}
			if crit.MinImportance != domain.ImportanceMedium {
				t.Errorf("expected medium floor, got %q", crit.MinImportance)
			}
		})
	}
}

func TestDetectIntent_PriorityOrder(t *testing.T) {
	d := NewDetector(nil)
	// Safety and price both match; safety has priority.
	_, cat := d.DetectIntent("Is de goedkope afvalbak veilig? Wat kost hij?")
	if cat != CategorySafety {
		t.Fatalf("expected safety to win, got %q", cat)
	}
}

func TestNewDetector_SortsCustomRules(t *testing.T) {
	d := NewDetector([]Rule{
		{Category: CategoryFAQ, Pattern: regexp.MustCompile(`bak`), Priority: 2},
		{Category: CategoryPrice, Pattern: regexp.MustCompile(`bak`), Priority: 1},
	})
	if _, cat := d.DetectIntent("afvalbak"); cat != CategoryPrice {
		t.Fatalf("expected lowest priority value first, got %q", cat)
	}
}

func TestFilter_AppliesCriteria(t *testing.T) {
	docs := []domain.Document{
		doc("a", "technical", domain.ImportanceHigh, ""),
		doc("b", "technical", domain.ImportanceLow, ""),
		doc("c", "faq", domain.ImportanceHigh, ""),
	}
	crit := domain.FilterCriteria{Types: []string{"technical"}, MinImportance: domain.ImportanceMedium}

	out := Filter(crit, docs)
	if out.FallbackUsed {
		t.Fatal("did not expect fallback")
	}
	if len(out.Documents) != 1 || out.Documents[0].ID != "a" {
		t.Fatalf("unexpected documents: %+v", out.Documents)
	}
}

func TestFilter_NeverEmptiesCandidates(t *testing.T) {
	docs := []domain.Document{
		doc("a", "faq", domain.ImportanceLow, ""),
		doc("b", "price", domain.ImportanceLow, ""),
	}
	crit := domain.FilterCriteria{Types: []string{"safety"}, MinImportance: domain.ImportanceMedium}

	out := Filter(crit, docs)
	if !out.FallbackUsed {
		t.Fatal("expected fallback")
	}
	if len(out.Documents) != len(docs) {
		t.Fatalf("expected unfiltered set, got %d docs", len(out.Documents))
	}
}

func TestFilter_RelaxesToProduct(t *testing.T) {
	docs := []domain.Document{
		doc("a", "faq", domain.ImportanceLow, "p1"),
		doc("b", "faq", domain.ImportanceLow, "p2"),
	}
	crit := domain.FilterCriteria{Types: []string{"technical"}, ProductIDs: []string{"p1"}}

	out := Filter(crit, docs)
	if !out.FallbackUsed || out.Relaxed != "product" {
		t.Fatalf("expected product relaxation, got %+v", out)
	}
	if len(out.Documents) != 1 || out.Documents[0].ID != "a" {
		t.Fatalf("unexpected documents: %+v", out.Documents)
	}
}

func TestFilter_EmptyCriteriaPassThrough(t *testing.T) {
	docs := []domain.Document{doc("a", "faq", domain.ImportanceLow, "")}
	out := Filter(domain.FilterCriteria{}, docs)
	if out.FallbackUsed || len(out.Documents) != 1 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}
