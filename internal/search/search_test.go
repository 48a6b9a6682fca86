package search

import (
	"testing"

	"github.com/sohosai/qr-backend/internal/domain/model"
)

func scored(id string, score float64) *ScoredFixture {
	return &ScoredFixture{
		Fixture: model.Fixture{ID: id, Name: "item-" + id},
		Score:   score,
	}
}

func TestNormalizeKeywords(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"пустой список", nil, []string{}},
		{"только пробелы", []string{"", "  ", "\t"}, []string{}},
		{"обрезка пробелов", []string{" mic ", "cable"}, []string{"mic", "cable"}},
		{"смешанный", []string{"a", "", " b "}, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeKeywords(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("NormalizeKeywords() = %v, хотели %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("элемент %d = %q, хотели %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMergeHits(t *testing.T) {
	// Предмет b встречается в обеих выдачах: сохраняется
	// релевантность первого вхождения.
	pages := [][]*ScoredFixture{
		{scored("a", 0.9), scored("b", 0.8)},
		{scored("b", 0.5), scored("c", 0.7)},
	}

	merged := mergeHits(pages)
	if len(merged) != 3 {
		t.Fatalf("mergeHits() вернул %d документов, хотели 3", len(merged))
	}

	wantOrder := []string{"a", "b", "c"}
	for i, id := range wantOrder {
		if merged[i].ID != id {
			t.Errorf("позиция %d: ID = %q, хотели %q", i, merged[i].ID, id)
		}
	}
	if merged[1].Score != 0.8 {
		t.Errorf("Score предмета b = %v, хотели 0.8 (первое вхождение)", merged[1].Score)
	}
}

func TestMergeHitsEmpty(t *testing.T) {
	merged := mergeHits(nil)
	if merged == nil || len(merged) != 0 {
		t.Errorf("mergeHits(nil) = %v, хотели пустой срез", merged)
	}
}

func TestDecodeHit(t *testing.T) {
	raw := map[string]any{
		"id":            "f-001",
		"name":          "projector",
		"qr_id":         "QR-0001",
		"qr_color":      "red",
		"storage":       "room101",
		"note":          "",
		"parent_id":     "",
		"_rankingScore": 0.87,
	}

	hit, err := decodeHit(raw)
	if err != nil {
		t.Fatalf("decodeHit() ошибка: %v", err)
	}
	if hit.ID != "f-001" || hit.Name != "projector" {
		t.Errorf("decodeHit: ID=%q, Name=%q", hit.ID, hit.Name)
	}
	if hit.QrColor != model.QrColorRed {
		t.Errorf("QrColor = %q, хотели %q", hit.QrColor, model.QrColorRed)
	}
	if hit.Score != 0.87 {
		t.Errorf("Score = %v, хотели 0.87", hit.Score)
	}
}

func TestDecodeHitBroken(t *testing.T) {
	// Канал не может быть сериализован в JSON
	if _, err := decodeHit(map[string]any{"id": make(chan int)}); err == nil {
		t.Error("decodeHit() повреждённого документа: ожидали ошибку")
	}
}
