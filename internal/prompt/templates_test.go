package prompt

import (
	"strings"
	"testing"

	"server/internal/domain"
)

func TestForCategoryReturnsSpecificTemplate(t *testing.T) {
	l := NewLibrary()
	text, err := l.ForCategory(domain.CategoryVehicle)
	if err != nil {
		t.Fatalf("for category: %v", err)
	}
	if !strings.Contains(text, "vehicle") {
		t.Fatalf("vehicle template missing vehicle wording: %q", text[:80])
	}
}

func TestForCategoryAllKnownCategoriesResolve(t *testing.T) {
	l := NewLibrary()
	for _, c := range []domain.Category{
		domain.CategoryVehicle,
		domain.CategoryProperty,
		domain.CategoryElectronics,
		domain.CategoryFurniture,
		domain.CategoryGeneral,
	} {
		if _, err := l.ForCategory(c); err != nil {
			t.Fatalf("category %q: %v", c, err)
		}
	}
}

func TestForCategoryFallsBackOnMiss(t *testing.T) {
	l := NewLibrary()
	text, err := l.ForCategory(domain.Category("hovercraft"))
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	general, err := l.ForCategory(domain.CategoryGeneral)
	if err != nil {
		t.Fatalf("general: %v", err)
	}
	if text != general {
		t.Fatal("miss did not fall back to the universal template")
	}
}
