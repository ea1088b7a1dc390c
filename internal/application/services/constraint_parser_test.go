package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintParser_PricePhrasings(t *testing.T) {
	parser := NewConstraintParser()

	tests := []struct {
		name  string
		query string
		min   *float64
		max   *float64
	}{
		{"upper bound", "running shoes under $100", nil, f(100)},
		{"upper bound without dollar sign", "laptop less than 800", nil, f(800)},
		{"lower bound", "watch over $200", f(200), nil},
		{"between", "jacket between $50 and $150", f(50), f(150)},
		{"dollar range", "jacket $50-$150", f(50), f(150)},
		{"dollar range with to", "jacket $50 to 150", f(50), f(150)},
		{"around expands to plus minus twenty percent", "headphones around $80", f(64), f(96)},
		{"both bounds combine", "sneakers over $30 under $100", f(30), f(100)},
		{"no price", "red sneakers", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			constraints := parser.Parse(tt.query)
			if tt.min == nil && tt.max == nil {
				assert.Nil(t, constraints.PriceRange)
				return
			}
			require.NotNil(t, constraints.PriceRange)
			assertBound(t, tt.min, constraints.PriceRange.Min, "min")
			assertBound(t, tt.max, constraints.PriceRange.Max, "max")
		})
	}
}

func TestConstraintParser_RangeOverridesSingleBounds(t *testing.T) {
	parser := NewConstraintParser()

	// "between" wins over the "over $30" lower bound also present.
	constraints := parser.Parse("shoes over $30 between $50 and $90")
	require.NotNil(t, constraints.PriceRange)
	assert.Equal(t, 50.0, *constraints.PriceRange.Min)
	assert.Equal(t, 90.0, *constraints.PriceRange.Max)
}

func TestConstraintParser_AroundDoesNotOverrideExplicitBound(t *testing.T) {
	parser := NewConstraintParser()

	constraints := parser.Parse("shoes under $100 around $80")
	require.NotNil(t, constraints.PriceRange)
	assert.Nil(t, constraints.PriceRange.Min)
	assert.Equal(t, 100.0, *constraints.PriceRange.Max)
}

func TestConstraintParser_Colors(t *testing.T) {
	parser := NewConstraintParser()

	constraints := parser.Parse("dark blue dress with red accents")
	assert.Equal(t, []string{"dark blue", "red"}, constraints.Colors)

	constraints = parser.Parse("black and white sneakers")
	assert.Equal(t, []string{"black", "white"}, constraints.Colors)
}

func TestConstraintParser_Sizes(t *testing.T) {
	parser := NewConstraintParser()

	constraints := parser.Parse("nike shoes size 9.5")
	assert.Contains(t, constraints.Sizes, "9.5")

	constraints = parser.Parse("xl hoodie")
	assert.Equal(t, []string{"xl"}, constraints.Sizes)

	// A number inside a price phrase is not a size.
	constraints = parser.Parse("sneakers under $12")
	assert.Empty(t, constraints.Sizes)

	// A bare number in the shoe range is.
	constraints = parser.Parse("running shoes 10")
	assert.Equal(t, []string{"10"}, constraints.Sizes)
}

func TestConstraintParser_Gender(t *testing.T) {
	parser := NewConstraintParser()

	assert.Equal(t, "men", parser.Parse("men's running shoes").Gender)
	assert.Equal(t, "women", parser.Parse("dress for women").Gender)
	assert.Equal(t, "unisex", parser.Parse("unisex watch").Gender)
	assert.Equal(t, "", parser.Parse("running shoes").Gender)
}

func TestConstraintParser_StylesAndProducts(t *testing.T) {
	parser := NewConstraintParser()

	constraints := parser.Parse("casual summer dress")
	assert.Equal(t, []string{"casual"}, constraints.Styles)
	assert.Equal(t, []string{"dress"}, constraints.ProductKeywords)
}

func TestConstraintParser_ComparisonLanguage(t *testing.T) {
	parser := NewConstraintParser()

	assert.Contains(t, parser.Parse("similar casual shoes").OtherConstraints, "similar-style")
	assert.Contains(t, parser.Parse("something like this jacket").OtherConstraints, "similar-style")
	assert.Contains(t, parser.Parse("shoes like these").OtherConstraints, "similar-style")
	assert.Empty(t, parser.Parse("red sneakers").OtherConstraints)
}

func TestConstraintParser_DetectBrands(t *testing.T) {
	parser := NewConstraintParser()

	assert.Equal(t, []string{"nike"}, parser.DetectBrands("red Nike sneakers"))
	assert.Empty(t, parser.DetectBrands("red sneakers"))
}

func TestConstraintParser_CleanQueryRoundTrip(t *testing.T) {
	parser := NewConstraintParser()

	query := "show me red nike sneakers under $50 for women"
	constraints := parser.Parse(query)
	clean := parser.CleanQuery(query, constraints)

	assert.Equal(t, "nike sneakers", clean)

	// Cleaning a constraint-free query keeps its content words.
	assert.Equal(t, "wireless headphones", parser.CleanQuery("wireless headphones", parser.Parse("wireless headphones")))
}

func TestConstraintParser_EmptyQuery(t *testing.T) {
	parser := NewConstraintParser()

	constraints := parser.Parse("   ")
	assert.True(t, constraints.IsEmpty())
}

func TestIsModelNumberToken(t *testing.T) {
	assert.True(t, IsModelNumberToken("wh1000xm5"))
	assert.True(t, IsModelNumberToken("990v6"))
	assert.False(t, IsModelNumberToken("sneakers"))
	assert.False(t, IsModelNumberToken("9"))
}

func assertBound(t *testing.T, want, got *float64, label string) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got, label)
		return
	}
	if got == nil {
		t.Errorf("%s: expected %v, got nil", label, *want)
		return
	}
	assert.InDelta(t, *want, *got, 0.0001, label)
}

func f(v float64) *float64 { return &v }
