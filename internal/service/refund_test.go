package service

import (
	"testing"

	"wardrobe/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRefund(t *testing.T) {
	tests := []struct {
		name      string
		deduction int64
		amount    int64
		category  string
	}{
		{"no deduction", 0, 1000, models.ResolutionFullRefund},
		{"small deduction", 300, 700, models.ResolutionPartialRefund},
		{"just under half", 499, 501, models.ResolutionPartialRefund},
		{"exactly half", 500, 500, models.ResolutionRenterPays},
		{"large deduction", 800, 200, models.ResolutionRenterPays},
		{"above deposit", 1200, -200, models.ResolutionRenterPays},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, category := ClassifyRefund(1000, tt.deduction)
			assert.Equal(t, tt.amount, amount)
			assert.Equal(t, tt.category, category)
		})
	}
}
