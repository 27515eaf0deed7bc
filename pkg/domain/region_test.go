package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRegion(t *testing.T) {
	tests := []struct {
		input    string
		expected Region
	}{
		{"EMEA", RegionEMEA},
		{"emea", RegionEMEA},
		{"  apac  ", RegionAPAC},
		{"LATAM", RegionLATAM},
		{"na", RegionNA},
		{"", RegionNA},
		{"EUROPE", RegionNA},
		{"mars", RegionNA},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeRegion(tt.input))
		})
	}
}

func TestPriorityValid(t *testing.T) {
	assert.True(t, PriorityLow.Valid())
	assert.True(t, PriorityMedium.Valid())
	assert.True(t, PriorityHigh.Valid())
	assert.False(t, Priority("URGENT").Valid())
	assert.False(t, Priority("").Valid())
}
