package pricing

import "testing"

func TestTotal(t *testing.T) {
	tests := []struct {
		name     string
		in       JobInputs
		expected float64
	}{
		{
			name: "labor plus parts with tax",
			in: JobInputs{
				LaborMinutes: 120,
				LaborRate:    85,
				PartsTotal:   150,
				TaxRate:      8,
			},
			expected: 345.60,
		},
		{
			name: "discount reduces taxable subtotal",
			in: JobInputs{
				LaborMinutes:   120,
				LaborRate:      85,
				PartsTotal:     150,
				TaxRate:        8,
				DiscountAmount: 30,
			},
			expected: 313.20,
		},
		{
			name:     "all zero",
			in:       JobInputs{},
			expected: 0,
		},
		{
			name: "labor only, no tax",
			in: JobInputs{
				LaborMinutes: 90,
				LaborRate:    100,
			},
			expected: 150,
		},
		{
			name: "fractional hours round to cents",
			in: JobInputs{
				LaborMinutes: 50,
				LaborRate:    85,
			},
			expected: 70.83,
		},
		{
			name: "discount exceeding subtotal goes negative",
			in: JobInputs{
				PartsTotal:     20,
				DiscountAmount: 50,
			},
			expected: -30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Total(tt.in)
			if got != tt.expected {
				t.Errorf("Total(%+v) = %v, want %v", tt.in, got, tt.expected)
			}
		})
	}
}

func TestLineSubtotal(t *testing.T) {
	tests := []struct {
		name      string
		unitPrice float64
		quantity  int
		expected  float64
	}{
		{"single unit", 24.99, 1, 24.99},
		{"multiple units", 24.99, 3, 74.97},
		{"zero quantity", 24.99, 0, 0},
		{"free part", 0, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineSubtotal(tt.unitPrice, tt.quantity)
			if got != tt.expected {
				t.Errorf("LineSubtotal(%v, %d) = %v, want %v", tt.unitPrice, tt.quantity, got, tt.expected)
			}
		})
	}
}
