package units

import (
	"math"
	"testing"
)

func TestDecodeRsrp(t *testing.T) {
	tests := []struct {
		name     string
		q        int
		expected float64
	}{
		{"bottom of range", 0, -140.0},
		{"top of range", 97, -43.0},
		{"mid range", 50, -90.0},
		{"absent measurement", -1, RsrpNoData},
		{"any negative is absent", -7, RsrpNoData},
		{"above range decodes without clamping", 120, -20.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DecodeRsrp(tt.q)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("DecodeRsrp(%d) = %f, want %f", tt.q, result, tt.expected)
			}
		})
	}
}

func TestDecodeRsrq(t *testing.T) {
	tests := []struct {
		name     string
		q        int
		expected float64
	}{
		{"bottom of range", 0, -19.5},
		{"top of range", 34, -2.5},
		{"half-dB step", 1, -19.0},
		{"mid range", 20, -9.5},
		{"absent measurement", -1, RsrqNoData},
		{"above range decodes without clamping", 40, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DecodeRsrq(tt.q)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("DecodeRsrq(%d) = %f, want %f", tt.q, result, tt.expected)
			}
		})
	}
}

func TestRsrpInRange(t *testing.T) {
	tests := []struct {
		name     string
		q        int
		expected bool
	}{
		{"zero", 0, true},
		{"max", RsrpQuantMax, true},
		{"negative", -1, false},
		{"above max", RsrpQuantMax + 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RsrpInRange(tt.q); got != tt.expected {
				t.Errorf("RsrpInRange(%d) = %v, want %v", tt.q, got, tt.expected)
			}
		})
	}
}

func TestRsrqInRange(t *testing.T) {
	tests := []struct {
		name     string
		q        int
		expected bool
	}{
		{"zero", 0, true},
		{"max", RsrqQuantMax, true},
		{"negative", -1, false},
		{"above max", RsrqQuantMax + 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RsrqInRange(tt.q); got != tt.expected {
				t.Errorf("RsrqInRange(%d) = %v, want %v", tt.q, got, tt.expected)
			}
		})
	}
}

// Sentinels must sit strictly below anything the decoders can produce for a
// reported value, so downstream consumers can always tell them apart.
func TestSentinelsBelowDecodableRange(t *testing.T) {
	if RsrpNoData >= DecodeRsrp(0) {
		t.Errorf("RsrpNoData (%f) must be below the weakest decodable RSRP (%f)", RsrpNoData, DecodeRsrp(0))
	}
	if RsrqNoData >= DecodeRsrq(0) {
		t.Errorf("RsrqNoData (%f) must be below the weakest decodable RSRQ (%f)", RsrqNoData, DecodeRsrq(0))
	}
}
