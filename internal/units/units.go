// Package units decodes 3GPP quantized signal measurements to physical units
package units

// Quantization ranges from 3GPP TS 36.133 (RSRP) and TS 36.331 (RSRQ).
// A negative quantized value means the measurement was not reported.
const (
	RsrpQuantMax = 97 // valid RSRP codes are 0..97
	RsrqQuantMax = 34 // valid RSRQ codes are 0..34

	RsrpMinDbm = -140.0
	RsrqMinDb  = -19.5

	// Sentinels for absent measurements. Both sit far below the decodable
	// range so they can never be confused with a weak but real signal.
	RsrpNoData = -200.0
	RsrqNoData = -50.0
)

// DecodeRsrp converts a quantized RSRP code to dBm. Codes above RsrpQuantMax
// are decoded by the same linear map without clamping; callers that care
// should check RsrpInRange first. Negative codes mean the measurement was
// absent and decode to RsrpNoData.
func DecodeRsrp(q int) float64 {
	if q < 0 {
		return RsrpNoData
	}
	return RsrpMinDbm + float64(q)
}

// DecodeRsrq converts a quantized RSRQ code to dB in 0.5 dB steps. Negative
// codes decode to RsrqNoData.
func DecodeRsrq(q int) float64 {
	if q < 0 {
		return RsrqNoData
	}
	return RsrqMinDb + 0.5*float64(q)
}

// RsrpInRange reports whether q is a valid RSRP quantization code.
func RsrpInRange(q int) bool {
	return q >= 0 && q <= RsrpQuantMax
}

// RsrqInRange reports whether q is a valid RSRQ quantization code.
func RsrqInRange(q int) bool {
	return q >= 0 && q <= RsrqQuantMax
}
