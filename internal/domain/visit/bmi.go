package visit

import "math"

// BMI thresholds in kg/m².
const (
	UnderweightBelow = 18.5
	OverweightFrom   = 25.0
)

// ComputeBMI returns weight / height² (height in metres) rounded half away from
// zero to two decimals. It returns 0 when either input is not positive.
func ComputeBMI(heightCm, weightKg float64) float64 {
	if heightCm <= 0 || weightKg <= 0 {
		return 0
	}
	m := heightCm / 100
	return math.Round(weightKg/(m*m)*100) / 100
}

func ClassifyBMI(bmi float64) BMIStatus {
	switch {
	case bmi < UnderweightBelow:
		return StatusUnderweight
	case bmi < OverweightFrom:
		return StatusNormal
	default:
		return StatusOverweight
	}
}

// RouteAssessment picks the questionnaire that follows a vitals reading.
func RouteAssessment(s BMIStatus) AssessmentKind {
	if s == StatusOverweight {
		return AssessmentOverweight
	}
	return AssessmentGeneral
}
