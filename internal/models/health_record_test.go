package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveConclusion(t *testing.T) {
	tests := []struct {
		name           string
		conclusionText string
		classification string
		want           string
	}{
		{name: "grade I", classification: "I", want: ConclusionFitForWork},
		{name: "grade ii padded lowercase", classification: " ii ", want: ConclusionFitForWork},
		{name: "grade III", classification: "III", want: ConclusionFitForWork},
		{name: "grade IV", classification: "IV", want: ConclusionFitWithRestrictions},
		{name: "grade iv lowercase", classification: "iv", want: ConclusionFitWithRestrictions},
		{name: "unknown grade", classification: "V", want: ""},
		{name: "no grade", want: ""},
		{name: "blank text falls through", conclusionText: "   ", classification: "II", want: ConclusionFitForWork},
		{name: "text overrides I", conclusionText: "Cần tái khám", classification: "I", want: "Cần tái khám"},
		{name: "text overrides II", conclusionText: " Đủ sức khỏe ", classification: "II", want: "Đủ sức khỏe"},
		{name: "text overrides IV", conclusionText: "Fit", classification: "IV", want: "Fit"},
		{name: "text without grade", conclusionText: "Nghỉ dưỡng", want: "Nghỉ dưỡng"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DeriveConclusion(tt.conclusionText, tt.classification))
		})
	}
}

func TestIsValidStatus(t *testing.T) {
	require.True(t, IsValidStatus(StatusDone))
	require.True(t, IsValidStatus(StatusPending))
	require.False(t, IsValidStatus(RecordStatus("archived")))
}
