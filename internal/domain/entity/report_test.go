package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func annotationsOf(t *testing.T, kinds ...FeatureKind) []Annotation {
	t.Helper()
	out := make([]Annotation, 0, len(kinds))
	for i, k := range kinds {
		a, err := NewAnnotation(float64(i), float64(i), k, 5)
		require.NoError(t, err)
		out = append(out, a)
	}
	return out
}

func TestComputeReport_VellusTerminal(t *testing.T) {
	r := ComputeReport(annotationsOf(t, VellusHair, VellusHair, TerminalHair))

	require.Equal(t, 3, r.TotalHairCount)
	require.Equal(t, 2, r.Count(VellusHair))
	require.Equal(t, 1, r.Count(TerminalHair))
	require.Equal(t, "2.00", r.VellusToTerminalRatio)
	require.Equal(t, "66.7%", r.VellusPercent)
	require.Equal(t, "33.3%", r.TerminalPercent)
}

func TestComputeReport_FollicularUnits(t *testing.T) {
	r := ComputeReport(annotationsOf(t, FollicularUnit1, FollicularUnit1, FollicularUnit2, FollicularUnit3Plus))

	require.Equal(t, 4, r.TotalFollicularUnitCount)
	require.Equal(t, 7, r.HairsInFollicularUnits)
	require.Equal(t, "1.75", r.AvgHairsPerFU)
	require.Equal(t, "50.0%", r.FU1Percent)
	require.Equal(t, "25.0%", r.FU2Percent)
	require.Equal(t, "25.0%", r.FU3PlusPercent)
}

func TestComputeReport_Empty(t *testing.T) {
	r := ComputeReport(nil)

	for _, f := range Features() {
		require.Equal(t, 0, r.Count(f.Kind), f.Label)
	}
	require.Zero(t, r.TotalHairCount)
	require.Zero(t, r.TotalFollicularUnitCount)
	require.Zero(t, r.TotalPhaseCount)
	require.Equal(t, "N/A", r.VellusToTerminalRatio)
	require.Equal(t, "N/A", r.AnagenToTelogenRatio)
	require.Equal(t, "0.00", r.AvgHairsPerFU)
	for _, p := range []string{r.VellusPercent, r.TerminalPercent, r.FU1Percent, r.FU2Percent, r.FU3PlusPercent, r.AnagenPercent, r.TelogenPercent} {
		require.Equal(t, "0.0%", p)
	}
}

func TestComputeReport_NoTerminalHairs(t *testing.T) {
	r := ComputeReport(annotationsOf(t, VellusHair, AnagenHair, AnagenHair, TelogenHair))

	require.Equal(t, "N/A", r.VellusToTerminalRatio)
	require.Equal(t, "100.0%", r.VellusPercent)
	require.Equal(t, "0.0%", r.TerminalPercent)
	require.Equal(t, "2.00", r.AnagenToTelogenRatio)
	require.Equal(t, 3, r.TotalPhaseCount)
	require.Equal(t, "66.7%", r.AnagenPercent)
	require.Equal(t, "33.3%", r.TelogenPercent)
}

func TestComputeReport_RoundsHalfUp(t *testing.T) {
	// 1/8 = 0.125 → 0.13; 1/8*100 = 12.5 → 12.5%
	kinds := []FeatureKind{AnagenHair}
	for i := 0; i < 8; i++ {
		kinds = append(kinds, TelogenHair)
	}
	r := ComputeReport(annotationsOf(t, kinds...))
	require.Equal(t, "0.13", r.AnagenToTelogenRatio)
	require.Equal(t, "11.1%", r.AnagenPercent)

	// 1/16*100 = 6.25 → 6.3%
	kinds = []FeatureKind{VellusHair}
	for i := 0; i < 15; i++ {
		kinds = append(kinds, TerminalHair)
	}
	r = ComputeReport(annotationsOf(t, kinds...))
	require.Equal(t, "6.3%", r.VellusPercent)
	require.Equal(t, "93.8%", r.TerminalPercent)
}

func TestComputeReport_IgnoresUnknownKinds(t *testing.T) {
	anns := annotationsOf(t, TerminalHair)
	anns = append(anns, Annotation{ID: "bogus", Kind: FeatureKind(42), Radius: 1})
	r := ComputeReport(anns)
	require.Equal(t, 1, r.TotalHairCount)
	require.Len(t, r.Counts, 7)
}

func TestComputeReport_IsPure(t *testing.T) {
	anns := annotationsOf(t, VellusHair, FollicularUnit2, TelogenHair, TerminalHair)
	require.Equal(t, ComputeReport(anns), ComputeReport(anns))
}

func TestReport_Lines(t *testing.T) {
	r := ComputeReport(annotationsOf(t, VellusHair, VellusHair, TerminalHair, FollicularUnit2))

	lines := r.Lines("P-17")
	require.Len(t, lines, 15)
	require.Equal(t, "Patient ID: P-17", lines[0])
	require.Equal(t, "--- Analysis Report ---", lines[1])
	require.Equal(t, "Total Hairs: 3", lines[2])
	require.Equal(t, "Vellus Hairs: 2 (66.7%)", lines[3])
	require.Equal(t, "Terminal Hairs: 1 (33.3%)", lines[4])
	require.Equal(t, "V:T Ratio: 2.00", lines[5])
	require.Equal(t, "", lines[6])
	require.Equal(t, "Total FUs: 1", lines[7])
	require.Equal(t, "  - 2-Hair FUs: 1 (100.0%)", lines[9])
	require.Equal(t, "A:T Ratio: N/A", lines[14])

	require.Equal(t, "Patient ID: N/A", r.Lines("")[0])
	require.False(t, strings.Contains(strings.Join(lines, "\n"), "NaN"))
}
