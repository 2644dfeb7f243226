package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const notAvailable = "N/A"

// Report производная статистика по набору отметок.
// Никогда не хранится: всегда пересчитывается из текущей коллекции через ComputeReport.
type Report struct {
	Counts map[FeatureKind]int `json:"counts"`

	TotalHairCount           int `json:"total_hair_count"`
	TotalFollicularUnitCount int `json:"total_follicular_unit_count"`
	HairsInFollicularUnits   int `json:"hairs_in_follicular_units"`
	TotalPhaseCount          int `json:"total_phase_count"`

	AvgHairsPerFU         string `json:"avg_hairs_per_fu"`
	VellusToTerminalRatio string `json:"vellus_to_terminal_ratio"`
	AnagenToTelogenRatio  string `json:"anagen_to_telogen_ratio"`

	VellusPercent   string `json:"vellus_percent"`
	TerminalPercent string `json:"terminal_percent"`
	FU1Percent      string `json:"fu1_percent"`
	FU2Percent      string `json:"fu2_percent"`
	FU3PlusPercent  string `json:"fu3plus_percent"`
	AnagenPercent   string `json:"anagen_percent"`
	TelogenPercent  string `json:"telogen_percent"`
}

// ComputeReport считает статистику одним проходом по отметкам.
// Все деления защищены: вместо NaN/Inf возвращаются "N/A", "0.00" или "0.0%".
func ComputeReport(annotations []Annotation) Report {
	counts := make(map[FeatureKind]int, len(features))
	for _, f := range features {
		counts[f.Kind] = 0
	}
	for _, a := range annotations {
		if !a.Kind.Valid() {
			continue
		}
		counts[a.Kind]++
	}

	vellus, terminal := counts[VellusHair], counts[TerminalHair]
	anagen, telogen := counts[AnagenHair], counts[TelogenHair]
	fu1, fu2, fu3 := counts[FollicularUnit1], counts[FollicularUnit2], counts[FollicularUnit3Plus]

	totalHair := vellus + terminal
	totalFU := fu1 + fu2 + fu3
	totalPhase := anagen + telogen
	// Группа "3+" считается ровно за 3 волоса: это принятое приближение, а не измерение.
	hairsInFU := fu1*1 + fu2*2 + fu3*3

	avg := "0.00"
	if totalFU > 0 {
		avg = divide(hairsInFU, totalFU, 2)
	}

	return Report{
		Counts:                   counts,
		TotalHairCount:           totalHair,
		TotalFollicularUnitCount: totalFU,
		HairsInFollicularUnits:   hairsInFU,
		TotalPhaseCount:          totalPhase,
		AvgHairsPerFU:            avg,
		VellusToTerminalRatio:    ratio(vellus, terminal),
		AnagenToTelogenRatio:     ratio(anagen, telogen),
		VellusPercent:            percentage(vellus, totalHair),
		TerminalPercent:          percentage(terminal, totalHair),
		FU1Percent:               percentage(fu1, totalFU),
		FU2Percent:               percentage(fu2, totalFU),
		FU3PlusPercent:           percentage(fu3, totalFU),
		AnagenPercent:            percentage(anagen, totalPhase),
		TelogenPercent:           percentage(telogen, totalPhase),
	}
}

// Count количество отметок данного вида
func (r Report) Count(kind FeatureKind) int {
	return r.Counts[kind]
}

// Lines текст отчёта в фиксированном порядке, как он печатается на экспортируемом снимке
func (r Report) Lines(patientID string) []string {
	if patientID == "" {
		patientID = notAvailable
	}
	c := r.Count
	return []string{
		"Patient ID: " + patientID,
		"--- Analysis Report ---",
		fmt.Sprintf("Total Hairs: %d", r.TotalHairCount),
		fmt.Sprintf("Vellus Hairs: %d (%s)", c(VellusHair), r.VellusPercent),
		fmt.Sprintf("Terminal Hairs: %d (%s)", c(TerminalHair), r.TerminalPercent),
		"V:T Ratio: " + r.VellusToTerminalRatio,
		"",
		fmt.Sprintf("Total FUs: %d", r.TotalFollicularUnitCount),
		fmt.Sprintf("  - 1-Hair FUs: %d (%s)", c(FollicularUnit1), r.FU1Percent),
		fmt.Sprintf("  - 2-Hair FUs: %d (%s)", c(FollicularUnit2), r.FU2Percent),
		fmt.Sprintf("  - 3+ Hair FUs: %d (%s)", c(FollicularUnit3Plus), r.FU3PlusPercent),
		"",
		fmt.Sprintf("Anagen Hairs: %d (%s)", c(AnagenHair), r.AnagenPercent),
		fmt.Sprintf("Telogen Hairs: %d (%s)", c(TelogenHair), r.TelogenPercent),
		"A:T Ratio: " + r.AnagenToTelogenRatio,
	}
}

// ratio num/den с двумя знаками или "N/A" при нулевом знаменателе
func ratio(num, den int) string {
	if den == 0 {
		return notAvailable
	}
	return divide(num, den, 2)
}

// percentage count/total*100 с одним знаком и "%", либо "0.0%" при нулевом total
func percentage(count, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return divide(count*100, total, 1) + "%"
}

// divide делит целые точно и округляет половину вверх
func divide(num, den int, places int32) string {
	return decimal.NewFromInt(int64(num)).
		DivRound(decimal.NewFromInt(int64(den)), places).
		StringFixed(places)
}
