package entity

import (
	"strings"
	"time"
)

// exportTimeLayout ISO 8601 в UTC с миллисекундами
const exportTimeLayout = "2006-01-02T15:04:05.000Z"

// ExportFilename имя файла отчёта: report-{patientID}-{timestamp}.png
// или report-{timestamp}.png без идентификатора пациента. Двоеточия заменяются дефисами.
func ExportFilename(patientID string, t time.Time) string {
	ts := strings.ReplaceAll(t.UTC().Format(exportTimeLayout), ":", "-")
	patientID = sanitizeFilePart(strings.TrimSpace(patientID))
	if patientID == "" {
		return "report-" + ts + ".png"
	}
	return "report-" + patientID + "-" + ts + ".png"
}

// sanitizeFilePart заменяет разделители путей и управляющие символы
func sanitizeFilePart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r < 0x20:
			return '_'
		default:
			return r
		}
	}, s)
}
