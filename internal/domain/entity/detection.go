package entity

import "fmt"

// ProposedAnnotation отметка, предложенная внешним детектором.
// Type содержит подпись признака в том виде, в каком её вернул детектор.
type ProposedAnnotation struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Type   string  `json:"type"`
	Radius float64 `json:"radius"`
}

// RejectedProposal предложение, которое не удалось перевести в отметку
type RejectedProposal struct {
	Index    int                `json:"index"`
	Proposal ProposedAnnotation `json:"proposal"`
	Reason   string             `json:"reason"`
}

// TranslateProposals переводит предложения детектора в отметки на снимке img.
// Неизвестные подписи, некорректные координаты и точки за пределами снимка
// отбрасываются и возвращаются отдельно.
func TranslateProposals(proposals []ProposedAnnotation, img SourceImage) ([]Annotation, []RejectedProposal) {
	accepted := make([]Annotation, 0, len(proposals))
	var rejected []RejectedProposal
	for i, p := range proposals {
		kind, ok := ParseFeatureLabel(p.Type)
		if !ok {
			rejected = append(rejected, RejectedProposal{Index: i, Proposal: p, Reason: fmt.Sprintf("unknown feature label %q", p.Type)})
			continue
		}
		a, err := NewAnnotation(p.X, p.Y, kind, p.Radius)
		if err == nil {
			err = img.CheckBounds(a.Center())
		}
		if err != nil {
			rejected = append(rejected, RejectedProposal{Index: i, Proposal: p, Reason: err.Error()})
			continue
		}
		accepted = append(accepted, a)
	}
	return accepted, rejected
}
