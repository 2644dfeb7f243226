package entity

import (
	"fmt"
	"image/color"
	"strings"
)

// FeatureKind вид размечаемого признака на трихоскопическом снимке
type FeatureKind int

const (
	VellusHair FeatureKind = iota
	TerminalHair
	AnagenHair
	TelogenHair
	FollicularUnit1
	FollicularUnit2
	FollicularUnit3Plus
)

// Feature описывает отображение вида признака: код для API, подпись и цвет маркера
type Feature struct {
	Kind  FeatureKind
	Code  string
	Label string
	Color color.RGBA
}

// features единая таблица вид → атрибуты. Индекс совпадает с FeatureKind.
var features = [...]Feature{
	{Kind: VellusHair, Code: "vellus", Label: "Vellus Hair", Color: color.RGBA{R: 0x34, G: 0xd3, B: 0x99, A: 0xff}},
	{Kind: TerminalHair, Code: "terminal", Label: "Terminal Hair", Color: color.RGBA{R: 0xf8, G: 0x71, B: 0x71, A: 0xff}},
	{Kind: AnagenHair, Code: "anagen", Label: "Anagen Hair", Color: color.RGBA{R: 0x22, G: 0xd3, B: 0xee, A: 0xff}},
	{Kind: TelogenHair, Code: "telogen", Label: "Telogen Hair", Color: color.RGBA{R: 0xf9, G: 0x73, B: 0x16, A: 0xff}},
	{Kind: FollicularUnit1, Code: "fu1", Label: "FU (1 Hair)", Color: color.RGBA{R: 0x60, G: 0xa5, B: 0xfa, A: 0xff}},
	{Kind: FollicularUnit2, Code: "fu2", Label: "FU (2 Hairs)", Color: color.RGBA{R: 0xa7, G: 0x8b, B: 0xfa, A: 0xff}},
	{Kind: FollicularUnit3Plus, Code: "fu3plus", Label: "FU (3+ Hairs)", Color: color.RGBA{R: 0xf4, G: 0x72, B: 0xb6, A: 0xff}},
}

// Features возвращает копию таблицы признаков в порядке объявления
func Features() []Feature {
	out := make([]Feature, len(features))
	copy(out, features[:])
	return out
}

// Valid сообщает, входит ли значение в закрытое перечисление
func (k FeatureKind) Valid() bool {
	return k >= VellusHair && int(k) < len(features)
}

// Feature возвращает атрибуты вида признака
func (k FeatureKind) Feature() (Feature, bool) {
	if !k.Valid() {
		return Feature{}, false
	}
	return features[k], true
}

func (k FeatureKind) Label() string {
	if !k.Valid() {
		return fmt.Sprintf("FeatureKind(%d)", int(k))
	}
	return features[k].Label
}

func (k FeatureKind) Code() string {
	if !k.Valid() {
		return ""
	}
	return features[k].Code
}

// Color возвращает непрозрачный цвет маркера, для неизвестного вида белый
func (k FeatureKind) Color() color.RGBA {
	if !k.Valid() {
		return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	return features[k].Color
}

func (k FeatureKind) String() string {
	return k.Label()
}

// ParseFeatureLabel переводит подпись признака (как её возвращает ИИ) обратно в FeatureKind.
// Подпись должна совпадать точно, без приведения регистра.
func ParseFeatureLabel(label string) (FeatureKind, bool) {
	label = strings.TrimSpace(label)
	for _, f := range features {
		if f.Label == label {
			return f.Kind, true
		}
	}
	return 0, false
}

// ParseFeatureKind принимает короткий код ("fu2") или полную подпись ("FU (2 Hairs)")
func ParseFeatureKind(s string) (FeatureKind, bool) {
	s = strings.TrimSpace(s)
	for _, f := range features {
		if strings.EqualFold(f.Code, s) {
			return f.Kind, true
		}
	}
	return ParseFeatureLabel(s)
}

// MarshalText кодирует вид признака его коротким кодом (в том числе как ключ map в JSON)
func (k FeatureKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown feature kind %d", int(k))
	}
	return []byte(features[k].Code), nil
}

func (k *FeatureKind) UnmarshalText(text []byte) error {
	kind, ok := ParseFeatureKind(string(text))
	if !ok {
		return fmt.Errorf("unknown feature kind %q", string(text))
	}
	*k = kind
	return nil
}
