// Package tier maps model probabilities to the three display risk tiers.
package tier

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

type Tier string

const (
	Low    Tier = "low"
	Medium Tier = "medium"
	High   Tier = "high"
)

const (
	MediumFrom = 0.3
	HighFrom   = 0.7
)

type Locale string

const (
	Uzbek   Locale = "uz"
	English Locale = "en"
	Russian Locale = "ru"

	DefaultLocale = Uzbek
)

var ErrUnknownTier = errors.New("unknown risk tier")

type style struct {
	color string
	badge string
}

var styles = map[Tier]style{
	Low:    {color: "#00C853", badge: "badge-success"},
	Medium: {color: "#FF9800", badge: "badge-warning"},
	High:   {color: "#FF6B6B", badge: "badge-danger"},
}

var labels = map[Locale]map[Tier]string{
	Uzbek:   {Low: "Past xavf", Medium: "O'rta xavf", High: "Yuqori xavf"},
	English: {Low: "Low risk", Medium: "Medium risk", High: "High risk"},
	Russian: {Low: "Низкий риск", Medium: "Средний риск", High: "Высокий риск"},
}

// Uzbek slugs the clinic UI uses in filter links.
var slugs = map[string]Tier{
	"past":   Low,
	"orta":   Medium,
	"yuqori": High,
}

// ScoredRisk is the display form of one probability.
type ScoredRisk struct {
	Probability float64 `json:"probability"`
	Tier        Tier    `json:"tier"`
	Label       string  `json:"label"`
	Color       string  `json:"color"`
	BadgeClass  string  `json:"badgeClass"`
	Percentage  string  `json:"percentage"`
}

// Classify uses the default locale.
func Classify(p float64) ScoredRisk {
	return ClassifyIn(DefaultLocale, p)
}

// ClassifyIn maps p onto [0,0.3) low, [0.3,0.7) medium, [0.7,1] high.
// Inputs outside [0,1] are clamped and NaN counts as 0.
func ClassifyIn(l Locale, p float64) ScoredRisk {
	p = clamp(p)
	t := Of(p)
	st := styles[t]
	return ScoredRisk{
		Probability: p,
		Tier:        t,
		Label:       l.label(t),
		Color:       st.color,
		BadgeClass:  st.badge,
		Percentage:  Percentage(p),
	}
}

// Of returns the tier for an in-range probability.
func Of(p float64) Tier {
	switch {
	case p < MediumFrom:
		return Low
	case p < HighFrom:
		return Medium
	default:
		return High
	}
}

// Percentage formats p as "65.0%".
func Percentage(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

// Bounds returns the half-open [lo, hi) interval of the tier; High's upper bound is
// +Inf so a stored 1.0 still falls inside.
func (t Tier) Bounds() (lo, hi float64) {
	switch t {
	case Low:
		return 0, MediumFrom
	case Medium:
		return MediumFrom, HighFrom
	default:
		return HighFrom, math.Inf(1)
	}
}

// Contains reports whether p belongs to the tier.
func (t Tier) Contains(p float64) bool {
	lo, hi := t.Bounds()
	return p >= lo && p < hi
}

// Parse accepts canonical names and the clinic's Uzbek slugs.
func Parse(s string) (Tier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch t := Tier(s); t {
	case Low, Medium, High:
		return t, nil
	}
	if t, ok := slugs[s]; ok {
		return t, nil
	}
	return "", errors.Wrapf(ErrUnknownTier, "%q", s)
}

// ParseLocale falls back to the default locale for anything unknown.
func ParseLocale(s string) Locale {
	l := Locale(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := labels[l]; ok {
		return l
	}
	return DefaultLocale
}

func (l Locale) label(t Tier) string {
	if m, ok := labels[l]; ok {
		return m[t]
	}
	return labels[DefaultLocale][t]
}

func clamp(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
