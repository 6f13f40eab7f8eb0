package game

import "time"

type Icon string

const (
	IconNone      Icon = ""
	IconLog       Icon = "log"
	IconCoin      Icon = "coin"
	IconPlanks    Icon = "planks"
	IconStick     Icon = "stick"
	IconWoodenAxe Icon = "wooden_axe"
)

const (
	ColorWhite = "#FFFFFF"
	ColorGold  = "#FFD700"
	ColorBonus = "#4169E1"
)

// Feedback is one transient floating message or icon. Delay is measured from the moment the rule
// was applied; feedback is presentational only and never feeds back into the state.
type Feedback struct {
	Text  string        `json:"text,omitempty"`
	Icon  Icon          `json:"icon,omitempty"`
	Color string        `json:"color"`
	Delay time.Duration `json:"delay"`
}

var comicWords = []string{"Pow", "Bing", "Bop", "Boom", "Bam"}

func textFeedback(text, color string) Feedback {
	return Feedback{Text: text, Color: color}
}

// iconBurst spawns n copies of icon, spaced by step.
func iconBurst(icon Icon, n int, step time.Duration) []Feedback {
	out := make([]Feedback, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Feedback{Icon: icon, Color: ColorWhite, Delay: time.Duration(i) * step})
	}
	return out
}
