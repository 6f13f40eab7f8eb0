package game

import "time"

const (
	BonusHitChance = 0.10

	SellWoodCost    = 10
	SellWoodCoins   = 5
	PlanksWoodCost  = 10
	PlanksYield     = 2
	SticksPlankCost = 2
	SticksYield     = 4
	AxePlankCost    = 2
	AxeStickCost    = 2

	coinBurstStep  = 100 * time.Millisecond
	stickBurstStep = 50 * time.Millisecond
)

type Action string

const (
	ActionHit         Action = "hit"
	ActionSellWood    Action = "sell_wood"
	ActionCraftPlanks Action = "craft_planks"
	ActionCraftSticks Action = "craft_sticks"
	ActionCraftAxe    Action = "craft_axe"
	ActionBuyUpgrade  Action = "buy_upgrade"
)

// Actions lists every action in display order.
var Actions = []Action{ActionHit, ActionSellWood, ActionCraftPlanks, ActionCraftSticks, ActionCraftAxe, ActionBuyUpgrade}

func ParseAction(raw string) (Action, bool) {
	for _, a := range Actions {
		if string(a) == raw {
			return a, true
		}
	}
	return "", false
}

// Roller is the source of randomness for hits. *math/rand.Rand satisfies it.
type Roller interface {
	Float64() float64
	Intn(n int) int
}

// Outcome reports what a rule did. Blocked is set by callers that refused to run the rule at all,
// e.g. while a felling hit is still settling.
type Outcome struct {
	Action   Action     `json:"action"`
	Applied  bool       `json:"applied"`
	Blocked  bool       `json:"blocked,omitempty"`
	Bonus    bool       `json:"bonus,omitempty"`
	Felled   bool       `json:"felled,omitempty"`
	Feedback []Feedback `json:"feedback,omitempty"`
}

func noop(a Action) Outcome {
	return Outcome{Action: a}
}

// Hit advances the hit counter by one, or two on a bonus roll with the wooden axe equipped. Reaching
// the threshold fells one wood and carries any overflow into the next cycle.
func Hit(s State, r Roller) (State, Outcome) {
	out := Outcome{Action: ActionHit, Applied: true}

	gain := 1
	if s.EquippedTool == ToolWoodenAxe && r.Float64() < BonusHitChance {
		gain = 2
		out.Bonus = true
	}

	newHit := s.WoodHit + gain
	if newHit >= HitThreshold {
		s.Wood++
		s.WoodHit = max(0, newHit-HitThreshold)
		out.Felled = true
		out.Feedback = []Feedback{{Text: "+1 Wood", Icon: IconLog, Color: ColorGold}}
		return s, out
	}

	s.WoodHit = newHit
	word := comicWords[r.Intn(len(comicWords))]
	if out.Bonus {
		out.Feedback = []Feedback{textFeedback(word+"! (bonus)", ColorBonus)}
	} else {
		out.Feedback = []Feedback{textFeedback(word+"!", ColorWhite)}
	}
	return s, out
}

func SellWood(s State) (State, Outcome) {
	if !CanSellWood(s) {
		return s, noop(ActionSellWood)
	}
	s.Wood -= SellWoodCost
	s.Coins += SellWoodCoins
	return s, Outcome{Action: ActionSellWood, Applied: true, Feedback: iconBurst(IconCoin, SellWoodCoins, coinBurstStep)}
}

func CraftPlanks(s State) (State, Outcome) {
	if !CanCraftPlanks(s) {
		return s, noop(ActionCraftPlanks)
	}
	s.Wood -= PlanksWoodCost
	s.Planks += PlanksYield
	return s, Outcome{
		Action:   ActionCraftPlanks,
		Applied:  true,
		Feedback: []Feedback{{Text: "+2 Planks", Icon: IconPlanks, Color: ColorWhite}},
	}
}

func CraftSticks(s State) (State, Outcome) {
	if !CanCraftSticks(s) {
		return s, noop(ActionCraftSticks)
	}
	s.Planks -= SticksPlankCost
	s.Sticks += SticksYield
	return s, Outcome{Action: ActionCraftSticks, Applied: true, Feedback: iconBurst(IconStick, SticksYield, stickBurstStep)}
}

// CraftAxe crafts a wooden axe and equips it immediately.
func CraftAxe(s State) (State, Outcome) {
	if !CanCraftAxe(s) {
		return s, noop(ActionCraftAxe)
	}
	s.Planks -= AxePlankCost
	s.Sticks -= AxeStickCost
	s.EquippedTool = ToolWoodenAxe
	return s, Outcome{Action: ActionCraftAxe, Applied: true, Feedback: iconBurst(IconWoodenAxe, 4, stickBurstStep)}
}

func BuyUpgrade(s State, id UpgradeID) (State, Outcome) {
	if !CanBuyUpgrade(s, id) {
		return s, noop(ActionBuyUpgrade)
	}
	u, _ := LookupUpgrade(id)
	s.Coins -= u.Cost
	// TODO: apply upgrade levels once the state record carries them (lucky_number_sticks: 10% chance
	// of a free stick when wood is felled).
	return s, Outcome{
		Action:   ActionBuyUpgrade,
		Applied:  true,
		Feedback: []Feedback{textFeedback("Upgrade Purchased!", ColorGold)},
	}
}

// Apply dispatches action to its rule. Unknown actions leave the state untouched.
func Apply(s State, a Action, r Roller, upgrade UpgradeID) (State, Outcome) {
	switch a {
	case ActionHit:
		return Hit(s, r)
	case ActionSellWood:
		return SellWood(s)
	case ActionCraftPlanks:
		return CraftPlanks(s)
	case ActionCraftSticks:
		return CraftSticks(s)
	case ActionCraftAxe:
		return CraftAxe(s)
	case ActionBuyUpgrade:
		return BuyUpgrade(s, upgrade)
	default:
		return s, noop(a)
	}
}

func CanSellWood(s State) bool    { return s.Wood >= SellWoodCost }
func CanCraftPlanks(s State) bool { return s.Wood >= PlanksWoodCost }
func CanCraftSticks(s State) bool { return s.Planks >= SticksPlankCost }
func CanCraftAxe(s State) bool    { return s.Planks >= AxePlankCost && s.Sticks >= AxeStickCost }

func CanBuyUpgrade(s State, id UpgradeID) bool {
	u, ok := LookupUpgrade(id)
	return ok && s.Coins >= u.Cost
}

// Available reports whether the control for action should be enabled. Hit is always available here;
// the settling guard is enforced by the session that owns the state.
func Available(s State, a Action, upgrade UpgradeID) bool {
	switch a {
	case ActionHit:
		return true
	case ActionSellWood:
		return CanSellWood(s)
	case ActionCraftPlanks:
		return CanCraftPlanks(s)
	case ActionCraftSticks:
		return CanCraftSticks(s)
	case ActionCraftAxe:
		return CanCraftAxe(s)
	case ActionBuyUpgrade:
		return CanBuyUpgrade(s, upgrade)
	default:
		return false
	}
}
