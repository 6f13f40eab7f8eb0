package game

import "fmt"

// Label is the control caption for an action.
func Label(a Action, upgrade UpgradeID) string {
	switch a {
	case ActionHit:
		return "Hit Tree"
	case ActionSellWood:
		return "Sell Wood"
	case ActionCraftPlanks:
		return "Craft Planks"
	case ActionCraftSticks:
		return "Craft Sticks"
	case ActionCraftAxe:
		return "Craft and Equip Wooden Axe"
	case ActionBuyUpgrade:
		if u, ok := LookupUpgrade(upgrade); ok {
			return u.Name
		}
		return "Buy Upgrade"
	default:
		return string(a)
	}
}

// Hint is the one-line text shown under a control: what the action yields when it is available,
// otherwise what is still missing.
func Hint(s State, a Action, upgrade UpgradeID) string {
	switch a {
	case ActionHit:
		return fmt.Sprintf("%d/%d hits → +1 wood", s.WoodHit, HitThreshold)
	case ActionSellWood:
		if CanSellWood(s) {
			return fmt.Sprintf("%d wood → %d coins", SellWoodCost, SellWoodCoins)
		}
		return fmt.Sprintf("Need %d wood - %d in total", SellWoodCost-s.Wood, SellWoodCost)
	case ActionCraftPlanks:
		if CanCraftPlanks(s) {
			return fmt.Sprintf("%d wood → %d planks", PlanksWoodCost, PlanksYield)
		}
		return fmt.Sprintf("Need %d wood - %d in total", PlanksWoodCost-s.Wood, PlanksWoodCost)
	case ActionCraftSticks:
		if CanCraftSticks(s) {
			return fmt.Sprintf("%d planks → %d sticks", SticksPlankCost, SticksYield)
		}
		return fmt.Sprintf("Need %d planks - %d in total", SticksPlankCost-s.Planks, SticksPlankCost)
	case ActionCraftAxe:
		if CanCraftAxe(s) {
			return fmt.Sprintf("%d planks & %d Sticks → 1 Wooden Axe", AxePlankCost, AxeStickCost)
		}
		return fmt.Sprintf("Need %d planks and %d sticks", max(0, AxePlankCost-s.Planks), max(0, AxeStickCost-s.Sticks))
	case ActionBuyUpgrade:
		u, ok := LookupUpgrade(upgrade)
		if !ok {
			return "Unknown upgrade"
		}
		if CanBuyUpgrade(s, upgrade) {
			return fmt.Sprintf("Cost: %d coins", u.Cost)
		}
		return fmt.Sprintf("Need %d coins - %d in total", u.Cost-s.Coins, u.Cost)
	default:
		return ""
	}
}
