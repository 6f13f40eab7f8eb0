package game

import (
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestHint(t *testing.T) {
	tests := map[string]struct {
		state   State
		action  Action
		upgrade UpgradeID
		exp     string
	}{
		"hit":               {state: State{WoodHit: 7}, action: ActionHit, exp: "7/10 hits → +1 wood"},
		"sell short":        {state: State{Wood: 3}, action: ActionSellWood, exp: "Need 7 wood - 10 in total"},
		"sell ready":        {state: State{Wood: 10}, action: ActionSellWood, exp: "10 wood → 5 coins"},
		"planks short":      {state: State{}, action: ActionCraftPlanks, exp: "Need 10 wood - 10 in total"},
		"planks ready":      {state: State{Wood: 12}, action: ActionCraftPlanks, exp: "10 wood → 2 planks"},
		"sticks short":      {state: State{Planks: 1}, action: ActionCraftSticks, exp: "Need 1 planks - 2 in total"},
		"sticks ready":      {state: State{Planks: 2}, action: ActionCraftSticks, exp: "2 planks → 4 sticks"},
		"axe short":         {state: State{Planks: 3}, action: ActionCraftAxe, exp: "Need 0 planks and 2 sticks"},
		"axe ready":         {state: State{Planks: 2, Sticks: 2}, action: ActionCraftAxe, exp: "2 planks & 2 Sticks → 1 Wooden Axe"},
		"upgrade short":     {state: State{Coins: 5}, action: ActionBuyUpgrade, upgrade: UpgradeLuckyNumberSticks, exp: "Need 5 coins - 10 in total"},
		"upgrade ready":     {state: State{Coins: 10}, action: ActionBuyUpgrade, upgrade: UpgradeLuckyNumberSticks, exp: "Cost: 10 coins"},
		"upgrade unknown":   {state: State{Coins: 10}, action: ActionBuyUpgrade, upgrade: "nope", exp: "Unknown upgrade"},
		"unrecognized verb": {action: "dance", exp: ""},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			testutil.AssertEqual(t, "hint", Hint(tt.state, tt.action, tt.upgrade), tt.exp)
		})
	}
}

func TestLabel(t *testing.T) {
	testutil.AssertEqual(t, "hit", Label(ActionHit, ""), "Hit Tree")
	testutil.AssertEqual(t, "upgrade", Label(ActionBuyUpgrade, UpgradeLuckyNumberSticks), "Lucky Number Sticks")
	testutil.AssertEqual(t, "unknown upgrade", Label(ActionBuyUpgrade, "nope"), "Buy Upgrade")
}
