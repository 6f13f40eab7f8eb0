package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

// fixedRoller returns the same draw every time.
type fixedRoller struct {
	float float64
	index int
}

func (r fixedRoller) Float64() float64 { return r.float }
func (r fixedRoller) Intn(n int) int   { return r.index % n }

var (
	noBonus = fixedRoller{float: 0.99}
	bonus   = fixedRoller{float: 0.01}
)

func TestHitIncrementsProgress(t *testing.T) {
	s, out := Hit(Default(), noBonus)

	testutil.AssertEqual(t, "woodHit", s.WoodHit, 1)
	testutil.AssertEqual(t, "wood", s.Wood, 0)
	testutil.AssertEqual(t, "applied", out.Applied, true)
	testutil.AssertEqual(t, "felled", out.Felled, false)
	if len(out.Feedback) != 1 || out.Feedback[0].Text != "Pow!" {
		t.Fatalf("expected comic word feedback, got %+v", out.Feedback)
	}
	testutil.AssertEqual(t, "color", out.Feedback[0].Color, ColorWhite)
}

func TestHitWithoutAxeNeverBonus(t *testing.T) {
	s := Default()
	for i := 0; i < 50; i++ {
		var out Outcome
		s, out = Hit(s, bonus)
		if out.Bonus {
			t.Fatalf("hit %d granted a bonus without an axe", i)
		}
	}
	testutil.AssertEqual(t, "wood", s.Wood, 5)
	testutil.AssertEqual(t, "woodHit", s.WoodHit, 0)
}

func TestHitFellsWoodAtThreshold(t *testing.T) {
	tests := map[string]struct {
		tool        Tool
		roller      fixedRoller
		wantWoodHit int
		wantBonus   bool
	}{
		"plain hit resets":    {tool: ToolHands, roller: bonus, wantWoodHit: 0},
		"axe no bonus resets": {tool: ToolWoodenAxe, roller: noBonus, wantWoodHit: 0},
		"axe bonus carries":   {tool: ToolWoodenAxe, roller: bonus, wantWoodHit: 1, wantBonus: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			start := State{Wood: 3, WoodHit: 9, EquippedTool: tt.tool}
			s, out := Hit(start, tt.roller)

			testutil.AssertEqual(t, "wood", s.Wood, 4)
			testutil.AssertEqual(t, "woodHit", s.WoodHit, tt.wantWoodHit)
			testutil.AssertEqual(t, "felled", out.Felled, true)
			testutil.AssertEqual(t, "bonus", out.Bonus, tt.wantBonus)
			if len(out.Feedback) != 1 || out.Feedback[0].Text != "+1 Wood" || out.Feedback[0].Icon != IconLog {
				t.Fatalf("expected +1 Wood feedback, got %+v", out.Feedback)
			}
		})
	}
}

func TestHitBonusBelowThreshold(t *testing.T) {
	s, out := Hit(State{WoodHit: 3, EquippedTool: ToolWoodenAxe}, fixedRoller{float: 0.05, index: 2})

	testutil.AssertEqual(t, "woodHit", s.WoodHit, 5)
	testutil.AssertEqual(t, "feedback", out.Feedback[0].Text, "Bop! (bonus)")
	testutil.AssertEqual(t, "color", out.Feedback[0].Color, ColorBonus)
}

func TestHitBonusRateConverges(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	s := State{EquippedTool: ToolWoodenAxe}

	const n = 20000
	bonuses := 0
	for i := 0; i < n; i++ {
		var out Outcome
		s, out = Hit(s, r)
		if out.Bonus {
			bonuses++
		}
	}

	rate := float64(bonuses) / n
	if rate < 0.08 || rate > 0.12 {
		t.Fatalf("bonus rate %.4f outside 10%% tolerance", rate)
	}
}

func TestSellWood(t *testing.T) {
	s, out := SellWood(State{Wood: 9, EquippedTool: ToolHands})
	testutil.AssertEqual(t, "no-op state", s, State{Wood: 9, EquippedTool: ToolHands})
	testutil.AssertEqual(t, "no-op applied", out.Applied, false)

	s, out = SellWood(State{Wood: 10, Coins: 2, EquippedTool: ToolHands})
	testutil.AssertEqual(t, "wood", s.Wood, 0)
	testutil.AssertEqual(t, "coins", s.Coins, 7)
	testutil.AssertEqual(t, "feedback count", len(out.Feedback), 5)
	testutil.AssertEqual(t, "last coin delay", out.Feedback[4].Delay, 400*time.Millisecond)
}

func TestCraftPlanks(t *testing.T) {
	s, out := CraftPlanks(State{Wood: 9, EquippedTool: ToolHands})
	testutil.AssertEqual(t, "no-op applied", out.Applied, false)
	testutil.AssertEqual(t, "no-op planks", s.Planks, 0)

	s, out = CraftPlanks(State{Wood: 12, EquippedTool: ToolHands})
	testutil.AssertEqual(t, "wood", s.Wood, 2)
	testutil.AssertEqual(t, "planks", s.Planks, 2)
	testutil.AssertEqual(t, "feedback", out.Feedback[0].Text, "+2 Planks")
}

func TestCraftSticks(t *testing.T) {
	s, out := CraftSticks(State{Planks: 1, EquippedTool: ToolHands})
	testutil.AssertEqual(t, "no-op applied", out.Applied, false)
	testutil.AssertEqual(t, "no-op sticks", s.Sticks, 0)

	s, out = CraftSticks(State{Planks: 2, Sticks: 1, EquippedTool: ToolHands})
	testutil.AssertEqual(t, "planks", s.Planks, 0)
	testutil.AssertEqual(t, "sticks", s.Sticks, 5)
	testutil.AssertEqual(t, "feedback count", len(out.Feedback), 4)
	testutil.AssertEqual(t, "last stick delay", out.Feedback[3].Delay, 150*time.Millisecond)
}

func TestCraftAxe(t *testing.T) {
	tests := map[string]struct {
		start   State
		applied bool
	}{
		"missing sticks": {start: State{Planks: 2, Sticks: 1, EquippedTool: ToolHands}},
		"missing planks": {start: State{Planks: 1, Sticks: 2, EquippedTool: ToolHands}},
		"enough":         {start: State{Planks: 3, Sticks: 2, EquippedTool: ToolHands}, applied: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s, out := CraftAxe(tt.start)
			testutil.AssertEqual(t, "applied", out.Applied, tt.applied)
			if !tt.applied {
				testutil.AssertEqual(t, "state", s, tt.start)
				return
			}
			testutil.AssertEqual(t, "planks", s.Planks, 1)
			testutil.AssertEqual(t, "sticks", s.Sticks, 0)
			testutil.AssertEqual(t, "tool", s.EquippedTool, ToolWoodenAxe)
			testutil.AssertEqual(t, "feedback count", len(out.Feedback), 4)
		})
	}
}

func TestBuyUpgrade(t *testing.T) {
	s, out := BuyUpgrade(State{Coins: 9, EquippedTool: ToolHands}, UpgradeLuckyNumberSticks)
	testutil.AssertEqual(t, "poor applied", out.Applied, false)
	testutil.AssertEqual(t, "poor coins", s.Coins, 9)

	s, out = BuyUpgrade(State{Coins: 50, EquippedTool: ToolHands}, "golden_hammer")
	testutil.AssertEqual(t, "unknown applied", out.Applied, false)
	testutil.AssertEqual(t, "unknown coins", s.Coins, 50)

	s, out = BuyUpgrade(State{Coins: 12, Sticks: 3, EquippedTool: ToolHands}, UpgradeLuckyNumberSticks)
	testutil.AssertEqual(t, "coins", s.Coins, 2)
	testutil.AssertEqual(t, "sticks untouched", s.Sticks, 3)
	testutil.AssertEqual(t, "feedback", out.Feedback[0].Text, "Upgrade Purchased!")
}

func TestApplyUnknownActionIsNoop(t *testing.T) {
	start := State{Wood: 20, EquippedTool: ToolHands}
	s, out := Apply(start, Action("chop_everything"), noBonus, "")
	testutil.AssertEqual(t, "state", s, start)
	testutil.AssertEqual(t, "applied", out.Applied, false)
}

func TestAvailableMatchesRules(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	states := []State{
		Default(),
		{Wood: 10, EquippedTool: ToolHands},
		{Planks: 2, Sticks: 1, EquippedTool: ToolHands},
		{Planks: 2, Sticks: 2, Coins: 10, EquippedTool: ToolWoodenAxe},
	}

	for _, s := range states {
		for _, a := range Actions {
			_, out := Apply(s, a, r, UpgradeLuckyNumberSticks)
			if got := Available(s, a, UpgradeLuckyNumberSticks); got != out.Applied {
				t.Fatalf("Available(%+v, %s) = %v but rule applied = %v", s, a, got, out.Applied)
			}
		}
	}
}

func TestRandomActionSequencesKeepInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	s := Default()

	for i := 0; i < 5000; i++ {
		a := Actions[r.Intn(len(Actions))]
		// Weight towards hitting so the crafting rules get exercised too.
		if r.Intn(3) > 0 {
			a = ActionHit
		}
		s, _ = Apply(s, a, r, UpgradeLuckyNumberSticks)
		if err := s.Validate(); err != nil {
			t.Fatalf("step %d (%s) broke invariants: %v (state %+v)", i, a, err, s)
		}
	}
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction("craft_sticks")
	testutil.AssertEqual(t, "ok", ok, true)
	testutil.AssertEqual(t, "action", a, ActionCraftSticks)

	_, ok = ParseAction("dance")
	testutil.AssertEqual(t, "unknown ok", ok, false)
}
