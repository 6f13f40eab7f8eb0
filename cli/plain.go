package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"

	"wood-empire/game"
	"wood-empire/session"
)

const (
	helpWidth       = 72
	maxSuggestDist  = 2
	restartConfirm  = "yes"
	restartQuestion = "Are you sure you want to restart? All progress will be lost! Type 'restart yes' to confirm."
)

// commandActions maps line-mode verbs onto game actions.
var commandActions = map[string]game.Action{
	"hit":     game.ActionHit,
	"sell":    game.ActionSellWood,
	"planks":  game.ActionCraftPlanks,
	"sticks":  game.ActionCraftSticks,
	"axe":     game.ActionCraftAxe,
	"upgrade": game.ActionBuyUpgrade,
}

var commandHelp = []struct{ name, text string }{
	{"hit", "Swing at the tree. Every 10 hits fell one wood; with a wooden axe equipped a swing sometimes lands twice."},
	{"sell", "Sell 10 wood for 5 coins."},
	{"planks", "Saw 10 wood into 2 planks."},
	{"sticks", "Split 2 planks into 4 sticks."},
	{"axe", "Craft a wooden axe from 2 planks and 2 sticks and equip it straight away."},
	{"upgrade [id]", "Buy an upgrade with coins. Without an id the first upgrade in the catalog is bought; 'upgrade list' shows them all."},
	{"status", "Show resources, the equipped tool and progress toward the next wood."},
	{"restart", "Throw away the save and start over. Asks for confirmation first."},
	{"help", "Show this text."},
	{"quit", "Leave the game. Progress is saved after every action."},
}

func commandNames() []string {
	names := []string{"status", "restart", "help", "quit", "exit"}
	for name := range commandActions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// REPL is the line-mode front end.
type REPL struct {
	sess *session.Session
	out  io.Writer
}

func newREPL(sess *session.Session, out io.Writer) *REPL {
	return &REPL{sess: sess, out: out}
}

func (r *REPL) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(r.out, "Wood Empire. Type 'help' for commands.")
	if err := r.exec(ctx, "status"); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := r.exec(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			return err
		}
	}
}

var errQuit = errors.New("quit")

func (r *REPL) exec(ctx context.Context, line string) error {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return nil
	}
	verb, args := fields[0], fields[1:]

	switch verb {
	case "quit", "exit":
		return errQuit
	case "help":
		r.printHelp()
		return nil
	case "status":
		res, err := r.sess.Snapshot(ctx)
		if err != nil {
			return err
		}
		r.printStatus(res)
		return nil
	case "restart":
		if len(args) == 0 || args[0] != restartConfirm {
			fmt.Fprintln(r.out, restartQuestion)
			return nil
		}
		res, err := r.sess.Restart(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, "Game restarted successfully!")
		r.printStatus(res)
		return nil
	}

	action, ok := commandActions[verb]
	if !ok {
		r.printUnknown(verb)
		return nil
	}

	var upgrade game.UpgradeID
	if action == game.ActionBuyUpgrade {
		if len(args) > 0 && args[0] == "list" {
			r.printUpgrades()
			return nil
		}
		upgrade = pickUpgrade(args)
	}

	res, err := r.sess.Do(ctx, action, upgrade)
	if err != nil {
		return err
	}
	r.printOutcome(res, upgrade)
	return nil
}

func pickUpgrade(args []string) game.UpgradeID {
	if len(args) > 0 {
		return game.UpgradeID(args[0])
	}
	if all := game.Upgrades(); len(all) > 0 {
		return all[0].ID
	}
	return ""
}

func (r *REPL) printOutcome(res session.Result, upgrade game.UpgradeID) {
	out := res.Outcome
	switch {
	case out.Blocked:
		fmt.Fprintln(r.out, "The tree is still settling.")
		return
	case !out.Applied:
		if out.Action == game.ActionBuyUpgrade {
			if _, ok := game.LookupUpgrade(upgrade); !ok {
				fmt.Fprintf(r.out, "No upgrade called %q. Try 'upgrade list'.\n", upgrade)
				return
			}
		}
		fmt.Fprintf(r.out, "Can't %s yet: %s\n", strings.ToLower(game.Label(out.Action, upgrade)), game.Hint(res.State, out.Action, upgrade))
		return
	}

	if line := describeFeedback(out.Feedback); line != "" {
		fmt.Fprintln(r.out, line)
	}
	r.printStatus(res)
}

// describeFeedback flattens a feedback burst into one line, counting repeated icons.
func describeFeedback(items []game.Feedback) string {
	var parts []string
	icons := map[game.Icon]int{}
	var order []game.Icon
	for _, fb := range items {
		if fb.Text != "" {
			parts = append(parts, fb.Text)
			continue
		}
		if icons[fb.Icon] == 0 {
			order = append(order, fb.Icon)
		}
		icons[fb.Icon]++
	}
	for _, icon := range order {
		parts = append(parts, fmt.Sprintf("%s x%d", strings.ReplaceAll(string(icon), "_", " "), icons[icon]))
	}
	return strings.Join(parts, " ")
}

func (r *REPL) printStatus(res session.Result) {
	st := res.State
	tool := "hands"
	if st.EquippedTool == game.ToolWoodenAxe {
		tool = "wooden axe"
	}
	fmt.Fprintf(r.out, "Wood: %s  Planks: %s  Sticks: %s  Coins: %s  Tool: %s  Tree: %d/%d\n",
		humanize.Comma(int64(st.Wood)),
		humanize.Comma(int64(st.Planks)),
		humanize.Comma(int64(st.Sticks)),
		humanize.Comma(int64(st.Coins)),
		tool,
		st.WoodHit, game.HitThreshold,
	)
}

func (r *REPL) printHelp() {
	var b strings.Builder
	for _, c := range commandHelp {
		b.WriteString(c.name)
		b.WriteString("\n")
		for _, line := range strings.Split(wordwrap.String(c.text, helpWidth-4), "\n") {
			b.WriteString("    ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	fmt.Fprint(r.out, b.String())
}

func (r *REPL) printUpgrades() {
	for _, u := range game.Upgrades() {
		fmt.Fprintf(r.out, "%s (%s coins): %s\n", u.ID, humanize.Comma(int64(u.Cost)), u.Name)
		fmt.Fprintln(r.out, wordwrap.String("    "+u.Description, helpWidth))
	}
}

func (r *REPL) printUnknown(verb string) {
	if s, ok := suggest(verb); ok {
		fmt.Fprintf(r.out, "Unknown command %q. Did you mean %q?\n", verb, s)
		return
	}
	fmt.Fprintf(r.out, "Unknown command %q. Type 'help' for commands.\n", verb)
}

// suggest returns the known command closest to verb, if any is close enough to be a typo.
func suggest(verb string) (string, bool) {
	best, bestDist := "", maxSuggestDist+1
	for _, name := range commandNames() {
		if d := levenshtein.ComputeDistance(verb, name); d < bestDist {
			best, bestDist = name, d
		}
	}
	return best, best != ""
}
