package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"wood-empire/game"
	"wood-empire/session"
	"wood-empire/storage"
)

const maxFeedbackLines = 8

type control struct {
	action  game.Action
	upgrade game.UpgradeID
	button  *tview.Button
}

// dashboard is the full-screen front end: a resource panel, one page of buttons per tab and a
// scrolling feedback log.
type dashboard struct {
	app       *tview.Application
	resources *tview.TextView
	feedback  *tview.TextView
	hint      *tview.TextView
	pages     *tview.Pages
	root      tview.Primitive
	tabs      []*tview.Button
	controls  map[string][]*control
	focusable []tview.Primitive

	mu       sync.Mutex
	lines    []string
	enabled  map[*control]bool
	tab      string
	last     game.State
	settling bool

	do      func(game.Action, game.UpgradeID)
	restart func()
}

func newDashboard(app *tview.Application) *dashboard {
	d := &dashboard{
		app:       app,
		resources: tview.NewTextView().SetDynamicColors(true),
		feedback:  tview.NewTextView().SetDynamicColors(true),
		hint:      tview.NewTextView().SetDynamicColors(true),
		pages:     tview.NewPages(),
		controls:  map[string][]*control{},
		enabled:   map[*control]bool{},
	}
	d.resources.SetBorder(true).SetTitle(" Wood Empire ")
	d.feedback.SetBorder(true).SetTitle(" Feedback ")

	tabActions := map[string][]control{
		"actions":  {{action: game.ActionHit}, {action: game.ActionSellWood}},
		"crafting": {{action: game.ActionCraftPlanks}, {action: game.ActionCraftSticks}, {action: game.ActionCraftAxe}},
	}
	for _, u := range game.Upgrades() {
		tabActions["upgrades"] = append(tabActions["upgrades"], control{action: game.ActionBuyUpgrade, upgrade: u.ID})
	}

	tabBar := tview.NewFlex()
	for i, name := range []string{"actions", "crafting", "upgrades"} {
		name := name
		tab := tview.NewButton(strings.ToUpper(name[:1]) + name[1:]).SetSelectedFunc(func() { d.showTab(name) })
		d.tabs = append(d.tabs, tab)
		d.focusable = append(d.focusable, tab)
		tabBar.AddItem(tab, 0, 1, i == 0)

		page := tview.NewFlex().SetDirection(tview.FlexRow)
		page.SetBorder(true).SetTitle(" " + tab.GetLabel() + " ")
		for _, c := range tabActions[name] {
			c := c
			c.button = tview.NewButton(game.Label(c.action, c.upgrade)).SetSelectedFunc(func() {
				if d.do != nil {
					d.do(c.action, c.upgrade)
				}
			})
			d.controls[name] = append(d.controls[name], &c)
			d.focusable = append(d.focusable, c.button)
			page.AddItem(c.button, 3, 0, false)
			page.AddItem(tview.NewBox(), 1, 0, false)
		}
		d.pages.AddPage(name, page, true, i == 0)
	}
	d.tab = "actions"

	restart := tview.NewButton("Restart Game (r)").SetSelectedFunc(d.confirmRestart)
	d.focusable = append(d.focusable, restart)

	body := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tabBar, 1, 0, true).
		AddItem(d.pages, 0, 1, false).
		AddItem(d.hint, 3, 0, false).
		AddItem(restart, 1, 0, false)

	d.root = tview.NewFlex().
		AddItem(d.resources, 28, 0, false).
		AddItem(body, 0, 1, true).
		AddItem(d.feedback, 32, 0, false)

	app.SetRoot(d.root, true).EnableMouse(true)
	app.SetInputCapture(d.handleKey)
	return d
}

func (d *dashboard) showTab(name string) {
	d.mu.Lock()
	d.tab = name
	st, settling := d.last, d.settling
	d.mu.Unlock()
	d.pages.SwitchToPage(name)
	d.refresh(st, settling)
}

// refresh brings every widget in line with st. Callers run it on the UI goroutine.
func (d *dashboard) refresh(st game.State, settling bool) {
	d.mu.Lock()
	d.last = st
	d.settling = settling
	for _, controls := range d.controls {
		for _, c := range controls {
			on := game.Available(st, c.action, c.upgrade)
			if c.action == game.ActionHit && settling {
				on = false
			}
			d.enabled[c] = on
			c.button.SetDisabled(!on)
		}
	}
	d.mu.Unlock()

	tool := "Hands"
	if st.EquippedTool == game.ToolWoodenAxe {
		tool = "Wooden Axe"
	}
	d.resources.SetText(fmt.Sprintf(
		"[yellow]Coins:[-] %s\n------------\nWood:   %s\nPlanks: %s\nSticks: %s\n\nTool: %s\n\nTree %s %d%%",
		humanize.Comma(int64(st.Coins)),
		humanize.Comma(int64(st.Wood)),
		humanize.Comma(int64(st.Planks)),
		humanize.Comma(int64(st.Sticks)),
		tool,
		progressBar(st.Progress(), 10),
		st.Progress(),
	))

	var hints []string
	for _, c := range d.controls[d.currentTab()] {
		hints = append(hints, fmt.Sprintf("%s: %s", game.Label(c.action, c.upgrade), game.Hint(st, c.action, c.upgrade)))
	}
	d.hint.SetText(strings.Join(hints, "\n"))
}

func (d *dashboard) currentTab() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tab
}

func (d *dashboard) isEnabled(tab string, i int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled[d.controls[tab][i]]
}

func progressBar(percent, width int) string {
	filled := percent * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// pushFeedback appends one line to the feedback log, keeping the most recent few.
func (d *dashboard) pushFeedback(fb game.Feedback) {
	text := fb.Text
	if text == "" {
		text = "+ " + strings.ReplaceAll(string(fb.Icon), "_", " ")
	}
	line := fmt.Sprintf("[%s]%s[-]", fb.Color, tview.Escape(text))

	d.mu.Lock()
	d.lines = append(d.lines, line)
	if len(d.lines) > maxFeedbackLines {
		d.lines = d.lines[len(d.lines)-maxFeedbackLines:]
	}
	out := strings.Join(d.lines, "\n")
	d.mu.Unlock()

	d.feedback.SetText(out)
}

func (d *dashboard) confirmRestart() {
	modal := tview.NewModal().
		SetText("Are you sure you want to restart? All progress will be lost!").
		AddButtons([]string{"Restart", "Cancel"})
	focus := d.app.GetFocus()
	modal.SetDoneFunc(func(_ int, label string) {
		d.app.SetRoot(d.root, true)
		d.app.SetFocus(focus)
		if label == "Restart" && d.restart != nil {
			d.restart()
		}
	})
	d.app.SetRoot(modal, false)
}

func (d *dashboard) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	switch ev.Key() {
	case tcell.KeyTab:
		d.cycleFocus(1)
		return nil
	case tcell.KeyBacktab:
		d.cycleFocus(-1)
		return nil
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			d.app.Stop()
			return nil
		case 'h', ' ':
			if d.do != nil {
				d.do(game.ActionHit, "")
			}
			return nil
		case 'r':
			d.confirmRestart()
			return nil
		}
	}
	return ev
}

func (d *dashboard) cycleFocus(step int) {
	current := d.app.GetFocus()
	idx := 0
	for i, p := range d.focusable {
		if p == current {
			idx = i
			break
		}
	}
	n := len(d.focusable)
	d.app.SetFocus(d.focusable[((idx+step)%n+n)%n])
}

// feedbackSink forwards timed feedback onto the UI goroutine.
type feedbackSink struct {
	d *dashboard
}

func (s feedbackSink) DeliverFeedback(_ string, fb game.Feedback) {
	s.d.app.QueueUpdateDraw(func() { s.d.pushFeedback(fb) })
}

func runDashboard(ctx context.Context, slot string, saves *storage.Saves, opts ...session.Option) error {
	app := tview.NewApplication()
	d := newDashboard(app)

	opts = append(opts, session.WithScheduler(session.NewScheduler(feedbackSink{d: d})))
	sess := session.Start(slot, saves, opts...)
	defer sess.Close()

	apply := func(res session.Result, err error) {
		if err != nil {
			app.Stop()
			return
		}
		if res.Outcome.Blocked {
			d.pushFeedback(game.Feedback{Text: "The tree is still settling.", Color: game.ColorWhite})
		}
		d.refresh(res.State, res.Settling)
	}

	// Button handlers run on the UI goroutine; the session call is quick and local.
	d.restart = func() {
		apply(sess.Restart(ctx))
		d.pushFeedback(game.Feedback{Text: "Game restarted successfully!", Color: game.ColorGold})
	}
	d.do = func(action game.Action, upgrade game.UpgradeID) {
		res, err := sess.Do(ctx, action, upgrade)
		apply(res, err)
		if err == nil && res.Outcome.Felled {
			go settleRefresh(ctx, app, sess, d)
		}
	}

	res, err := sess.Snapshot(ctx)
	if err != nil {
		return err
	}
	d.refresh(res.State, res.Settling)
	return app.Run()
}

// settleRefresh re-enables the hit button once the session has settled.
func settleRefresh(ctx context.Context, app *tview.Application, sess *session.Session, d *dashboard) {
	ticker := time.NewTicker(session.DefaultSettleDelay / 4)
	defer ticker.Stop()
	for range ticker.C {
		res, err := sess.Snapshot(ctx)
		if err != nil {
			return
		}
		if !res.Settling {
			app.QueueUpdateDraw(func() { d.refresh(res.State, false) })
			return
		}
	}
}
