package main

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"wood-empire/game"
	"wood-empire/session"
)

//go:embed templates
var templateFS embed.FS

const (
	tabActions  = "actions"
	tabCrafting = "crafting"
	tabUpgrades = "upgrades"
)

var tabOrder = []string{tabActions, tabCrafting, tabUpgrades}

// tabActionsOf lists the non-upgrade controls shown on each tab.
var tabActionsOf = map[string][]game.Action{
	tabActions:  {game.ActionHit, game.ActionSellWood},
	tabCrafting: {game.ActionCraftPlanks, game.ActionCraftSticks, game.ActionCraftAxe},
}

// buttonClass colours an enabled control; disabled ones are always grey.
var buttonClass = map[game.Action]string{
	game.ActionHit:         "btn-green",
	game.ActionSellWood:    "btn-orange",
	game.ActionCraftPlanks: "btn-blue",
	game.ActionCraftSticks: "btn-purple",
	game.ActionCraftAxe:    "btn-brown",
	game.ActionBuyUpgrade:  "btn-purple",
}

const axeDetail = "When crafted, instantly equips to give 10% chance to do 1 extra damage to a tree"

type TabView struct {
	Name   string
	Active bool
}

type ButtonView struct {
	Action  game.Action
	Upgrade game.UpgradeID
	Label   string
	Hint    string
	Detail  string
	Class   string
	Enabled bool
}

type FeedbackView struct {
	Text    string
	Icon    game.Icon
	Color   string
	DelayMS int64
}

type PageData struct {
	Slot      string
	Tab       string
	Tabs      []TabView
	State     game.State
	Progress  int
	Settling  bool
	Buttons   []ButtonView
	Feedback  []FeedbackView
	Toast     string
	NowUTC    string
	Sessions  []session.Info
	WoodenAxe bool
}

func normalizeTab(raw string) string {
	for _, t := range tabOrder {
		if raw == t {
			return t
		}
	}
	return tabActions
}

func buildPageData(slot, tab string, res session.Result) PageData {
	tab = normalizeTab(tab)
	st := res.State

	data := PageData{
		Slot:      slot,
		Tab:       tab,
		State:     st,
		Progress:  st.Progress(),
		Settling:  res.Settling,
		NowUTC:    time.Now().UTC().Format(time.RFC3339),
		WoodenAxe: st.EquippedTool == game.ToolWoodenAxe,
	}
	for _, t := range tabOrder {
		data.Tabs = append(data.Tabs, TabView{Name: t, Active: t == tab})
	}

	if tab == tabUpgrades {
		for _, u := range game.Upgrades() {
			b := newButton(st, game.ActionBuyUpgrade, u.ID)
			b.Detail = u.Description
			data.Buttons = append(data.Buttons, b)
		}
	} else {
		for _, a := range tabActionsOf[tab] {
			b := newButton(st, a, "")
			if a == game.ActionHit && res.Settling {
				b.Enabled = false
			}
			if a == game.ActionCraftAxe {
				b.Detail = axeDetail
			}
			data.Buttons = append(data.Buttons, b)
		}
	}

	for _, fb := range res.Outcome.Feedback {
		data.Feedback = append(data.Feedback, FeedbackView{
			Text:    fb.Text,
			Icon:    fb.Icon,
			Color:   fb.Color,
			DelayMS: fb.Delay.Milliseconds(),
		})
	}
	return data
}

func newButton(st game.State, a game.Action, upgrade game.UpgradeID) ButtonView {
	b := ButtonView{
		Action:  a,
		Upgrade: upgrade,
		Label:   game.Label(a, upgrade),
		Hint:    game.Hint(st, a, upgrade),
		Enabled: game.Available(st, a, upgrade),
	}
	b.Class = "btn-gray"
	if b.Enabled {
		b.Class = buttonClass[a]
	}
	return b
}

func templateFuncs() template.FuncMap {
	printer := message.NewPrinter(language.English)
	funcs := sprig.FuncMap()
	funcs["count"] = func(n int) string {
		return printer.Sprintf("%d", n)
	}
	return funcs
}

func parseTemplates() *template.Template {
	return template.Must(template.New("root").Funcs(templateFuncs()).ParseFS(templateFS,
		"templates/*.html",
		"templates/fragments/*.html",
	))
}

func renderPage(w http.ResponseWriter, tmpl *template.Template, name string, data PageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// htmx response strategy: the dashboard is the primary swap target; the resource sidebar, toast and
// feedback burst ride along as out-of-band fragments.
func renderActionLikeResponse(w http.ResponseWriter, tmpl *template.Template, data PageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "dashboard", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = tmpl.ExecuteTemplate(w, "resources_oob", data)
	_ = tmpl.ExecuteTemplate(w, "feedback_oob", data)
	_ = tmpl.ExecuteTemplate(w, "toast_oob", data)
}
