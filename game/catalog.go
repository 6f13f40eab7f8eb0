package game

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed upgrades.yaml
var upgradesYAML []byte

type UpgradeID string

const UpgradeLuckyNumberSticks UpgradeID = "lucky_number_sticks"

// Upgrade describes a purchasable upgrade. Buying one only charges its cost for now; the upgrade
// effects are not modelled yet.
type Upgrade struct {
	ID          UpgradeID `yaml:"id"`
	Name        string    `yaml:"name"`
	Cost        int       `yaml:"cost"`
	Description string    `yaml:"description"`
}

var upgrades = mustParseCatalog(upgradesYAML)

func parseCatalog(data []byte) (map[UpgradeID]Upgrade, error) {
	var doc struct {
		Upgrades []Upgrade `yaml:"upgrades"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing upgrade catalog: %w", err)
	}

	out := make(map[UpgradeID]Upgrade, len(doc.Upgrades))
	for _, u := range doc.Upgrades {
		if u.ID == "" {
			return nil, fmt.Errorf("upgrade without id")
		}
		if u.Cost <= 0 {
			return nil, fmt.Errorf("upgrade %s: cost must be positive", u.ID)
		}
		if _, ok := out[u.ID]; ok {
			return nil, fmt.Errorf("duplicate upgrade %s", u.ID)
		}
		out[u.ID] = u
	}
	return out, nil
}

func mustParseCatalog(data []byte) map[UpgradeID]Upgrade {
	c, err := parseCatalog(data)
	if err != nil {
		panic(err)
	}
	return c
}

// LookupUpgrade returns the catalog entry for id.
func LookupUpgrade(id UpgradeID) (Upgrade, bool) {
	u, ok := upgrades[id]
	return u, ok
}

// Upgrades lists the catalog ordered by cost, then id.
func Upgrades() []Upgrade {
	out := make([]Upgrade, 0, len(upgrades))
	for _, u := range upgrades {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cost != out[j].Cost {
			return out[i].Cost < out[j].Cost
		}
		return out[i].ID < out[j].ID
	})
	return out
}
