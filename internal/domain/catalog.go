package domain

import "slices"

// Unlockable is a theme or plant that becomes available once enough books
// have been completed.
type Unlockable struct {
	ID       string `json:"id"`
	UnlockAt int    `json:"unlockAt"`
}

const (
	DefaultColorTheme = "vanilla"
	DefaultPlant      = "george"
)

// ThemeCatalog lists every color theme in display order.
var ThemeCatalog = []Unlockable{
	{ID: "vanilla", UnlockAt: 0},
	{ID: "moonlight", UnlockAt: 0},
	{ID: "almond", UnlockAt: 1},
	{ID: "laurel", UnlockAt: 3},
	{ID: "coffee", UnlockAt: 5},
	{ID: "berry", UnlockAt: 8},
	{ID: "chalkboard", UnlockAt: 12},
	{ID: "blush", UnlockAt: 16},
	{ID: "fjord", UnlockAt: 20},
	{ID: "juniper", UnlockAt: 25},
	{ID: "blackcurrant", UnlockAt: 30},
	{ID: "milkyway", UnlockAt: 40},
}

// PlantCatalog lists every decorative plant in display order.
var PlantCatalog = []Unlockable{
	{ID: "george", UnlockAt: 0},
	{ID: "frank", UnlockAt: 2},
	{ID: "anita", UnlockAt: 4},
	{ID: "wes", UnlockAt: 7},
	{ID: "zoe", UnlockAt: 10},
	{ID: "leah", UnlockAt: 15},
	{ID: "oliver", UnlockAt: 22},
	{ID: "roman", UnlockAt: 35},
}

func find(list []Unlockable, id string) (Unlockable, bool) {
	i := slices.IndexFunc(list, func(u Unlockable) bool { return u.ID == id })
	if i < 0 {
		return Unlockable{}, false
	}
	return list[i], true
}

// IsColorTheme reports whether id names a known theme.
func IsColorTheme(id string) bool {
	_, ok := find(ThemeCatalog, id)
	return ok
}

// IsPlant reports whether id names a known plant.
func IsPlant(id string) bool {
	_, ok := find(PlantCatalog, id)
	return ok
}

// UnlockAt returns the ids of the themes and plants that become available
// exactly when the completed-book count reaches count.
func UnlockAt(count int) []string {
	var ids []string
	for _, list := range [][]Unlockable{ThemeCatalog, PlantCatalog} {
		for _, u := range list {
			if u.UnlockAt == count && count > 0 {
				ids = append(ids, u.ID)
			}
		}
	}
	return ids
}

// Unlocked reports whether id (theme or plant) is available at count.
func Unlocked(id string, count int) bool {
	if u, ok := find(ThemeCatalog, id); ok {
		return count >= u.UnlockAt
	}
	if u, ok := find(PlantCatalog, id); ok {
		return count >= u.UnlockAt
	}
	return false
}
