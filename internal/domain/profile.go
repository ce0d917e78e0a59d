package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/bookboard/internal/docstore"
	"github.com/MrSnakeDoc/bookboard/internal/logger"
)

// ErrUnknownPlantSlot is returned for a plant slot other than a or b.
var ErrUnknownPlantSlot = errors.New("unknown plant slot")

// ThemeCache persists the last used color theme on this device.
type ThemeCache interface {
	ColorTheme() string
	SetColorTheme(theme string) error
}

// PlantSlot is one of the two decorative plant positions.
type PlantSlot string

const (
	PlantSlotA PlantSlot = "a"
	PlantSlotB PlantSlot = "b"
)

// Plants holds the plant id shown in each slot.
type Plants struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Profile holds the cross-board preferences stored in the user document.
// Theme and plant changes stay local until synced explicitly; the
// completed-book counter is written on every change.
type Profile struct {
	env   *Env
	cache ThemeCache

	colorTheme          string
	plants              Plants
	completedBooksCount int
	lastSelectedBoardID string
}

// ProfileSnapshot is a copy of the profile fields.
type ProfileSnapshot struct {
	ColorTheme          string `json:"colorTheme"`
	Plants              Plants `json:"plants"`
	CompletedBooksCount int    `json:"completedBooksCount"`
	LastSelectedBoardID string `json:"lastSelectedBoardId,omitempty"`
}

func newProfile(env *Env, cache ThemeCache) *Profile {
	p := &Profile{
		env:        env,
		cache:      cache,
		colorTheme: DefaultColorTheme,
		plants:     Plants{A: DefaultPlant, B: DefaultPlant},
	}
	if cache != nil && IsColorTheme(cache.ColorTheme()) {
		p.colorTheme = cache.ColorTheme()
	}
	return p
}

func (p *Profile) ColorTheme() string          { return p.colorTheme }
func (p *Profile) Plants() Plants              { return p.plants }
func (p *Profile) CompletedBooksCount() int    { return p.completedBooksCount }
func (p *Profile) LastSelectedBoardID() string { return p.lastSelectedBoardID }

// Snapshot copies the current profile.
func (p *Profile) Snapshot() ProfileSnapshot {
	return ProfileSnapshot{
		ColorTheme:          p.colorTheme,
		Plants:              p.plants,
		CompletedBooksCount: p.completedBooksCount,
		LastSelectedBoardID: p.lastSelectedBoardID,
	}
}

// IsUnlocked reports whether a theme or plant is available at the current
// completed-book count.
func (p *Profile) IsUnlocked(id string) bool {
	return Unlocked(id, p.completedBooksCount)
}

// SetColorThemeLocally applies theme, or the default theme when theme is
// unknown, and caches it on this device. It returns the applied theme.
func (p *Profile) SetColorThemeLocally(theme string) string {
	if !IsColorTheme(theme) {
		theme = DefaultColorTheme
	}
	p.colorTheme = theme

	if p.cache != nil {
		if err := p.cache.SetColorTheme(theme); err != nil {
			p.env.Logger.Warn("failed to cache color theme",
				logger.String("theme", theme),
				logger.Error(err))
		}
	}
	p.env.emit(EventProfileChanged, "", "")
	return theme
}

// SetPlantLocally puts plant in slot, or the default plant when plant is
// unknown. It returns the applied plant.
func (p *Profile) SetPlantLocally(slot PlantSlot, plant string) (string, error) {
	if !IsPlant(plant) {
		plant = DefaultPlant
	}
	switch slot {
	case PlantSlotA:
		p.plants.A = plant
	case PlantSlotB:
		p.plants.B = plant
	default:
		return "", fmt.Errorf("%q: %w", slot, ErrUnknownPlantSlot)
	}
	p.env.emit(EventProfileChanged, "", "")
	return plant, nil
}

// SyncColorTheme writes the current theme to the user document.
func (p *Profile) SyncColorTheme(ctx context.Context) *docstore.Pending {
	return p.env.Store.Merge(ctx, "sync color theme", docstore.UserDoc(), docstore.Document{
		fieldColorTheme: p.colorTheme,
	})
}

// SyncPlants writes both plant slots to the user document.
func (p *Profile) SyncPlants(ctx context.Context) *docstore.Pending {
	return p.env.Store.Merge(ctx, "sync plants", docstore.UserDoc(), docstore.Document{
		fieldPlants: docstore.Document{"a": p.plants.A, "b": p.plants.B},
	})
}

// SetLastSelectedBoardID records the selected board locally and remotely.
func (p *Profile) SetLastSelectedBoardID(ctx context.Context, id string) *docstore.Pending {
	p.lastSelectedBoardID = id
	return p.env.Store.Merge(ctx, "set last selected board", docstore.UserDoc(), docstore.Document{
		fieldLastSelectedBoardID: id,
	})
}

// IncrementCompletedBooks bumps the counter and writes it immediately.
func (p *Profile) IncrementCompletedBooks(ctx context.Context) *docstore.Pending {
	p.completedBooksCount++
	count := p.completedBooksCount

	p.env.emit(EventProfileChanged, "", "")
	if unlocked := UnlockAt(count); len(unlocked) > 0 {
		p.env.Logger.Info("unlocked by completed books",
			logger.Int("completed_books", count),
			logger.Strings("ids", unlocked))
		for _, id := range unlocked {
			p.env.Events.Emit(Event{Kind: EventUnlocked, Detail: id, At: p.env.Now()})
		}
	}

	return p.env.Store.Merge(ctx, "increment completed books", docstore.UserDoc(), docstore.Document{
		fieldCompletedBooksCount: count,
	})
}

// Hydrate replaces the profile with the stored record, falling back to
// defaults for missing or unknown values.
func (p *Profile) Hydrate(rec UserRecord) {
	p.SetColorThemeLocally(rec.ColorTheme)
	_, _ = p.SetPlantLocally(PlantSlotA, rec.Plants.A)
	_, _ = p.SetPlantLocally(PlantSlotB, rec.Plants.B)
	p.completedBooksCount = rec.CompletedBooksCount
	p.lastSelectedBoardID = rec.LastSelectedBoardID
}

// UserDocument is the full user document for the current profile and the
// given board metadata.
func (p *Profile) UserDocument(meta map[string]BoardMetadata, lastSelectedBoardID string) docstore.Document {
	doc := docstore.Document{
		fieldColorTheme:          p.colorTheme,
		fieldPlants:              docstore.Document{"a": p.plants.A, "b": p.plants.B},
		fieldCompletedBooksCount: p.completedBooksCount,
		fieldBoardsMetadata:      MetadataDocument(meta),
	}
	if lastSelectedBoardID != "" {
		doc[fieldLastSelectedBoardID] = lastSelectedBoardID
	}
	return doc
}
