package dayservice

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/starford/focusfive/internal/apperr"
	"github.com/starford/focusfive/internal/metastore"
	"github.com/starford/focusfive/internal/models"
)

// slot is one stored metadata entry that an action can claim.
type slot struct {
	meta     models.ActionMeta
	category models.Category // empty for retired entries
	pos      int
	claimed  bool
}

type pool struct {
	active  map[models.Category][]*slot
	retired []*slot
	byID    map[string]*slot
}

func newPool(stored metastore.DayMeta) *pool {
	p := &pool{active: make(map[models.Category][]*slot), byID: make(map[string]*slot)}
	add := func(s *slot) {
		if s.meta.ID == "" {
			return
		}
		if _, dup := p.byID[s.meta.ID]; dup {
			// A repeated identity still carries metadata worth keeping.
			s.meta.ID = uuid.NewString()
		}
		p.byID[s.meta.ID] = s
		if s.category == "" {
			p.retired = append(p.retired, s)
		} else {
			p.active[s.category] = append(p.active[s.category], s)
		}
	}
	for _, c := range models.Categories {
		for i, m := range *stored.Actions(c) {
			add(&slot{meta: m, category: c, pos: i})
		}
	}
	for _, m := range stored.Retired {
		add(&slot{meta: m, pos: -1})
	}
	return p
}

// at returns the unclaimed active entry at position i of c.
func (p *pool) at(c models.Category, i int) *slot {
	for _, s := range p.active[c] {
		if s.pos == i && !s.claimed {
			return s
		}
	}
	return nil
}

// byText returns the first unclaimed entry with the same text, looking in
// the action's own category, then retired entries, then other categories.
func (p *pool) byText(c models.Category, text string) *slot {
	if text == "" {
		return nil
	}
	groups := [][]*slot{p.active[c], p.retired}
	for _, other := range models.Categories {
		if other != c {
			groups = append(groups, p.active[other])
		}
	}
	for _, g := range groups {
		for _, s := range g {
			if !s.claimed && sameText(s.meta.Text, text) {
				return s
			}
		}
	}
	return nil
}

func sameText(a, b string) bool {
	return norm.NFC.String(strings.TrimSpace(a)) == norm.NFC.String(strings.TrimSpace(b))
}

// Reconcile associates every action of day with stored metadata and fills
// in the actions' IDs and Meta. Matching is tried in order:
//
//  1. an ID the caller already set on the action
//  2. the entry at the same position whose text is unchanged
//  3. any unclaimed entry with the same text, retired ones included
//  4. the entry at the same position, treating the text as edited in place
//  5. a freshly minted identity
//
// Entries no action claimed are moved to Retired and never dropped. The
// checkbox wins over the stored status; contradictions are reported as
// warnings. Objective lines in the text likewise win over the stored
// objective link. The returned bool reports whether the metadata changed.
func Reconcile(day *models.Day, stored metastore.DayMeta, now time.Time) (metastore.DayMeta, []apperr.Warning, bool) {
	p := newPool(stored)
	assigned := make(map[models.Category][]*slot, len(models.Categories))
	for _, c := range models.Categories {
		assigned[c] = make([]*slot, len(day.Entry(c).Actions))
	}
	claim := func(c models.Category, i int, s *slot) {
		s.claimed = true
		assigned[c][i] = s
	}

	pass := func(match func(c models.Category, i int, a models.Action) *slot) {
		for _, c := range models.Categories {
			for i, a := range day.Entry(c).Actions {
				if assigned[c][i] != nil {
					continue
				}
				if s := match(c, i, a); s != nil {
					claim(c, i, s)
				}
			}
		}
	}
	pass(func(_ models.Category, _ int, a models.Action) *slot {
		if s, ok := p.byID[a.ID]; ok && !s.claimed {
			return s
		}
		return nil
	})
	pass(func(c models.Category, i int, a models.Action) *slot {
		if s := p.at(c, i); s != nil && sameText(s.meta.Text, a.Text) {
			return s
		}
		return nil
	})
	pass(func(c models.Category, _ int, a models.Action) *slot {
		return p.byText(c, a.Text)
	})
	pass(func(c models.Category, i int, _ models.Action) *slot {
		return p.at(c, i)
	})

	out := metastore.DayMeta{
		Version:      metastore.SchemaVersion,
		Date:         models.DateKey(day.Date),
		TextChecksum: stored.TextChecksum,
		UpdatedAt:    stored.UpdatedAt,
	}
	var warnings []apperr.Warning
	used := make(map[string]bool)
	for _, c := range models.Categories {
		for _, s := range assigned[c] {
			if s != nil {
				used[s.meta.ID] = true
			}
		}
	}
	for _, c := range models.Categories {
		entry := day.Entry(c)
		metas := make([]models.ActionMeta, len(entry.Actions))
		for i := range entry.Actions {
			a := &entry.Actions[i]
			var m models.ActionMeta
			if s := assigned[c][i]; s != nil {
				m = s.meta
			} else {
				id := a.ID
				if id == "" || p.byID[id] != nil || used[id] {
					id = uuid.NewString()
				}
				used[id] = true
				m = models.ActionMeta{ID: id, Origin: models.OriginManual, CreatedAt: now.UTC()}
			}
			fromCaller := a.Meta != nil
			if fromCaller {
				overlay(&m, a.Meta)
			}
			syncObjectives(a, &m, fromCaller)
			m.Text = a.Text
			if w, ok := settleCompletion(&m, a.Completed, now); ok {
				w.Message = fmt.Sprintf("%s action %d: %s", c, i+1, w.Message)
				warnings = append(warnings, w)
			}
			metas[i] = m
			a.ID = m.ID
			meta := m
			a.Meta = &meta
		}
		*out.Actions(c) = metas
	}

	for _, s := range p.retired {
		if !s.claimed {
			out.Retired = append(out.Retired, s.meta)
		}
	}
	for _, c := range models.Categories {
		for _, s := range p.active[c] {
			if !s.claimed {
				out.Retired = append(out.Retired, s.meta)
			}
		}
	}

	return out, warnings, !sameMeta(stored, out)
}

// overlay copies the caller-editable fields of src onto m.
func overlay(m *models.ActionMeta, src *models.ActionMeta) {
	if src.Status.Valid() {
		m.Status = src.Status
	}
	if src.Origin.Valid() {
		m.Origin = src.Origin
	}
	m.EffortMinutes = src.EffortMinutes
	m.Note = src.Note
	m.ObjectiveID = src.ObjectiveID
}

// syncObjectives makes the stored objective link the first objective line
// of a. An action without objective lines keeps a link only when the caller
// supplied it in metadata, and then gains the matching line.
func syncObjectives(a *models.Action, m *models.ActionMeta, fromCaller bool) {
	switch {
	case len(a.ObjectiveIDs) > 0:
		id := a.ObjectiveIDs[0]
		m.ObjectiveID = &id
	case fromCaller && m.ObjectiveID != nil && *m.ObjectiveID != "":
		a.ObjectiveIDs = []string{*m.ObjectiveID}
	default:
		m.ObjectiveID = nil
	}
}

// settleCompletion makes the status agree with the checkbox. A warning is
// returned when the stored status contradicted the text.
func settleCompletion(m *models.ActionMeta, done bool, now time.Time) (apperr.Warning, bool) {
	prev := m.Status
	m.ApplyCompletion(done, now.UTC())
	if m.Status == models.StatusDone && m.CompletedAt == nil {
		t := now.UTC()
		m.CompletedAt = &t
	}
	if m.Status != models.StatusDone {
		m.CompletedAt = nil
	}
	conflict := (prev == models.StatusDone && !done) ||
		((prev == models.StatusSkipped || prev == models.StatusBlocked) && done)
	if !conflict {
		return apperr.Warning{}, false
	}
	return apperr.Warning{
		Kind:    apperr.WarnCompletionConflict,
		Message: fmt.Sprintf("stored status %q overridden by checkbox", prev),
	}, true
}

func sameMeta(a, b metastore.DayMeta) bool {
	for _, c := range models.Categories {
		if !equalMetas(*a.Actions(c), *b.Actions(c)) {
			return false
		}
	}
	return equalMetas(a.Retired, b.Retired)
}

func equalMetas(a, b []models.ActionMeta) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
