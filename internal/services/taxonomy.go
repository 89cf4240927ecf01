package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"budgeting/internal/cache"
	"budgeting/internal/core"
	"budgeting/internal/storage"
)

// Taxonomy is the loaded group and category reference data.
type Taxonomy struct {
	Groups     []core.Group
	Categories []core.Category // sorted by group order, then category order
	ByID       map[string]core.Category
}

// Category returns the category with its group name resolved.
func (t Taxonomy) Category(id string) (core.Category, bool) {
	c, ok := t.ByID[id]
	return c, ok
}

// DisplayName prefixes the category name with its group name when the group resolves.
func (t Taxonomy) DisplayName(id string) string {
	c, ok := t.ByID[id]
	if !ok {
		return ""
	}
	if c.GroupName == "" {
		return c.Name
	}
	return c.GroupName + " — " + c.Name
}

const taxonomyCacheKey = "taxonomy"

// TaxonomyService loads groups and categories, optionally through a cache.
type TaxonomyService struct {
	repo  *storage.Repository
	cache cache.Cache[Taxonomy]
}

// NewTaxonomyService caches loads for ttl. A ttl of zero reads the store on every call.
func NewTaxonomyService(repo *storage.Repository, ttl time.Duration) *TaxonomyService {
	return &TaxonomyService{repo: repo, cache: cache.NewLRUCache[Taxonomy](1, ttl)}
}

// Cache exposes the underlying cache so it can be registered for cleanup.
func (s *TaxonomyService) Cache() cache.Cache[Taxonomy] { return s.cache }

// Invalidate drops the cached taxonomy after a write.
func (s *TaxonomyService) Invalidate() { s.cache.Purge() }

// LoadTaxonomy returns all groups and categories. A category whose group
// does not resolve gets an empty group name.
func (s *TaxonomyService) LoadTaxonomy(ctx context.Context) (Taxonomy, error) {
	if t, ok := s.cache.Get(taxonomyCacheKey); ok {
		return t, nil
	}

	groups, err := s.repo.ListGroups(ctx)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("load groups: %w", err)
	}
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("load categories: %w", err)
	}

	groupByID := make(map[string]core.Group, len(groups))
	groupRank := make(map[string]int, len(groups))
	for i, g := range groups {
		groupByID[g.ID] = g
		groupRank[g.ID] = i
	}

	t := Taxonomy{Groups: groups, ByID: make(map[string]core.Category, len(cats))}
	for _, c := range cats {
		c.GroupName = groupByID[c.GroupID].Name
		t.ByID[c.ID] = c
		t.Categories = append(t.Categories, c)
	}
	sortCategories(t.Categories, groupRank)

	s.cache.Set(taxonomyCacheKey, t)
	slog.DebugContext(ctx, "Loaded taxonomy", "groups", len(groups), "categories", len(cats))
	return t, nil
}

func sortCategories(cats []core.Category, groupRank map[string]int) {
	rank := func(c core.Category) int {
		if r, ok := groupRank[c.GroupID]; ok {
			return r
		}
		return len(groupRank)
	}
	sort.SliceStable(cats, func(i, j int) bool {
		if ri, rj := rank(cats[i]), rank(cats[j]); ri != rj {
			return ri < rj
		}
		return cats[i].Order < cats[j].Order
	})
}

// default taxonomy: group name, display order, categories in order
var defaultTaxonomy = []struct {
	group      string
	categories []string
}{
	{"Home", []string{"Rent / Mortgage", "Maintenance"}},
	{"Food", []string{"Groceries", "Restaurants"}},
	{"Transportation", []string{"Fuel", "Public transport"}},
	{"Utilities", []string{"Electricity", "Water"}},
	{"Health", []string{"Insurance", "Medical"}},
	{"Other", []string{"Other"}},
}

// SeedResult counts what SeedDefaults created.
type SeedResult struct {
	Groups     int
	Categories int
}

// SeedDefaults creates the default groups and categories that do not exist
// yet. Existing entries are matched by name, so running it twice is safe.
func (s *TaxonomyService) SeedDefaults(ctx context.Context) (SeedResult, error) {
	var res SeedResult

	groups, err := s.repo.ListGroups(ctx)
	if err != nil {
		return res, fmt.Errorf("list groups: %w", err)
	}
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return res, fmt.Errorf("list categories: %w", err)
	}
	groupIDs := map[string]string{}
	for _, g := range groups {
		groupIDs[strings.ToLower(g.Name)] = g.ID
	}
	catNames := map[string]bool{}
	for _, c := range cats {
		catNames[strings.ToLower(c.Name)] = true
	}

	for order, def := range defaultTaxonomy {
		gid, ok := groupIDs[strings.ToLower(def.group)]
		if !ok {
			gid, err = s.repo.SaveGroup(ctx, core.Group{Name: def.group, Order: order})
			if err != nil {
				return res, fmt.Errorf("create group %s: %w", def.group, err)
			}
			groupIDs[strings.ToLower(def.group)] = gid
			res.Groups++
		}
		for corder, name := range def.categories {
			if catNames[strings.ToLower(name)] {
				continue
			}
			if _, err := s.repo.SaveCategory(ctx, core.Category{
				Name:             name,
				GroupID:          gid,
				IncludeInReports: true,
				Order:            corder,
			}); err != nil {
				return res, fmt.Errorf("create category %s: %w", name, err)
			}
			catNames[strings.ToLower(name)] = true
			res.Categories++
		}
	}

	s.Invalidate()
	slog.InfoContext(ctx, "Seeded default taxonomy",
		"groups_created", res.Groups,
		"categories_created", res.Categories)
	return res, nil
}
