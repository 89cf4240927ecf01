package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

// Categorizer suggests a category for a transaction description from
// keyword links. Owner links are tried before global links.
//
// When several links of the same scope match, the longest keyword wins,
// then the lexicographically smaller keyword, then the smaller link id.
// Links pointing at a category that no longer exists are ignored.
type Categorizer struct {
	repo     *storage.Repository
	taxonomy *TaxonomyService
}

func NewCategorizer(repo *storage.Repository, taxonomy *TaxonomyService) *Categorizer {
	return &Categorizer{repo: repo, taxonomy: taxonomy}
}

// SuggestCategory returns the matching category, or false when none matches
// or the description is blank. An empty owner only consults global links.
func (c *Categorizer) SuggestCategory(ctx context.Context, description, owner string) (core.Category, bool, error) {
	desc := strings.ToLower(strings.TrimSpace(description))
	if desc == "" {
		return core.Category{}, false, nil
	}

	tax, err := c.taxonomy.LoadTaxonomy(ctx)
	if err != nil {
		return core.Category{}, false, err
	}

	scopes := []string{""}
	if owner != "" {
		scopes = []string{owner, ""}
	}
	for _, scope := range scopes {
		links, err := c.repo.LinksByOwner(ctx, scope)
		if err != nil {
			return core.Category{}, false, fmt.Errorf("load merchant links: %w", err)
		}
		if link, ok := bestMatch(desc, links, tax); ok {
			cat, _ := tax.Category(link.CategoryID)
			slog.DebugContext(ctx, "Suggested category",
				"keyword", link.Keyword,
				"category_id", cat.ID,
				"global", scope == "")
			return cat, true, nil
		}
	}
	return core.Category{}, false, nil
}

// bestMatch picks the winning link among those whose keyword is a
// case-insensitive substring of desc. desc must already be lowercase.
func bestMatch(desc string, links []core.MerchantLink, tax Taxonomy) (core.MerchantLink, bool) {
	var matches []core.MerchantLink
	for _, l := range links {
		kw := strings.ToLower(strings.TrimSpace(l.Keyword))
		if kw == "" || !strings.Contains(desc, kw) {
			continue
		}
		if _, ok := tax.Category(l.CategoryID); !ok {
			continue
		}
		l.Keyword = kw
		matches = append(matches, l)
	}
	if len(matches) == 0 {
		return core.MerchantLink{}, false
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if len(a.Keyword) != len(b.Keyword) {
			return len(a.Keyword) > len(b.Keyword)
		}
		if a.Keyword != b.Keyword {
			return a.Keyword < b.Keyword
		}
		return a.ID < b.ID
	})
	return matches[0], true
}

// ListLinks returns the owner's links, or the global links for an empty owner.
func (c *Categorizer) ListLinks(ctx context.Context, owner string) ([]core.MerchantLink, error) {
	links, err := c.repo.LinksByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list merchant links: %w", err)
	}
	sort.SliceStable(links, func(i, j int) bool {
		return strings.ToLower(links[i].Keyword) < strings.ToLower(links[j].Keyword)
	})
	return links, nil
}

// SaveLink creates or updates a merchant link. The keyword and category pair
// must be unique within the link's owner scope, and the category must exist.
// Updating requires the link to belong to the same owner scope.
func (c *Categorizer) SaveLink(ctx context.Context, link core.MerchantLink) (core.MerchantLink, error) {
	link.Keyword = strings.TrimSpace(link.Keyword)
	if err := link.Validate(); err != nil {
		return core.MerchantLink{}, err
	}

	tax, err := c.taxonomy.LoadTaxonomy(ctx)
	if err != nil {
		return core.MerchantLink{}, err
	}
	if _, ok := tax.Category(link.CategoryID); !ok {
		return core.MerchantLink{}, &core.ValidationError{Field: "category_id", Message: "unknown category", Err: core.ErrUnknownCategory}
	}

	if link.ID != "" {
		existing, ok, err := c.repo.GetLink(ctx, link.ID)
		if err != nil {
			return core.MerchantLink{}, fmt.Errorf("get merchant link: %w", err)
		}
		if !ok || existing.OwnerID != link.OwnerID {
			return core.MerchantLink{}, fmt.Errorf("merchant link %s: %w", link.ID, core.ErrNotFound)
		}
	}

	scope, err := c.repo.LinksByOwner(ctx, link.OwnerID)
	if err != nil {
		return core.MerchantLink{}, fmt.Errorf("list merchant links: %w", err)
	}
	for _, other := range scope {
		if other.ID != link.ID &&
			other.CategoryID == link.CategoryID &&
			strings.EqualFold(strings.TrimSpace(other.Keyword), link.Keyword) {
			return core.MerchantLink{}, &core.ValidationError{Field: "keyword", Message: "keyword already linked to this category", Err: core.ErrDuplicateKeyword}
		}
	}

	id, err := c.repo.SaveLink(ctx, link)
	if err != nil {
		return core.MerchantLink{}, fmt.Errorf("save merchant link: %w", err)
	}
	link.ID = id
	slog.InfoContext(ctx, "Merchant link saved",
		"link_id", id,
		"keyword", link.Keyword,
		"category_id", link.CategoryID,
		"owner_id", link.OwnerID)
	return link, nil
}

// DeleteLink removes a link of the owner scope.
func (c *Categorizer) DeleteLink(ctx context.Context, owner, id string) error {
	existing, ok, err := c.repo.GetLink(ctx, id)
	if err != nil {
		return fmt.Errorf("get merchant link: %w", err)
	}
	if !ok || existing.OwnerID != owner {
		return fmt.Errorf("merchant link %s: %w", id, core.ErrNotFound)
	}
	if err := c.repo.DeleteLink(ctx, id); err != nil {
		return fmt.Errorf("delete merchant link: %w", err)
	}
	slog.InfoContext(ctx, "Merchant link deleted", "link_id", id, "owner_id", owner)
	return nil
}
