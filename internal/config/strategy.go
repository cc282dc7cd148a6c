package config

import (
	"fmt"
	"slices"
)

// Strategy describes how to harvest one bank's credit card catalogue:
// where the listing page is, how to find cards on it, and which tabs,
// buttons or modal triggers to click on each card's detail page.
type Strategy struct {
	// ListURL is the page listing all of the bank's cards.
	ListURL string `yaml:"listUrl,omitempty" json:"list_url"`

	// ListSelector matches one element per card on the listing page.
	ListSelector string `yaml:"listSelector,omitempty" json:"list_selector"`

	// NameSelector is evaluated inside each card element to get the card name.
	NameSelector string `yaml:"nameSelector,omitempty" json:"name_selector"`

	// LinkSelector is evaluated inside each card element to get the detail link.
	LinkSelector string `yaml:"linkSelector,omitempty" json:"link_selector"`

	// TabsToClick are interaction triggers on the detail page. Entries that look
	// like selectors are used as-is; anything else is matched as visible text.
	TabsToClick []string `yaml:"tabsToClick,omitempty" json:"tabs_to_click"`

	// IgnorePatterns are URL path globs of detail links to skip.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty" json:"ignore_patterns,omitempty"`

	// MaxCards caps the cards taken from the listing. Zero means no limit.
	MaxCards int `yaml:"maxCards,omitempty" json:"max_cards,omitempty"`
}

// Validate reports whether the strategy has everything the extractor needs.
func (s Strategy) Validate() error {
	switch {
	case s.ListURL == "":
		return fmt.Errorf("%w: listUrl is required", ErrInvalidStrategy)
	case s.ListSelector == "":
		return fmt.Errorf("%w: listSelector is required", ErrInvalidStrategy)
	case s.NameSelector == "":
		return fmt.Errorf("%w: nameSelector is required", ErrInvalidStrategy)
	case s.LinkSelector == "":
		return fmt.Errorf("%w: linkSelector is required", ErrInvalidStrategy)
	}
	return nil
}

// File represents the structure of the .scraperapi strategy file.
type File struct {
	// Defaults is merged under every bank's strategy.
	Defaults Strategy `yaml:"defaults,omitempty"`

	// Banks maps a bank name (as used in API requests) to its strategy.
	Banks map[string]Strategy `yaml:"banks,omitempty"`

	// Order lists bank names in the order they are scraped when a request
	// does not name any. Banks missing from Order follow in name order.
	Order []string `yaml:"order,omitempty"`
}

// Built-in bank names.
const (
	BankSBI     = "SBI Card"
	BankFederal = "Federal Bank"
	BankAxis    = "Axis Bank"
	BankHDFC    = "HDFC Bank"
)

// BuiltinStrategies returns the strategies shipped with the scraper.
// A fresh map is returned on every call.
func BuiltinStrategies() map[string]Strategy {
	return map[string]Strategy{
		BankSBI: {
			ListURL:      "https://www.sbicard.com/en/personal/credit-cards.page",
			ListSelector: "section.card-listing.all-cards .grid.col-2",
			NameSelector: "h4",
			LinkSelector: "a.learn-more-link",
			TabsToClick:  []string{"View Benefits", "button.view-benefit-btn", "Fees", "Charges"},
		},
		BankFederal: {
			ListURL:      "https://www.federal.bank.in/credit-cards",
			ListSelector: "div.blk-deisgn.card-body",
			NameSelector: ".slider-title",
			LinkSelector: "a.apply-now",
			TabsToClick:  []string{"#feature-tab-1", "#feature-tab-3", "Features", "Fees & Charges"},
		},
		BankAxis: {
			ListURL:      "https://www.axis.bank.in/cards/credit-card",
			ListSelector: "div.card-wrapper",
			NameSelector: "h3.category-title",
			LinkSelector: "a.btn-secondary",
			TabsToClick:  []string{"Fees", "Charges", "a.read-more-btn"},
		},
		BankHDFC: {
			ListURL:      "https://www.hdfc.bank.in/credit-cards",
			ListSelector: "div.card-wrap",
			NameSelector: "h3.card-Title",
			LinkSelector: "a.btn-primary-outline",
			TabsToClick:  []string{"Fees", "Charges", "Benefits", "a:has-text('Fees & Charges')"},
		},
	}
}

// BuiltinOrder is the default scraping order of the built-in banks.
func BuiltinOrder() []string {
	return []string{BankSBI, BankFederal, BankAxis, BankHDFC}
}

// DefaultFile returns a strategy file holding only the built-in banks.
func DefaultFile() *File {
	return &File{
		Banks: BuiltinStrategies(),
		Order: BuiltinOrder(),
	}
}

// Strategy returns the effective strategy for a bank, with file defaults
// merged underneath. The second result is false for unknown banks.
func (f *File) Strategy(bank string) (Strategy, bool) {
	s, ok := f.Banks[bank]
	if !ok {
		return Strategy{}, false
	}
	return mergeStrategy(f.Defaults, s), true
}

// BankNames returns every configured bank, Order first, the rest sorted.
func (f *File) BankNames() []string {
	names := make([]string, 0, len(f.Banks))
	seen := make(map[string]bool, len(f.Banks))
	for _, name := range f.Order {
		if _, ok := f.Banks[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}

	rest := make([]string, 0)
	for name := range f.Banks {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)

	return append(names, rest...)
}

// Merge overlays other onto f: banks in other replace or extend f's banks
// field by field, other's defaults win where set, and other's order is
// placed in front of f's.
func (f *File) Merge(other *File) *File {
	result := &File{
		Defaults: mergeStrategy(f.Defaults, other.Defaults),
		Banks:    make(map[string]Strategy, len(f.Banks)+len(other.Banks)),
	}

	for name, s := range f.Banks {
		result.Banks[name] = s
	}
	for name, s := range other.Banks {
		if base, ok := result.Banks[name]; ok {
			result.Banks[name] = mergeStrategy(base, s)
			continue
		}
		result.Banks[name] = s
	}

	result.Order = append(result.Order, other.Order...)
	for _, name := range f.Order {
		if !slices.Contains(result.Order, name) {
			result.Order = append(result.Order, name)
		}
	}

	return result
}

// mergeStrategy merges override onto base. Non-zero override fields win.
func mergeStrategy(base, override Strategy) Strategy {
	result := base

	if override.ListURL != "" {
		result.ListURL = override.ListURL
	}
	if override.ListSelector != "" {
		result.ListSelector = override.ListSelector
	}
	if override.NameSelector != "" {
		result.NameSelector = override.NameSelector
	}
	if override.LinkSelector != "" {
		result.LinkSelector = override.LinkSelector
	}
	if len(override.TabsToClick) > 0 {
		result.TabsToClick = slices.Clone(override.TabsToClick)
	}
	if len(override.IgnorePatterns) > 0 {
		result.IgnorePatterns = slices.Clone(override.IgnorePatterns)
	}
	if override.MaxCards > 0 {
		result.MaxCards = override.MaxCards
	}

	return result
}
