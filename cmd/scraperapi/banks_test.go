package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Raj-Taware/credit-scrape/internal/config"
	"github.com/Raj-Taware/credit-scrape/internal/scraper"
)

// TestListBanks tests the banks listing.
func TestListBanks(t *testing.T) {
	t.Parallel()

	t.Run("text lists built-in banks in order", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := listBanks(&buf, config.NewConfig()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Configured banks (4):") {
			t.Errorf("unexpected header:\n%s", output)
		}
		last := -1
		for _, name := range config.BuiltinOrder() {
			i := strings.Index(output, name)
			if i < last {
				t.Errorf("expected %s after previous bank:\n%s", name, output)
			}
			last = i
		}
		if !strings.Contains(output, "https://www.sbicard.com/en/personal/credit-cards.page") {
			t.Error("expected listing URL")
		}
	})

	t.Run("json includes strategies", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig()
		cfg.JSONReport = true

		var buf bytes.Buffer
		if err := listBanks(&buf, cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got []scraper.Bank
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		want := []string{"SBI Card", "Axis Bank"}
		var names []string
		for _, b := range got {
			names = append(names, b.Name)
		}
		if diff := cmp.Diff(want, names); diff != "" {
			t.Errorf("banks mismatch (-want +got):\n%s", diff)
		}
		if got[0].Strategy.ListURL != sbiList {
			t.Errorf("ListURL = %q", got[0].Strategy.ListURL)
		}
	})
}
