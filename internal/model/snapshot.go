package model

import (
	"fmt"
	"strings"
	"time"
)

// Snapshot is the body text of a detail page captured after one interaction.
type Snapshot struct {
	// Index is the 1-based position of the snapshot on its page.
	Index int `json:"index"`

	// Label is the header written above the text in the raw dump.
	Label string `json:"label"`

	// Text is the normalised visible text of the page body.
	Text string `json:"text"`

	// Fingerprint is the hex BLAKE2b-256 digest of Text.
	Fingerprint string `json:"fingerprint"`

	// Duplicate is true when Text equals the text of any earlier snapshot
	// of the same page, not only the one before it.
	// Duplicates are kept for diagnostics but left out of the raw dump.
	Duplicate bool `json:"duplicate,omitempty"`
}

// InitialLabel returns the label of the snapshot taken before any click.
func InitialLabel(index int) string {
	return fmt.Sprintf("--- SNAPSHOT %d: INITIAL STATE ---", index)
}

// ClickLabel returns the label of the snapshot taken after clicking the
// nth (1-based) element matched by trigger.
func ClickLabel(index int, trigger string, nth int) string {
	return fmt.Sprintf("--- SNAPSHOT %d: AFTER CLICKING %s #%d ---", index, trigger, nth)
}

// CardRawData is everything captured for one card before the transform stage.
type CardRawData struct {
	Bank     string `json:"bank"`
	CardName string `json:"card_name"`
	URL      string `json:"url"`

	// RawText is the labelled snapshots joined by blank lines.
	RawText string `json:"raw_text"`

	// Snapshots holds every captured snapshot, duplicates included.
	Snapshots []Snapshot `json:"snapshots,omitempty"`

	// CapturedAt is when the detail page was visited.
	CapturedAt time.Time `json:"captured_at"`
}

// NewCardRawData creates the raw record of a card from its snapshots.
func NewCardRawData(bank string, link CardLink, snapshots []Snapshot) *CardRawData {
	return &CardRawData{
		Bank:       bank,
		CardName:   link.Name,
		URL:        link.URL,
		RawText:    JoinSnapshots(snapshots),
		Snapshots:  snapshots,
		CapturedAt: time.Now(),
	}
}

// JoinSnapshots renders snapshots as the raw text dump: each label followed
// by its text, all parts separated by a blank line. Duplicates are skipped.
func JoinSnapshots(snapshots []Snapshot) string {
	parts := make([]string, 0, len(snapshots)*2)
	for _, s := range snapshots {
		if s.Duplicate {
			continue
		}
		parts = append(parts, s.Label, s.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Fingerprint returns the fingerprint of the first snapshot, or "" when
// there are none. It identifies the card page content across runs.
func (r *CardRawData) Fingerprint() string {
	if len(r.Snapshots) == 0 {
		return ""
	}
	return r.Snapshots[0].Fingerprint
}
