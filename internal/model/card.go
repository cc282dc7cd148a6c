package model

import "strings"

// LLMParseFailed is the annual fee placeholder of a record whose
// transform failed.
const LLMParseFailed = "LLM PARSE FAILED"

// CardLink is one card found on a bank's listing page.
type CardLink struct {
	// Name is the card name as shown on the listing.
	Name string `json:"name"`

	// URL is the absolute URL of the card's detail page.
	URL string `json:"url"`
}

// CardDetails is the structured record extracted from a card's raw text.
//
// Every extracted field is nullable: nil means the LLM did not find it,
// which is different from an empty string. Bank, URL and LLMFailed are
// metadata filled in by the scraper, not by the LLM.
type CardDetails struct {
	// CardName is the official name of the credit card.
	CardName *string `json:"card_name"`

	// AnnualFee is the main annual fee, e.g. "₹499 + GST" or "NIL".
	AnnualFee *string `json:"annual_fee"`

	// MilestoneDuration is the period to hit the milestone, e.g. "Annual".
	MilestoneDuration *string `json:"milestone_duration"`

	// MilestoneAmount is the spend required to hit the milestone.
	MilestoneAmount *string `json:"milestone_amount"`

	// MilestoneReward is the reward for achieving the milestone.
	MilestoneReward *string `json:"milestone_reward"`

	// RewardPointsProgram summarises the core reward points program.
	RewardPointsProgram *string `json:"reward_points_program"`

	// FeesAndCharges summarises other key fees (forex markup, cash withdrawal).
	FeesAndCharges *string `json:"fees_and_charges"`

	// CardBenefits summarises the card's main benefits.
	CardBenefits *string `json:"card_benefits"`

	Bank      string `json:"bank,omitempty"`
	URL       string `json:"url,omitempty"`
	LLMFailed bool   `json:"llm_failed,omitempty"`
}

// String returns a pointer to s. Used to fill nullable CardDetails fields.
func String(s string) *string {
	return &s
}

// Value returns the string behind p, or "" for nil.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// FailedCardDetails builds the partial record kept in the result when the
// transform of raw fails, so that every extracted card appears in the output.
func FailedCardDetails(raw *CardRawData, detail string) *CardDetails {
	return &CardDetails{
		CardName:     String(raw.CardName),
		AnnualFee:    String(LLMParseFailed),
		CardBenefits: String("Failed to parse, check logs: " + detail),
		Bank:         raw.Bank,
		URL:          raw.URL,
		LLMFailed:    true,
	}
}

// Normalize trims surrounding whitespace from every extracted field.
// Fields that are empty after trimming become nil.
func (d *CardDetails) Normalize() {
	for _, f := range []**string{
		&d.CardName,
		&d.AnnualFee,
		&d.MilestoneDuration,
		&d.MilestoneAmount,
		&d.MilestoneReward,
		&d.RewardPointsProgram,
		&d.FeesAndCharges,
		&d.CardBenefits,
	} {
		if *f == nil {
			continue
		}
		v := strings.TrimSpace(**f)
		if v == "" {
			*f = nil
			continue
		}
		*f = &v
	}
}

// IsEmpty reports whether no extracted field is set.
func (d *CardDetails) IsEmpty() bool {
	return d.CardName == nil &&
		d.AnnualFee == nil &&
		d.MilestoneDuration == nil &&
		d.MilestoneAmount == nil &&
		d.MilestoneReward == nil &&
		d.RewardPointsProgram == nil &&
		d.FeesAndCharges == nil &&
		d.CardBenefits == nil
}
