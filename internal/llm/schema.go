package llm

// Schema is the subset of the OpenAPI schema object accepted by Gemini's
// responseSchema.
type Schema struct {
	Type             string             `json:"type"`
	Description      string             `json:"description,omitempty"`
	Nullable         bool               `json:"nullable,omitempty"`
	Properties       map[string]*Schema `json:"properties,omitempty"`
	PropertyOrdering []string           `json:"propertyOrdering,omitempty"`
	Required         []string           `json:"required,omitempty"`
}

// Schema types.
const (
	TypeObject = "OBJECT"
	TypeString = "STRING"
)

// cardField is one property of the card details schema.
type cardField struct {
	name        string
	description string
}

// cardFields lists the CardDetails properties in output order.
var cardFields = []cardField{
	{"card_name", "The official name of the credit card."},
	{"annual_fee", "The main annual fee, e.g., '₹499 + GST', 'NIL', '₹2,500 waived on ₹2.5 Lakh spend'."},
	{"milestone_duration", "The typical period to hit the milestone (e.g., 'Annual', 'Quarterly')."},
	{"milestone_amount", "The spending amount required to hit the milestone (e.g., '₹1.5 Lakh')."},
	{"milestone_reward", "The specific reward for achieving the milestone."},
	{"reward_points_program", "A concise summary of the core reward points program."},
	{"fees_and_charges", "A summary of other key fees (Forex markup, cash withdrawal, etc.)."},
	{"card_benefits", "A consolidated summary of the card's top 3-5 main benefits."},
}

// CardDetailsSchema returns the response schema of a CardDetails record.
// Every property is a nullable string and none is required.
func CardDetailsSchema() *Schema {
	s := &Schema{
		Type:             TypeObject,
		Description:      "The final structured output schema.",
		Properties:       make(map[string]*Schema, len(cardFields)),
		PropertyOrdering: make([]string, 0, len(cardFields)),
	}
	for _, f := range cardFields {
		s.Properties[f.name] = &Schema{
			Type:        TypeString,
			Description: f.description,
			Nullable:    true,
		}
		s.PropertyOrdering = append(s.PropertyOrdering, f.name)
	}
	return s
}
