package generate

// Constraints modulates generation prompts for a clinical domain. Each
// built-in profile provides a PromptAddendum appended to the system prompt.
type Constraints struct {
	Domain         string
	PromptAddendum string
}

// builtinConstraints is keyed by domain tag. Unknown domains fall back to
// the general profile.
var builtinConstraints = map[string]Constraints{
	"general": {
		Domain: "general",
		PromptAddendum: "Write scenarios a practicing clinician would recognize. When the " +
			"guideline is ambiguous, prefer the conservative reading and note the ambiguity " +
			"in the scenario title.",
	},
	"cardiology": {
		Domain: "cardiology",
		PromptAddendum: "Scenarios take place in cardiology care. Use cardiology personas " +
			"(cardiologist, heart-failure nurse) and cardiology data inputs (ECG, troponin, " +
			"ejection fraction). Anticoagulation decisions must cite the guideline text.",
	},
	"oncology": {
		Domain: "oncology",
		PromptAddendum: "Scenarios take place in oncology care. Reference staging, " +
			"chemotherapy regimens, and toxicity monitoring only as the guideline supports. " +
			"Dose-limiting toxicity thresholds must come from the excerpt, never from memory.",
	},
	"pediatrics": {
		Domain: "pediatrics",
		PromptAddendum: "Scenarios involve pediatric patients. All dosing must be " +
			"weight-based and expressed per kilogram. Include a guardian persona where " +
			"consent is relevant.",
	},
}

// ConstraintsFor returns the constraint profile for a domain tag, falling
// back to the general profile for unknown domains.
func ConstraintsFor(domain string) Constraints {
	if c, ok := builtinConstraints[domain]; ok {
		return c
	}
	c := builtinConstraints["general"]
	c.Domain = domain
	return c
}
