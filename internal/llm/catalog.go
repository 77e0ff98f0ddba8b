package llm

// DefaultModel is used when neither the request nor the environment
// names one.
const DefaultModel = "gemini-2.5-flash-lite"

// ModelInfo describes one catalog entry for the config endpoint.
type ModelInfo struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Tier        string `json:"tier"`
	Description string `json:"description"`
}

// SupportedModels is the catalog of model identifiers the service accepts.
var SupportedModels = []ModelInfo{
	{ID: "gemini-2.5-flash-lite", Label: "Gemini 2.5 Flash Lite", Tier: "free", Description: "Fast & free - best for most use cases"},
	{ID: "gemini-2.5-flash-preview-05-20", Label: "Gemini 2.5 Flash", Tier: "free", Description: "More capable, still free tier"},
	{ID: "gemini-2.0-flash", Label: "Gemini 2.0 Flash", Tier: "free", Description: "Previous generation (may have quota limits)"},
	{ID: "gemini-2.5-pro-preview-06-05", Label: "Gemini 2.5 Pro", Tier: "paid", Description: "Most capable - requires paid plan"},
}

// IsSupported reports whether id appears in the catalog.
func IsSupported(id string) bool {
	for _, m := range SupportedModels {
		if m.ID == id {
			return true
		}
	}
	return false
}
