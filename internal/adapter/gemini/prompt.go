package gemini

import (
	"fmt"

	"github.com/envirolab/infrascan/internal/domain"
)

// promptTemplate instructs the model to reply with a bare JSON object. The
// humidity slot renders as an integer percentage or "not available" when the
// climate lookup was degraded.
const promptTemplate = `Analyze the following piece of infrastructure based on the provided data.

- Infrastructure Name: %q
- Infrastructure Type: %q
- Current Local Humidity: %s%%

Based on this information, generate a valid JSON object with the following structure and keys:
{
    "ai_summary": "A concise, single-paragraph summary. Explain what this infrastructure is used for and how the specified high or low humidity might impact its operations, materials, or the people who use it.",
    "resources_used": ["A list of 2-3 primary resources this type of infrastructure typically consumes (e.g., electricity, water, fuel)."],
    "impact_reduction": ["A list of 2-3 actionable suggestions for how this type of infrastructure could reduce its environmental impact."],
    "is_critical": "A boolean value (true or false) indicating if this infrastructure type is generally considered critical for a community's function and safety."
}

Provide only the raw JSON object in your response, with no additional text or markdown formatting.`

// buildPrompt embeds the place identity and humidity reading verbatim.
func buildPrompt(place domain.Place, humidity domain.HumidityReading) string {
	return fmt.Sprintf(promptTemplate, place.Name, place.Category, humidity.String())
}
