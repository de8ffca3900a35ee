package services

import (
	"fmt"
	"strings"

	"chartgpt-backend/internal/models"
)

// BuildChartTypePrompt asks for exactly one label from the supported set.
func BuildChartTypePrompt(inputData string) string {
	labels := make([]string, len(models.ChartTypes))
	for i, t := range models.ChartTypes {
		labels[i] = t.String()
	}

	var b strings.Builder
	b.WriteString("The following are the chart types supported by the renderer: ")
	b.WriteString(strings.Join(labels, ", "))
	b.WriteString(".\n\n")
	b.WriteString("Given the user input below, identify the single chart type the user wants to display. ")
	b.WriteString("Reply with exactly one word from the list above and nothing else.\n\n")
	b.WriteString("---INPUT START---\n")
	b.WriteString(inputData)
	b.WriteString("\n---INPUT END---\n")
	return b.String()
}

// BuildChartDataPrompt embeds the raw user text verbatim in the data
// generation instruction.
func BuildChartDataPrompt(inputData string) string {
	return fmt.Sprintf(`Generate a valid JSON in which each element is an object. Strictly using this FORMAT and naming:
[{ "name": "a", "value": 12, "color": "#4285F4" }] for Recharts API. Make sure field name always stays named name. Instead of naming value field value in JSON, name it based on user metric.
 Make sure the format use double quotes and property names are string literals. 

%s
 Provide JSON data only. `, inputData)
}

// stripCodeFence removes a markdown fence the model may wrap JSON in.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
