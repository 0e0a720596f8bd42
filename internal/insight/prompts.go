package insight

import (
	"encoding/json"
	"fmt"

	"github.com/seenimoa/alphapredict/pkg/models"
)

// SystemPrompt sets the tone of every narrative.
const SystemPrompt = `You are AlphaPredict, a market commentary assistant.

## Style
- Write plain text only. Do not use bold, italics, tables or headings.
- Open with a one or two sentence summary of the expected direction.
- Follow with short paragraphs covering the drivers you see in the data.
- Quote prices in US dollars with two decimals.
- Do not state that you are unable to predict markets; give your best reading of the data.
`

// UserInstruction precedes the serialized snapshot in the user message.
const UserInstruction = "Provide predictions for the stock for the next few days, based on the following current/historical data:"

// UserPrompt renders the instruction followed by the snapshot as JSON.
func UserPrompt(snap *models.StockSnapshot) (string, error) {
	if snap == nil {
		return "", fmt.Errorf("insight: nil snapshot")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("insight: encode snapshot: %w", err)
	}
	return UserInstruction + " " + string(data), nil
}
