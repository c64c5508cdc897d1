package analysis

import "strings"

const (
	// MaxPromptChars bounds how much extracted text is sent to the model.
	MaxPromptChars = 4000
	truncationMark = "..."

	Temperature = 0.3
	MaxTokens   = 1000
)

// SystemPrompt asks for strict JSON with a per-type closed set of metadata keys.
const SystemPrompt = `You are an expert document analyzer. Analyze documents and extract:
1. A concise summary (2-3 sentences)
2. Document type (invoice, cv, report, letter, contract, memo, proposal, or other)
3. Relevant metadata based on document type

Return ONLY valid JSON in this exact format:
{
  "summary": "Brief summary here",
  "documentType": "type here",
  "metadata": {
    "key": "value"
  }
}

For different document types, extract:
- Invoice: date, sender, recipient, totalAmount, invoiceNumber, dueDate
- CV: name, email, phone, experience, education, skills
- Report: title, author, date, department, reportType
- Letter: date, sender, recipient, subject, purpose
- Contract: parties, effectiveDate, expirationDate, contractType, value
- Other: any relevant fields you can identify`

const userPromptPrefix = "Analyze the following document and provide a summary, document type, and extracted metadata:\n\n"

// BuildPrompt returns the user prompt for text, truncated to MaxPromptChars characters.
func BuildPrompt(text string) string {
	return userPromptPrefix + truncate(text, MaxPromptChars)
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	var sb strings.Builder
	sb.Grow(limit*2 + len(truncationMark))
	sb.WriteString(string(runes[:limit]))
	sb.WriteString(truncationMark)
	return sb.String()
}
