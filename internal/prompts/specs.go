package prompts

const extractSpec = `Respond with a JSON object matching this exact structure:

{
  "vendor": "<vendor name>",
  "amount": 0.0,
  "date": "<YYYY-MM-DD>",
  "items": [{"item_name": "<name>", "quantity": 0}],
  "confidence": 0.0
}

Field constraints:
- vendor: Name of the vendor issuing the invoice.
- amount: Total amount due as a number without currency symbols.
- date: Invoice date in ISO-8601 format (YYYY-MM-DD).
- items: Every line item. item_name is copied verbatim from the invoice.
  quantity is a non-negative whole number.
- confidence: Number between 0.0 and 1.0 describing extraction certainty.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Include every field, even when the items array is empty
- Do not invent line items that are not on the invoice`

const approveSpec = `Respond with a JSON object matching this exact structure:

{
  "status": "<APPROVED|REJECTED>",
  "reasoning": "<explanation>"
}

Field constraints:
- status: APPROVED or REJECTED. No other values are accepted.
- reasoning: Explanation of the decision. Required when status is
  REJECTED.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Base the decision only on the invoice details provided`

const transcribeSpec = `Respond with plain text only. Separate pages with a blank line.
Do not wrap the output in markdown fencing or add commentary.`
