package extraction

import "fmt"

const outputStructure = `OUTPUT JSON STRUCTURE:
{
  "accounts": [
    {
      "account_name": "string",
      "account_number_partial": "string (digits only)",
      "currency": "EUR",
      "transactions": [
        {"date": "YYYY-MM-DD", "description": "text", "amount": 0.00, "type": "credit/debit"}
      ]
    }
  ]
}
Return ONLY valid raw JSON. Do NOT wrap the response in code fences.`

const windowInstructions = `ROLE: Bank statement data extractor.
TASK: Extract the transaction lines in the text below into JSON.

RULES:
1. Extract Date, Description, Amount and Type (credit or debit) for every transaction line.
2. Dates:
   - Output dates as YYYY-MM-DD.
   - Statements often print dates as "MM.DD" or "DD/MM". Infer the missing year from the statement period; when the period spans a new year, months late in the year belong to the earlier year.
   - A row without a date uses the date of the previous row.
   - Never invent dates.
3. Amounts may use European formatting: "1.000,00" is 1000.00.
4. Skip rows that are only headers, footers, page numbers, balances or totals.
5. Account: report the account name and the visible digits of the account number. When they are not visible, use "Unknown".

`

const imageInstructions = `Extract every transaction shown in this image.

RULES:
- Infer the current statement year when the image does not print one.
- For a CHECK or CHEQUE:
  - Description = "Cheque " + cheque number + " - " + payee name
  - Amount = the amount written on the cheque
  - Type = "debit" unless the cheque is clearly a deposit
- Amounts may use European formatting: "1.000,00" is 1000.00.
- Use "Unknown" for the account name when the bank is not visible.

`

const conversionInstructions = `Transcribe this document into Markdown.
- Keep every page and every table, in reading order.
- Render tables as Markdown tables with one row per printed line.
- Copy numbers, dates and descriptions exactly as printed. Do not summarize, translate or correct anything.
- Output only the Markdown.`

// WindowPrompt builds the prompt for one text window.
func WindowPrompt(window string, index int) string {
	return windowInstructions + outputStructure + fmt.Sprintf("\n\nDATA CHUNK #%d:\n%s", index, window)
}

// ImagePrompt is sent together with a statement or cheque image.
func ImagePrompt() string {
	return imageInstructions + outputStructure
}

// ConversionPrompt asks for a Markdown transcription of a document.
func ConversionPrompt() string {
	return conversionInstructions
}
