package llm

const responseShapeDetails = `"sender": {
        "name": "<sender name>",
        "address": "<sender address>",
        "companyNumber": "<company number>",
        "email": "<sender email>",
        "phone": "<sender phone number>"
      },
      "receiver": {
        "name": "<receiver name>",
        "address": "<receiver address>"
      },
      "documentDetails": {
        "caseNumber": "<case number>",
        "invoiceAmount": <invoice amount>,
        "dueDate": "<due date>",
        "dateCreated": "<creation date>",
        "dateSent": "<sent date>",
        "summary": "<brief one-sentence summary>",
        "documentType": "<type of document: invoice, letter, etc.>"
      }`

const nullRules = `Ensure the JSON format remains the same, even if some values are missing (use null or empty strings).
If a value isn't present in the document, use null.
For numeric values like invoiceAmount, use actual numbers (not strings) when present; otherwise use null.

Remember: Return ONLY the raw JSON without any formatting or explanation.`

// MultiDocumentPrompt asks for every logical document in an upload.
const MultiDocumentPrompt = `Extract structured document details from this text. If the document contains multiple items (e.g., multiple invoices or letters), list them separately in an array.

Lines of the form "--- PAGE n ---" mark where each page begins. Every page must belong to exactly one document: ranges are ascending, do not overlap, the first document starts on page 1 and the last ends on the final page.

IMPORTANT: Return ONLY the raw JSON without any markdown formatting, code blocks, or explanations. Do not use ` + "```" + ` or any other formatting.

The response format must always be:

{
  "totalPages": <total number of pages>,
  "uniquePages": <count of unique pages>,
  "documents": [
    {
      "startPage": <page number>,
      "endPage": <page number>,
      ` + responseShapeDetails + `
    }
  ]
}

` + nullRules

// SingleDocumentPrompt asks for the details of one document.
const SingleDocumentPrompt = `You are analyzing a single document (invoice, letter, etc.) to extract structured information.

Extract the following information from the document and return it in JSON format:

IMPORTANT: Return ONLY the raw JSON without any markdown formatting, code blocks, or explanations. Do not use ` + "```" + ` or any other formatting.

The response format must be:

{
      ` + responseShapeDetails + `
}

` + nullRules

// BoundaryPrompt asks only where each document of a multi-document PDF starts.
const BoundaryPrompt = `You are an AI assistant that identifies where individual documents begin within a multi-document PDF.

Analyze the PDF text and return:
1. Total number of pages
2. Total number of individual documents
3. Page number where each document starts

Look for document boundaries like:
- New letterheads
- Different dates/senders/recipients
- Page numbering resets
- Clear document endings

Return JSON in this exact format:
{
  "totalPages": <number>,
  "totalDocuments": <number>,
  "documentBoundaries": [
    {
      "documentNumber": 1,
      "startPage": 1
    },
    {
      "documentNumber": 2,
      "startPage": <page number>
    }
  ]
}`

// Instruction returns the fixed instruction text of a template.
func Instruction(tpl Template) string {
	switch tpl {
	case TemplateSingle:
		return SingleDocumentPrompt
	case TemplateBoundaries:
		return BoundaryPrompt
	default:
		return MultiDocumentPrompt
	}
}
