package mcpserver

// ItemFormatContract describes the knowledge item fields and the export
// document shape that LLM consumers should follow when creating items.
const ItemFormatContract = `# lapse Item Format Contract

A knowledge item is a credential, certification, license or skill that
expires and must be renewed.

## Fields

| field       | required | format                                          |
|-------------|----------|-------------------------------------------------|
| name        | yes      | non-empty text                                  |
| category    | yes      | id of an existing category (see list_categories)|
| expiryDate  | yes      | calendar date ` + "`" + `YYYY-MM-DD` + "`" + `                       |
| priority    | no       | low, medium (default), high, critical           |
| cost        | no       | non-negative number, the cost of one renewal    |
| description | no       | free text                                       |
| tags        | no       | list of short labels                            |
| notes       | no       | free text                                       |

The id, createdAt, lastRenewed and renewalHistory fields are managed by
lapse and are ignored on create.

## Status

Status is derived, never stored. The first matching rule wins:

1. **expired**: the expiry date is in the past.
2. **expiring-soon**: the item expires within 30 days (today counts).
3. **renewed**: the item was renewed within the last 30 days.
4. **active**: everything else.

## Export documents

Imports accept the document produced by export, as JSON or YAML:

` + "```" + `json
{
  "knowledgeItems": [ { "id": "...", "name": "...", "category": "...", "expiryDate": "2025-01-31" } ],
  "categories": [ { "id": "certifications", "name": "Certifications" } ],
  "settings": { "reminderDays": 30 },
  "exportDate": "2024-06-01T12:00:00Z"
}
` + "```" + `

Sections that are absent keep their current value. Every item needs
id, name and expiryDate; every category needs id and name.
`
