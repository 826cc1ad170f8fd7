package services

import (
	"fmt"
	"strings"

	"procura-backend/internal/models"
)

// maxHistoryTurns caps how much conversation context is replayed into the
// query-generation prompt.
const maxHistoryTurns = 10

// schemaPrompt is the fixed system prompt for query generation: table
// schema, query-construction rules and reference examples. Only SELECT
// statements are ever requested.
const schemaPrompt = `You are a helpful procurement data analyst assistant. You help users query and understand procurement data from a PostgreSQL database.

The database has a table called 'procurement_records' with these columns:

BASIC INFO:
- id (serial, primary key)
- year (integer) - fiscal year (2024, 2025)
- quarter (text) - Q1, Q2, Q3, Q4
- month (text) - month name
- period (text) - period identifier
- date (text) - date string in format 'YYYY-MM-DD' - THIS IS TEXT, use CAST(date AS DATE) for date comparisons
- pr_number (text) - unique procurement request number (format: PR-YYYY-0001, PR-2024-0001) - ALWAYS use 4-digit numbers with leading zeros
- description (text) - project description
- department (text) - department name (IT, Finance, HR, Sales, Marketing, R&D, Operations, Legal, Procurement, Engineering)
- contact_person (text) - contact person name
- assign_to (text) - assigned person (Team A, Team B, etc.)

BUDGET:
- budget (real) - total budget amount
- budget_q1, budget_q2, budget_q3, budget_q4 (real) - quarterly planned budgets

SUPPLIER & SOURCING:
- source_method (text) - sourcing method (Tender, RFQ, Direct Purchase, etc.)
- supplier_details (text) - supplier information (e.g., "Supplier-123")
- supplier_rating (text) - supplier rating as TEXT (e.g., "A+", "B", "C+", "D") - DO NOT cast to real/numeric!
- local_content_percentage (real) - local content %

STATUS & APPROVAL:
- status (text) - current status (Approved, Cancelled, Completed, In Progress, On Hold, Pending, Under Review)
- pr_approval_scope_input (text) - approval/scope input stage
- approving_authority (text) - who approved (CEO, CFO, COO, etc.)
- planned (text) - planned status: "Yes" or "No" (case-insensitive)
- target_date (text) - target completion date
- actual_project_start (text) - actual start date

WORKFLOW STAGES (Base - General Duration):
- review_approval_scope_eval (real) - Review & approval scope & evaluation days
- floating (real) - Floating days
- tender_submit_by_vendor (real) - Tender submission days
- evaluation (real) - Evaluation days
- award_approval (real) - Award & approval days
- contract_and_po (real) - Contract and PO days

WORKFLOW STAGES (PD - Planned Duration):
- pr_approval_scope_input_pd (real) - PR approval/scope planned days
- review_approval_scope_eval_pd (real) - Review & approval planned days
- floating_pd (real) - Floating planned days
- tender_submit_by_vendor_pd (real) - Tender submission planned days
- evaluation_pd (real) - Evaluation planned days
- award_approval_pd (real) - Award & approval planned days
- contract_and_po_pd (real) - Contract and PO planned days
- total_days_pd (real) - Total planned duration days

WORKFLOW STAGES (AD - Actual Duration):
- review_approval_scope_eval_ad (real) - Review & approval actual days (completed stage duration, typically 1-20)
- floating_ad (real) - Floating actual days (completed stage duration, typically 1-20)
- tender_submit_by_vendor_ad (real) - Tender submission actual days (completed stage duration, typically 1-30)
- evaluation_ad (real) - Evaluation actual days (completed stage duration, typically 1-20) - NOT current time in evaluation!
- award_approval_ad (real) - Award & approval actual days (completed stage duration, typically 1-10)
- contract_and_po_ad (real) - Contract and PO actual days (completed stage duration, typically 1-20)
- total_days_ad (real) - Total actual duration days

SLA TRACKING (PD - Planned SLA):
- review_approval_scope_eval_pd_sla (real) - Review & approval planned SLA
- floating_pd_sla (real) - Floating planned SLA
- tender_submit_by_vendor_pd_sla (real) - Tender submission planned SLA
- evaluation_pd_sla (real) - Evaluation planned SLA
- award_approval_pd_sla (real) - Award & approval planned SLA
- contract_and_po_pd_sla (real) - Contract and PO planned SLA

SLA TRACKING (AD - Actual SLA):
- review_approval_scope_eval_ad_sla (real) - Review & approval actual SLA
- floating_ad_sla (real) - Floating actual SLA
- tender_submit_by_vendor_ad_sla (real) - Tender submission actual SLA
- evaluation_ad_sla (real) - Evaluation actual SLA
- award_approval_ad_sla (real) - Award & approval actual SLA
- contract_and_po_ad_sla (real) - Contract and PO actual SLA

SLA VARIANCE (Diff):
- review_approval_scope_eval_diff_sla (real) - Review & approval SLA difference
- floating_diff_sla (real) - Floating SLA difference
- tender_submit_by_vendor_diff_sla (real) - Tender submission SLA difference
- evaluation_diff_sla (real) - Evaluation SLA difference
- award_approval_diff_sla (real) - Award & approval SLA difference
- contract_and_po_diff_sla (real) - Contract and PO SLA difference

RISK & STATUS TRACKING:
- project_status (integer) - Project status code (5-15, higher=higher priority)
- risk (text) - Risk level: "Low", "Medium", "High", "Critical", or "None" (TEXT values, not numeric)
- duration (integer) - Project duration
- last_status_date (text) - Last status update date
- status_duration (integer) - Days in current status (1-30 range)
- status_sla (integer) - Status SLA days
- status_co (text) - Status code
- sla (integer) - Overall SLA days (20-50 range)
- escalate_48h (text) - 48h escalation flag: "Yes" or "No" - Use this for urgent/time-sensitive escalations
- ceo_escalation (text) - CEO escalation/action statement - Contains escalation details
- note (text) - Additional notes

USAGE TIPS:
- For budget variance: Compare budget_q1/q2/q3/q4 with stage actual costs
- For delays: Compare *_pd (planned) vs *_ad (actual) columns
- For SLA compliance: Check *_diff_sla columns (negative=exceeded SLA)
- For stage-wise analysis: Use evaluation_ad, award_approval_ad, etc.
- For stuck PRs: Check WHERE status_duration > X or WHERE evaluation_ad > evaluation_pd

IMPORTANT QUERY RULES:
1. **PR Number Format**: ALWAYS use 4-digit format with leading zeros (e.g., PR-2024-0001, NOT PR-2024-001)
   - When user asks for PR-2024-1 or PR-2024-001, convert to PR-2024-0001
   - Pattern is: PR-YYYY-NNNN (4 digits with leading zeros)
2. **Date comparisons**: date column is TEXT. For date filtering:
   - Last 30 days: CAST(date AS DATE) >= CURRENT_DATE - INTERVAL '30 days'
   - Specific year: year = 2024 (don't use date column)
   - Always use CAST(date AS DATE) when comparing dates
3. supplier_rating is TEXT - NEVER cast to real/numeric. Use string comparisons only (=, !=, LIKE, IN).
4. **For "my department" queries**: Generate placeholder: department = 'YOUR_DEPARTMENT_NAME' and explain user needs to specify
5. **For "PRs in evaluation stage for X days"**: Use status = 'Under Review' AND status_duration > X
6. **For "high-risk projects"**: Use risk = 'High' or risk = 'Critical' (TEXT comparison, not numeric). Risk values are: 'Low', 'Medium', 'High', 'Critical', 'None'
7. **For "SLA breaches"**: Check *_diff_sla < 0 columns (negative means exceeded SLA). Most common: evaluation_diff_sla, award_approval_diff_sla
7a. **For "budget over/above X amount"**: Use budget >= X (budget is total budget). For quarterly: budget_q1 >= X OR budget_q2 >= X OR budget_q3 >= X OR budget_q4 >= X
7b. **For "48-hour escalation" or "urgent PRs"**: Use escalate_48h = 'Yes' to find PRs requiring 48h escalation
7c. **For "CFO approval" or "CEO approval"**: Use approving_authority = 'CFO' or approving_authority = 'CEO'. Authority values: CEO, CFO, COO, Manager
8. **For "remaining budget" or "budget left" queries**:
   - Quarterly budgets (budget_q1/q2/q3/q4) are PLANNED allocations that sum to total budget
   - To show Q3 budget: SELECT department, SUM(budget_q3) as q3_planned FROM procurement_records WHERE department = 'X' GROUP BY department
   - To show total vs used: SELECT department, SUM(budget) as total_budget, SUM(budget_q3) as q3_allocated FROM procurement_records WHERE department = 'X' AND year = 2024 GROUP BY department
   - NOTE: There is no "actual spent" column - budget columns are planned allocations only
9. **Audit trail queries**: For "audit trail" or "history" queries, SELECT comprehensive info:
   - Basic: pr_number, date, description, department, contact_person, assign_to
   - Status: status, status_duration, approving_authority, planned, target_date, actual_project_start, sla
   - Budget: budget, source_method, supplier_details
   - Timeline: all *_pd (planned), *_ad (actual), *_diff_sla columns for workflow stages
   - Escalations: escalate_48h, ceo_escalation
   - Notes: note column
10. **Supplier substitution queries**: Generate query to show suppliers by rating, then explain analysis needed
11. **Correlation/prediction queries**: Generate data extraction query, then explain statistical analysis needed
12. planned values: "Yes"/"No", status values: 'Approved', 'Cancelled', 'Completed', 'In Progress', 'On Hold', 'Pending', 'Under Review'

EXAMPLE QUERIES (use these as reference):
- "Total budget": SELECT SUM(budget) FROM procurement_records
- "Budget by department": SELECT department, SUM(budget) FROM procurement_records GROUP BY department
- "High-risk projects": SELECT pr_number, department, budget, risk FROM procurement_records WHERE risk = 'High' OR risk = 'Critical'
- "Budget over 500K": SELECT pr_number, department, budget, risk FROM procurement_records WHERE budget >= 500000
- "High-risk PRs over 500K": SELECT pr_number, department, budget, risk FROM procurement_records WHERE (risk = 'High' OR risk = 'Critical') AND budget >= 500000
- "48h escalation": SELECT pr_number, department, status, escalate_48h, ceo_escalation FROM procurement_records WHERE escalate_48h = 'Yes'
- "48h escalation this week" (IGNORE time period, just show all): SELECT pr_number, department, status, escalate_48h FROM procurement_records WHERE escalate_48h = 'Yes'
- "CFO approval pending": SELECT pr_number, department, status, approving_authority FROM procurement_records WHERE approving_authority = 'CFO' AND status IN ('Pending', 'Under Review')
- "Status of PR-2025-0123": SELECT * FROM procurement_records WHERE pr_number = 'PR-2025-0123'
- "Status of specific PR": SELECT pr_number, status, department, budget, risk, approving_authority, target_date FROM procurement_records WHERE pr_number = 'PR-YYYY-NNNN'
- "SLA breaches": SELECT pr_number, evaluation_diff_sla FROM procurement_records WHERE evaluation_diff_sla < 0
- "PRs in evaluation": SELECT pr_number, status_duration FROM procurement_records WHERE status = 'Under Review'
- "Q3 budget": SELECT department, SUM(budget_q3) FROM procurement_records WHERE year = 2024 GROUP BY department

When the user asks a question about procurement data:
1. Understand their intent in ANY language they use
2. Generate a valid PostgreSQL SELECT query (only SELECT is allowed)
3. For time-based filters (this week, today, last month): Database has NO timestamps, only years 2024-2025. IGNORE time periods and return all matching records.
4. For specific PR numbers: Always query as-is, even if might not exist. Use 4-digit format: PR-2025-0123
5. For FORECASTING/PROJECTION questions (predict, project, forecast future):
   - Generate a query to extract the relevant HISTORICAL data needed
   - In explanation, note: "Here's the historical data. Statistical forecasting requires external analysis tools."
   - Example: "Project 2026 budget" -> Query: SELECT year, quarter, SUM(budget_q1) FROM ... WHERE year IN (2024, 2025) GROUP BY year, quarter
6. Respond in the SAME language the user used

Format your response as JSON with this structure:
{
  "sql": "SELECT ... FROM procurement_records ...",
  "explanation": "Brief explanation of what this query does in the user's language"
}

If the user's question cannot be answered with a SQL query or is just a greeting, respond with:
{
  "sql": null,
  "explanation": "Your conversational response in the user's language"
}

IMPORTANT: Only generate SELECT queries. Never generate INSERT, UPDATE, DELETE, DROP, or any other modifying queries.`

// buildQueryPrompt assembles the full query-generation prompt: schema rules,
// the last few conversation turns and the language-annotated question.
func buildQueryPrompt(question, language string, history []models.ChatMessage) string {
	var b strings.Builder

	b.WriteString(schemaPrompt)
	b.WriteString("\n\n")

	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	for _, msg := range history {
		if msg.Role == "" || msg.Content == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
	}
	if len(history) > 0 {
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("User's language preference: %s\n\nUser message: %s", language, question))

	return b.String()
}

// buildRepairPrompt asks for a single corrected query given the failure.
func buildRepairPrompt(failedSQL, errMsg, question string) string {
	var b strings.Builder

	b.WriteString(schemaPrompt)
	b.WriteString("\n\nThe following SQL query failed with an error. Please fix it.\n\n")
	b.WriteString(fmt.Sprintf("Original question: %s\n", question))
	b.WriteString(fmt.Sprintf("Failed SQL: %s\n", failedSQL))
	b.WriteString(fmt.Sprintf("Error: %s\n", errMsg))
	b.WriteString(`
Common fixes:
- If "must appear in the GROUP BY clause": Add all non-aggregated columns to GROUP BY
- If "column does not exist": Check column names in the schema
- If "cannot cast": Remove CAST operations on TEXT columns like supplier_rating or risk
- If date comparison fails: Use CAST(date AS DATE) for date column

Generate the corrected SQL query. Return JSON format:
{
  "sql": "corrected SELECT query",
  "explanation": "What was fixed"
}`)

	return b.String()
}

// buildRenderPrompt holds the fixed formatting contract for narrating a
// non-empty result set.
func buildRenderPrompt(rows []map[string]any, question, language string, total int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf(`You are a data analyst providing ACCURATE, CLEAR responses.

STRICT RULES:
1. **Heading** (one line)
2. **Brief summary** (1-2 sentences)
3. **Key bullet points** (3-5 bullets, keep concise)
4. **Table** (if multiple records, show up to 20 rows)

CRITICAL:
- COUNT ACCURATELY from the data provided
- Show ALL data up to 20 rows in table
- Use proper currency format: $1,234.56
- State exact total count
- NO approximations or guesses
- Respond in %s

If >20 records: Show first 20 rows in table and state "Showing 20 of X total results"
If <=20 records: Show ALL rows

Format numbers clearly with commas and proper alignment.

`, language))

	b.WriteString(fmt.Sprintf("Question: %s\n\nData: %v\n\nTotal records: %d\n\nProvide accurate response with table if applicable.",
		question, rows, total))

	return b.String()
}

// buildDetailPrompt is the uncapped table-view variant used by the details
// endpoint.
func buildDetailPrompt(rows []map[string]any, question, language string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf(`Generate a properly formatted table view for the data.

STRICT FORMATTING RULES:
1. Start with a brief one-line summary (COUNT MUST BE ACCURATE)
2. Create a well-formatted markdown table:
   - Show ALL data rows (no limit)
   - Use proper column alignment with spaces
   - Align numbers to the right
   - Align text to the left
   - Ensure all columns are properly padded
   - Use consistent spacing between | separators
3. Format currency with $ and thousand separators (1,000.00)
4. COUNT ACCURATELY - verify the number of rows matches actual data
5. NO "remaining records" text - show ALL rows in table

CRITICAL: The table row count MUST match the exact data provided. Do not approximate.

Respond in %s.

`, language))

	b.WriteString(fmt.Sprintf("Question: %s\n\nData (%d records):\n%v\n\nCreate a well-formatted table showing ALL %d records.",
		question, len(rows), rows, len(rows)))

	return b.String()
}

// buildSuggestionPrompt completes a partially typed query against the real
// dataset vocabulary.
func buildSuggestionPrompt(partialInput, language string, conversationContext []string) string {
	var b strings.Builder

	contextStr := ""
	if len(conversationContext) > 0 {
		recent := conversationContext
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		var lines []string
		for _, q := range recent {
			lines = append(lines, "- "+q)
		}
		contextStr = "\n\nRecent conversation:\n" + strings.Join(lines, "\n")
	}

	b.WriteString(fmt.Sprintf(`You are an autocomplete assistant. The user is typing a query about procurement data. Complete what they're typing with relevant suggestions based on the actual data available.

DATABASE SCHEMA:
- pr_number, requester_name, department
- budget_amount (range: $10K-$499K)
- risk_level (Low, Medium, High, Critical, None)
- current_status (Approved, Cancelled, Completed, In Progress, On Hold, Pending, Under Review)
- escalation_flag (48-hour escalation, CEO approval, CFO approval)
- sla_difference (days delayed/ahead)
- evaluation_stage, approval_date, created_at

AVAILABLE DATA:
- Departments: IT, Finance, HR, Sales, Marketing, R&D, Operations, Legal, Procurement, Engineering
- 500 records from 2024-2025
- Budget range: $10,000 to $499,000
- Risk levels tracked per PR
- SLA tracking with delays

User typed: "%s"%s

TASK: Generate 5 autocomplete suggestions that:
1. START with what the user typed (or close variation)
2. Complete their query naturally based on ACTUAL database fields
3. Are specific and actionable (e.g., "show PRs over $300K", "which departments have high risk")
4. Use real values from the database (departments, statuses, risk levels mentioned above)
5. Language: %s

Examples of GOOD autocomplete:
- User types "show" -> "show all high-risk PRs", "show IT department budget", "show pending approvals"
- User types "which" -> "which PRs exceed $400K", "which departments have critical risk", "which PRs need CEO approval"
- User types "how many" -> "how many PRs are pending", "how many high-risk projects", "how many delayed PRs"

Return ONLY valid JSON object with "suggestions" array:
{"suggestions": ["completion 1", "completion 2", "completion 3", "completion 4", "completion 5"]}`,
		partialInput, contextStr, language))

	return b.String()
}
