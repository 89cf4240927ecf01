package storage

import (
	"budgeting/internal/core"
	"budgeting/internal/docstore"
)

// Collection names. They match the layout of the existing document data.
const (
	Groups              = "budgeting_groups"
	Categories          = "budgeting_categories"
	Transactions        = "budgeting_transactions"
	MerchantLinks       = "budgeting_merchant_links"
	Budgets             = "budgeting_budgets"
	Savings             = "budgeting_savings"
	Commitments         = "budgeting_commitments"
	ScheduleLines       = "budgeting_commitment_schedule_lines"
	FinancialStandings  = "budgeting_financial_standings"
	ExpenseRecords      = "consumptions"
	ownerField          = "user_id"
	expenseRecordsOwner = "created_by"
)

func decodeGroup(doc docstore.Document) core.Group {
	r := record(doc.Fields)
	return core.Group{ID: doc.ID, Name: r.str("name"), Order: r.int("order", 0)}
}

func encodeGroup(g core.Group) docstore.Fields {
	return docstore.Fields{"name": g.Name, "order": g.Order}
}

func decodeCategory(doc docstore.Document) core.Category {
	r := record(doc.Fields)
	return core.Category{
		ID:               doc.ID,
		Name:             r.str("name"),
		GroupID:          r.str("group_id"),
		IncludeInReports: r.bool("include_in_reports", true),
		Order:            r.int("order", 0),
	}
}

func encodeCategory(c core.Category) docstore.Fields {
	return docstore.Fields{
		"name":               c.Name,
		"group_id":           c.GroupID,
		"include_in_reports": c.IncludeInReports,
		"order":              c.Order,
	}
}

func decodeTransaction(doc docstore.Document) core.Transaction {
	r := record(doc.Fields)
	date := r.date("date")
	month := r.str("month")
	if month == "" {
		month = date.MonthKey()
	}
	return core.Transaction{
		ID:             doc.ID,
		OwnerID:        r.str(ownerField),
		Date:           date,
		Month:          month,
		Description:    r.str("description"),
		CategoryID:     r.str("category_id"),
		Classification: core.Classification(r.str("classification")),
		Amount:         r.decimal("amount"),
		Direction:      core.Direction(r.strOr("direction", string(core.Expense))),
		SourceAccount:  r.str("source_account"),
		ExternalID:     r.str("external_id"),
		CreatedAt:      r.time("created_at"),
		UpdatedAt:      r.time("updated_at"),
	}
}

func encodeTransaction(t core.Transaction) docstore.Fields {
	return docstore.Fields{
		ownerField:       t.OwnerID,
		"date":           dateValue(t.Date),
		"month":          t.Date.MonthKey(),
		"description":    truncate(t.Description, core.MaxDescriptionLen),
		"category_id":    optional(t.CategoryID),
		"classification": optional(string(t.Classification)),
		"amount":         amount(t.Amount),
		"direction":      string(t.Direction),
		"source_account": t.SourceAccount,
		"external_id":    t.ExternalID,
		"created_at":     timeValue(t.CreatedAt),
		"updated_at":     timeValue(t.UpdatedAt),
	}
}

func decodeLink(doc docstore.Document) core.MerchantLink {
	r := record(doc.Fields)
	return core.MerchantLink{
		ID:         doc.ID,
		Keyword:    r.str("keyword"),
		CategoryID: r.str("category_id"),
		OwnerID:    r.str(ownerField),
	}
}

func encodeLink(l core.MerchantLink) docstore.Fields {
	return docstore.Fields{
		"keyword":     l.Keyword,
		"category_id": l.CategoryID,
		ownerField:    optional(l.OwnerID),
	}
}

func decodeBudget(doc docstore.Document) core.Budget {
	r := record(doc.Fields)
	return core.Budget{
		ID:         doc.ID,
		OwnerID:    r.str(ownerField),
		CategoryID: r.str("category_id"),
		Year:       r.int("year", 0),
		Month:      r.int("month", 0),
		Forecast:   r.decimal("forecast"),
	}
}

func encodeBudget(b core.Budget) docstore.Fields {
	return docstore.Fields{
		ownerField:    b.OwnerID,
		"category_id": b.CategoryID,
		"year":        b.Year,
		"month":       b.Month,
		"forecast":    amount(b.Forecast),
	}
}

func decodeSavings(doc docstore.Document) core.Savings {
	r := record(doc.Fields)
	s := core.Savings{
		ID:         doc.ID,
		OwnerID:    r.str(ownerField),
		Year:       r.int("year", 0),
		Month:      r.int("month", 0),
		Target:     r.decimal("target"),
		GoalStatus: core.GoalStatus(r.strOr("goal_status", string(core.GoalPending))),
	}
	if d, ok := r.nullDecimal("actual"); ok {
		s.Actual.Decimal, s.Actual.Valid = d, true
	}
	return s
}

func encodeSavings(s core.Savings) docstore.Fields {
	return docstore.Fields{
		ownerField:    s.OwnerID,
		"year":        s.Year,
		"month":       s.Month,
		"actual":      nullAmount(s.Actual),
		"target":      amount(s.Target),
		"goal_status": string(s.GoalStatus),
	}
}

func decodeCommitment(doc docstore.Document) core.Commitment {
	r := record(doc.Fields)
	return core.Commitment{
		ID:            doc.ID,
		OwnerID:       r.str(ownerField),
		Name:          r.str("name"),
		Principal:     r.decimal("amount"),
		StartDate:     r.date("start_date"),
		TermMonths:    r.int("term_months", 0),
		Frequency:     core.Frequency(r.strOr("frequency", string(core.Monthly))),
		PaymentAmount: r.decimal("payment_amount"),
		Balloon:       r.decimal("balloon"),
		CreatedAt:     r.time("created_at"),
		UpdatedAt:     r.time("updated_at"),
	}
}

func encodeCommitment(c core.Commitment) docstore.Fields {
	return docstore.Fields{
		ownerField:       c.OwnerID,
		"name":           truncate(c.Name, core.MaxCommitmentNameLen),
		"amount":         amount(c.Principal),
		"start_date":     dateValue(c.StartDate),
		"term_months":    c.TermMonths,
		"frequency":      string(c.Frequency),
		"payment_amount": amount(c.PaymentAmount),
		"balloon":        amount(c.Balloon),
		"created_at":     timeValue(c.CreatedAt),
		"updated_at":     timeValue(c.UpdatedAt),
	}
}

func decodeLine(doc docstore.Document) core.ScheduleLine {
	r := record(doc.Fields)
	return core.ScheduleLine{
		ID:           doc.ID,
		CommitmentID: r.str("commitment_id"),
		DueDate:      r.date("due_date"),
		Amount:       r.decimal("amount"),
		Status:       core.LineStatus(r.strOr("status", string(core.Outstanding))),
		Sequence:     r.int("sequence", 0),
	}
}

func encodeLine(l core.ScheduleLine) docstore.Fields {
	return docstore.Fields{
		"commitment_id": l.CommitmentID,
		"due_date":      dateValue(l.DueDate),
		"amount":        amount(l.Amount),
		"status":        string(l.Status),
		"sequence":      l.Sequence,
	}
}

func decodeStanding(doc docstore.Document) core.FinancialStanding {
	r := record(doc.Fields)
	return core.FinancialStanding{
		ID:                   doc.ID,
		OwnerID:              r.str(ownerField),
		SnapshotDate:         r.date("snapshot_date"),
		TotalAssets:          r.decimal("total_assets"),
		CurrentAssets:        r.decimal("current_assets"),
		FixedAssets:          r.decimal("fixed_assets"),
		TotalLiabilities:     r.decimal("total_liabilities"),
		ShortTermLiabilities: r.decimal("short_term_liabilities"),
		LongTermLiabilities:  r.decimal("long_term_liabilities"),
		Notes:                r.str("notes"),
		CreatedAt:            r.time("created_at"),
	}
}

func encodeStanding(f core.FinancialStanding) docstore.Fields {
	return docstore.Fields{
		ownerField:               f.OwnerID,
		"snapshot_date":          dateValue(f.SnapshotDate),
		"total_assets":           amount(f.TotalAssets),
		"current_assets":         amount(f.CurrentAssets),
		"fixed_assets":           amount(f.FixedAssets),
		"total_liabilities":      amount(f.TotalLiabilities),
		"short_term_liabilities": amount(f.ShortTermLiabilities),
		"long_term_liabilities":  amount(f.LongTermLiabilities),
		"notes":                  f.Notes,
		"created_at":             timeValue(f.CreatedAt),
	}
}

func decodeExpenseRecord(doc docstore.Document) core.ExpenseRecord {
	r := record(doc.Fields)
	return core.ExpenseRecord{
		ID:           doc.ID,
		CreatedBy:    r.str(expenseRecordsOwner),
		Date:         r.date("date"),
		Amount:       r.decimal("amount"),
		Currency:     r.strOr("currency", "USD"),
		Type:         r.str("consumption_type"),
		Note:         r.str("note"),
		RecordStatus: r.strOr("record_status", "active"),
	}
}

func encodeExpenseRecord(e core.ExpenseRecord) docstore.Fields {
	return docstore.Fields{
		expenseRecordsOwner: e.CreatedBy,
		"date":              dateValue(e.Date),
		"amount":            amount(e.Amount),
		"currency":          e.Currency,
		"consumption_type":  e.Type,
		"note":              e.Note,
		"record_status":     e.RecordStatus,
	}
}
