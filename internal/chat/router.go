package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ledgerchat/internal/core"
	"ledgerchat/internal/log"
	"ledgerchat/internal/metrics"
	"ledgerchat/internal/nlu"
	"ledgerchat/internal/services"
	"ledgerchat/internal/storage"
)

// Reply is what the assistant says back.
type Reply struct {
	Text   string `json:"text"`
	Intent string `json:"intent"`
}

type handlerFunc func(ctx context.Context, userID int64, r nlu.Result, now time.Time) (string, error)

// Router classifies a chat message and dispatches it to the matching
// intent handler.
type Router struct {
	parser   *nlu.Parser
	expenses *services.ExpenseService
	budgets  *services.BudgetService
	insights *services.InsightsService
	repo     *storage.Repository
	logger   *log.Logger
	handlers map[string]handlerFunc
	now      func() time.Time
}

func NewRouter(
	parser *nlu.Parser,
	expenses *services.ExpenseService,
	budgets *services.BudgetService,
	insights *services.InsightsService,
	repo *storage.Repository,
	logger *log.Logger,
) *Router {
	r := &Router{
		parser:   parser,
		expenses: expenses,
		budgets:  budgets,
		insights: insights,
		repo:     repo,
		logger:   logger,
		now:      time.Now,
	}
	r.handlers = map[string]handlerFunc{
		nlu.IntentAddExpense:  r.handleAddExpense,
		nlu.IntentQuery:       r.handleQuery,
		nlu.IntentInsights:    r.handleInsights,
		nlu.IntentSummary:     r.handleSummary,
		nlu.IntentSuggestions: r.handleSuggestions,
		nlu.IntentGreeting:    r.handleGreeting,
	}
	return r
}

// Handle processes one user message end to end: parse, dispatch,
// persist both sides of the exchange.
func (r *Router) Handle(ctx context.Context, userID int64, message string) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{Text: "Please say something!", Intent: nlu.IntentClarify}, nil
	}

	result := r.parser.Parse(ctx, message)
	metrics.ChatMessages.WithLabelValues(result.Intent).Inc()

	now := r.now()
	text, err := r.dispatch(ctx, userID, result, now)
	if err != nil {
		r.logger.ErrorContext(ctx, "intent handler failed",
			log.FieldUserID, userID,
			log.FieldIntent, result.Intent,
			log.FieldError, err)
		text = "Something went wrong on my side, please try again."
	}

	r.persistExchange(ctx, userID, message, text, result.Intent)
	return Reply{Text: text, Intent: result.Intent}, nil
}

func (r *Router) dispatch(ctx context.Context, userID int64, result nlu.Result, now time.Time) (string, error) {
	switch result.Intent {
	case nlu.IntentClarify:
		return "I didn't quite catch that. Could you rephrase it?", nil
	case nlu.IntentUnknown:
		return "I can record expenses, answer questions about your spending, track budgets and share insights. What would you like to do?", nil
	}

	handler, ok := r.handlers[result.Intent]
	if !ok {
		return "I can record expenses, answer questions about your spending, track budgets and share insights. What would you like to do?", nil
	}
	return handler(ctx, userID, result, now)
}

func (r *Router) persistExchange(ctx context.Context, userID int64, message, reply, intent string) {
	if _, err := r.repo.InsertChatMessage(ctx, core.ChatMessage{
		UserID: userID,
		Role:   core.RoleUser,
		Body:   message,
		Intent: intent,
	}); err != nil {
		r.logger.ErrorContext(ctx, "persist user message failed", log.FieldError, err)
	}
	if _, err := r.repo.InsertChatMessage(ctx, core.ChatMessage{
		UserID: userID,
		Role:   core.RoleAssistant,
		Body:   reply,
	}); err != nil {
		r.logger.ErrorContext(ctx, "persist assistant message failed", log.FieldError, err)
	}
}

// History returns the recent conversation, newest first.
func (r *Router) History(ctx context.Context, userID int64, limit int) ([]core.ChatMessage, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return r.repo.ListChatMessages(ctx, userID, limit)
}

func (r *Router) handleAddExpense(ctx context.Context, userID int64, result nlu.Result, now time.Time) (string, error) {
	ent := result.Entities
	if ent.Amount == nil || *ent.Amount <= 0 {
		return "How much did you spend? Tell me the amount and I'll record it.", nil
	}
	cents, err := core.CentsFromFloat(*ent.Amount)
	if err != nil {
		return "That amount doesn't look right. Could you give me a positive number?", nil
	}

	description := strings.TrimSpace(ent.Description)
	if description == "" {
		return "What was the expense for?", nil
	}

	date := now
	if ent.TimeRange != "" {
		if start, _ := core.ParseTimeRange(ent.TimeRange, now); !start.IsZero() {
			date = start
		}
	}

	expense, err := r.expenses.Create(ctx, core.Expense{
		UserID:      userID,
		Amount:      core.Money{Cents: cents},
		Description: description,
		Category:    strings.TrimSpace(ent.Category),
		Date:        date,
	}, "chat")
	if err != nil {
		return "", fmt.Errorf("record expense: %w", err)
	}

	reply := fmt.Sprintf("Recorded %s for %s under %s.",
		expense.Amount.String(), expense.Description, expense.Category)

	alerts, err := r.budgets.Evaluate(ctx, expense)
	if err != nil {
		r.logger.ErrorContext(ctx, "budget evaluation failed",
			log.FieldUserID, userID,
			log.FieldError, err)
	}
	for _, alert := range alerts {
		reply += " " + alert
	}
	return reply, nil
}

func (r *Router) handleQuery(ctx context.Context, userID int64, result nlu.Result, now time.Time) (string, error) {
	ent := result.Entities
	start, end := core.ParseTimeRange(ent.TimeRange, now)
	rangeLabel := describeRange(ent.TimeRange)

	switch ent.QueryType {
	case nlu.QuerySearch:
		keyword := strings.TrimSpace(ent.Keyword)
		if keyword == "" {
			keyword = strings.TrimSpace(ent.Category)
		}
		if keyword == "" {
			return "What should I search for?", nil
		}
		expenses, err := r.expenses.Search(ctx, userID, keyword, start, end)
		if err != nil {
			return "", err
		}
		if len(expenses) == 0 {
			return fmt.Sprintf("No expenses matching %q %s.", keyword, rangeLabel), nil
		}
		return fmt.Sprintf("Found %d expenses matching %q %s:\n%s",
			len(expenses), keyword, rangeLabel, formatExpenseList(expenses, 10)), nil

	case nlu.QueryHighest:
		expenses, err := r.expenses.InRange(ctx, userID, start, end)
		if err != nil {
			return "", err
		}
		top := pickExtreme(expenses, func(a, b core.Expense) bool { return a.Amount.Cents > b.Amount.Cents })
		if top == nil {
			return fmt.Sprintf("No expenses recorded %s.", rangeLabel), nil
		}
		return fmt.Sprintf("Your biggest expense %s was %s for %s on %s.",
			rangeLabel, top.Amount.String(), top.Description, top.Date.Format("January 2")), nil

	case nlu.QueryLowest:
		expenses, err := r.expenses.InRange(ctx, userID, start, end)
		if err != nil {
			return "", err
		}
		low := pickExtreme(expenses, func(a, b core.Expense) bool { return a.Amount.Cents < b.Amount.Cents })
		if low == nil {
			return fmt.Sprintf("No expenses recorded %s.", rangeLabel), nil
		}
		return fmt.Sprintf("Your smallest expense %s was %s for %s on %s.",
			rangeLabel, low.Amount.String(), low.Description, low.Date.Format("January 2")), nil

	case nlu.QueryList:
		expenses, err := r.expenses.InRange(ctx, userID, start, end)
		if err != nil {
			return "", err
		}
		if len(expenses) == 0 {
			return fmt.Sprintf("No expenses recorded %s.", rangeLabel), nil
		}
		return fmt.Sprintf("Your expenses %s:\n%s", rangeLabel, formatExpenseList(expenses, 5)), nil

	case nlu.QueryTop:
		categories, err := r.expenses.TopCategories(ctx, userID, start, end, 5)
		if err != nil {
			return "", err
		}
		if len(categories) == 0 {
			return fmt.Sprintf("No expenses recorded %s.", rangeLabel), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Top categories %s:\n", rangeLabel)
		for i, c := range categories {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, c.Name, c.Amount.String())
		}
		return strings.TrimRight(b.String(), "\n"), nil

	default: // total
		if category := strings.TrimSpace(ent.Category); category != "" {
			total, err := r.repo.SumCategory(ctx, userID, category, start, end)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("You spent %s on %s %s.", total.String(), category, rangeLabel), nil
		}
		total, err := r.expenses.Total(ctx, userID, start, end)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("You spent %s %s.", total.String(), rangeLabel), nil
	}
}

func (r *Router) handleInsights(ctx context.Context, userID int64, result nlu.Result, now time.Time) (string, error) {
	start, end := core.ParseTimeRange(result.Entities.TimeRange, now)
	ins, err := r.insights.Insights(ctx, userID, start, end)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You spent %s %s.", core.FormatDollars(int64(ins.TotalSpent*100+0.5)), describeRange(result.Entities.TimeRange))
	if len(ins.TopCategories) > 0 {
		b.WriteString(" Top categories:")
		for _, c := range ins.TopCategories {
			fmt.Fprintf(&b, " %s (%s)", c.Category, core.FormatDollars(int64(c.Amount*100+0.5)))
		}
		b.WriteString(".")
	}
	for _, a := range ins.Anomalies {
		if a.Category == "system_error" {
			return "I couldn't analyze your spending right now, please try again later.", nil
		}
		fmt.Fprintf(&b, " Worth a look: %s (%s).", a.Description, a.Reason)
	}
	return b.String(), nil
}

func (r *Router) handleSummary(ctx context.Context, userID int64, result nlu.Result, now time.Time) (string, error) {
	start, end := core.ParseTimeRange(result.Entities.TimeRange, now)
	rangeLabel := describeRange(result.Entities.TimeRange)

	total, err := r.expenses.Total(ctx, userID, start, end)
	if err != nil {
		return "", err
	}
	categories, err := r.expenses.TopCategories(ctx, userID, start, end, 3)
	if err != nil {
		return "", err
	}
	statuses, err := r.budgets.StatusAll(ctx, userID)
	if err != nil {
		return "", err
	}
	expenses, err := r.expenses.InRange(ctx, userID, start, end)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's your summary %s: total spent %s.", rangeLabel, total.String())
	if len(categories) > 0 {
		b.WriteString(" Biggest categories:")
		for _, c := range categories {
			fmt.Fprintf(&b, " %s (%s)", c.Name, c.Amount.String())
		}
		b.WriteString(".")
	}
	if biggest := pickExtreme(expenses, func(a, c core.Expense) bool { return a.Amount.Cents > c.Amount.Cents }); biggest != nil {
		fmt.Fprintf(&b, " Biggest purchase: %s (%s).", biggest.Description, biggest.Amount.String())
	}
	if smallest := pickExtreme(expenses, func(a, c core.Expense) bool { return a.Amount.Cents < c.Amount.Cents }); smallest != nil && len(expenses) > 1 {
		fmt.Fprintf(&b, " Smallest: %s (%s).", smallest.Description, smallest.Amount.String())
	}
	for _, st := range statuses {
		if st.OverLimit {
			fmt.Fprintf(&b, " You're over your %s budget by %s.",
				st.Budget.Category, core.FormatDollars(-st.Remaining.Cents))
		} else {
			fmt.Fprintf(&b, " %s budget: %s left.",
				st.Budget.Category, st.Remaining.String())
		}
	}
	return b.String(), nil
}

func (r *Router) handleSuggestions(ctx context.Context, userID int64, result nlu.Result, now time.Time) (string, error) {
	start, end := core.ParseTimeRange(result.Entities.TimeRange, now)
	suggestions, err := r.insights.Suggestions(ctx, userID, start, end)
	if err != nil {
		return "I couldn't come up with suggestions right now, please try again later.", nil
	}
	return suggestions, nil
}

func (r *Router) handleGreeting(ctx context.Context, userID int64, result nlu.Result, now time.Time) (string, error) {
	return "Hi! Tell me about an expense, or ask me how much you've spent.", nil
}

func pickExtreme(expenses []core.Expense, better func(a, b core.Expense) bool) *core.Expense {
	if len(expenses) == 0 {
		return nil
	}
	best := expenses[0]
	for _, e := range expenses[1:] {
		if better(e, best) {
			best = e
		}
	}
	return &best
}

func formatExpenseList(expenses []core.Expense, limit int) string {
	var b strings.Builder
	for i, e := range expenses {
		if i == limit {
			fmt.Fprintf(&b, "...and %d more", len(expenses)-limit)
			break
		}
		fmt.Fprintf(&b, "- %s: %s (%s, %s)\n",
			e.Date.Format("Jan 2"), e.Description, e.Amount.String(), e.Category)
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeRange(timeRange string) string {
	timeRange = strings.TrimSpace(strings.ToLower(timeRange))
	if timeRange == "" {
		return "in the last 30 days"
	}
	switch timeRange {
	case "today", "yesterday":
		return timeRange
	}
	if strings.HasPrefix(timeRange, "this ") || strings.HasPrefix(timeRange, "last ") {
		return timeRange
	}
	return "for " + timeRange
}
