package game

import (
	"fmt"
	"strings"
)

// buildReport renders the end-of-game summary. It is deterministic in the
// session state so reloading never changes a finished report.
func buildReport(s *Session) string {
	persona := PersonaFor(s.Literacy)
	var b strings.Builder

	fmt.Fprintf(&b, "# Your Financial Journey\n\n")
	fmt.Fprintf(&b, "**Persona:** %s\n\n", persona)
	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "- Outcome: %s after %d month(s)\n", endReasonLabel(s.EndReason), monthsPlayed(s))
	fmt.Fprintf(&b, "- Final wealth: ₹%d (net worth ₹%d)\n", s.Wealth, s.NetWorth())
	fmt.Fprintf(&b, "- Happiness: %d/100 · Credit score: %d · Financial literacy: %d/100\n", s.Happiness, s.CreditScore, s.Literacy)
	if debt := s.Debt(); debt > 0 {
		fmt.Fprintf(&b, "- Outstanding debt: ₹%d\n", debt)
	}
	if len(s.Futures) > 0 {
		fmt.Fprintf(&b, "- Open futures positions left unsettled: %d\n", len(s.Futures))
	}

	fmt.Fprintf(&b, "\n## Highlights\n\n")
	for _, line := range lastN(s.GameplayLog, 6) {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	fmt.Fprintf(&b, "\n## Watch Out For\n\n")
	for _, r := range riskNotes(s) {
		fmt.Fprintf(&b, "- %s\n", r)
	}

	fmt.Fprintf(&b, "\n## Recommendations\n\n")
	for _, r := range recommendations(s, persona) {
		fmt.Fprintf(&b, "- %s\n", r)
	}

	return b.String()
}

func monthsPlayed(s *Session) int {
	if s.CurrentMonth > GameDurationMonths {
		return GameDurationMonths
	}
	return s.CurrentMonth
}

func endReasonLabel(r EndReason) string {
	switch r {
	case EndCompleted:
		return "Completed the full year"
	case EndBankruptcy:
		return "Went bankrupt"
	case EndBurnout:
		return "Burned out"
	case EndAbandoned:
		return "Walked away"
	}
	return string(r)
}

func lastN(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

func riskNotes(s *Session) []string {
	var notes []string
	if s.Debt() > s.Wealth && s.Debt() > 0 {
		notes = append(notes, "Debt exceeds cash on hand. Interest compounds faster than salaries grow.")
	}
	if s.CreditScore < 600 {
		notes = append(notes, "A credit score under 600 locks you out of cheap formal credit.")
	}
	if s.hasLoan(LoanInstant) {
		notes = append(notes, "Instant loan apps charge predatory rates and leak your data.")
	}
	if len(s.Portfolio) == 0 && len(s.FundUnits) == 0 {
		notes = append(notes, "All cash, no investments: inflation quietly taxes idle money.")
	}
	if len(notes) == 0 {
		notes = append(notes, "No major red flags. Keep the emergency fund topped up.")
	}
	return notes
}

func recommendations(s *Session, p Persona) []string {
	var recs []string
	switch p {
	case PersonaWarrenBuffett:
		recs = append(recs, "You understand money. Start teaching someone who doesn't.")
	case PersonaCautiousSaver:
		recs = append(recs, "Solid habits. Let a slice of savings take measured equity risk.")
	case PersonaBalancedSpend:
		recs = append(recs, "Good instincts. Automate a SIP so the balance survives busy months.")
	case PersonaYOLOEnthusiast:
		recs = append(recs, "Fun now is fine, but pay your future self first: save before you spend.")
	case PersonaFOMOVictim:
		recs = append(recs, "Pause before every purchase and every 'opportunity'. If it's urgent, it's usually a trap.")
	}
	if s.Happiness < 40 {
		recs = append(recs, "Money guilt burned you out. Budget a little joy, it's cheaper than burnout.")
	}
	if s.CreditScore >= 750 {
		recs = append(recs, "Your credit score is an asset. Guard it like one.")
	}
	return recs
}
