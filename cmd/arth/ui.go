package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"arthneeti/internal/game"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func startInput(name, stage, risk string) game.StartGameInput {
	return game.StartGameInput{
		DisplayName:  name,
		CareerStage:  strings.ToUpper(stage),
		RiskAppetite: strings.ToUpper(risk),
	}
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func promptFloat(label string, min float64) (float64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			printWarn("Enter a valid number.")
			continue
		}
		if v <= min {
			printWarn(fmt.Sprintf("Value must be > %.2f", min))
			continue
		}
		return v, nil
	}
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func renderSession(s game.SessionView) error {
	accent.Printf("\n== %s | MONTH %d/12 | LEVEL %d ==\n", strings.ToUpper(s.DisplayName), s.CurrentMonth, s.CurrentLevel)
	fmt.Printf("Cash:        %s\n", formatRupees(s.Wealth))
	fmt.Printf("Net Worth:   %s\n", colorizeRupees(s.NetWorth))
	fmt.Printf("Happiness:   %s\n", meter(s.Happiness, 100))
	fmt.Printf("Literacy:    %s\n", meter(s.Literacy, 100))
	fmt.Printf("Credit:      %d\n", s.CreditScore)
	fmt.Printf("Income:      %s/month (%s, %s)\n", formatRupees(s.MonthlyIncome), s.CareerStage, s.RiskAppetite)
	fmt.Printf("Lifelines:   %d\n", s.Lifelines)
	if s.Debt > 0 {
		danger.Printf("Debt:        %s\n", formatRupees(s.Debt))
		for _, l := range s.Loans {
			fmt.Printf("  - %-12s outstanding %s at %.1f%%/month\n", l.Type, formatRupees(l.Outstanding), l.MonthlyRate*100)
		}
	}
	if len(s.Expenses) > 0 {
		fmt.Println()
		accent.Println("Recurring Expenses")
		for _, e := range s.Expenses {
			if e.Cancelled {
				continue
			}
			fmt.Printf("  %-16s %s\n", e.Name, formatRupees(e.Amount))
		}
	}
	if !s.IsActive {
		fmt.Println()
		danger.Printf("GAME OVER: %s\n", s.EndReason)
		fmt.Printf("Persona: %s\n", s.Persona)
		if s.FinalReport != "" {
			fmt.Println()
			fmt.Println(s.FinalReport)
		}
	}
	fmt.Println()
	return nil
}

func renderCard(c game.CardView) error {
	if c.GameComplete {
		printSuccess("You've played through all twelve months. `arth status` shows your final report.")
		return nil
	}
	accent.Printf("\n== CARD #%d | %s | difficulty %d ==\n", c.CardID, c.Category, c.Difficulty)
	warn.Println(c.Title)
	fmt.Println(wordWrap(c.Description, 76))
	fmt.Println()
	for _, ch := range c.Choices {
		fmt.Printf("  [%d] %s\n", ch.ID, ch.Text)
	}
	fmt.Println()
	printInfo("`arth choose <id>` to commit, `arth skip`, `arth lifeline` or `arth advice`.")
	return nil
}

func renderTurn(t game.TurnResult) error {
	fmt.Println()
	if t.Skipped {
		printInfo("Card skipped.")
	} else if t.Feedback != "" {
		if t.WasRecommended {
			printSuccess(wordWrap(t.Feedback, 76))
		} else {
			printWarn(wordWrap(t.Feedback, 76))
		}
	}
	if t.MonthAdvanced {
		accent.Printf("\n-- month %d begins --\n", t.Session.CurrentMonth)
		for _, ev := range t.MonthEvents {
			fmt.Printf("  * %s\n", ev)
		}
	}
	if t.GameOver {
		danger.Printf("\nGAME OVER: %s\n", t.GameOverReason)
	}
	return renderSession(t.Session)
}

func renderLifeline(out game.LifelineResult, card game.CardView) error {
	accent.Println("\n== LIFELINE ==")
	texts := make(map[int64]string, len(card.Choices))
	for _, ch := range card.Choices {
		texts[ch.ID] = ch.Text
	}
	for _, h := range out.Hints {
		if h.IsRecommended {
			printSuccess(fmt.Sprintf("  [%d] %s  <- recommended", h.ChoiceID, texts[h.ChoiceID]))
		} else {
			fmt.Printf("  [%d] %s\n", h.ChoiceID, texts[h.ChoiceID])
		}
	}
	if out.AdvisorMessage != "" {
		fmt.Println()
		fmt.Println(wordWrap(out.AdvisorMessage, 76))
	}
	fmt.Printf("\nLifelines left: %d\n\n", out.LifelinesLeft)
	return nil
}

func renderMarket(m game.MarketView) error {
	accent.Printf("\n== MARKET | MONTH %d ==\n", m.Month)
	fmt.Printf("%-14s %12s %-6s %10s\n", "SECTOR", "PRICE", "TREND", "HELD")
	for _, name := range sortedKeys(m.Prices) {
		fmt.Printf("%-14s %12s %-6s %10.2f\n",
			name,
			formatRupees(m.Prices[name]),
			trendArrow(m.Trends[name]),
			m.Portfolio[name],
		)
	}

	if len(m.NAVs) > 0 {
		fmt.Println()
		accent.Println("Mutual Funds")
		fmt.Printf("%-10s %12s %10s\n", "CODE", "NAV", "UNITS")
		for _, code := range sortedKeys(m.NAVs) {
			fmt.Printf("%-10s %12s %10.2f\n", code, formatRupees(m.NAVs[code]), m.FundUnits[code])
		}
	}

	if len(m.IPOs) > 0 {
		fmt.Println()
		accent.Println("IPOs")
		for _, ipo := range m.IPOs {
			state := "closed"
			if ipo.Open {
				state = "OPEN"
			}
			fmt.Printf("  %-10s %-24s months %d-%d  %s\n", ipo.ID, ipo.Name, ipo.OpenMonth, ipo.CloseMonth, state)
		}
		for _, app := range m.Applied {
			fmt.Printf("  applied %-10s %s  status %s\n", app.IPOID, formatRupees(app.Amount), app.Status)
		}
	}

	if len(m.Futures) > 0 {
		fmt.Println()
		accent.Println("Open Shorts")
		for _, f := range m.Futures {
			fmt.Printf("  %-14s %8.2f units  entry %s  settles month %d\n", f.Sector, f.Units, formatRupees(f.EntryPrice), f.ExpiryMonth)
		}
	}
	fmt.Println()
	return nil
}

func renderTrade(action string, out game.TradeResult) error {
	name := out.Sector
	if name == "" {
		name = out.FundCode
	}
	accent.Printf("\n== %s %s ==\n", action, strings.ToUpper(name))
	fmt.Printf("Units:  %.4f\n", out.Units)
	fmt.Printf("Price:  %s\n", formatRupees(out.Price))
	fmt.Printf("Cash:   %s\n", formatRupees(out.Cash))
	fmt.Println()
	return nil
}

func renderProfile(p game.PlayerProfile) error {
	accent.Printf("\n== %s ==\n", strings.ToUpper(p.DisplayName))
	fmt.Printf("Games played:    %d (%d completed)\n", p.TotalGames, p.GamesCompleted)
	fmt.Printf("Best cash:       %s\n", formatRupees(p.HighestWealth))
	fmt.Printf("Best net worth:  %s\n", colorizeRupees(p.HighestNetWorth))
	fmt.Printf("Best credit:     %d\n", p.HighestCreditScore)
	fmt.Printf("Best happiness:  %d\n", p.HighestHappiness)
	fmt.Printf("Best literacy:   %d\n", p.HighestLiteracy)
	fmt.Printf("Best score:      %d\n", p.HighestScore)
	if len(p.Badges) > 0 {
		success.Printf("Badges:          %s\n", strings.Join(p.Badges, ", "))
	}
	fmt.Println()
	return nil
}

func renderLeaderboard(rows []game.LeaderboardRow) error {
	accent.Println("\n== LEADERBOARD ==")
	if len(rows) == 0 {
		printInfo("Nobody has finished a run yet.")
		return nil
	}
	fmt.Printf("%-6s %-18s %14s %10s %-20s %-12s %s\n", "RANK", "PLAYER", "NET WORTH", "SCORE", "PERSONA", "OUTCOME", "MONTHS")
	for _, row := range rows {
		fmt.Printf("%-6d %-18s %14s %10d %-20s %-12s %d\n",
			row.Rank,
			truncate(row.DisplayName, 18),
			formatRupees(row.NetWorth),
			row.Score,
			truncate(string(row.Persona), 20),
			row.EndReason,
			row.Months,
		)
	}
	fmt.Println()
	return nil
}

func colorizeRupees(v int64) string {
	text := formatRupees(v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

// formatRupees groups digits Indian style: ₹12,34,567.
func formatRupees(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return sign + "₹" + s
	}
	head := s[:len(s)-3]
	tail := s[len(s)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return sign + "₹" + strings.Join(groups, ",") + "," + tail
}

func meter(v, max int) string {
	if v < 0 {
		v = 0
	}
	if v > max {
		v = max
	}
	filled := v * 10 / max
	bar := strings.Repeat("#", filled) + strings.Repeat(".", 10-filled)
	text := fmt.Sprintf("[%s] %d/%d", bar, v, max)
	switch {
	case v*100 >= max*60:
		return success.Sprint(text)
	case v*100 >= max*30:
		return warn.Sprint(text)
	default:
		return danger.Sprint(text)
	}
}

func trendArrow(t int) string {
	switch {
	case t > 0:
		return success.Sprint("up")
	case t < 0:
		return danger.Sprint("down")
	default:
		return "flat"
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func wordWrap(s string, width int) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return s
	}
	var b strings.Builder
	lineLen := 0
	for i, w := range words {
		if i > 0 {
			if lineLen+1+len(w) > width {
				b.WriteByte('\n')
				lineLen = 0
			} else {
				b.WriteByte(' ')
				lineLen++
			}
		}
		b.WriteString(w)
		lineLen += len(w)
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
