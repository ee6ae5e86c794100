package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "arthneeti/internal/cli"
	"arthneeti/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()

	root := &cobra.Command{
		Use:          "arth",
		Short:        "Arth-Neeti: a 12-month financial survival game",
		SilenceUsage: true,
	}

	root.AddCommand(
		newStartCmd(&cfg),
		newStatusCmd(&cfg),
		newCardCmd(&cfg),
		newChooseCmd(&cfg),
		newSkipCmd(&cfg),
		newLifelineCmd(&cfg),
		newLoanCmd(&cfg),
		newMarketCmd(&cfg),
		newBuyCmd(&cfg),
		newSellCmd(&cfg),
		newInvestCmd(&cfg),
		newRedeemCmd(&cfg),
		newIPOCmd(&cfg),
		newShortCmd(&cfg),
		newAdviceCmd(&cfg),
		newProfileCmd(&cfg),
		newLeaderboardCmd(&cfg),
		newQuitCmd(&cfg),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(cfg *config.CLIConfig) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/"))
}

func requestCtx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func currentSession(cfg *config.CLIConfig) (cl.Session, error) {
	sess, err := cl.LoadSession(cfg.SessionFile)
	if err != nil {
		return cl.Session{}, err
	}
	return sess, nil
}

func newStartCmd(cfg *config.CLIConfig) *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new 12-month run",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := promptRequired("Your name")
			if err != nil {
				return err
			}
			stage, err := promptChoice("Career stage", []string{"student", "fresher", "professional", "business_owner"}, "fresher")
			if err != nil {
				return err
			}
			risk, err := promptChoice("Risk appetite", []string{"low", "medium", "high"}, "medium")
			if err != nil {
				return err
			}

			ctx, cancel := requestCtx(cmd)
			defer cancel()
			out, err := newClient(cfg).StartGame(ctx, startInput(name, stage, risk))
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cfg.SessionFile, cl.Session{
				GameID:      out.ID,
				DisplayName: out.DisplayName,
				Language:    strings.ToLower(strings.TrimSpace(lang)),
			}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Game started for %s. Run `arth card` to draw your first card.", out.DisplayName))
			return renderSession(out)
		},
	}
	cmd.Flags().StringVar(&lang, "lang", cfg.Language, "card language: en, hi or mr")
	return cmd
}

func newStatusCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show your current finances",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := currentSession(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			out, err := newClient(cfg).Session(ctx, sess.GameID)
			if err != nil {
				return err
			}
			return renderSession(out)
		},
	}
}

func newCardCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "card",
		Short: "Draw (or re-show) this turn's scenario card",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := currentSession(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			out, err := newClient(cfg).Card(ctx, sess.GameID, sess.Language)
			if err != nil {
				return err
			}
			return renderCard(out)
		},
	}
}

func newChooseCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "choose [choice_id]",
		Short: "Commit to a choice on the current card",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := currentSession(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			client := newClient(cfg)

			card, err := client.Card(ctx, sess.GameID, sess.Language)
			if err != nil {
				return err
			}
			if card.GameComplete {
				printInfo("The run is over. `arth status` shows your final report.")
				return nil
			}
			choiceID, err := int64FromArgOrPrompt(args, 0, "Choice ID")
			if err != nil {
				return err
			}
			out, err := client.Choose(ctx, sess.GameID, sess.Language, card.CardID, choiceID)
			if err != nil {
				return err
			}
			return renderTurn(out)
		},
	}
}

func newSkipCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "skip",
		Short: "Skip the current card without any impact",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := currentSession(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			client := newClient(cfg)

			card, err := client.Card(ctx, sess.GameID, sess.Language)
			if err != nil {
				return err
			}
			if card.GameComplete {
				printInfo("The run is over.")
				return nil
			}
			out, err := client.Skip(ctx, sess.GameID, card.CardID)
			if err != nil {
				return err
			}
			return renderTurn(out)
		},
	}
}

func newLifelineCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "lifeline",
		Short: "Spend a lifeline to reveal the recommended choice",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := currentSession(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			client := newClient(cfg)

			card, err := client.Card(ctx, sess.GameID, sess.Language)
			if err != nil {
				return err
			}
			if card.GameComplete {
				printInfo("The run is over.")
				return nil
			}
			out, err := client.Lifeline(ctx, sess.GameID, sess.Language, card.CardID)
			if err != nil {
				return err
			}
			return renderLifeline(out, card)
		},
	}
}

func newLoanCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "loan [family|instant_app|bank]",
		Short: "Take a loan",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := currentSession(cfg)
			if err != nil {
				return err
			}
			var loanType string
			if len(args) > 0 {
				loanType = strings.ToLower(strings.TrimSpace(args[0]))
			} else {
				loanType, err = promptChoice("Loan type", []string{"family", "instant_app", "bank"}, "family")
				if err != nil {
					return err
				}
			}
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			out, err := newClient(cfg).TakeLoan(ctx, sess.GameID, loanType)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("%s loan credited: %s", out.LoanType, formatRupees(out.Amount)))
			return renderSession(out.Session)
		},
	}
}

func newMarketCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "Show sector prices, funds, IPOs and your holdings",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := currentSession(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			out, err := newClient(cfg).Market(ctx, sess.GameID, sess.Language)
			if err != nil {
				return err
			}
			return renderMarket(out)
		},
	}
}

func newBuyCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "buy [sector] [amount]",
		Short: "Buy sector stock for a rupee amount",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := currentSession(cfg)
			if err != nil {
				return err
			}
			sector, err := stringFromArgOrPrompt(args, 0, "Sector")
			if err != nil {
				return err
			}
			amount, err := int64FromArgOrPrompt(args, 1, "Amount (₹)")
			if err != nil {
				return err
			}
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			out, err := newClient(cfg).BuyStock(ctx, sess.GameID, sector, amount)
			if err != nil {
				return err
			}
			return renderTrade("BOUGHT", out)
		},
	}
}

func newSellCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "sell [sector] [units]",
		Short: "Sell sector stock units",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := currentSession(cfg)
			if err != nil {
				return err
			}
			sector, err := stringFromArgOrPrompt(args, 0, "Sector")
			if err != nil {
				return err
			}
			units, err := floatFromArgOrPrompt(args, 1, "Units")
			if err != nil {
				return err
			}
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			out, err := newClient(cfg).SellStock(ctx, sess.GameID, sector, units)
			if err != nil {
				return err
			}
			return renderTrade("SOLD", out)
		},
	}
}

func newInvestCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "invest [fund] [amount]",
		Short: "Invest a rupee amount into a mutual fund",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := currentSession(cfg)
			if err != nil {
				return err
			}
			code, err := stringFromArgOrPrompt(args, 0, "Fund code")
			if err != nil {
				return err
			}
			amount, err := int64FromArgOrPrompt(args, 1, "Amount (₹)")
			if err != nil {
				return err
			}
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			out, err := newClient(cfg).InvestFund(ctx, sess.GameID, strings.ToUpper(code), amount)
			if err != nil {
				return err
			}
			return renderTrade("INVESTED", out)
		},
	}
}

func newRedeemCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "redeem [fund] [units]",
		Short: "Redeem mutual fund units",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := currentSession(cfg)
			if err != nil {
				return err
			}
			code, err := stringFromArgOrPrompt(args, 0, "Fund code")
			if err != nil {
				return err
			}
			units, err := floatFromArgOrPrompt(args, 1, "Units")
			if err != nil {
				return err
			}
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			out, err := newClient(cfg).RedeemFund(ctx, sess.GameID, strings.ToUpper(code), units)
			if err != nil {
				return err
			}
			return renderTrade("REDEEMED", out)
		},
	}
}

func newIPOCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "ipo [ipo_id] [amount]",
		Short: "Apply to an open IPO",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := currentSession(cfg)
			if err != nil {
				return err
			}
			ipoID, err := stringFromArgOrPrompt(args, 0, "IPO ID")
			if err != nil {
				return err
			}
			amount, err := int64FromArgOrPrompt(args, 1, "Amount (₹)")
			if err != nil {
				return err
			}
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			out, err := newClient(cfg).ApplyIPO(ctx, sess.GameID, ipoID, amount)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Applied %s to IPO %s. Result lands after the window closes.", formatRupees(amount), strings.ToUpper(ipoID)))
			return renderSession(out)
		},
	}
}

func newShortCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "short [sector] [units] [months]",
		Short: "Open a short futures position on a sector",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := currentSession(cfg)
			if err != nil {
				return err
			}
			sector, err := stringFromArgOrPrompt(args, 0, "Sector")
			if err != nil {
				return err
			}
			units, err := floatFromArgOrPrompt(args, 1, "Units")
			if err != nil {
				return err
			}
			months, err := int64FromArgOrPrompt(args, 2, "Duration (months)")
			if err != nil {
				return err
			}
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			out, err := newClient(cfg).OpenFutures(ctx, sess.GameID, sector, units, int(months))
			if err != nil {
				return err
			}
			p := out.Position
			printSuccess(fmt.Sprintf("Short %s: %.2f units at %s, settles month %d.", p.Sector, p.Units, formatRupees(p.EntryPrice), p.ExpiryMonth))
			return renderSession(out.Session)
		},
	}
}

func newAdviceCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "advice",
		Short: "Ask the advisor about the current card",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := currentSession(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			client := newClient(cfg)

			card, err := client.Card(ctx, sess.GameID, sess.Language)
			if err != nil {
				return err
			}
			if card.GameComplete {
				printInfo("The run is over.")
				return nil
			}
			out, err := client.Advice(ctx, sess.GameID, sess.Language, card.CardID)
			if err != nil {
				return err
			}
			accent.Printf("\n== ADVISOR (%s) ==\n", out.Source)
			fmt.Println(wordWrap(out.Message, 76))
			fmt.Println()
			return nil
		},
	}
}

func newProfileCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "profile [name]",
		Short: "Show a player's cross-game bests and badges",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) > 0 {
				name = strings.TrimSpace(args[0])
			} else {
				sess, err := currentSession(cfg)
				if err != nil {
					return err
				}
				name = sess.DisplayName
			}
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			out, err := newClient(cfg).Profile(ctx, name)
			if err != nil {
				return err
			}
			return renderProfile(out)
		},
	}
}

func newLeaderboardCmd(cfg *config.CLIConfig) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show finished-game rankings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestCtx(cmd)
			defer cancel()
			rows, err := newClient(cfg).Leaderboard(ctx, limit)
			if err != nil {
				return err
			}
			return renderLeaderboard(rows)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of rows")
	return cmd
}

func newQuitCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "quit",
		Short: "Forget the locally saved game pointer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(cfg.SessionFile); err != nil {
				return err
			}
			printSuccess("Local game pointer cleared.")
			return nil
		},
	}
}

func stringFromArgOrPrompt(args []string, idx int, label string) (string, error) {
	if len(args) > idx {
		v := strings.TrimSpace(args[idx])
		if v == "" {
			return "", fmt.Errorf("invalid %s", strings.ToLower(label))
		}
		return v, nil
	}
	return promptRequired(label)
}

func int64FromArgOrPrompt(args []string, idx int, label string) (int64, error) {
	if len(args) > idx {
		v, err := strconv.ParseInt(strings.TrimSpace(args[idx]), 10, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("invalid %s", strings.ToLower(label))
		}
		return v, nil
	}
	return promptInt64(label, 1)
}

func floatFromArgOrPrompt(args []string, idx int, label string) (float64, error) {
	if len(args) > idx {
		v, err := strconv.ParseFloat(strings.TrimSpace(args[idx]), 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("invalid %s", strings.ToLower(label))
		}
		return v, nil
	}
	return promptFloat(label, 0)
}
