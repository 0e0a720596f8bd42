package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/alphapredict/internal/auth"
	"github.com/seenimoa/alphapredict/internal/render"
)

// --- Lookup Command ---

var lookupCmd = &cobra.Command{
	Use:   "lookup [ticker]",
	Short: "Look up a stock and print its info panel and AI insight",
	Long: `Runs the same lookup the dashboard does and prints the result.
In subscription mode pass --email and --password; the password can also be
supplied through ALPHAPREDICT_PASSWORD.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		sess := auth.NewSession()
		if a.gate != nil {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password = os.Getenv("ALPHAPREDICT_PASSWORD")
			}
			if err := a.gate.Submit(ctx, sess, email, password); err != nil {
				var ae *auth.AuthError
				if errors.As(err, &ae) {
					return fmt.Errorf("login: %s", ae.Message())
				}
				return fmt.Errorf("login: %w", err)
			}
			fmt.Printf("Welcome %s (%s)\n\n", sess.DisplayName(), sess.Tier())
		}

		page, err := a.dash.Refresh(ctx, sess, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("📈 %s\n", page.Ticker)
		for _, f := range page.Fields {
			fmt.Printf("  %-20s %s\n", f.Label+":", f.Value)
		}
		fmt.Printf("  %-20s %d\n", "Bars today:", page.Series.Len())
		if len(page.Snapshot.Headlines) > 0 {
			fmt.Println("\n  Headlines:")
			for _, h := range page.Snapshot.Headlines {
				fmt.Printf("    • %s\n", h.Title)
			}
		}

		fmt.Println("\nAI Insights")
		switch {
		case page.InsightError != "":
			fmt.Println("  " + page.InsightError)
		default:
			for _, p := range page.Insight {
				fmt.Println(p)
				fmt.Println()
			}
		}

		if path, _ := cmd.Flags().GetString("chart"); path != "" {
			if err := os.WriteFile(path, []byte(page.ChartSVG), 0o644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			fmt.Printf("Chart written to %s (%s)\n", path, render.ChartCaption)
		}
		fmt.Println(render.Footer)
		return nil
	},
}

func init() {
	lookupCmd.Flags().String("email", "", "login email (subscription mode)")
	lookupCmd.Flags().String("password", "", "login password (subscription mode)")
	lookupCmd.Flags().String("chart", "", "write the candlestick chart SVG to this file")
	lookupCmd.Flags().Duration("timeout", 2*time.Minute, "overall lookup timeout")
}
