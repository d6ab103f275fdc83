package main

import (
	"fmt"
	"os"

	"github.com/aretw0/bindery"
	"github.com/aretw0/bindery/internal/presentation/tui"
	"github.com/aretw0/bindery/internal/script"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>",
	Short: "Replay a scripted session and print every notification",
	Long: `Loads the root document of a YAML script, registers its watches, applies its
steps in order and prints each notification the engine delivers.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := loggerFor(cmd)
		if err != nil {
			return err
		}
		maxDepth, _ := cmd.Flags().GetInt("max-depth")
		noColor, _ := cmd.Flags().GetBool("no-color")
		banner, _ := cmd.Flags().GetBool("banner")
		summary, _ := cmd.Flags().GetBool("summary")

		s, err := script.Load(args[0])
		if err != nil {
			return err
		}

		opts := []bindery.Option{bindery.WithLogger(logger)}
		if maxDepth > 0 {
			opts = append(opts, bindery.WithMaxDepth(maxDepth))
		}
		eng := bindery.New(opts...)

		out := cmd.OutOrStdout()
		tty := isTerminal(os.Stdout) && out == os.Stdout
		profile := termenv.Ascii
		if tty && !noColor {
			profile = termenv.ColorProfile()
		}
		if banner {
			tui.PrintBanner(out, profile)
		}

		printer := tui.NewEventPrinter(out, profile)
		if err := script.Run(eng, s, printer.Print); err != nil {
			return err
		}

		if !summary {
			return nil
		}
		stats, err := eng.Inspect(s.Owner)
		if err != nil {
			return err
		}
		md := tui.Summary(stats)
		if !tty || noColor {
			fmt.Fprint(out, "\n"+md)
			return nil
		}
		width, _, _ := term.GetSize(int(os.Stdout.Fd()))
		render, err := tui.NewRenderer(width)
		if err != nil {
			return err
		}
		rendered, err := render(md)
		if err != nil {
			return err
		}
		fmt.Fprint(out, rendered)
		return nil
	},
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().Bool("no-color", false, "Disable colored output")
	replayCmd.Flags().Bool("banner", false, "Print the banner before replaying")
	replayCmd.Flags().Bool("summary", false, "Print the index counters of the root after the replay")
}
