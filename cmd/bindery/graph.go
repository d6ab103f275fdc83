package main

import (
	"fmt"

	"github.com/aretw0/bindery"
	"github.com/aretw0/bindery/internal/presentation/graph"
	"github.com/aretw0/bindery/internal/script"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <script.yaml>",
	Short: "Replay a script and print its final root as a Mermaid flowchart",
	Long: `Replays the script without printing notifications, then renders the final root.
Identifiers still watched at the end are highlighted, and so is the target of
the last step.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := loggerFor(cmd)
		if err != nil {
			return err
		}
		s, err := script.Load(args[0])
		if err != nil {
			return err
		}

		eng := bindery.New(bindery.WithLogger(logger))
		events, err := script.Collect(eng, s)
		if err != nil {
			return err
		}

		m, ok := eng.Registry().Lookup(s.Owner)
		if !ok {
			return fmt.Errorf("context %q was disposed by the script", s.Owner)
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(s.Owner, m.Root(), overlayFor(s, events)))
		return nil
	},
}

// overlayFor derives the watches left live after the replay and the
// identifier touched last.
func overlayFor(s *script.Script, events []script.Event) *graph.GraphOverlay {
	live := make(map[string]bool, len(s.Watches))
	for _, w := range s.Watches {
		live[w.Name] = true
	}
	for _, e := range events {
		switch e.Kind {
		case script.EventUnwatch:
			live[e.Watch] = false
		case script.EventDispose:
			for _, w := range s.Watches {
				if w.Owner == e.Path {
					live[w.Name] = false
				}
			}
		}
	}

	overlay := &graph.GraphOverlay{}
	for _, w := range s.Watches {
		if live[w.Name] {
			overlay.Watched = append(overlay.Watched, w.Path)
		}
	}
	for i := len(s.Steps) - 1; i >= 0; i-- {
		if p := s.Steps[i].Path; p != "" {
			overlay.Current = p
			break
		}
	}
	return overlay
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
