package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "placer",
		Short: "Find collision-free orbits for new space stations",
		Long: `placer loads one or more star systems and computes where a new station can
orbit without coming too close to the star, a planet, a moon or another
station.

Two strategies are available:
  slot      deterministic radius at the midpoint of a safe gap between planet zones
  sampling  random positions in a band around the planets, first clear one wins

Examples:
  placer slots --system sol.yaml
  placer place --system sol.yaml --strategy slot --angle 90
  placer place-many --system sol.yaml --count 5 --seed 7
  placer validate --system sol.yaml --x 21 --y 0 --z 0
  placer audit --system sol.yaml --system vega.json --watch --interval 30s
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringArrayVar(&flags.systems, "system", nil, "star system file (.json, .yaml or .yml); repeatable")
	pf.StringVar(&flags.systemID, "id", "", "system ID to operate on (default: first loaded system)")
	pf.StringVar(&flags.configPath, "config", "", "YAML file overriding clearance constants")
	pf.Int64Var(&flags.seed, "seed", 0, "random seed for reproducible placements (0 = time-based)")

	root.AddCommand(
		newSlotsCmd(),
		newPlaceCmd(),
		newPlaceManyCmd(),
		newValidateCmd(),
		newDescribeCmd(),
		newAuditCmd(),
	)
	return root
}

// runWithApp adapts a command body that needs the wired app and releases it
// afterwards.
func runWithApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a := appFrom(cmd)
		if a == nil {
			return fmt.Errorf("placer: application not initialised")
		}
		defer a.close(context.Background())
		return fn(cmd, a, args)
	}
}
