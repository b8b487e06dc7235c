// Command abstractor trains and queries the hierarchical card abstraction
// that cmd/poker-solver's --abstraction-dir flag consumes. It runs the
// four-stage pipeline spec.md describes: River buckets by raw equity, then
// Turn and Flop each cluster the street below via Layer's k-means++, and
// Preflop enumerates its canonical classes without clustering, persisting
// an Encoder and Metric per street as it goes.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/behrlich/poker-solver/pkg/abstraction"
	"github.com/behrlich/poker-solver/pkg/cards"
	"github.com/behrlich/poker-solver/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "abstractor",
		Short: "Trains and queries the poker-solver hierarchical card abstraction",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Training config YAML (empty = defaults)")

	root.AddCommand(newRiverCmd(&configPath))
	root.AddCommand(newClusterCmd(&configPath))
	root.AddCommand(newQueryCmd(&configPath))
	return root
}

func loadConfig(path string) (*config.TrainingConfig, error) {
	if path == "" {
		return config.DefaultTrainingConfig(), nil
	}
	return config.LoadTrainingConfig(path)
}

func newRiverCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "river",
		Short: "Build the River equity-bucket encoder and metric",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			runID := uuid.New()
			slog.Info("river: starting", "run_id", runID, "artifact_dir", cfg.ArtifactDir)

			isos := cards.EnumerateIsomorphisms(cards.River)
			slog.Info("river: enumerated isomorphisms", "run_id", runID, "count", len(isos))

			enc, err := abstraction.BuildRiverEncoder(isos)
			if err != nil {
				return fmt.Errorf("river: building encoder: %w", err)
			}
			metric, err := abstraction.BuildRiverMetric(enc)
			if err != nil {
				return fmt.Errorf("river: building metric: %w", err)
			}

			if err := os.MkdirAll(cfg.ArtifactDir, 0o755); err != nil {
				return fmt.Errorf("river: preparing artifact dir: %w", err)
			}
			if err := enc.Save(abstraction.EncoderPath(cfg.ArtifactDir, cards.River)); err != nil {
				return err
			}
			if err := metric.Save(abstraction.MetricPath(cfg.ArtifactDir, cards.River)); err != nil {
				return err
			}
			sidecar, err := abstraction.BuildSidecar(enc, metric)
			if err != nil {
				return fmt.Errorf("river: building sidecar: %w", err)
			}
			if err := sidecar.Save(abstraction.SidecarPath(cfg.ArtifactDir, cards.River)); err != nil {
				return err
			}
			slog.Info("river: done", "run_id", runID, "buckets", enc.Len())
			return nil
		},
	}
}

func newClusterCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cluster <preflop|flop|turn>",
		Short: "Cluster a street against its already-trained child street",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			runID := uuid.New()

			if args[0] == "preflop" {
				return clusterPreflop(cfg, runID)
			}

			var street cards.Street
			switch args[0] {
			case "flop":
				street = cards.Flop
			case "turn":
				street = cards.Turn
			default:
				return fmt.Errorf("cluster: unknown street %q (want preflop, flop, or turn)", args[0])
			}
			layerCfg, err := cfg.LayerConfig(args[0])
			if err != nil {
				return err
			}

			childStreet := street.Next()
			nextEnc, err := abstraction.LoadEncoder(abstraction.EncoderPath(cfg.ArtifactDir, childStreet), childStreet)
			if err != nil {
				return fmt.Errorf("cluster: loading %s encoder: %w", childStreet, err)
			}
			childBasis := make([]abstraction.Abstraction, 0)
			for _, iso := range nextEnc.Isomorphisms() {
				a, err := nextEnc.Encode(iso)
				if err != nil {
					return err
				}
				childBasis = append(childBasis, a)
			}
			childMetric, err := abstraction.LoadMetric(abstraction.MetricPath(cfg.ArtifactDir, childStreet), childStreet, childBasis)
			if err != nil {
				return fmt.Errorf("cluster: loading %s metric: %w", childStreet, err)
			}

			slog.Info("cluster: enumerating", "run_id", runID, "street", street)
			points := cards.EnumerateIsomorphisms(street)
			slog.Info("cluster: starting layer", "run_id", runID, "street", street,
				"points", len(points), "clusters", layerCfg.Clusters, "iterations", layerCfg.Iterations)

			layer, err := abstraction.NewLayer(street, points, nextEnc, childMetric, layerCfg)
			if err != nil {
				return err
			}
			enc, metric, err := layer.Cluster()
			if err != nil {
				return fmt.Errorf("cluster: %w", err)
			}

			if err := enc.Save(abstraction.EncoderPath(cfg.ArtifactDir, street)); err != nil {
				return err
			}
			if err := metric.Save(abstraction.MetricPath(cfg.ArtifactDir, street)); err != nil {
				return err
			}
			sidecar, err := abstraction.BuildSidecar(enc, metric)
			if err != nil {
				return fmt.Errorf("cluster: building sidecar: %w", err)
			}
			if err := sidecar.Save(abstraction.SidecarPath(cfg.ArtifactDir, street)); err != nil {
				return err
			}
			slog.Info("cluster: done", "run_id", runID, "street", street, "clusters", enc.Len())
			return nil
		},
	}
}

// clusterPreflop builds the Preflop encoder (enumerated, not k-means) and
// derives its metric by projecting each of the 169 classes onto the
// already-trained Flop encoder/metric, the same EMD-averaging Layer uses to
// derive every other street's metric.
func clusterPreflop(cfg *config.TrainingConfig, runID uuid.UUID) error {
	flopEnc, err := abstraction.LoadEncoder(abstraction.EncoderPath(cfg.ArtifactDir, cards.Flop), cards.Flop)
	if err != nil {
		return fmt.Errorf("cluster: loading flop encoder: %w", err)
	}
	flopBasis := make([]abstraction.Abstraction, 0, flopEnc.Len())
	for _, iso := range flopEnc.Isomorphisms() {
		a, err := flopEnc.Encode(iso)
		if err != nil {
			return err
		}
		flopBasis = append(flopBasis, a)
	}
	flopMetric, err := abstraction.LoadMetric(abstraction.MetricPath(cfg.ArtifactDir, cards.Flop), cards.Flop, flopBasis)
	if err != nil {
		return fmt.Errorf("cluster: loading flop metric: %w", err)
	}

	slog.Info("cluster: building preflop encoder", "run_id", runID)
	enc, err := abstraction.BuildPreflopEncoder()
	if err != nil {
		return fmt.Errorf("cluster: building preflop encoder: %w", err)
	}
	metric, err := abstraction.BuildPreflopMetric(enc, flopEnc, flopMetric)
	if err != nil {
		return fmt.Errorf("cluster: building preflop metric: %w", err)
	}

	if err := enc.Save(abstraction.EncoderPath(cfg.ArtifactDir, cards.Preflop)); err != nil {
		return err
	}
	if err := metric.Save(abstraction.MetricPath(cfg.ArtifactDir, cards.Preflop)); err != nil {
		return err
	}
	sidecar, err := abstraction.BuildSidecar(enc, metric)
	if err != nil {
		return fmt.Errorf("cluster: building sidecar: %w", err)
	}
	if err := sidecar.Save(abstraction.SidecarPath(cfg.ArtifactDir, cards.Preflop)); err != nil {
		return err
	}
	slog.Info("cluster: done", "run_id", runID, "street", cards.Preflop, "classes", enc.Len())
	return nil
}

func newQueryCmd(configPath *string) *cobra.Command {
	var streetFlag string
	var limit int

	cmd := &cobra.Command{
		Use:   "query <equity|nearby> <abstraction-index>",
		Short: "Answer a single ad-hoc question against a trained street",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			var street cards.Street
			switch streetFlag {
			case "preflop":
				street = cards.Preflop
			case "flop":
				street = cards.Flop
			case "turn":
				street = cards.Turn
			case "river":
				street = cards.River
			default:
				return fmt.Errorf("query: unknown --street %q", streetFlag)
			}

			enc, err := abstraction.LoadEncoder(abstraction.EncoderPath(cfg.ArtifactDir, street), street)
			if err != nil {
				return err
			}

			var index int
			if _, err := fmt.Sscanf(args[1], "%d", &index); err != nil {
				return fmt.Errorf("query: parsing abstraction index %q: %w", args[1], err)
			}
			abs := abstraction.NewLearnedAbstraction(street, index)
			if street == cards.River {
				abs = abstraction.NewEquityAbstraction(index)
			}

			switch args[0] {
			case "equity":
				if street != cards.River {
					return fmt.Errorf("query: equity is only directly defined on river; use the river bucket index")
				}
				e := float64(abs.Index()) / 100.0
				fmt.Printf("%.4f\n", e)
			case "nearby":
				basis := make([]abstraction.Abstraction, 0, enc.Len())
				for _, iso := range enc.Isomorphisms() {
					a, err := enc.Encode(iso)
					if err != nil {
						return err
					}
					basis = append(basis, a)
				}
				metric, err := abstraction.LoadMetric(abstraction.MetricPath(cfg.ArtifactDir, street), street, basis)
				if err != nil {
					return err
				}
				neighbors := metric.Nearby(abs)
				if limit > 0 && limit < len(neighbors) {
					neighbors = neighbors[:limit]
				}
				for _, n := range neighbors {
					fmt.Printf("%v\t%.6f\n", n.Abstraction, n.Distance)
				}
			default:
				return fmt.Errorf("query: unknown mode %q (want equity or nearby)", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&streetFlag, "street", "river", "Street to query (preflop, flop, turn, river)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Max rows for nearby")
	return cmd
}
