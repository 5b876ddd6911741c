package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/faithful-dedup/corpus-dedup/minhash"
	"github.com/faithful-dedup/corpus-dedup/pipeline"
)

// hashConfigs maps --hashconfig to the named band/row schedules, matching
// the numbering of the original progressive_minhashing driver: 0 requires
// very high similarity to collide (b=20 r=450, Jaccard ~0.99), 1 trades
// recall for precision (b=20 r=40, Jaccard ~0.9), and 2 is the loosest,
// highest-recall schedule (b=20 r=10, Jaccard ~0.74).
var hashConfigs = []minhash.Config{
	minhash.ConfigTight,
	minhash.ConfigLoose,
	minhash.ConfigDefault,
}

func newCmd_Minhash() *cli.Command {
	return &cli.Command{
		Name:        "minhash",
		Description: "Computes MinHash-LSH bucket signatures for each document and writes them as a base64 minhashes field, for later consumption by the dedup subcommand.",
		ArgsUsage:   "[file]",
		Flags: []cli.Flag{
			FlagDirectory,
			FlagOutdir,
			FlagWorkers,
			FlagTextKey,
			&cli.IntFlag{
				Name:    "ngram",
				Aliases: []string{"n"},
				Usage:   "N-gram size used for shingling before hashing (overrides the n-gram size of --hashconfig)",
			},
			&cli.IntFlag{
				Name:    "hashconfig",
				Aliases: []string{"g"},
				Usage:   "Band/row schedule: 0=tight (b=20 r=450), 1=loose (b=20 r=40), 2=default (b=20 r=10)",
				Value:   0,
			},
			&cli.BoolFlag{
				Name:  "strip-text",
				Usage: "Remove the text field from annotated output documents",
			},
		},
		Action: func(c *cli.Context) error {
			files, err := resolveInputFiles(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if err := ensureOutdir(c.String("outdir")); err != nil {
				return cli.Exit(err.Error(), 1)
			}

			idx := c.Int("hashconfig")
			if idx < 0 || idx >= len(hashConfigs) {
				return cli.Exit(fmt.Sprintf("--hashconfig must be one of 0, 1, 2; got %d", idx), 1)
			}
			hc := hashConfigs[idx]
			if n := c.Int("ngram"); n > 0 {
				hc.N = n
			}

			cfg := pipeline.FuzzyConfig{
				TextKey:     c.String("text-key"),
				HashConfig:  hc,
				Workers:     uint(c.Uint("workers")),
				StripText:   c.Bool("strip-text"),
				VeryVerbose: c.Bool("very-verbose"),
			}

			klog.Infof("minhash: processing %d file(s) with %+v", len(files), hc)
			if err := pipeline.RunMinhash(c.Context, files, c.String("outdir"), cfg); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			klog.Info("minhash: done")
			return nil
		},
	}
}
