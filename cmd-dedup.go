package main

import (
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/faithful-dedup/corpus-dedup/dedupstore"
	"github.com/faithful-dedup/corpus-dedup/minhash"
	"github.com/faithful-dedup/corpus-dedup/pipeline"
)

func newCmd_Dedup() *cli.Command {
	return &cli.Command{
		Name:        "dedup",
		Description: "Consumes files already carrying a minhashes field (from the minhash subcommand) and marks duplicates against a shared in-memory store.",
		ArgsUsage:   "[file]",
		Flags: []cli.Flag{
			FlagDirectory,
			FlagOutdir,
			FlagWorkers,
		},
		Action: func(c *cli.Context) error {
			files, err := resolveInputFiles(c)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			if err := ensureOutdir(c.String("outdir")); err != nil {
				return cli.Exit(err.Error(), 1)
			}

			// The band count is fixed at 20 across every --hashconfig
			// schedule (ConfigDefault/ConfigLoose/ConfigTight all use
			// B=20), so dedup doesn't need to know which schedule
			// minhash ran with.
			store := dedupstore.New(minhash.ConfigDefault.B, 0)
			cfg := pipeline.DedupConfig{
				Workers: uint(c.Uint("workers")),
			}

			klog.Infof("dedup: processing %d file(s)", len(files))
			if err := pipeline.RunDedup(c.Context, files, c.String("outdir"), store, cfg); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			klog.Infof("dedup: done, store holds %d distinct bucket signatures", store.Len())
			return nil
		},
	}
}
