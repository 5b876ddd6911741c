package main

import (
	"github.com/klauspost/compress/zstd"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/faithful-dedup/corpus-dedup/pipeline"
)

func newCmd_Build() *cli.Command {
	return &cli.Command{
		Name:        "build",
		Description: "Builds a suffix array over the concatenated document texts of a corpus for exact-substring deduplication.",
		ArgsUsage:   "[file]",
		Flags: []cli.Flag{
			FlagDirectory,
			FlagOutdir,
			FlagTextKey,
			&cli.BoolFlag{
				Name:    "tokenize",
				Aliases: []string{"t"},
				Usage:   "Build the suffix array over pre-tokenized token ids instead of raw bytes (requires --vocab)",
			},
			&cli.StringFlag{
				Name:    "vocab",
				Aliases: []string{"b"},
				Usage:   "Path to the vocabulary JSON used to tokenize the corpus (required with --tokenize)",
			},
			&cli.BoolFlag{
				Name:    "codepoint",
				Aliases: []string{"c"},
				Usage:   "Record that token ids were derived from Unicode codepoints rather than a subword vocabulary",
			},
			&cli.IntFlag{
				Name:    "zstd-level",
				Aliases: []string{"z"},
				Usage:   "zstd compression level for the safetensors payload (1=fastest .. 4=best compression)",
				Value:   int(zstd.SpeedDefault),
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

			if c.Bool("tokenize") && c.String("vocab") == "" {
				return cli.Exit("--tokenize requires --vocab", 1)
			}

			cfg := pipeline.ExactConfig{
				TextKey:       c.String("text-key"),
				Tokenize:      c.Bool("tokenize"),
				UseCodepoint:  c.Bool("codepoint"),
				VocabFilename: c.String("vocab"),
				ZstdLevel:     zstd.EncoderLevel(c.Int("zstd-level")),
			}

			klog.Infof("build: processing %d file(s), tokenize=%v", len(files), cfg.Tokenize)
			if err := pipeline.RunExact(c.Context, files, c.String("outdir"), cfg); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			klog.Info("build: done")
			return nil
		},
	}
}
