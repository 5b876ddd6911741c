package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/faithful-dedup/corpus-dedup/corpusio"
)

// FlagDirectory and FlagOutdir are shared between the minhash, dedup, and
// build subcommands: each accepts either a single input file as its
// positional argument or a directory of files via --directory.
var FlagDirectory = &cli.StringFlag{
	Name:    "directory",
	Aliases: []string{"d"},
	Usage:   "Directory of compressed JSONL files to process (mutually exclusive with a single file argument)",
}

var FlagOutdir = &cli.StringFlag{
	Name:     "outdir",
	Aliases:  []string{"o"},
	Usage:    "Output directory",
	Required: true,
}

var FlagWorkers = &cli.UintFlag{
	Name:    "workers",
	Aliases: []string{"w"},
	Usage:   "Number of concurrent per-document workers per file (0 = number of CPUs)",
}

var FlagTextKey = &cli.StringFlag{
	Name:    "text-key",
	Aliases: []string{"k"},
	Usage:   "JSON field holding the document text",
	Value:   "text",
}

// resolveInputFiles determines the set of input files for a subcommand from
// either --directory or a single positional file argument, mirroring the
// "one file or a directory of files" convention used throughout the corpus.
func resolveInputFiles(c *cli.Context) ([]string, error) {
	dir := c.String("directory")
	arg := c.Args().First()

	if dir != "" && arg != "" {
		return nil, fmt.Errorf("provide either --directory or a file argument, not both")
	}
	if dir != "" {
		isDir, err := isDirectory(dir)
		if err != nil {
			return nil, fmt.Errorf("--directory %q: %w", dir, err)
		}
		if !isDir {
			return nil, fmt.Errorf("--directory %q is not a directory", dir)
		}
		files, err := corpusio.EnumerateFiles(dir, corpusio.DefaultPatterns)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no files matching %v found in %q", corpusio.DefaultPatterns, dir)
		}
		return files, nil
	}
	if arg == "" {
		return nil, fmt.Errorf("provide --directory or a single file argument")
	}
	ok, err := isFile(arg)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", arg, err)
	}
	if !ok {
		return nil, fmt.Errorf("%q is not a file; use --directory for a directory", arg)
	}
	if !matchesAnyGlob(filepath.Base(arg), corpusio.DefaultPatterns) {
		return nil, fmt.Errorf("%q does not match any of %v; pass --directory for mixed input", arg, corpusio.DefaultPatterns)
	}
	return []string{arg}, nil
}

func ensureOutdir(path string) error {
	return os.MkdirAll(path, 0o755)
}
