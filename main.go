package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ntdkhiem/huffman-compression-platform/compression"
	"github.com/ntdkhiem/huffman-compression-platform/internal/common"
)

var errUsage = errors.New("usage: huffman [-decode] [-output path] [-glob pattern] [file]")

type options struct {
	decode bool
	output string
	glob   string
	args   []string
}

// inputs resolves the files to process from the positional argument or the
// -glob pattern.
func inputs(opts options) ([]string, error) {
	if opts.glob == "" {
		if len(opts.args) != 1 {
			return nil, errUsage
		}
		return opts.args, nil
	}
	if len(opts.args) != 0 || opts.output != "" {
		return nil, fmt.Errorf("%w: -glob takes no file and no -output", errUsage)
	}
	matches, err := doublestar.FilepathGlob(opts.glob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", opts.glob, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files match %q", opts.glob)
	}
	return matches, nil
}

func run(opts options) error {
	files, err := inputs(opts)
	if err != nil {
		return err
	}

	for _, in := range files {
		out := opts.output
		if out == "" {
			out = common.OutputName(in, opts.decode)
		}

		if opts.decode {
			err = compression.DecompressFile(in, out)
		} else {
			err = compression.CompressFile(in, out)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", in, err)
		}
		slog.Info("File written successfully", "input", in, "output", out, "decode", opts.decode)
	}
	return nil
}

func main() {
	decompFlagPtr := flag.Bool("decode", false, "decompress instead of compress")
	outputFlagPtr := flag.String("output", "", "output file (default derived from the input name)")
	globFlagPtr := flag.String("glob", "", "process every file matching this pattern (** supported)")
	flag.Parse()

	// initialize logging system
	var programLevel = new(slog.LevelVar) // Info by default
	isDev, err := strconv.ParseBool(os.Getenv("DEVELOPMENT_MODE"))
	if err == nil && isDev {
		programLevel.Set(slog.LevelDebug)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: programLevel}))
	slog.SetDefault(logger)

	opts := options{
		decode: *decompFlagPtr,
		output: *outputFlagPtr,
		glob:   *globFlagPtr,
		args:   flag.Args(),
	}
	if err := run(opts); err != nil {
		slog.Error("Failed to process file", "error", err)
		os.Exit(1)
	}
}
