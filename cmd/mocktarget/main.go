package main

// mocktarget stands in for a real libFuzzer binary so the runner can be
// exercised without a fuzz-enabled build. It honors the same command-line
// contract:
//
//	mocktarget -help=1
//	mocktarget -runs=1 <corpus_dir>
//	mocktarget -merge=1 -use_value_profile=1 <dst_dir> <src_dir>

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"fuzzrun/internal/utils"
)

func main() {
	help := flag.Bool("help", false, "print the option summary")
	runs := flag.Int("runs", -1, "number of runs over the corpus")
	merge := flag.Bool("merge", false, "merge the second corpus into the first")
	flag.Bool("use_value_profile", false, "use value profiles to guide merging")
	flag.Parse()

	switch {
	case *help:
		// A real target prints the option summary to stderr.
		fmt.Fprintln(os.Stderr, "Usage: mocktarget [-flag1=val1 [-flag2=val2 ...] ] [dir1 [dir2 ...] ]")
		fmt.Fprintln(os.Stderr, "libFuzzer: mock engine, reads corpora and merges files verbatim")

	case *merge:
		if flag.NArg() != 2 {
			fatal("merge mode needs <dst_dir> <src_dir>")
		}
		if err := mergeCorpus(flag.Arg(0), flag.Arg(1)); err != nil {
			fatal(err.Error())
		}

	case *runs >= 0:
		if flag.NArg() != 1 {
			fatal("run mode needs <corpus_dir>")
		}
		if err := runCorpus(flag.Arg(0)); err != nil {
			fatal(err.Error())
		}

	default:
		fatal("nothing to do; see -help=1")
	}
}

// runCorpus reads every seed once, the way a target replays its corpus.
func runCorpus(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := os.ReadFile(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
		n++
	}
	fmt.Fprintf(os.Stderr, "#%d DONE   exec/s: 0\n", n)
	return nil
}

// mergeCorpus copies every file from src into dst. A real merge picks only
// coverage-increasing inputs; the mock takes everything.
func mergeCorpus(dst, src string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := utils.CopyFile(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return err
		}
		n++
	}
	fmt.Fprintf(os.Stderr, "MERGE-OUTER: %d new files added to the corpus\n", n)
	return nil
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
