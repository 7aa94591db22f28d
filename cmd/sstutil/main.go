// main.go -- sstutil: build, merge, and verify sorted table files
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim is made to its
// suitability for any purpose.

package main

import (
	"fmt"
	"os"

	flag "github.com/opencoff/pflag"

	"github.com/opencoff/go-sstable/internal/sstconfig"
)

func main() {
	var (
		configPath string
		codec      string
		output     string
		maxOpen    int
		verbose    bool
	)

	usage := fmt.Sprintf("%s [options] build|merge|verify ARGS...", os.Args[0])

	flag.StringVarP(&configPath, "config", "c", "", "Path to sstutil config file (JSONC)")
	flag.StringVarP(&codec, "codec", "V", "", "Value codec: void or bytes (overrides config)")
	flag.StringVarP(&output, "output", "o", "", "Output table file (build, merge)")
	flag.IntVarP(&maxOpen, "max-open", "m", 0, "Max concurrently open input tables (overrides config)")
	flag.BoolVarP(&verbose, "verbose", "v", false, "Set the config's verbose flag (no command prints extra output for it)")
	flag.Usage = func() {
		fmt.Printf("sstutil - build, merge, and verify sorted table files\nUsage: %s\n", usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		die("no subcommand given\nUsage: %s", usage)
	}

	cfg, err := sstconfig.Load(configPath)
	if err != nil {
		die("%s", err)
	}
	if codec != "" {
		cfg.ValueCodec = codec
	}
	if maxOpen > 0 {
		cfg.MaxOpenTables = maxOpen
	}
	if verbose {
		cfg.Verbose = true
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "build":
		if output == "" {
			die("build requires -o OUTPUT")
		}
		if err := doBuild(output, rest, cfg.ValueCodec); err != nil {
			die("build: %s", err)
		}

	case "merge":
		if output == "" {
			die("merge requires -o OUTPUT")
		}
		if len(rest) == 0 {
			die("merge requires at least one input table")
		}
		if err := doMerge(output, rest, cfg); err != nil {
			die("merge: %s", err)
		}

	case "verify":
		if len(rest) == 0 {
			die("verify requires at least one table file")
		}
		if err := doVerify(rest); err != nil {
			die("verify: %s", err)
		}

	default:
		die("unknown subcommand %q\nUsage: %s", cmd, usage)
	}
}

func die(f string, v ...interface{}) {
	warn(f, v...)
	os.Exit(1)
}

func warn(f string, v ...interface{}) {
	z := fmt.Sprintf("%s: %s", os.Args[0], f)
	s := fmt.Sprintf(z, v...)
	if n := len(s); n == 0 || s[n-1] != '\n' {
		s += "\n"
	}
	os.Stderr.WriteString(s)
}
