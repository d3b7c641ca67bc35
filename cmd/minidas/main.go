// minidas inspects, validates and converts DAS recording containers.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/term"

	"github.com/xtxerr/minidas/config"
	"github.com/xtxerr/minidas/internal/container"
	"github.com/xtxerr/minidas/internal/export"
	"github.com/xtxerr/minidas/internal/logging"
	"github.com/xtxerr/minidas/internal/meta"
	"github.com/xtxerr/minidas/internal/stats"
)

// Version is set at build time via ldflags
var Version = "dev"

const usage = `minidas %s - DAS recording container tool

Usage: minidas [flags] <command> [args]

Commands:
  info <file>                     print attributes and metadata
  check <file>                    validate a container
  compare <a> <b>                 compare two containers
  slice <in> <out>                cut a time/channel window into a new file
  repack <in> <out>               rewrite with a different chunk codec
  stats <file>                    per-channel summary statistics
  export <file> <out.parquet>     export samples to Parquet
  browse <file>                   interactive metadata browser

Flags:
`

func main() {
	cfgPath := flag.String("config", "", "config file path")
	logLevel := flag.String("log-level", "", "log level (overrides config)")
	logJSON := flag.Bool("log-json", false, "log JSON lines")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, usage, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.DefaultConfig()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "minidas: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logJSON {
		cfg.Log.JSON = true
	}
	logging.Init(logging.ParseLevel(cfg.Log.Level), cfg.Log.JSON)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cmd, args := args[0], args[1:]
	var err error
	switch cmd {
	case "info":
		err = cmdInfo(cfg, args)
	case "check":
		err = cmdCheck(args)
	case "compare":
		err = cmdCompare(args)
	case "slice":
		err = cmdSlice(cfg, args)
	case "repack":
		err = cmdRepack(cfg, args)
	case "stats":
		err = cmdStats(cfg, args)
	case "export":
		err = cmdExport(cfg, args)
	case "browse":
		err = cmdBrowse(args)
	default:
		fmt.Fprintf(os.Stderr, "minidas: unknown command %q\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "minidas %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func writeOptions(cfg *config.Config) (container.Options, error) {
	opts := container.DefaultOptions()
	codec, err := container.ParseCodec(cfg.Write.Codec)
	if err != nil {
		return opts, err
	}
	opts.Codec = codec
	if cfg.Write.CodecLevel > 0 {
		opts.CodecLevel = cfg.Write.CodecLevel
	}
	if cfg.Write.Concurrency > 0 {
		opts.Concurrency = cfg.Write.Concurrency
	} else {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	opts.Overwrite = cfg.Write.Overwrite
	return opts, nil
}

func cmdInfo(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	withStats := fs.Bool("stats", false, "include per-channel statistics")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: minidas info [-stats] <file>")
	}

	c, err := container.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer c.Close()

	s := c.Schema()
	pretty := term.IsTerminal(int(os.Stdout.Fd()))
	kv := func(key string, format string, a ...interface{}) {
		if pretty {
			fmt.Printf("  %-22s %s\n", key, fmt.Sprintf(format, a...))
		} else {
			fmt.Printf("%s\t%s\n", key, fmt.Sprintf(format, a...))
		}
	}

	if pretty {
		fmt.Printf("%s\n", fs.Arg(0))
	}
	kv("format_version", "%d", s.FormatVersion)
	kv("dtype", "%s", c.DType())
	kv("channels", "%d", c.NChannels())
	kv("samples", "%d", c.NSamples())
	kv("start", "%s", s.StartDateTime().Format("2006-01-02T15:04:05.000000000Z07:00"))
	kv("end", "%s", s.EndDateTime().Format("2006-01-02T15:04:05.000000000Z07:00"))
	kv("sampling_rate", "%g Hz", s.SamplingRate)
	kv("gauge_length", "%g m", s.GaugeLength)
	kv("data_unit", "%s", s.DataUnit)
	kv("scale_factor", "%g", s.ScaleFactor)
	kv("units_after_scaling", "%s", s.UnitsAfterScaling)

	if c.Meta().Len() > 0 {
		if pretty {
			fmt.Println("metadata:")
		}
		c.Meta().Walk(func(path string, v meta.Value) error {
			kv("meta/"+path, "%s", v)
			return nil
		})
	}

	if *withStats {
		data, err := c.Data()
		if err != nil {
			return err
		}
		results, err := stats.Summarize(data, cfg.Stats.Accuracy)
		if err != nil {
			return err
		}
		if pretty {
			fmt.Println("channels:")
		}
		for _, r := range results {
			kv(fmt.Sprintf("channel %d", r.Channel),
				"mean=%.6g rms=%.6g min=%.6g max=%.6g p95=%.6g",
				r.Mean, r.RMS, r.Min, r.Max, r.P95)
		}
	}
	return nil
}

func cmdCheck(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: minidas check <file>")
	}

	v, err := container.CheckFile(args[0])
	if err != nil {
		return err
	}
	if v.HasViolations() {
		for _, item := range v.Items {
			fmt.Println(item)
		}
		return fmt.Errorf("%d violation(s)", len(v.Items))
	}
	fmt.Println("ok")
	return nil
}

func cmdCompare(args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	tol := fs.Float64("tolerance", 0, "maximum absolute trace difference")
	fs.Parse(args)
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: minidas compare [-tolerance f] <a> <b>")
	}

	a, err := container.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer a.Close()
	b, err := container.Open(fs.Arg(1))
	if err != nil {
		return err
	}
	defer b.Close()

	mismatches, err := container.Compare(a, b, *tol)
	if err != nil {
		return err
	}
	if len(mismatches) > 0 {
		for _, m := range mismatches {
			fmt.Println(m)
		}
		return fmt.Errorf("%d mismatch(es)", len(mismatches))
	}
	fmt.Println("equal")
	return nil
}

func cmdSlice(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("slice", flag.ExitOnError)
	start := fs.Float64("start", 0, "window start, seconds since the UNIX epoch")
	end := fs.Float64("end", 0, "window end, seconds since the UNIX epoch")
	chFrom := fs.Int("ch-from", -1, "first channel")
	chTo := fs.Int("ch-to", -1, "one past the last channel")
	fs.Parse(args)
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: minidas slice -start s -end s [-ch-from n -ch-to n] <in> <out>")
	}

	c, err := container.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer c.Close()

	var chRange *container.ChannelRange
	if *chFrom >= 0 || *chTo >= 0 {
		chRange = &container.ChannelRange{From: *chFrom, To: *chTo}
	}

	cut, err := c.Trim(*start, *end, chRange)
	if err != nil {
		return err
	}
	opts, err := writeOptions(cfg)
	if err != nil {
		return err
	}
	return cut.WriteFile(fs.Arg(1), opts)
}

func cmdRepack(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("repack", flag.ExitOnError)
	codec := fs.String("codec", "", "chunk codec: zstd, none (overrides config)")
	fs.Parse(args)
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: minidas repack [-codec c] <in> <out>")
	}

	c, err := container.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer c.Close()

	opts, err := writeOptions(cfg)
	if err != nil {
		return err
	}
	if *codec != "" {
		if opts.Codec, err = container.ParseCodec(*codec); err != nil {
			return err
		}
	}
	return c.WriteFile(fs.Arg(1), opts)
}

func cmdStats(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	scaled := fs.Bool("scaled", false, "apply the scale factor first (physical units)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: minidas stats [-scaled] <file>")
	}

	c, err := container.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer c.Close()

	if *scaled {
		if err := c.ApplyScaling(); err != nil {
			return err
		}
	}
	data, err := c.Data()
	if err != nil {
		return err
	}
	results, err := stats.Summarize(data, cfg.Stats.Accuracy)
	if err != nil {
		return err
	}

	fmt.Println("channel\tcount\tnans\tmean\trms\tmin\tmax\tp50\tp95\tp99")
	for _, r := range results {
		fmt.Printf("%d\t%d\t%d\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\n",
			r.Channel, r.Count, r.NaNs, r.Mean, r.RMS, r.Min, r.Max, r.P50, r.P95, r.P99)
	}
	return nil
}

func cmdExport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	summary := fs.Bool("summary", false, "export per-channel summaries instead of samples")
	scaled := fs.Bool("scaled", false, "apply the scale factor first (physical units)")
	fs.Parse(args)
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: minidas export [-summary] [-scaled] <file> <out.parquet>")
	}

	c, err := container.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer c.Close()

	if *scaled {
		if err := c.ApplyScaling(); err != nil {
			return err
		}
	}

	opts := export.DefaultOptions()
	opts.Compression = export.ParseCompressionType(cfg.Export.Compression)
	opts.BatchRows = cfg.Export.BatchRows

	if *summary {
		data, err := c.Data()
		if err != nil {
			return err
		}
		results, err := stats.Summarize(data, cfg.Stats.Accuracy)
		if err != nil {
			return err
		}
		return export.WriteSummaries(fs.Arg(1), c, results, opts)
	}

	written, err := export.WriteSamples(fs.Arg(1), c, opts)
	if err != nil {
		return err
	}
	logging.Info("exported samples", "rows", written, "path", fs.Arg(1))
	return nil
}
