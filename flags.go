package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"trendmerch/core"
	"trendmerch/styles"
)

const defaultAutoCount = 5

// cliOptions are the parsed command-line flags.
type cliOptions struct {
	auto       bool
	text       string
	style      styles.Key
	count      int
	region     string
	noBgRemove bool
	noResize   bool
	listStyles bool
	check      bool
	watch      time.Duration
	cache      bool
	history    int
}

// mode returns the selected mode, or "" when none was given.
func (o cliOptions) mode() string {
	switch {
	case o.listStyles:
		return "list-styles"
	case o.check:
		return "check"
	case o.history > 0:
		return "history"
	case o.watch > 0:
		return "watch"
	case o.auto:
		return "auto"
	case o.text != "":
		return "text"
	default:
		return ""
	}
}

// topics splits -text on "|" so one invocation can carry several topics.
func (o cliOptions) topics() []string {
	var topics []string
	for _, t := range strings.Split(o.text, "|") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// applyTo copies flags that override configuration.
func (o cliOptions) applyTo(cfg *core.Config) {
	if o.cache {
		cfg.CacheEnabled = true
	}
	if o.region != "" {
		cfg.TrendsRegion = strings.ToUpper(o.region)
	}
}

func parseFlags(args []string, output io.Writer) (cliOptions, error) {
	var opts cliOptions
	var style string

	fs := flag.NewFlagSet("trendmerch", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.BoolVar(&opts.auto, "auto", false, "generate designs for current trending topics")
	fs.StringVar(&opts.text, "text", "", "generate designs for explicit topics (separate several with |)")
	fs.StringVar(&style, "style", "", "style preset (default DEFAULT_STYLE)")
	fs.IntVar(&opts.count, "count", 0, fmt.Sprintf("number of topics (auto default %d, text default all)", defaultAutoCount))
	fs.StringVar(&opts.region, "region", "", "trends region code (default TRENDS_REGION)")
	fs.BoolVar(&opts.noBgRemove, "no-bg-remove", false, "keep the generated background")
	fs.BoolVar(&opts.noResize, "no-resize", false, "keep the generated size instead of the print canvas")
	fs.BoolVar(&opts.listStyles, "list-styles", false, "list style presets and exit")
	fs.BoolVar(&opts.check, "check", false, "check configuration and dependencies and exit")
	fs.DurationVar(&opts.watch, "watch", 0, "repeat auto runs at this interval (e.g. 6h)")
	fs.BoolVar(&opts.cache, "cache", false, "skip topics generated within CACHE_FRESHNESS_HOURS")
	fs.IntVar(&opts.history, "history", 0, "print the N most recent designs and exit")
	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: trendmerch [flags]")
		fmt.Fprintln(output, "       trendmerch service install|uninstall|start|stop|status|run")
		fmt.Fprintln(output)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.count < 0 || opts.history < 0 {
		return opts, fmt.Errorf("-count and -history must not be negative")
	}
	if opts.watch < 0 {
		return opts, fmt.Errorf("-watch must be positive")
	}
	if opts.auto && opts.text != "" {
		return opts, errors.New("-auto and -text are mutually exclusive")
	}
	opts.style = styles.Key(strings.TrimSpace(style))
	return opts, nil
}

// withDefaults fills flags whose defaults come from configuration.
func (o cliOptions) withDefaults(cfg *core.Config) cliOptions {
	if o.style == "" {
		o.style = styles.Key(cfg.DefaultStyle)
	}
	return o
}
