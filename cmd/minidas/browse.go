package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	prompt "github.com/c-bata/go-prompt"

	"github.com/xtxerr/minidas/internal/container"
	"github.com/xtxerr/minidas/internal/meta"
)

// browser is the interactive metadata explorer behind `minidas browse`.
type browser struct {
	c     *container.Container
	paths []string
}

func cmdBrowse(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: minidas browse <file>")
	}

	c, err := container.Open(args[0])
	if err != nil {
		return err
	}
	defer c.Close()

	b := &browser{c: c}
	c.Meta().Walk(func(path string, v meta.Value) error {
		b.paths = append(b.paths, path)
		return nil
	})
	sort.Strings(b.paths)

	fmt.Printf("%s: %d channels, %d samples, %d metadata entries\n",
		args[0], c.NChannels(), c.NSamples(), len(b.paths))
	fmt.Println(`type "help" for commands, "exit" to leave`)

	p := prompt.New(
		b.input,
		b.completer,
		prompt.OptionPrefix("minidas> "),
		prompt.OptionTitle("minidas"),
	)
	p.Run()
	return nil
}

func (b *browser) input(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "help":
		fmt.Println("ls [path]     list metadata entries under a path")
		fmt.Println("get <path>    print one metadata value")
		fmt.Println("attrs         print the schema attributes")
		fmt.Println("exit          leave the browser")
	case "ls":
		prefix := ""
		if len(fields) > 1 {
			prefix = fields[1]
		}
		b.list(prefix)
	case "get":
		if len(fields) != 2 {
			fmt.Println("usage: get <path>")
			return
		}
		b.get(fields[1])
	case "attrs":
		b.attrs()
	case "exit", "quit":
		// go-prompt offers no clean stop from inside the executor.
		fmt.Println("bye")
		b.c.Close()
		os.Exit(0)
	default:
		fmt.Printf("unknown command %q\n", fields[0])
	}
}

func (b *browser) list(prefix string) {
	n := 0
	for _, p := range b.paths {
		if prefix == "" || p == prefix || strings.HasPrefix(p, prefix+"/") {
			fmt.Println(p)
			n++
		}
	}
	if n == 0 {
		fmt.Printf("no entries under %q\n", prefix)
	}
}

func (b *browser) get(path string) {
	t := b.c.Meta()
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		v, ok := t.Get(seg)
		if !ok {
			fmt.Printf("no entry %q\n", path)
			return
		}
		if i == len(segs)-1 {
			fmt.Println(v)
			return
		}
		if v.Kind() != meta.KindTree {
			fmt.Printf("%q is not a group\n", strings.Join(segs[:i+1], "/"))
			return
		}
		t = v.Tree()
	}
}

func (b *browser) attrs() {
	s := b.c.Schema()
	fmt.Printf("format_version       %d\n", s.FormatVersion)
	fmt.Printf("dtype                %s\n", b.c.DType())
	fmt.Printf("channels             %d\n", b.c.NChannels())
	fmt.Printf("samples              %d\n", b.c.NSamples())
	fmt.Printf("start_time_ns        %d\n", s.StartTimeNs)
	fmt.Printf("end_time_ns          %d\n", s.EndTimeNs)
	fmt.Printf("sampling_rate        %g\n", s.SamplingRate)
	fmt.Printf("gauge_length         %g\n", s.GaugeLength)
	fmt.Printf("data_unit            %s\n", s.DataUnit)
	fmt.Printf("scale_factor         %g\n", s.ScaleFactor)
	fmt.Printf("units_after_scaling  %s\n", s.UnitsAfterScaling)
}

func (b *browser) completer(d prompt.Document) []prompt.Suggest {
	line := d.TextBeforeCursor()
	if !strings.ContainsAny(line, " ") {
		s := []prompt.Suggest{
			{Text: "ls", Description: "list metadata entries"},
			{Text: "get", Description: "print one metadata value"},
			{Text: "attrs", Description: "print schema attributes"},
			{Text: "help"},
			{Text: "exit"},
		}
		return prompt.FilterHasPrefix(s, d.GetWordBeforeCursor(), true)
	}

	s := make([]prompt.Suggest, 0, len(b.paths))
	for _, p := range b.paths {
		s = append(s, prompt.Suggest{Text: p})
	}
	return prompt.FilterHasPrefix(s, d.GetWordBeforeCursor(), true)
}
