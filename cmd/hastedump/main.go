// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/spf13/cobra"

	haste "github.com/haste-replay/haste"
)

var (
	verbose    bool
	wantCmds   bool
	wantTables bool
	wantEnts   bool
	wantAnoms  bool
	entClass   string
	maxEnts    int
)

// printingVisitor renders frame/packet/entity callbacks to stdout in the
// tabwriter style used throughout this tree's dump output. Counters exist
// so a run against a multi-hour replay doesn't flood the terminal unless
// the caller explicitly widens --max-entities.
type printingVisitor struct {
	w        *tabwriter.Writer
	wantCmds bool
	wantEnts bool
	class    string
	seen     int
	max      int
}

func (v *printingVisitor) OnCmd(kind haste.EDemoCommands, tick int32, data []byte) {
	if !v.wantCmds {
		return
	}
	fmt.Fprintf(v.w, "cmd\t%d\ttick=%d\tbytes=%d\n", kind, tick, len(data))
}

func (v *printingVisitor) OnPacket(tick int32, messageID int32, data []byte) {
	fmt.Fprintf(v.w, "packet\tid=%d\ttick=%d\tbytes=%d\n", messageID, tick, len(data))
}

func (v *printingVisitor) OnEntity(tick int32, header haste.DeltaHeader, slot int32, entity *haste.Entity) {
	if !v.wantEnts {
		return
	}
	name := "<deleted>"
	if entity != nil && entity.Serializer() != nil {
		name = entity.Serializer().Name.String()
	}
	if v.class != "" && name != v.class {
		return
	}
	if v.max > 0 && v.seen >= v.max {
		return
	}
	v.seen++

	fmt.Fprintf(v.w, "entity\ttick=%d\tslot=%d\top=%d\tclass=%s\n", tick, slot, header, name)
}

func parseReplay(filename string, cmd *cobra.Command) {
	logger := log.NewStdLogger(os.Stdout)
	logger = log.NewFilter(logger, log.FilterLevel(log.LevelInfo))
	helper := log.NewHelper(logger)

	helper.Infof("parsing replay %s", filename)

	w := tabwriter.NewWriter(os.Stdout, 1, 1, 3, ' ', 0)
	visitor := &printingVisitor{w: w, wantCmds: wantCmds, wantEnts: wantEnts, class: entClass, max: maxEnts}

	var v haste.Visitor
	if wantCmds || wantEnts {
		v = visitor
	}

	p, err := haste.New(filename, &haste.Options{
		Visitor: v,
		Logger:  logger,
	})
	if err != nil {
		helper.Errorf("failed to open replay %s: %s", filename, err)
		return
	}
	defer p.Close()

	if err := p.Parse(); err != nil {
		helper.Errorf("failed to parse replay %s: %s", filename, err)
		return
	}
	w.Flush()

	if wantTables {
		fmt.Printf("\n\t------[ String Tables ]------\n\n")
		tw := tabwriter.NewWriter(os.Stdout, 1, 1, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "ID\tName\tRows\t")
		p.StringTables().Each(func(id int, t *haste.StringTable) {
			fmt.Fprintf(tw, "%d\t%s\t%d\t\n", id, t.Name, t.Len())
		})
		tw.Flush()
	}

	if wantAnoms {
		fmt.Printf("\n\t------[ Anomalies ]------\n\n")
		for _, a := range p.Anomalies {
			fmt.Println(a)
		}
	}
}

func isDirectory(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.IsDir()
}

func parse(cmd *cobra.Command, args []string) {
	filePath := args[0]

	if !isDirectory(filePath) {
		parseReplay(filePath, cmd)
		return
	}

	var fileList []string
	filepath.Walk(filePath, func(path string, f os.FileInfo, err error) error {
		if !isDirectory(path) {
			fileList = append(fileList, path)
		}
		return nil
	})

	for _, file := range fileList {
		parseReplay(file, cmd)
	}
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "hastedump",
		Short: "A Source 2 replay parser",
		Long:  "A replay parser for Dota 2, Deadlock and the CS2 family, built for speed and analysis in mind",
		Run: func(cmd *cobra.Command, args []string) {
		},
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Long:  "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print("You are using version 0.1.0")
		},
	}

	var dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Dumps a replay",
		Long:  "Walks a replay's frame/packet/entity stream and prints the parts asked for",
		Args:  cobra.MinimumNArgs(1),
		Run:   parse,
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(dumpCmd)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	dumpCmd.Flags().BoolVarP(&wantCmds, "cmds", "", false, "Dump outer frame kinds not otherwise interpreted")
	dumpCmd.Flags().BoolVarP(&wantTables, "string-tables", "", false, "Dump string table names and row counts")
	dumpCmd.Flags().BoolVarP(&wantEnts, "entities", "", false, "Dump entity deltas")
	dumpCmd.Flags().BoolVarP(&wantAnoms, "anomalies", "", false, "Dump recoverable parse anomalies")
	dumpCmd.Flags().StringVarP(&entClass, "class", "", "", "Restrict entity output to a single class name (unused unless --entities is set)")
	dumpCmd.Flags().IntVarP(&maxEnts, "max-entities", "", 1000, "Stop printing entity deltas after this many (0 = unlimited)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
