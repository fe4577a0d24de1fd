/*

Package main is a simple CLI app to parse and display information about
a Team Fortress 2 demo passed as a CLI argument.

*/
package main

import (
	"flag"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"

	tf2demo "github.com/gethexdemo/tf2demo"
	"github.com/gethexdemo/tf2demo/parser"
	"github.com/gethexdemo/tf2demo/parser/analyser"
)

const (
	appName    = "tf2demo"
	appVersion = "v0.1.0"
)

var (
	version = flag.Bool("version", false, "print version info and exit")

	header  = flag.Bool("header", true, "print demo header")
	chat    = flag.Bool("chat", true, "print chat/kill/round history")
	summary = flag.Bool("summary", true, "print per-player scoreboard summary")
	world   = flag.Bool("world", false, "print final building/player world state")

	indent = flag.Bool("indent", true, "use indentation when formatting output")
)

func main() {
	flag.Parse()

	if *version {
		printVersion()
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	contents, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Printf("Failed to read demo: %v\n", err)
		os.Exit(2)
	}

	chatAnalyser := analyser.NewAnalyser()
	summaryAnalyser := analyser.NewPlayerSummaryAnalyser()
	worldAnalyser := analyser.NewGameStateAnalyser()

	fanout := multiCapability{}
	if *chat {
		fanout = append(fanout, chatAnalyser)
	}
	if *summary {
		fanout = append(fanout, summaryAnalyser)
	}
	if *world {
		fanout = append(fanout, worldAnalyser)
	}

	demo := tf2demo.NewDemo(contents)
	p := parser.New(demo, fanout)

	h, state, err := p.Parse()
	if err != nil {
		lastTick := int32(0)
		if state != nil {
			lastTick = state.CurrentTick
		}
		fmt.Printf("Failed to parse demo (last good tick %d): %v\n", lastTick, err)
		os.Exit(2)
	}

	out := struct {
		Header  *tf2demo.Header                              `json:"header,omitempty"`
		Chat    *analyser.MatchState                         `json:"chat,omitempty"`
		Summary map[analyser.UserID]*analyser.PlayerSummary `json:"summary,omitempty"`
		World   *analyser.GameState                          `json:"world,omitempty"`
	}{}
	if *header {
		out.Header = &h
	}
	if *chat {
		ms := chatAnalyser.Finalise()
		out.Chat = &ms
	}
	if *summary {
		out.Summary = summaryAnalyser.Finalise()
	}
	if *world {
		gs := worldAnalyser.Finalise()
		out.World = &gs
	}

	api := jsoniter.ConfigCompatibleWithStandardLibrary
	var b []byte
	if *indent {
		b, err = api.MarshalIndent(out, "", "  ")
	} else {
		b, err = api.Marshal(out)
	}
	if err != nil {
		fmt.Printf("Failed to render output: %v\n", err)
		os.Exit(2)
	}
	os.Stdout.Write(b)
	os.Stdout.Write([]byte("\n"))
}

func printVersion() {
	fmt.Println(appName, "version:", appVersion)
}

func printUsage() {
	fmt.Println("Usage:")
	name := os.Args[0]
	fmt.Printf("\t%s [FLAGS] demofile.dem\n", name)
	fmt.Println("\tRun with '-h' to see a list of available flags.")
}
