// Package main provides the autograd demo CLI.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"k8s.io/klog/v2"
)

const version = "v0.0.1-dev"

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <command>\n\n", os.Args[0])
	fmt.Fprintln(flag.CommandLine.Output(), "Commands:")
	fmt.Fprintln(flag.CommandLine.Output(), "  version    Show version")
	fmt.Fprintln(flag.CommandLine.Output(), "  demo       Run the reference gradient examples")
	fmt.Fprintln(flag.CommandLine.Output(), "  hvp        Run the Hessian-vector product example")
	fmt.Fprintln(flag.CommandLine.Output(), "\nFlags:")
	flag.PrintDefaults()
}

func main() {
	klog.InitFlags(nil)
	color := flag.Bool("color", true, "Render tables with colors and text attributes")
	flag.Usage = usage
	flag.Parse()
	defer klog.Flush()

	if !*color {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	switch flag.Arg(0) {
	case "version":
		fmt.Printf("autograd %s\n", version)
	case "demo":
		rows, err := referenceRows()
		if err != nil {
			klog.Fatalf("demo failed: %+v", err)
		}
		fmt.Println(renderTable(rows))
	case "hvp":
		rows, err := hessianRows()
		if err != nil {
			klog.Fatalf("hvp failed: %+v", err)
		}
		fmt.Println(renderTable(rows))
	default:
		flag.Usage()
		os.Exit(2)
	}
}
