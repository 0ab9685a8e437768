// Package main provides the glow model importer CLI.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/hedgefair/glow/caffe2"
	"github.com/hedgefair/glow/graph"
	"github.com/hedgefair/glow/internal/config"
	"github.com/hedgefair/glow/tensor"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "dump":
		handleDump()
	case "import":
		handleImport()
	case "version":
		fmt.Printf("glow model importer %s\n", version)
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleDump() {
	dumpCmd := flag.NewFlagSet("dump", flag.ExitOnError)
	if err := dumpCmd.Parse(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags for dump command: %v\n", err)
		os.Exit(1)
	}
	path := dumpCmd.Arg(0)
	if path == "" {
		fmt.Println("Error: a model file is required for 'dump'.")
		os.Exit(1)
	}

	net, err := caffe2.ParseFile(path)
	if err != nil {
		fail(err)
	}
	fmt.Print(net)
}

func handleImport() {
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	netPath := importCmd.String("net", "", "Path to the predict network (.pb or .pbtxt).")
	weightsPath := importCmd.String("weights", "", "Path to the weights network (.pb or .pbtxt).")
	manifestPath := importCmd.String("inputs", "", "Path to a YAML input manifest. (optional)")
	verbose := importCmd.Bool("v", false, "Enable debug logging.")

	if err := importCmd.Parse(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags for import command: %v\n", err)
		os.Exit(1)
	}
	if *netPath == "" || *weightsPath == "" {
		fmt.Println("Error: -net and -weights are required for 'import'.")
		importCmd.Usage()
		os.Exit(1)
	}

	logger := newLogger(*verbose, os.Stderr)

	inputs := map[string]*tensor.Tensor{}
	if *manifestPath != "" {
		manifest, err := config.Load(*manifestPath)
		if err != nil {
			fail(err)
		}
		inputs, err = manifest.Tensors()
		if err != nil {
			fail(err)
		}
		logger.Debug("materialized manifest inputs", "count", len(inputs))
	}

	netDef, err := caffe2.ParseFile(*netPath)
	if err != nil {
		fail(err)
	}
	weightsDef, err := caffe2.ParseFile(*weightsPath)
	if err != nil {
		fail(err)
	}
	logger.Debug("decoded networks",
		"net", netDef.Name,
		"operators", len(netDef.Ops),
		"weights", len(weightsDef.Ops))

	name := netDef.Name
	if name == "" {
		name = "model"
	}
	g := graph.New(name)
	l := caffe2.NewLoader(g)
	for _, inputName := range sortedNames(inputs) {
		l.RegisterInput(inputName, inputs[inputName])
	}
	if err := l.LoadWeights(weightsDef); err != nil {
		fail(err)
	}
	logger.Debug("weights materialized")
	if err := l.LoadNetwork(netDef); err != nil {
		fail(err)
	}

	fmt.Print(g)
	logger.Info("import complete",
		"nodes", len(g.Nodes()),
		"output", fmt.Sprint(l.Root().Dims()))
}

func sortedNames(inputs map[string]*tensor.Tensor) []string {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println("glow - Caffe2 model importer")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Usage:")
	fmt.Println("  glow dump <model.pb|model.pbtxt>")
	fmt.Println("  glow import -net <file> -weights <file> [-inputs manifest.yaml] [-v]")
	fmt.Println("  glow version")
}
