package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/wbrown/strata-datalog/datalog/annotations"
	"github.com/wbrown/strata-datalog/datalog/engine"
	"github.com/wbrown/strata-datalog/datalog/parser"
	"github.com/wbrown/strata-datalog/datalog/program"
	"github.com/wbrown/strata-datalog/datalog/storage"
)

func main() {
	var dbPath string
	var interactive bool
	var help bool
	var verbose bool
	var parallel bool
	var limit int

	flag.StringVar(&dbPath, "db", "", "fact store path for .input relations")
	flag.BoolVar(&interactive, "i", false, "interactive mode")
	flag.BoolVar(&help, "h", false, "show help")
	flag.BoolVar(&verbose, "verbose", false, "verbose mode (show evaluation annotations)")
	flag.BoolVar(&parallel, "parallel", false, "evaluate rules on a worker pool")
	flag.IntVar(&limit, "limit", 0, "iteration ceiling per stratum (0 = unlimited)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [program.dl]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "A stratified Datalog engine with semi-naive evaluation.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s paths.dl              # Evaluate a program\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i                    # Interactive mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -db facts.db paths.dl # Load .input relations from a fact store\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -verbose paths.dl     # Verbose mode with annotations\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -limit 10000 fib.dl   # Cap fixpoint iterations\n", os.Args[0])
	}
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	var handler annotations.Handler
	if verbose {
		formatter := annotations.NewOutputFormatter(os.Stderr)
		handler = formatter.Handle
	}

	eng := engine.NewWithOptions(engine.Options{
		MaxIterations:       limit,
		EnableParallelRules: parallel,
		Handler:             handler,
	})

	var store *storage.FactStore
	if dbPath != "" {
		var err error
		store, err = storage.Open(dbPath)
		if err != nil {
			log.Fatalf("Failed to open fact store: %v", err)
		}
		defer store.Close()
	}

	if interactive {
		runInteractive(eng, store)
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}
	if err := runFile(eng, store, flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runFile(eng *engine.Engine, store *storage.FactStore, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read program: %w", err)
	}

	prog, err := parser.Parse(string(source))
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	return evaluate(eng, store, prog)
}

func evaluate(eng *engine.Engine, store *storage.FactStore, prog *program.Program) error {
	inputs, err := loadInputs(store, prog)
	if err != nil {
		return err
	}

	result, err := eng.EvaluateWithInputs(prog, inputs)
	if err != nil {
		return fmt.Errorf("evaluation error: %w", err)
	}

	engine.PrintResult(prog, result)
	return nil
}

// loadInputs satisfies .input directives from the fact store. Without
// a store, input relations simply start empty.
func loadInputs(store *storage.FactStore, prog *program.Program) (map[string][]engine.Tuple, error) {
	if store == nil || len(prog.Inputs) == 0 {
		return nil, nil
	}

	inputs := make(map[string][]engine.Tuple, len(prog.Inputs))
	for _, name := range prog.Inputs {
		tuples, err := store.LoadRelation(name)
		if err != nil {
			return nil, fmt.Errorf("failed to load input relation %s: %w", name, err)
		}
		inputs[name] = tuples
	}
	return inputs, nil
}

func runInteractive(eng *engine.Engine, store *storage.FactStore) {
	fmt.Println("=== Strata Datalog Interactive Mode ===")
	fmt.Println("Commands:")
	fmt.Println("  .help         - Show help")
	fmt.Println("  .exit         - Exit")
	fmt.Println("  .load <file>  - Append a program file to the buffer")
	fmt.Println("  .run          - Evaluate the buffered program")
	fmt.Println("  .clear        - Discard the buffered program")
	fmt.Println("  .show         - Print the buffered program")
	fmt.Println("Anything else is appended to the program buffer.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	var buffer strings.Builder

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == ".exit":
			return

		case line == ".help":
			fmt.Println("Enter declarations, facts, and rules; .run evaluates them.")

		case line == ".run":
			prog, err := parser.Parse(buffer.String())
			if err != nil {
				fmt.Printf("Parse error: %v\n", err)
				continue
			}
			if err := evaluate(eng, store, prog); err != nil {
				fmt.Println(err)
			}

		case line == ".clear":
			buffer.Reset()
			fmt.Println("Cleared.")

		case line == ".show":
			fmt.Print(buffer.String())

		case strings.HasPrefix(line, ".load "):
			path := strings.TrimSpace(strings.TrimPrefix(line, ".load "))
			source, err := os.ReadFile(path)
			if err != nil {
				fmt.Printf("Failed to read %s: %v\n", path, err)
				continue
			}
			buffer.Write(source)
			buffer.WriteString("\n")
			fmt.Printf("Loaded %s.\n", path)

		default:
			buffer.WriteString(line)
			buffer.WriteString("\n")
		}
	}
}
