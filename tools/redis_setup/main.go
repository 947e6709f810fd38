// rexscan/tools/redis_setup/main.go

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"rgehrsitz/rexscan/pkg/catalog"
	"rgehrsitz/rexscan/pkg/resource"
	"rgehrsitz/rexscan/pkg/store"
)

var ctx = context.Background()

func main() {
	addr := flag.String("redis", "localhost:6379", "Redis address")
	flag.Parse()

	st, err := store.NewRedisStore(ctx, *addr, "", 0)
	if err != nil {
		fmt.Printf("Error connecting to Redis: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := initializeRedis(st, os.Stdout); err != nil {
		os.Exit(1)
	}
	startCLI(st, os.Stdin, os.Stdout)
}

// initializeRedis stores the built-in rule pack unless rules are already
// present.
func initializeRedis(st store.Store, out io.Writer) error {
	defs, err := st.Rules(ctx)
	if err != nil {
		fmt.Fprintf(out, "Error reading rules: %v\n", err)
		return err
	}
	if len(defs) > 0 {
		fmt.Fprintf(out, "Keeping %d stored rules\n", len(defs))
		return nil
	}
	defs = catalog.DefaultDefinitions()
	if err := st.PutRules(ctx, defs); err != nil {
		fmt.Fprintf(out, "Error storing rules: %v\n", err)
		return err
	}
	fmt.Fprintf(out, "Stored %d built-in rules\n", len(defs))
	return nil
}

func startCLI(st store.Store, in io.Reader, out io.Writer) {
	reader := bufio.NewReader(in)

	for {
		fmt.Fprint(out, "Enter command (ingest <file>, rules <file>, count <category> or exit): ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		if input == "exit" || (err != nil && input == "") {
			break
		}

		if err := processCommand(st, input, out); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
}

func processCommand(st store.Store, input string, out io.Writer) error {
	parts := strings.Fields(input)
	if len(parts) != 2 {
		return fmt.Errorf("invalid command. Use 'ingest <file>', 'rules <file>' or 'count <category>'")
	}

	switch parts[0] {
	case "ingest":
		data, err := os.ReadFile(parts[1])
		if err != nil {
			return err
		}
		inv, err := resource.ParseInventory(data)
		if err != nil {
			return err
		}
		stored, err := st.PutRecords(ctx, inv.All())
		if err != nil {
			return fmt.Errorf("error storing records: %v", err)
		}
		fmt.Fprintf(out, "Stored %d records\n", len(stored))
	case "rules":
		defs, err := catalog.ReadDefinitions(parts[1])
		if err != nil {
			return err
		}
		if _, err := catalog.Load(defs); err != nil {
			return err
		}
		if err := st.PutRules(ctx, defs); err != nil {
			return fmt.Errorf("error storing rules: %v", err)
		}
		fmt.Fprintf(out, "Stored %d rules\n", len(defs))
	case "count":
		c, err := resource.ParseCategory(parts[1])
		if err != nil {
			return err
		}
		records, err := st.Records(ctx, c)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %d records\n", c, len(records))
	default:
		return fmt.Errorf("unknown command %q", parts[0])
	}
	return nil
}
