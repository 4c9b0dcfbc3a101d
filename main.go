// Prophet - supply-chain analysis and scenario simulation.
//
// Prophet builds a supply graph of companies, products, components and
// their origins, scores its resilience, and simulates tariffs, supplier
// outages, geopolitical events and shortages against it.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/prophet-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
