package main

import (
	"fmt"
	"os"

	"github.com/zeu5/tickrl/benchmarks"
)

// main entry point to training, serving and comparing policies
func main() {
	rootCommand := benchmarks.GetRootCommand()
	if err := rootCommand.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
