package main

import (
	"context"
	"fmt"
	"os"

	"bankwatch/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "bankwatch:", err)
		os.Exit(1)
	}
}
