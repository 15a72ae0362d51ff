package main

import (
	"fmt"
	"os"

	"gradnet/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "gradnet: %v\n", err)
		os.Exit(1)
	}
}
