package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spamid/spam-identifier/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Printf("spamid[ERROR]: %v\n", err)
		if errors.Is(err, cmd.ErrInvalidArguments) {
			fmt.Println()
			cmd.PrintManual(os.Stdout)
		}
		os.Exit(1)
	}
}
