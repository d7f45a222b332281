// Command formula evaluates spreadsheet formulas and YAML workbooks.
package main

import (
	"os"

	"github.com/vogtb/go-formula/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
