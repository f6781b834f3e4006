// Command tasksync adalah client baris perintah untuk task lapangan. Mode
// penyimpanan (REST API atau Redis lokal) dipilih lewat STORAGE_MODE.
package main

import (
	"fmt"
	"os"

	"tasksync/internal/apperr"
)

var Version = "dev"

func main() {
	root := newRootCmd(fromEnv)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", apperr.Message(err))
		os.Exit(1)
	}
}
