// Command h5plan prints the storage plan h5pp derives for a dataset shape
// and checks hyperslab selections against a shape.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
