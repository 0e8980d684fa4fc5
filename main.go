// Command specviz is a terminal tool for the visual inspection of
// astronomical objects and their spectra.
package main

import "github.com/papapumpkin/specvizitor/cmd"

func main() {
	cmd.Execute()
}
