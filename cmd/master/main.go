// Command master is the CLI front end for the mastering chain: it renders
// files offline, measures loudness, plays through the live chain, and
// manages presets.
package main

import "github.com/cwbudde/algo-master/internal/cli"

func main() {
	cli.Execute()
}
