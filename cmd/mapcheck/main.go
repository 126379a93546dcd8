// Command mapcheck checks automap mapping configurations.
package main

import "mapcheck/cmd/mapcheck/cmd"

func main() {
	cmd.Execute()
}
