// Command draftctl drives a draft league server from the terminal: season
// setup, the draft room and free agency.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
