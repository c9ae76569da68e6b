// Command farmtrack serves the FarmTrack API and runs maintenance tasks.
package main

import "github.com/Shahid-khan015/FarmTrack/internal/cli"

func main() {
	if err := cli.Execute(); err != nil {
		cli.ExitError("%v", err)
	}
}
