package main

import (
	"os"

	emunetcmder "github.com/papercomputeco/emunet/cmd/emunet"
)

func main() {
	cmd := emunetcmder.NewEmunetCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
