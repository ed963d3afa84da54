// Command ctvolume converts directories of CT slices into volume files and
// inspects, crops, resamples, renders and exports them.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
