package main

import (
	"os"

	"github.com/golang/glog"
)

func main() {
	defer glog.Flush()
	if err := GetRootCmd(os.Args[1:]).Execute(); err != nil {
		os.Exit(1)
	}
}
