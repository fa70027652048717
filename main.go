package main

import (
	"github.com/foomo/hbkbrowser/cmd"
)

func main() {
	cmd.Execute()
}
