package main

import (
	"sopdrop.com/cli/cmd"
)

func main() {
	cmd.Execute()
}
