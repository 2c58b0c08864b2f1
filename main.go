package main

import "github.com/hannajonsd/await-analysis/cmd"

func main() {
	cmd.Execute()
}
