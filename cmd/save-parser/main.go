package main

import "save-parser/internal/cli"

func main() {
	cli.Execute()
}
