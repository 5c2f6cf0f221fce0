package main

import "github.com/giannimassi/ehrtok/internal/cli"

func main() {
	cli.Execute()
}
