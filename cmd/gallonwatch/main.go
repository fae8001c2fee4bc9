package main

import (
	"gallon-leak-watch/internal/cli"
)

func main() {
	cli.Execute()
}
