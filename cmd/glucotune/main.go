package main

import "glucotune/internal/cli"

func main() {
	cli.Execute()
}
