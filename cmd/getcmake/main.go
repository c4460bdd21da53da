package main

import "getcmake/internal/cli"

func main() {
	cli.Execute()
}
