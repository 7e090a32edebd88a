package main

import "github.com/adi-253/msglist/internal/cli"

func main() {
	cli.Execute()
}
