package main

import "github.com/avoronkov/pdnaudit/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
