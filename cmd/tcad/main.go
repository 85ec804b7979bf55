package main

import "github.com/OpenTraceLab/OpenTraceTCAD/cmd/tcad/cmd"

func main() {
	cmd.Execute()
}
