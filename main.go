package main

import "github.com/Stat534/splm/cmd"

func main() {
	cmd.Execute()
}
