package main

import "github.com/Norgate-AV/irscan/cmd"

func main() {
	cmd.Execute()
}
