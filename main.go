package main

import "github.com/ValentinKolb/opexec/cmd"

func main() {
	cmd.Execute()
}
