package main

import "nathanbeddoewebdev/nodeprov/cmd"

func main() {
	cmd.Execute()
}
