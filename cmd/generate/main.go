package main

// Generates random sentences from the databases in the working
// directory: one sentence, a blank line, then wait for a newline on
// standard input before the next.

import (
	"bufio"
	"fmt"
	"os"

	"github.com/Amanieu/cbeardy"
	"github.com/golang/glog"
	"github.com/kho/easy"
)

func main() {
	easy.ParseFlagsAndArgs(nil)

	g, err := cbeardy.Open(".")
	if err != nil {
		glog.Exitf("error opening databases: %v", err)
	}
	defer g.Close()

	in := bufio.NewReader(os.Stdin)
	for {
		sentence, err := g.Generate()
		if err != nil {
			glog.Exitf("corrupt database: %v", err)
		}
		fmt.Printf("%s\n\n", sentence)
		if _, err := in.ReadBytes('\n'); err != nil {
			return
		}
	}
}
