package main

// Converts extracted dump text into trainer input: runs of spaces
// become one newline (one word per line), runs of periods become a
// blank line (sentence boundary).

import (
	"bufio"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/kho/easy"
)

func main() {
	easy.ParseFlagsAndArgs(nil)

	in := bufio.NewReader(os.Stdin)
	out := bufio.NewWriter(os.Stdout)

	readDot, readSpace := false, false
	for {
		c, err := in.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			glog.Exitf("error reading input: %v", err)
		}
		switch c {
		case ' ':
			if !readSpace {
				out.WriteByte('\n')
			}
			readSpace = true
		case '.':
			if !readDot {
				out.WriteString("\n\n")
			}
			readDot = true
		default:
			readSpace, readDot = false, false
			out.WriteByte(c)
		}
	}
	if err := out.Flush(); err != nil {
		glog.Exitf("error writing output: %v", err)
	}
}
