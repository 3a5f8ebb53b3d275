package main

// Extracts article text from a Wikipedia XML dump on standard input.
// The contents of every text element are copied to standard output,
// followed by a FS byte (0x1C) per article as the delimiter.

import (
	"bufio"
	"encoding/xml"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/kho/easy"
)

func main() {
	easy.ParseFlagsAndArgs(nil)

	dec := xml.NewDecoder(os.Stdin)
	out := bufio.NewWriter(os.Stdout)

	inText := false
	depth, textDepth := 0, 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			glog.Exitf("error parsing XML: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !inText && t.Name.Local == "text" {
				inText = true
				textDepth = depth
			}
			depth++
		case xml.EndElement:
			depth--
			if inText && depth == textDepth {
				inText = false
				out.WriteByte(0x1C)
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	if err := out.Flush(); err != nil {
		glog.Exitf("error writing output: %v", err)
	}
}
