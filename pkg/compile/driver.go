package compile

import (
	"bytes"
	"fmt"
	"os"
)

// Dependency-info record opcodes.
const (
	depInfoVersion byte = 0x00
	depInfoInput   byte = 0x10
	depInfoOutput  byte = 0x40
)

// WriteDependencyInfo emits the build system's binary dependency
// listing: a version record followed by one NUL-terminated record per
// input and output path.
func WriteDependencyInfo(path, creator string, result *Result) error {
	var buf bytes.Buffer
	writeDepRecord(&buf, depInfoVersion, creator)
	for _, in := range result.Inputs {
		writeDepRecord(&buf, depInfoInput, in)
	}
	for _, out := range result.Outputs {
		writeDepRecord(&buf, depInfoOutput, out)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func writeDepRecord(buf *bytes.Buffer, opcode byte, value string) {
	buf.WriteByte(opcode)
	buf.WriteString(value)
	buf.WriteByte(0)
}

// WritePartialInfoPlist emits the driver's Info.plist fragment. Only
// the app-icon key is populated; the build system merges the fragment
// into the product's plist.
func WritePartialInfoPlist(path string, opts *Options) error {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString(`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n")
	buf.WriteString(`<plist version="1.0">` + "\n<dict>\n")
	if opts.AppIcon != "" {
		fmt.Fprintf(&buf, "\t<key>CFBundleIconName</key>\n\t<string>%s</string>\n", xmlEscape(opts.AppIcon))
	}
	buf.WriteString("</dict>\n</plist>\n")
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
