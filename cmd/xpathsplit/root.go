package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "xpathsplit",
	Short: "Evaluate a restricted XPath over an XML document by chunked, speculative parallel parsing",
	Long: `xpathsplit reads an XML document and a single absolute, axis-free
XPath expression (/a/b/.../z), splits the document into chunks, and
evaluates the path against each chunk independently and concurrently
before merging the chunk results into one answer.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runRoot,
}

var rootFlags = struct {
	xmlPath   string
	xpathPath string
}{}

func init() {
	rootCmd.Flags().StringVar(&rootFlags.xmlPath, "xml", "data.xml", "path to the XML document")
	rootCmd.Flags().StringVar(&rootFlags.xpathPath, "xpath", "xpath.txt", "path to the file holding the XPath expression")
}

// Execute runs the root command, returning whatever error it produced to
// main, which reports it and sets the exit code.
func Execute() error {
	return rootCmd.Execute()
}
