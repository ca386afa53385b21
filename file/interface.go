// Package file abstracts the source artifacts read by the grader, so a
// submission can come from disk or be assembled in memory.
package file

import "io"

// File defines file name with its content
// file could on file system or memory
type File interface {
	Name() string                   // base name, used for output file names
	Content() ([]byte, error)       // get content of the file
	Reader() (io.ReadCloser, error) // get a reader over the content
}
