// Command minify prepares production assets by minifying templates and
// static files into the dist/ directory.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

func main() {
	outDir := flag.String("out", "dist", "Output directory for minified assets")
	flag.Parse()

	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("application/javascript", js.Minify)

	jobs := []struct {
		srcDir    string
		suffix    string
		mediaType string
	}{
		{"templates", ".html", "text/html"},
		{"static", ".css", "text/css"},
		{"static", ".js", "application/javascript"},
	}

	for _, job := range jobs {
		err := filepath.WalkDir(job.srcDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, job.suffix) {
				return minifyFile(m, path, filepath.Join(*outDir, path), job.mediaType)
			}
			return nil
		})
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			log.Fatalf("Error minifying %s files: %v", job.suffix, err)
		}
	}

	fmt.Printf("Minified assets written to %s/\n", *outDir)
}

func minifyFile(m *minify.M, srcPath, dstPath, mediaType string) error {
	src, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}

	minified, err := m.Bytes(mediaType, src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(dstPath, minified, 0644); err != nil {
		return err
	}

	ratio := float64(len(src)-len(minified)) / float64(len(src)) * 100
	fmt.Printf("%s: %d bytes -> %d bytes (%.1f%% reduction)\n",
		srcPath, len(src), len(minified), ratio)
	return nil
}
