// Package keys computes the canonical storage keys for every pipeline stage.
//
// All derivations are pure string functions of (folderPath, baseName) plus the
// configured roots. No stage may build object names on its own; every key in
// the pipeline comes from here so that artifacts for different jobs never
// collide and the final document lands at the same relative folder position
// as its input.
package keys

import (
	"fmt"
	"path"
	"strings"
)

// Layout holds the storage roots the pipeline operates under. It is passed in
// explicitly at construction; nothing in this package reads the environment.
type Layout struct {
	InputRoot  string
	TempRoot   string
	ResultRoot string
}

// DefaultLayout returns the canonical roots used in production buckets.
func DefaultLayout() Layout {
	return Layout{
		InputRoot:  "pdf",
		TempRoot:   "temp",
		ResultRoot: "result",
	}
}

// ParseInputKey decomposes an input object key of the form
// <InputRoot>/[<folderPath>/]<baseName>.<ext> into its folder path and base
// name. The folder path is empty (not the base name) for objects directly
// under the input root, and preserved verbatim, interior separators included,
// for nested objects.
func (l Layout) ParseInputKey(inputKey string) (folderPath, baseName string, err error) {
	prefix := l.InputRoot + "/"
	if !strings.HasPrefix(inputKey, prefix) {
		return "", "", fmt.Errorf("input key %q is not under %q", inputKey, prefix)
	}
	rel := strings.TrimPrefix(inputKey, prefix)
	if rel == "" || strings.HasSuffix(rel, "/") {
		return "", "", fmt.Errorf("input key %q has no object name", inputKey)
	}
	dir, file := path.Split(rel)
	baseName = strings.TrimSuffix(file, path.Ext(file))
	if baseName == "" {
		return "", "", fmt.Errorf("input key %q has no base name", inputKey)
	}
	return strings.TrimSuffix(dir, "/"), baseName, nil
}

// Input rebuilds the input key for a job. It is the inverse of ParseInputKey
// for .pdf objects.
func (l Layout) Input(folderPath, baseName string) string {
	return path.Join(l.InputRoot, folderPath, baseName+".pdf")
}

// workDir is the per-job scratch prefix all intermediate artifacts live under.
func (l Layout) workDir(folderPath, baseName string) string {
	return path.Join(l.TempRoot, folderPath, baseName)
}

// Chunk returns the key a freshly split chunk is written to.
func (l Layout) Chunk(folderPath, baseName string, index int) string {
	return fmt.Sprintf("%s/%s_chunk_%d.pdf", l.workDir(folderPath, baseName), baseName, index)
}

// Autotag returns the key a chunk is written to after structural tagging.
func (l Layout) Autotag(folderPath, baseName string, index int) string {
	return fmt.Sprintf("%s/output_autotag/%s_chunk_%d.pdf", l.workDir(folderPath, baseName), baseName, index)
}

// Enriched returns the key a chunk is written to after the alt-text and
// link-text pass.
func (l Layout) Enriched(folderPath, baseName string, index int) string {
	return fmt.Sprintf("%s/FINAL_%s_chunk_%d.pdf", l.workDir(folderPath, baseName), baseName, index)
}

// Merged returns the key the recombined document is written to.
func (l Layout) Merged(folderPath, baseName string) string {
	return fmt.Sprintf("%s/merged_%s.pdf", l.workDir(folderPath, baseName), baseName)
}

// Manifest returns the key of the split manifest for a job.
func (l Layout) Manifest(folderPath, baseName string) string {
	return l.workDir(folderPath, baseName) + "/manifest.json"
}

// Report returns the key a compliance report for the given phase is persisted
// under.
func (l Layout) Report(folderPath, baseName, phase string) string {
	return fmt.Sprintf("%s/accessability-report/%s.json", l.workDir(folderPath, baseName), phase)
}

// Final returns the key the compliant document is promoted to, preserving the
// folder position of the original input.
func (l Layout) Final(folderPath, baseName string) string {
	return path.Join(l.ResultRoot, folderPath, "COMPLIANT_"+baseName+".pdf")
}
